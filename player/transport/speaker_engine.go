package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

const (
	// speakerSampleRate is the mixer rate; all streams resample to it.
	speakerSampleRate = beep.SampleRate(44100)
	speakerBufferSize = 100 * time.Millisecond
)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerSampleRate, speakerSampleRate.N(speakerBufferSize))
	})
	return speakerErr
}

// SpeakerEngine plays MP3 sources through the shared speaker mixer. The
// mixer sums all attached streams, so narration and the background loop
// are audible simultaneously without either owning the output.
type SpeakerEngine struct {
	client *http.Client
}

// NewSpeakerEngine creates the speaker-backed engine.
func NewSpeakerEngine() *SpeakerEngine {
	return &SpeakerEngine{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements Engine.
func (e *SpeakerEngine) Name() string { return "speaker" }

// Available reports whether the audio device initialized.
func (e *SpeakerEngine) Available() bool {
	return initSpeaker() == nil
}

// Open fetches the source and builds the playback chain:
// decoder -> resampler (rate) -> ctrl (pause) -> volume -> mixer.
func (e *SpeakerEngine) Open(ctx context.Context, url string, opts OpenOptions) (Stream, error) {
	if err := initSpeaker(); err != nil {
		return nil, fmt.Errorf("speaker init: %w", err)
	}

	body, err := e.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	decoded, format, err := mp3.Decode(&bufferedSource{bytes.NewReader(body)})
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", url, err)
	}

	rate := opts.Rate
	if rate == 0 {
		rate = 1.0
	}

	s := &speakerStream{
		decoded:   decoded,
		format:    format,
		baseRatio: float64(format.SampleRate) / float64(speakerSampleRate),
		rate:      rate,
		done:      make(chan struct{}),
	}

	var chain beep.Streamer = decoded
	if opts.Loop {
		s.looping = true
		chain = beep.Loop(-1, decoded)
	}
	s.resampler = beep.ResampleRatio(4, s.baseRatio*rate, chain)
	s.ctrl = &beep.Ctrl{Streamer: s.resampler, Paused: true}
	s.volume = &effects.Volume{
		Streamer: s.ctrl,
		Base:     2,
		Volume:   volumeToPower(opts.Volume),
		Silent:   opts.Volume <= 0,
	}

	speaker.Play(beep.Seq(s.volume, beep.Callback(s.finished)))

	log.Debug("opened stream", "url", url, "sample_rate", format.SampleRate, "loop", opts.Loop)
	return s, nil
}

func (e *SpeakerEngine) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// bufferedSource adapts an in-memory MP3 to the decoder's ReadCloser+Seeker
// contract, keeping the whole track seekable.
type bufferedSource struct {
	*bytes.Reader
}

func (b *bufferedSource) Close() error { return nil }

// speakerStream is one pipeline attached to the mixer.
type speakerStream struct {
	mu        sync.Mutex
	decoded   beep.StreamSeekCloser
	format    beep.Format
	resampler *beep.Resampler
	ctrl      *beep.Ctrl
	volume    *effects.Volume
	baseRatio float64
	rate      float64
	looping   bool
	closed    bool
	done      chan struct{}
	doneOnce  sync.Once
}

func (s *speakerStream) finished() {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed || s.looping {
		// Teardown drains the chain too; only a natural end signals Done.
		return
	}
	s.doneOnce.Do(func() { close(s.done) })
}

// Play implements Stream.
func (s *speakerStream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream closed")
	}
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Pause implements Stream. The pipeline stays attached to the mixer, so
// resuming continues from the paused position without a reload.
func (s *speakerStream) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream closed")
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

// Seek implements Stream.
func (s *speakerStream) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream closed")
	}
	if pos < 0 {
		pos = 0
	}
	n := s.format.SampleRate.N(pos)
	if max := s.decoded.Len(); n > max {
		n = max
	}
	speaker.Lock()
	err := s.decoded.Seek(n)
	speaker.Unlock()
	return err
}

// SetVolume implements Stream.
func (s *speakerStream) SetVolume(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream closed")
	}
	speaker.Lock()
	s.volume.Volume = volumeToPower(v)
	s.volume.Silent = v <= 0
	speaker.Unlock()
	return nil
}

// SetRate implements Stream.
func (s *speakerStream) SetRate(r float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream closed")
	}
	s.rate = r
	speaker.Lock()
	s.resampler.SetRatio(s.baseRatio * r)
	speaker.Unlock()
	return nil
}

// Position implements Stream.
func (s *speakerStream) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	speaker.Lock()
	n := s.decoded.Position()
	speaker.Unlock()
	return s.format.SampleRate.D(n)
}

// Duration implements Stream.
func (s *speakerStream) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format.SampleRate.D(s.decoded.Len())
}

// Playing implements Stream.
func (s *speakerStream) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	speaker.Lock()
	paused := s.ctrl.Paused
	speaker.Unlock()
	return !paused
}

// Done implements Stream.
func (s *speakerStream) Done() <-chan struct{} { return s.done }

// Close detaches the pipeline from the mixer and releases the decoder.
// Other streams on the mixer are unaffected.
func (s *speakerStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	speaker.Lock()
	s.ctrl.Paused = true
	s.ctrl.Streamer = nil
	speaker.Unlock()
	return s.decoded.Close()
}

// volumeToPower maps a linear volume in [0, 1] to the exponential scale
// the volume effect expects (Base 2).
func volumeToPower(v float64) float64 {
	if v <= 0 {
		return 0
	}
	if v > 1 {
		v = 1
	}
	return math.Log2(v)
}
