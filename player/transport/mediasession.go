package transport

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kinyabible/audiobible/player"
)

// RemoteCommand is an OS-level transport control routed back into the
// playback engine (lock screen, headset buttons, car controls).
type RemoteCommand int

const (
	// RemotePlay resumes narration.
	RemotePlay RemoteCommand = iota
	// RemotePause pauses narration.
	RemotePause
	// RemoteStop halts narration and rewinds.
	RemoteStop
	// RemoteSeek moves to an absolute position.
	RemoteSeek
	// RemoteNext skips to the next chapter.
	RemoteNext
	// RemotePrevious skips to the previous chapter.
	RemotePrevious
)

// String returns the command name.
func (c RemoteCommand) String() string {
	switch c {
	case RemotePlay:
		return "play"
	case RemotePause:
		return "pause"
	case RemoteStop:
		return "stop"
	case RemoteSeek:
		return "seek"
	case RemoteNext:
		return "next"
	case RemotePrevious:
		return "previous"
	default:
		return "unknown"
	}
}

// NowPlaying is the metadata pushed to the platform media session.
type NowPlaying struct {
	Title      string
	Artist     string
	ArtworkURL string
	Duration   time.Duration
}

// RemoteHandler receives remote commands. Position is meaningful only for
// RemoteSeek.
type RemoteHandler func(cmd RemoteCommand, pos time.Duration)

// MediaSession mirrors track metadata to the OS transport controls and
// routes remote commands into a single registered handler.
type MediaSession struct {
	mu      sync.RWMutex
	now     NowPlaying
	handler RemoteHandler
}

// NewMediaSession creates an empty media session.
func NewMediaSession() *MediaSession {
	return &MediaSession{}
}

// SetNowPlaying publishes track metadata to the session.
func (s *MediaSession) SetNowPlaying(track player.Track) {
	s.mu.Lock()
	s.now = NowPlaying{
		Title:      track.Title,
		Artist:     track.Artist,
		ArtworkURL: track.ArtworkURL,
		Duration:   track.Duration,
	}
	s.mu.Unlock()
	log.Debug("media session updated", "title", track.Title, "artist", track.Artist)
}

// Current returns the published metadata.
func (s *MediaSession) Current() NowPlaying {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now
}

// OnRemote registers the command handler. Only one handler is active; the
// playback engine owns the session.
func (s *MediaSession) OnRemote(fn RemoteHandler) {
	s.mu.Lock()
	s.handler = fn
	s.mu.Unlock()
}

// HandleRemote dispatches an incoming remote command.
func (s *MediaSession) HandleRemote(cmd RemoteCommand, pos time.Duration) {
	s.mu.RLock()
	fn := s.handler
	s.mu.RUnlock()

	if fn == nil {
		log.Debug("remote command with no handler", "command", cmd)
		return
	}
	fn(cmd, pos)
}

// BindCoordinator wires the standard remote-command surface to a
// coordinator. Stop falls back to pause-and-rewind, which the coordinator
// implements, matching lock screens that expose stop. Next and Previous
// go to nav as a chapter delta; a nil nav leaves them unbound.
func (s *MediaSession) BindCoordinator(c *player.Coordinator, nav func(delta int)) {
	s.OnRemote(func(cmd RemoteCommand, pos time.Duration) {
		switch cmd {
		case RemotePlay:
			c.Play()
		case RemotePause:
			c.Pause()
		case RemoteStop:
			c.Stop()
		case RemoteSeek:
			c.SeekTo(pos)
		case RemoteNext:
			if nav != nil {
				nav(1)
			}
		case RemotePrevious:
			if nav != nil {
				nav(-1)
			}
		}
	})
}
