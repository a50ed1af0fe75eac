package content

import (
	"path"
	"strings"

	"github.com/kinyabible/audiobible/player"
)

// MusicNone is the sentinel id that disables background music.
const MusicNone = "none"

// MusicTrack is a selectable background loop.
type MusicTrack struct {
	ID   string
	Name string
	URL  string
}

// defaultMusicURLs is the built-in background loop list. Names and ids
// are derived from the filenames.
var defaultMusicURLs = []string{
	DefaultBaseURL + "/music/gentle_piano.mp3",
	DefaultBaseURL + "/music/soft_strings.mp3",
	DefaultBaseURL + "/music/morning_worship.mp3",
	DefaultBaseURL + "/music/quiet_streams.mp3",
	DefaultBaseURL + "/music/evening_prayer.mp3",
}

// MusicCatalog lists and resolves background music tracks.
type MusicCatalog struct {
	tracks []MusicTrack
	byID   map[string]MusicTrack
}

// NewMusicCatalog builds the catalog from a URL list, deriving each
// track's id and display name from its filename. An empty list uses
// the built-in tracks. The "none" entry is always first.
func NewMusicCatalog(urls []string) *MusicCatalog {
	if len(urls) == 0 {
		urls = defaultMusicURLs
	}

	tracks := []MusicTrack{{ID: MusicNone, Name: "None"}}
	byID := map[string]MusicTrack{MusicNone: tracks[0]}
	for _, u := range urls {
		t := musicTrackFromURL(u)
		if t.ID == "" {
			continue
		}
		if _, exists := byID[t.ID]; exists {
			continue
		}
		tracks = append(tracks, t)
		byID[t.ID] = t
	}

	return &MusicCatalog{tracks: tracks, byID: byID}
}

// Tracks returns all tracks, the "none" entry first.
func (m *MusicCatalog) Tracks() []MusicTrack {
	out := make([]MusicTrack, len(m.tracks))
	copy(out, m.tracks)
	return out
}

// ByID resolves a track id; unknown ids resolve to the "none" entry.
func (m *MusicCatalog) ByID(id string) MusicTrack {
	if t, ok := m.byID[id]; ok {
		return t
	}
	return m.byID[MusicNone]
}

// Selection converts a track id and volume into a player selection.
func (m *MusicCatalog) Selection(id string, volume float64) player.BackgroundSelection {
	t := m.ByID(id)
	return player.BackgroundSelection{
		TrackID: t.ID,
		URL:     t.URL,
		Volume:  volume,
	}
}

func musicTrackFromURL(u string) MusicTrack {
	base := path.Base(u)
	id := strings.TrimSuffix(base, path.Ext(base))
	if id == "" || id == "." || id == "/" {
		return MusicTrack{}
	}

	words := strings.Fields(strings.ReplaceAll(strings.ReplaceAll(id, "_", " "), "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}

	return MusicTrack{
		ID:   id,
		Name: strings.Join(words, " "),
		URL:  u,
	}
}
