package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/kinyabible/audiobible/internal/cache"
	"github.com/kinyabible/audiobible/player"
)

// Chapter is a fetched chapter: its verses with narration timing plus
// the track describing the matching audio file.
type Chapter struct {
	Book      Book
	Number    int
	Verses    []player.Verse
	Track     player.Track
	FromCache bool
}

// chapterDoc mirrors the CDN JSON document: verses keyed by verse
// number. Timing values are seconds.
type chapterDoc struct {
	Verses map[string]verseDoc `json:"verses"`
}

type verseDoc struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Client fetches chapter documents from the CDN with local caching.
// Cached entries are revalidated with conditional requests; when the
// network is unreachable the cached copy is served instead.
type Client struct {
	baseURL string
	http    *http.Client
	store   *cache.Store
	catalog *Catalog
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewClient builds a content client. store may be nil to disable caching.
func NewClient(baseURL string, store *cache.Store, catalog *Catalog, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		store:   store,
		catalog: catalog,
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 3),
		logger:  logger.With("component", "content"),
	}
}

// Fetch returns the chapter document for b/chapter, revalidating any
// cached copy and falling back to it when the fetch fails.
func (c *Client) Fetch(ctx context.Context, b Book, chapter int) (*Chapter, error) {
	if chapter < 1 || chapter > b.Chapters {
		return nil, fmt.Errorf("%w: %s has no chapter %d", player.ErrChapterNotFound, b.Name, chapter)
	}

	key := CacheKey(b, chapter)
	var cached cache.Entry
	var haveCached bool
	if c.store != nil {
		cached, haveCached = c.store.Get(key)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := ChapterURL(c.baseURL, b, chapter)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if haveCached {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if haveCached {
			c.logger.Warn("fetch failed, serving cached chapter", "key", key, "error", err)
			return c.build(b, chapter, cached.Data, true)
		}
		return nil, fmt.Errorf("%w: %v", player.ErrNetworkFetchFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && haveCached:
		c.store.Touch(key, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"))
		return c.build(b, chapter, cached.Data, true)

	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s %d", player.ErrChapterNotFound, b.Name, chapter)

	case resp.StatusCode != http.StatusOK:
		if haveCached {
			c.logger.Warn("unexpected status, serving cached chapter",
				"key", key, "status", resp.StatusCode)
			return c.build(b, chapter, cached.Data, true)
		}
		return nil, fmt.Errorf("%w: status %d for %s", player.ErrNetworkFetchFailed, resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if haveCached {
			return c.build(b, chapter, cached.Data, true)
		}
		return nil, fmt.Errorf("%w: %v", player.ErrNetworkFetchFailed, err)
	}

	if c.store != nil {
		if err := c.store.Put(key, cache.Entry{
			Data:         body,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}); err != nil {
			c.logger.Warn("failed to cache chapter", "key", key, "error", err)
		}
	}

	return c.build(b, chapter, body, false)
}

// Prefetch warms the cache for the chapter after b/chapter, crossing
// into the next book when the current one ends. Errors are logged only.
func (c *Client) Prefetch(ctx context.Context, b Book, chapter int) {
	next := b
	nextChapter := chapter + 1
	if nextChapter > b.Chapters {
		var ok bool
		next, ok = c.catalog.Next(b)
		if !ok {
			return
		}
		nextChapter = 1
	}

	if c.store != nil && c.store.Contains(CacheKey(next, nextChapter)) {
		return
	}
	if _, err := c.Fetch(ctx, next, nextChapter); err != nil {
		c.logger.Debug("prefetch failed", "book", next.Name, "chapter", nextChapter, "error", err)
	}
}

// build parses a chapter document and assembles the playable chapter.
func (c *Client) build(b Book, chapter int, data []byte, fromCache bool) (*Chapter, error) {
	var doc chapterDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid chapter document for %s %d: %w", b.Name, chapter, err)
	}

	verses := make([]player.Verse, 0, len(doc.Verses))
	for number, v := range doc.Verses {
		verse := player.Verse{
			Number: number,
			Text:   v.Text,
		}
		if v.Start >= 0 && v.End > v.Start {
			verse.Start = secondsToDuration(v.Start)
			verse.End = secondsToDuration(v.End)
			verse.Timed = true
		} else if v.Start != 0 || v.End != 0 {
			c.logger.Warn("discarding invalid verse timing",
				"book", b.Name, "chapter", chapter, "verse", number,
				"start", v.Start, "end", v.End)
		}
		verses = append(verses, verse)
	}
	sortVerses(verses)

	track := player.NewTrack(AudioURL(c.baseURL, b, chapter),
		fmt.Sprintf("%s %d", b.Name, chapter), "Kinyarwanda Bible")

	return &Chapter{
		Book:      b,
		Number:    chapter,
		Verses:    verses,
		Track:     track,
		FromCache: fromCache,
	}, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// sortVerses orders verses numerically ascending; the JSON object carries
// no order of its own. Non-numeric verse numbers sort after numeric ones.
func sortVerses(verses []player.Verse) {
	sort.SliceStable(verses, func(i, j int) bool {
		a, b := verses[i].Number, verses[j].Number
		na, errA := strconv.Atoi(a)
		nb, errB := strconv.Atoi(b)
		switch {
		case errA == nil && errB == nil:
			return na < nb
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return a < b
		}
	})
}
