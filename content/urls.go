package content

import (
	"fmt"
	"strings"
)

// DefaultBaseURL is the CDN root chapter text and audio are served from.
const DefaultBaseURL = "https://content.kinyabible.com"

// Slug derives the path fragment used by the CDN from a book name:
// lowercased, with spaces collapsed to underscores.
func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(s), "_")
}

// paddedDir is the per-book directory name, a zero-padded id joined
// with the slug ("60_1_peter").
func paddedDir(b Book) string {
	return fmt.Sprintf("%02d_%s", b.ID, Slug(b.Name))
}

// ChapterURL is the JSON chapter document for a book and chapter.
func ChapterURL(base string, b Book, chapter int) string {
	slug := Slug(b.Name)
	return fmt.Sprintf("%s/%s/%s/%s%d.json",
		strings.TrimRight(base, "/"), b.Testament, paddedDir(b), slug, chapter)
}

// AudioURL is the narration MP3 for a book and chapter.
func AudioURL(base string, b Book, chapter int) string {
	slug := Slug(b.Name)
	return fmt.Sprintf("%s/audiobible/%s/%s/%s%d.mp3",
		strings.TrimRight(base, "/"), b.Testament, paddedDir(b), slug, chapter)
}

// CacheKey identifies a chapter document in the local cache.
func CacheKey(b Book, chapter int) string {
	return fmt.Sprintf("chapter_%s_%d_%d", b.Testament, b.ID, chapter)
}
