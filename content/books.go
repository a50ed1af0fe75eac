// Package content resolves scripture content: the static book catalog,
// CDN URL derivation, chapter fetching with local caching, and the
// background music list.
package content

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Testament selects the CDN subtree a book lives under.
type Testament string

const (
	// OldTestament is the first CDN subtree.
	OldTestament Testament = "oldTestament"
	// NewTestament is the second CDN subtree.
	NewTestament Testament = "newTestament"
)

// Book is a static catalog entry. IDs follow the canonical ordering and
// never change; they are part of the CDN path scheme.
type Book struct {
	ID        int
	Name      string
	Chapters  int
	Testament Testament
	Category  string
}

var books = []Book{
	{1, "Genesis", 50, OldTestament, "law"},
	{2, "Exodus", 40, OldTestament, "law"},
	{3, "Leviticus", 27, OldTestament, "law"},
	{4, "Numbers", 36, OldTestament, "law"},
	{5, "Deuteronomy", 34, OldTestament, "law"},
	{6, "Joshua", 24, OldTestament, "history"},
	{7, "Judges", 21, OldTestament, "history"},
	{8, "Ruth", 4, OldTestament, "history"},
	{9, "1 Samuel", 31, OldTestament, "history"},
	{10, "2 Samuel", 24, OldTestament, "history"},
	{11, "1 Kings", 22, OldTestament, "history"},
	{12, "2 Kings", 25, OldTestament, "history"},
	{13, "1 Chronicles", 29, OldTestament, "history"},
	{14, "2 Chronicles", 36, OldTestament, "history"},
	{15, "Ezra", 10, OldTestament, "history"},
	{16, "Nehemiah", 13, OldTestament, "history"},
	{17, "Esther", 10, OldTestament, "history"},
	{18, "Job", 42, OldTestament, "poetry"},
	{19, "Psalms", 150, OldTestament, "poetry"},
	{20, "Proverbs", 31, OldTestament, "poetry"},
	{21, "Ecclesiastes", 12, OldTestament, "poetry"},
	{22, "Song of Songs", 8, OldTestament, "poetry"},
	{23, "Isaiah", 66, OldTestament, "majorProphets"},
	{24, "Jeremiah", 52, OldTestament, "majorProphets"},
	{25, "Lamentations", 5, OldTestament, "majorProphets"},
	{26, "Ezekiel", 48, OldTestament, "majorProphets"},
	{27, "Daniel", 12, OldTestament, "majorProphets"},
	{28, "Hosea", 14, OldTestament, "minorProphets"},
	{29, "Joel", 3, OldTestament, "minorProphets"},
	{30, "Amos", 9, OldTestament, "minorProphets"},
	{31, "Obadiah", 1, OldTestament, "minorProphets"},
	{32, "Jonah", 4, OldTestament, "minorProphets"},
	{33, "Micah", 7, OldTestament, "minorProphets"},
	{34, "Nahum", 3, OldTestament, "minorProphets"},
	{35, "Habakkuk", 3, OldTestament, "minorProphets"},
	{36, "Zephaniah", 3, OldTestament, "minorProphets"},
	{37, "Haggai", 2, OldTestament, "minorProphets"},
	{38, "Zechariah", 14, OldTestament, "minorProphets"},
	{39, "Malachi", 4, OldTestament, "minorProphets"},
	{40, "Matthew", 28, NewTestament, "gospels"},
	{41, "Mark", 16, NewTestament, "gospels"},
	{42, "Luke", 24, NewTestament, "gospels"},
	{43, "John", 21, NewTestament, "gospels"},
	{44, "Acts", 28, NewTestament, "history"},
	{45, "Romans", 16, NewTestament, "epistles"},
	{46, "1 Corinthians", 16, NewTestament, "epistles"},
	{47, "2 Corinthians", 13, NewTestament, "epistles"},
	{48, "Galatians", 6, NewTestament, "epistles"},
	{49, "Ephesians", 6, NewTestament, "epistles"},
	{50, "Philippians", 4, NewTestament, "epistles"},
	{51, "Colossians", 4, NewTestament, "epistles"},
	{52, "1 Thessalonians", 5, NewTestament, "epistles"},
	{53, "2 Thessalonians", 3, NewTestament, "epistles"},
	{54, "1 Timothy", 6, NewTestament, "epistles"},
	{55, "2 Timothy", 4, NewTestament, "epistles"},
	{56, "Titus", 3, NewTestament, "epistles"},
	{57, "Philemon", 1, NewTestament, "epistles"},
	{58, "Hebrews", 13, NewTestament, "epistles"},
	{59, "James", 5, NewTestament, "epistles"},
	{60, "1 Peter", 5, NewTestament, "epistles"},
	{61, "2 Peter", 3, NewTestament, "epistles"},
	{62, "1 John", 5, NewTestament, "epistles"},
	{63, "2 John", 1, NewTestament, "epistles"},
	{64, "3 John", 1, NewTestament, "epistles"},
	{65, "Jude", 1, NewTestament, "epistles"},
	{66, "Revelation", 22, NewTestament, "revelation"},
}

// Catalog provides indexed lookups over the static book table.
type Catalog struct {
	byID   map[int]Book
	byName map[string]Book
	names  []string
}

// NewCatalog builds the catalog indexes.
func NewCatalog() *Catalog {
	c := &Catalog{
		byID:   make(map[int]Book, len(books)),
		byName: make(map[string]Book, len(books)),
		names:  make([]string, 0, len(books)),
	}
	for _, b := range books {
		c.byID[b.ID] = b
		c.byName[strings.ToLower(b.Name)] = b
		c.names = append(c.names, b.Name)
	}
	return c
}

// Books returns the full catalog in canonical order, optionally filtered
// by testament.
func (c *Catalog) Books(testament Testament) []Book {
	if testament == "" {
		out := make([]Book, len(books))
		copy(out, books)
		return out
	}
	var out []Book
	for _, b := range books {
		if b.Testament == testament {
			out = append(out, b)
		}
	}
	return out
}

// ByID finds a book by its canonical id.
func (c *Catalog) ByID(id int) (Book, error) {
	b, ok := c.byID[id]
	if !ok {
		return Book{}, fmt.Errorf("book not found with id %d", id)
	}
	return b, nil
}

// ByName finds a book by name, case-insensitively.
func (c *Catalog) ByName(name string) (Book, error) {
	b, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Book{}, fmt.Errorf("book not found with name %q", name)
	}
	return b, nil
}

// Search fuzzy-matches a query against book names, best match first.
func (c *Catalog) Search(query string) []Book {
	matches := fuzzy.Find(query, c.names)
	out := make([]Book, 0, len(matches))
	for _, m := range matches {
		if b, ok := c.byName[strings.ToLower(m.Str)]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Next returns the book following b in canonical order, if any.
func (c *Catalog) Next(b Book) (Book, bool) {
	next, ok := c.byID[b.ID+1]
	return next, ok
}
