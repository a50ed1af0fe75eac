// Package cache persists fetched chapter documents on disk so that
// previously read chapters stay available offline. Entries carry the
// HTTP validators from the fetch that produced them, which lets the
// content client revalidate with conditional requests instead of
// re-downloading.
package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

var (
	// ErrItemTooLarge is returned when an entry exceeds the store capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when a stored entry cannot be decoded.
	ErrCacheCorrupted = errors.New("cache data corrupted")
)

// Entry is a cached document plus the validators it was fetched with.
type Entry struct {
	Data         []byte
	ETag         string
	LastModified string
	FetchedAt    time.Time
}

// Stats holds store metrics for the config command.
type Stats struct {
	Capacity  int64
	Size      int64
	ItemCount int64
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64
}

// Options configures a Store.
type Options struct {
	// Capacity is the on-disk budget in bytes.
	Capacity int64

	// CompressionLevel is the zstd level; zero disables compression.
	CompressionLevel int
}

// DefaultOptions sizes the store for a few hundred chapter documents.
func DefaultOptions() Options {
	return Options{
		Capacity:         64 * 1024 * 1024,
		CompressionLevel: 3,
	}
}

// indexEntry is the on-disk index record for one cached document.
type indexEntry struct {
	Key          string
	FilePath     string
	Size         int64
	ETag         string
	LastModified string
	FetchedAt    time.Time
	LastAccess   time.Time
	Compressed   bool
}

// Store is a disk-backed document cache with an in-memory index.
// Values are compressed with zstd and written atomically; the index is
// saved as gob on Close so entries survive restarts.
type Store struct {
	basePath string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*indexEntry
	mu    sync.Mutex

	stats Stats
}

// Open loads or creates a store rooted at basePath.
func Open(basePath string, opts Options) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	s := &Store{
		basePath: basePath,
		capacity: opts.Capacity,
		index:    make(map[string]*indexEntry),
		stats:    Stats{Capacity: opts.Capacity},
	}

	if opts.CompressionLevel > 0 {
		var err error
		s.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.CompressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		s.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
	}

	if err := s.loadIndex(); err != nil {
		// Non-fatal: start with an empty index
		s.index = make(map[string]*indexEntry)
	}
	for _, e := range s.index {
		s.size += e.Size
	}

	return s, nil
}

// Get returns the cached entry for key, if present.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ie, ok := s.index[key]
	if !ok {
		s.stats.Misses++
		return Entry{}, false
	}

	data, err := os.ReadFile(ie.FilePath)
	if err != nil {
		s.dropLocked(key, ie)
		s.stats.Misses++
		return Entry{}, false
	}

	if ie.Compressed && s.decoder != nil {
		data, err = s.decoder.DecodeAll(data, nil)
		if err != nil {
			s.dropLocked(key, ie)
			s.stats.Misses++
			return Entry{}, false
		}
	}

	ie.LastAccess = time.Now()
	s.stats.Hits++

	return Entry{
		Data:         data,
		ETag:         ie.ETag,
		LastModified: ie.LastModified,
		FetchedAt:    ie.FetchedAt,
	}, true
}

// Put stores an entry under key, evicting least recently used entries
// when the store is over capacity.
func (s *Store) Put(key string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := e.Data
	compressed := false
	if s.encoder != nil && len(data) > 1024 {
		c := s.encoder.EncodeAll(data, nil)
		if len(c) < len(data) {
			data = c
			compressed = true
		}
	}

	diskSize := int64(len(data))
	if diskSize > s.capacity {
		return ErrItemTooLarge
	}

	if existing, ok := s.index[key]; ok {
		s.dropLocked(key, existing)
	}
	for s.size+diskSize > s.capacity && len(s.index) > 0 {
		s.evictOldestLocked()
	}

	path := s.filePath(key)
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	fetchedAt := e.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	s.index[key] = &indexEntry{
		Key:          key,
		FilePath:     path,
		Size:         diskSize,
		ETag:         e.ETag,
		LastModified: e.LastModified,
		FetchedAt:    fetchedAt,
		LastAccess:   time.Now(),
		Compressed:   compressed,
	}
	s.size += diskSize

	return nil
}

// Touch refreshes the fetch time and validators of an existing entry,
// used after a revalidation that returned not-modified.
func (s *Store) Touch(key, etag, lastModified string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ie, ok := s.index[key]
	if !ok {
		return
	}
	if etag != "" {
		ie.ETag = etag
	}
	if lastModified != "" {
		ie.LastModified = lastModified
	}
	ie.FetchedAt = time.Now()
}

// Delete removes the entry for key, if present.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ie, ok := s.index[key]; ok {
		s.dropLocked(key, ie)
	}
	return nil
}

// Contains reports whether key is cached, without counting a hit.
func (s *Store) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.index[key]
	return ok
}

// Clear removes every entry and persists the empty index.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ie := range s.index {
		os.Remove(ie.FilePath)
	}
	s.index = make(map[string]*indexEntry)
	s.size = 0

	return s.saveIndex()
}

// Prune removes entries fetched before the cutoff and returns the count.
func (s *Store) Prune(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for key, ie := range s.index {
		if ie.FetchedAt.Before(cutoff) {
			s.dropLocked(key, ie)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of store metrics.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.Size = s.size
	st.ItemCount = int64(len(s.index))
	if st.Hits+st.Misses > 0 {
		st.HitRate = float64(st.Hits) / float64(st.Hits+st.Misses)
	}
	return st
}

// Close persists the index to disk.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveIndex()
}

func (s *Store) dropLocked(key string, ie *indexEntry) {
	os.Remove(ie.FilePath)
	s.size -= ie.Size
	delete(s.index, key)
}

func (s *Store) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, ie := range s.index {
		if oldestKey == "" || ie.LastAccess.Before(oldest) {
			oldestKey = key
			oldest = ie.LastAccess
		}
	}
	if oldestKey != "" {
		s.dropLocked(oldestKey, s.index[oldestKey])
		s.stats.Evictions++
	}
}

func (s *Store) filePath(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(s.basePath, hex.EncodeToString(hash[:16])+".cache")
}

func (s *Store) loadIndex() error {
	file, err := os.Open(filepath.Join(s.basePath, "cache.index"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(&s.index); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheCorrupted, err)
	}
	return nil
}

func (s *Store) saveIndex() error {
	indexPath := filepath.Join(s.basePath, "cache.index")
	tempPath := indexPath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(file).Encode(s.index)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return err
	}
	return os.Rename(tempPath, indexPath)
}

// writeAtomic writes data to a temp file then renames it into place.
func writeAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	_, err = file.Write(data)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return err
	}
	return os.Rename(tempPath, path)
}
