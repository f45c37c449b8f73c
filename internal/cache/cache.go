// Package cache persists Findings between runs, keyed by alert and guarded
// by a fingerprint of everything that influences the analysis.
package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/redactyl/alertlens/internal/types"
)

// FileName is the cache file written under the analysed root.
const FileName = ".alertlens_cache.json"

// Entry is one cached Finding with the fingerprint it was computed for.
type Entry struct {
	Fingerprint string        `json:"fingerprint"`
	Finding     types.Finding `json:"finding"`
}

// DB is the on-disk form of the cache.
type DB struct {
	// alert key (source dir or alert id) -> entry
	Entries map[string]Entry `json:"entries"`
}

// Store is a concurrency-safe in-memory view of a DB.
type Store struct {
	mu    sync.Mutex
	root  string
	db    DB
	dirty bool
}

func defaultPath(root string) string {
	return filepath.Join(root, FileName)
}

// Load reads the cache under root. A missing or corrupt file yields an empty
// store together with the read error, which callers may ignore.
func Load(root string) (*Store, error) {
	s := &Store{root: root, db: DB{Entries: map[string]Entry{}}}
	b, err := os.ReadFile(defaultPath(root))
	if err != nil {
		return s, err
	}
	var db DB
	if err := json.Unmarshal(b, &db); err != nil {
		return s, err
	}
	if db.Entries != nil {
		s.db = db
	}
	return s, nil
}

// Get returns the cached Finding for key when its fingerprint matches fp.
func (s *Store) Get(key, fp string) (types.Finding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.db.Entries[key]
	if !ok || e.Fingerprint != fp {
		return types.Finding{}, false
	}
	return e.Finding, true
}

// Put records f for key. Degraded findings are not cached.
func (s *Store) Put(key, fp string, f types.Finding) {
	if f.Degraded {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db.Entries[key] = Entry{Fingerprint: fp, Finding: f}
	s.dirty = true
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.db.Entries)
}

// Save writes the cache back when it changed since Load.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db.Entries == nil {
		return errors.New("empty cache")
	}
	if !s.dirty {
		return nil
	}
	b, err := json.MarshalIndent(s.db, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(defaultPath(s.root), b, 0644); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Fingerprint hashes the inputs of an analysis: alert identity, the four
// artifact texts, the parsed table and the given salts (rule digest, analysis
// version, mode).
func Fingerprint(b types.ArtifactBundle, salts ...string) string {
	d := xxhash.New()
	write := func(s string) {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}
	write(b.AlertID)
	write(b.AlertName)
	write(types.Text(b.Code))
	write(types.Text(b.Explanation))
	write(types.Text(b.Metadata))
	write(types.Text(b.Summary))
	if b.Table != nil {
		write(b.Table.RawText)
	}
	for _, s := range salts {
		write(s)
	}
	return hex16(d.Sum64())
}

func hex16(sum uint64) string {
	var buf [16]byte
	const hex = "0123456789abcdef"
	for i := 15; i >= 0; i-- {
		buf[i] = hex[sum&0xF]
		sum >>= 4
	}
	return string(buf[:])
}
