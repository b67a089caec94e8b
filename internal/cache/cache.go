// Package cache stores raw message metadata between audit runs so repeated
// audits only hit the mail service for ids that appeared since the last run.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Header is a single name/value pair from a message's metadata headers.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is the raw metadata for one message, keyed by message id in the
// store. The JSON shape mirrors what the mail service returns, so a record
// round-trips through the cache file unchanged.
type Record struct {
	ID       string   `json:"id"`
	Headers  []Header `json:"headers"`
	LabelIDs []string `json:"labelIds"`
	Snippet  string   `json:"snippet,omitempty"`
}

// Header returns the first header value matching name, or def if absent.
func (r *Record) Header(name, def string) string {
	for _, h := range r.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return def
}

// HasLabel reports whether the record carries the given label id.
func (r *Record) HasLabel(label string) bool {
	for _, l := range r.LabelIDs {
		if l == label {
			return true
		}
	}
	return false
}

// Store reads and writes the cache file as a single JSON document mapping
// message id to Record.
type Store struct {
	path string
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the cache file. A missing or unparsable file is not an error:
// a fresh audit can always start from an empty cache, so Load logs a warning
// and returns an empty map instead.
func (s *Store) Load() map[string]*Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.Warnf("Failed to load cache %s: %v. Starting fresh.", s.path, err)
		}
		return make(map[string]*Record)
	}

	records := make(map[string]*Record)
	if err := json.Unmarshal(data, &records); err != nil {
		logrus.Warnf("Failed to parse cache %s: %v. Starting fresh.", s.path, err)
		return make(map[string]*Record)
	}
	return records
}

// Save writes the full mapping, replacing any prior contents.
func (s *Store) Save(records map[string]*Record) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write cache %s: %w", s.path, err)
	}
	logrus.Infof("Saved %d messages to cache", len(records))
	return nil
}

// Prune removes every record whose id is not in keep, in place, and returns
// the number removed. Messages drop out of the mailbox listing when they are
// deleted or trashed; pruning keeps the cache bounded to what is still there.
func Prune(records map[string]*Record, keep map[string]struct{}) int {
	pruned := 0
	for id := range records {
		if _, ok := keep[id]; !ok {
			delete(records, id)
			pruned++
		}
	}
	if pruned > 0 {
		logrus.Infof("Pruned %d removed messages from cache", pruned)
	}
	return pruned
}
