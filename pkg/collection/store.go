package collection

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store defines the interface for collection storage operations.
type Store interface {
	// Append adds a record to the journal
	Append(rec *Record) error

	// List returns all records, newest first
	List() ([]*Record, error)

	// Today returns records collected since local midnight, newest first
	Today() ([]*Record, error)

	// Balance tallies elements for records collected at or after the given time
	Balance(since time.Time) (Balance, error)

	// Count returns the total number of records
	Count() int
}

// JSONStore implements Store using a JSON file for persistence.
type JSONStore struct {
	path    string
	records []*Record
	mu      sync.RWMutex
}

// storeData is the JSON structure for the store file.
type storeData struct {
	Version   int       `json:"version"`
	UpdatedAt string    `json:"updated_at"`
	Records   []*Record `json:"records"`
}

const currentVersion = 1

// NewJSONStore creates a new JSON-based store at the given path.
// If the file doesn't exist, it will be created on first append.
func NewJSONStore(path string) (*JSONStore, error) {
	store := &JSONStore{
		path: path,
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Load existing data if file exists
	if _, err := os.Stat(path); err == nil {
		if err := store.load(); err != nil {
			return nil, fmt.Errorf("failed to load store: %w", err)
		}
	}

	return store, nil
}

// load reads the store from disk.
func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	s.records = stored.Records
	return nil
}

// save writes the store to disk. Callers must hold the write lock.
func (s *JSONStore) save() error {
	stored := storeData{
		Version:   currentVersion,
		UpdatedAt: time.Now().Format(time.RFC3339),
		Records:   s.records,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	// Write to temp file first, then rename (atomic write)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // Clean up temp file
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Append adds a record to the journal.
func (s *JSONStore) Append(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Generate ID if not set
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CollectedAt.IsZero() {
		rec.CollectedAt = time.Now()
	}

	s.records = append(s.records, rec)
	return s.save()
}

// List returns all records, newest first.
func (s *JSONStore) List() ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedSince(time.Time{}), nil
}

// Today returns records collected since local midnight, newest first.
func (s *JSONStore) Today() ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedSince(startOfDay(time.Now())), nil
}

// Balance tallies elements for records collected at or after the given time.
func (s *JSONStore) Balance(since time.Time) (Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Tally(s.sortedSince(since)), nil
}

// sortedSince copies records collected at or after the cutoff, newest first.
// Callers must hold at least the read lock.
func (s *JSONStore) sortedSince(since time.Time) []*Record {
	records := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		if rec.CollectedAt.Before(since) {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CollectedAt.After(records[j].CollectedAt)
	})

	return records
}

// Count returns the total number of records.
func (s *JSONStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Path returns the file path of the store.
func (s *JSONStore) Path() string {
	return s.path
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
