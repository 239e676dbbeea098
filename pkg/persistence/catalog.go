package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/roomtone/roomtone-go/pkg/model"
)

// SnapshotVersion is the current version of the snapshot file format.
const SnapshotVersion = 1

// CatalogSnapshot is the persisted form of the default catalog query result.
type CatalogSnapshot struct {
	// Version is the snapshot file format version.
	Version int `json:"version"`

	// CapturedAt is when the items were fetched from the network.
	CapturedAt time.Time `json:"captured_at"`

	// Items are the catalog entries.
	Items []model.Station `json:"items"`

	// Total is the server-reported total for the query.
	Total int `json:"total"`
}

// CatalogStore manages persistence of the catalog snapshot to a JSON file.
type CatalogStore struct {
	mu   sync.Mutex
	path string
}

// NewCatalogStore creates a new catalog store.
func NewCatalogStore(path string) *CatalogStore {
	return &CatalogStore{path: path}
}

// Save persists the snapshot to disk.
func (s *CatalogStore) Save(snapshot *CatalogSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ensure parent directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	snapshot.Version = SnapshotVersion
	if snapshot.CapturedAt.IsZero() {
		snapshot.CapturedAt = time.Now()
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

// Load reads the snapshot from disk.
// Returns nil, nil if the file doesn't exist or cannot be parsed: a stale or
// corrupt snapshot is a cache miss, not a failure.
func (s *CatalogStore) Load() (*CatalogSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snapshot := &CatalogSnapshot{}
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, nil
	}
	if snapshot.Version != SnapshotVersion {
		return nil, nil
	}

	return snapshot, nil
}

// Clear removes the snapshot file.
func (s *CatalogStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
