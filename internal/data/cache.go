package data

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DatasetCache keeps parsed market files in memory so the API server does
// not re-read and re-parse the same CSV for every evaluation request.
// Entries are invalidated when the file's mtime changes.
type DatasetCache struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry
}

type cacheEntry struct {
	dataset *Dataset
	modTime time.Time
}

func NewDatasetCache() *DatasetCache {
	return &DatasetCache{store: map[string]*cacheEntry{}}
}

// Load returns the cached dataset for path, reading it on first use.
func (c *DatasetCache) Load(path string) (*Dataset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	entry, ok := c.store[abs]
	c.mu.RUnlock()
	if ok && entry.modTime.Equal(info.ModTime()) {
		return entry.dataset, nil
	}

	d, err := LoadCSV(abs)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.store[abs] = &cacheEntry{dataset: d, modTime: info.ModTime()}
	c.mu.Unlock()
	return d, nil
}
