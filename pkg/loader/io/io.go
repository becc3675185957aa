package io

import (
	"context"
	"os"
	"sync"

	"github.com/defectgraph/backend/pkg/loader"

	"golang.org/x/sync/singleflight"
)

// DiskFileLoader loads files directly from the local filesystem with
// caching. Concurrent reads of the same file collapse into one.
type DiskFileLoader struct {
	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewDiskFileLoader creates a new filesystem-based file loader.
func NewDiskFileLoader() *DiskFileLoader {
	return &DiskFileLoader{
		cache: make(map[string][]byte),
	}
}

// GetFileContent reads the file content from the filesystem. Results are
// cached.
func (l *DiskFileLoader) GetFileContent(ctx context.Context, file loader.DocumentFile) ([]byte, error) {
	key := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[key]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		content, err := os.ReadFile(file.FilePath)
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[key] = content
		l.cacheMu.Unlock()

		return content, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}
