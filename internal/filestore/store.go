// Package filestore persists raw document bytes. Backends register
// themselves by type name; config selects one at startup.
package filestore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/paperflowhq/paperflow/internal/config"
)

type Store interface {
	// Upload writes data under key. With overwrite=false an existing object
	// is an error; callers that re-ingest a new content version pass true.
	Upload(ctx context.Context, key string, data []byte, contentType string, overwrite bool) error
	Download(ctx context.Context, key string) ([]byte, error)
}

type Factory func(cfg config.FileStoreConfig) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.FileStoreConfig) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("file_store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported file store type: %s", cfg.Type)
	}
	return factory(cfg)
}
