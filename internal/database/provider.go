package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/facelog/internal/config"
)

// OpenFunc opens a store for a registered driver. The returned store is not yet initialized.
type OpenFunc func(ctx context.Context, cfg *config.DatabaseConfig) (Store, error)

var (
	backends   = make(map[string]OpenFunc)
	readers    = make(map[string]OpenFunc)
	backendsMu sync.RWMutex
)

// RegisterBackend registers a store constructor for a driver name.
// This is called from the backend packages' init to avoid import cycles.
func RegisterBackend(driver string, open OpenFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if open == nil {
		panic("database: RegisterBackend open func is nil")
	}
	if _, dup := backends[driver]; dup {
		panic("database: RegisterBackend called twice for driver " + driver)
	}
	backends[driver] = open
}

// RegisterReader registers a read-only constructor for a driver name.
// Drivers without one are opened through their RegisterBackend constructor by OpenReader.
func RegisterReader(driver string, open OpenFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if open == nil {
		panic("database: RegisterReader open func is nil")
	}
	if _, dup := readers[driver]; dup {
		panic("database: RegisterReader called twice for driver " + driver)
	}
	readers[driver] = open
}

// Drivers returns the names of the registered backends.
func Drivers() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	return drivers()
}

func drivers() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens the configured store and makes sure the faces table exists.
// Any failure is returned as a *StorageError.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (Store, error) {
	open, err := lookup(cfg, backends)
	if err != nil {
		return nil, err
	}

	store, err := open(ctx, cfg)
	if err != nil {
		return nil, NewStorageError("open", err)
	}

	if err := store.Initialize(ctx); err != nil {
		_ = store.Close()
		return nil, NewStorageError("initialize", err)
	}

	return store, nil
}

// OpenReader opens an existing store without creating or altering anything.
// A missing database or faces table is returned as a *StorageError.
func OpenReader(ctx context.Context, cfg *config.DatabaseConfig) (Store, error) {
	open, err := lookup(cfg, readers)
	if err != nil {
		return nil, err
	}

	store, err := open(ctx, cfg)
	if err != nil {
		return nil, NewStorageError("open", err)
	}

	if err := store.VerifyTable(ctx); err != nil {
		_ = store.Close()
		return nil, NewStorageError("open", err)
	}

	return store, nil
}

// lookup validates cfg and returns its constructor from preferred, falling back to backends.
func lookup(cfg *config.DatabaseConfig, preferred map[string]OpenFunc) (OpenFunc, error) {
	if cfg == nil {
		return nil, NewStorageError("open", fmt.Errorf("%w: no database configuration", ErrUnknownDriver))
	}
	if err := ValidateTable(cfg.Table); err != nil {
		return nil, NewStorageError("open", err)
	}

	backendsMu.RLock()
	defer backendsMu.RUnlock()
	if open, ok := preferred[cfg.Driver]; ok {
		return open, nil
	}
	if open, ok := backends[cfg.Driver]; ok {
		return open, nil
	}
	return nil, NewStorageError("open", fmt.Errorf("%w %q (registered: %v)", ErrUnknownDriver, cfg.Driver, drivers()))
}
