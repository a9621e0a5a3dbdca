package compiler

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"scssc/common"
	"scssc/fileset"
	"scssc/resolver"
)

// Entry is a cached compilation result together with hashes of the root and
// every file set entry it referenced at compile time. Inputs is resolver
// fingerprint the result was produced with.
type Entry struct {
	Hash   string            `json:"hash"`
	Inputs string            `json:"inputs"`
	Deps   map[string]string `json:"deps"`
	Result *Result           `json:"result"`
}

func NewEntry(root *fileset.VirtualFile, r *resolver.Resolver, res *Result) *Entry {
	e := &Entry{Hash: root.Hash, Inputs: r.Fingerprint(), Deps: make(map[string]string), Result: res}
	for _, p := range res.ReferencedImportPaths {
		if f, ok := r.Files().Get(p); ok {
			e.Deps[p] = f.Hash
		}
	}
	return e
}

// Valid reports whether entry still describes root compiled with r.
func (e *Entry) Valid(root *fileset.VirtualFile, r *resolver.Resolver) bool {
	if e == nil || e.Result == nil || e.Hash != root.Hash || e.Inputs != r.Fingerprint() {
		return false
	}
	files := r.Files()
	for p, h := range e.Deps {
		f, ok := files.Get(p)
		if !ok || f.Hash != h {
			return false
		}
	}
	return true
}

// Cache keeps compilation results keyed by root virtual path.
type Cache interface {
	Get(key string) (*Entry, bool)
	Put(key string, e *Entry) error
	Purge() error
	Close() error
}

// MemoryCache is LRU bounded by number of entries.
type MemoryCache struct {
	lru *lru.Cache[string, *Entry]
}

func NewMemoryCache(size int) (*MemoryCache, error) {
	c, err := lru.New[string, *Entry](size)
	if err != nil {
		return nil, fmt.Errorf("unable to create memory cache: %w", err)
	}
	return &MemoryCache{lru: c}, nil
}

func (c *MemoryCache) Get(key string) (*Entry, bool) {
	return c.lru.Get(key)
}

func (c *MemoryCache) Put(key string, e *Entry) error {
	c.lru.Add(key, e)
	return nil
}

func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *MemoryCache) Purge() error {
	c.lru.Purge()
	return nil
}

func (c *MemoryCache) Close() error {
	return c.Purge()
}

// tiered puts memory cache in front of persistent one.
type tiered struct {
	front *MemoryCache
	back  Cache
}

func (t *tiered) Get(key string) (*Entry, bool) {
	if e, ok := t.front.Get(key); ok {
		return e, true
	}
	e, ok := t.back.Get(key)
	if ok {
		_ = t.front.Put(key, e)
	}
	return e, ok
}

func (t *tiered) Put(key string, e *Entry) error {
	_ = t.front.Put(key, e)
	return t.back.Put(key, e)
}

func (t *tiered) Purge() error {
	return multierr.Combine(t.front.Purge(), t.back.Purge())
}

func (t *tiered) Close() error {
	return multierr.Combine(t.front.Close(), t.back.Close())
}

// NewCache creates cache for mode. Mode none results in nil cache.
func NewCache(log *zap.Logger, mode common.CacheMode, entries int, dbPath string) (Cache, error) {
	switch mode {
	case common.CacheModeNone:
		return nil, nil
	case common.CacheModeMemory:
		return NewMemoryCache(entries)
	case common.CacheModeDisk:
		mem, err := NewMemoryCache(entries)
		if err != nil {
			return nil, err
		}
		disk, err := OpenDiskCache(log, dbPath)
		if err != nil {
			return nil, err
		}
		return &tiered{front: mem, back: disk}, nil
	default:
		return nil, fmt.Errorf("unknown cache mode %s", mode)
	}
}
