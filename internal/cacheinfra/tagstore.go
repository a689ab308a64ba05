package cacheinfra

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
	"github.com/vmihailenco/msgpack/v5"
)

type keySet map[string]struct{}

// TagStore keeps msgpack encoded values in a sturdyc client and indexes them
// by tag in both directions.
//
// Set and the invalidation calls hold the write lock for their whole run,
// so a value is never readable before its tags are indexed and readers never
// see a half applied invalidation. Entries evicted by sturdyc leave index
// links behind until the key is read, overwritten or invalidated.
type TagStore struct {
	mu      sync.RWMutex
	values  *sturdyc.Client[[]byte]
	tagKeys *xsync.MapOf[string, keySet]
	keyTags *xsync.MapOf[string, []string]
}

// NewTagStore validates cfg and builds an empty store.
func NewTagStore(cfg Config) (*TagStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[[]byte](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &TagStore{
		values:  client,
		tagKeys: xsync.NewMapOf[string, keySet](),
		keyTags: xsync.NewMapOf[string, []string](),
	}, nil
}

// Has reports whether key holds a live value.
func (s *TagStore) Has(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	_, ok := s.values.Get(key)
	s.mu.RUnlock()
	return ok, nil
}

// Get decodes the value stored under key into dest.
func (s *TagStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	data, ok := s.values.Get(key)
	_, linked := s.keyTags.Load(key)
	s.mu.RUnlock()

	if !ok {
		// only expired entries still have index links to clean up
		if linked {
			s.pruneMissing(key)
		}
		return false, nil
	}

	if err := msgpack.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cacheinfra: decode value for key %q: %w", key, err)
	}
	return true, nil
}

// Set encodes value and stores it under key, replacing any previous value
// and its tag links.
func (s *TagStore) Set(ctx context.Context, key string, tags []string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("cacheinfra: encode value for key %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.unlink(key)
	linked := make([]string, 0, len(tags))
	for _, tag := range tags {
		s.tagKeys.Compute(tag, func(old keySet, loaded bool) (keySet, bool) {
			if old == nil {
				old = keySet{}
			}
			old[key] = struct{}{}
			return old, false
		})
		linked = append(linked, tag)
	}
	s.keyTags.Store(key, linked)
	s.values.Set(key, data)

	return nil
}

// Invalidate drops every key linked to any of tags.
func (s *TagStore) Invalidate(ctx context.Context, tags ...string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dropTags(tags), nil
}

// InvalidatePrefix drops every key linked to a tag that starts with prefix.
func (s *TagStore) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []string
	s.tagKeys.Range(func(tag string, _ keySet) bool {
		if strings.HasPrefix(tag, prefix) {
			matched = append(matched, tag)
		}
		return true
	})

	return s.dropTags(matched), nil
}

// Flush drops every value and index entry.
func (s *TagStore) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.values.ScanKeys() {
		s.values.Delete(key)
	}
	s.tagKeys = xsync.NewMapOf[string, keySet]()
	s.keyTags = xsync.NewMapOf[string, []string]()

	return nil
}

// Size returns the number of values currently held.
func (s *TagStore) Size() int {
	return s.values.Size()
}

// dropTags must run under the write lock.
func (s *TagStore) dropTags(tags []string) int {
	dropped := make(keySet)
	for _, tag := range tags {
		keys, ok := s.tagKeys.LoadAndDelete(tag)
		if !ok {
			continue
		}
		for key := range keys {
			if _, seen := dropped[key]; seen {
				continue
			}
			dropped[key] = struct{}{}
			s.unlink(key)
			s.values.Delete(key)
		}
	}
	return len(dropped)
}

// unlink removes key from every tag it was stored under. It must run under
// the write lock.
func (s *TagStore) unlink(key string) {
	tags, ok := s.keyTags.LoadAndDelete(key)
	if !ok {
		return
	}
	for _, tag := range tags {
		s.tagKeys.Compute(tag, func(old keySet, loaded bool) (keySet, bool) {
			if !loaded {
				return old, true
			}
			delete(old, key)
			return old, len(old) == 0
		})
	}
}

func (s *TagStore) pruneMissing(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values.Get(key); ok {
		return
	}
	s.unlink(key)
}
