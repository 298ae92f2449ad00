// Package cache keeps pipeline results keyed by content hash, either in an
// embedded BadgerDB or in a Redis server shared by several workers.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"DeSynth/pkg/models"
	"DeSynth/pkg/wire"
)

// Key prefix for BadgerDB storage
const resultKeyPrefix = "result:"

// ErrNotFound is returned when no result is stored under a key
var ErrNotFound = errors.New("result not cached")

// Cache is a result store. Get returns ErrNotFound for unknown or expired keys.
type Cache interface {
	Get(ctx context.Context, key string) (*models.PipelineResult, error)
	Put(ctx context.Context, key string, r *models.PipelineResult) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var (
	_ Cache = (*Store)(nil)
	_ Cache = (*RedisStore)(nil)
)

// Config contains the BadgerDB cache settings
type Config struct {
	Path     string        `koanf:"path"`
	InMemory bool          `koanf:"in_memory"`
	TTL      time.Duration `koanf:"ttl"`
}

// Store is a BadgerDB-backed result cache
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (or creates) the cache described by cfg
//
//	store, err := cache.Open(cache.Config{InMemory: true})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(cfg Config) (*Store, error) {
	path := cfg.Path
	if cfg.InMemory {
		path = ""
	} else if path == "" {
		return nil, errors.New("cache path is required unless in_memory is set")
	}

	opts := badger.DefaultOptions(path).WithInMemory(cfg.InMemory)
	opts.Logger = nil
	// Results are small, so keep value log files small too
	opts.ValueLogFileSize = 16 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for result cache: %w", err)
	}
	return &Store{db: db, ttl: cfg.TTL}, nil
}

// NewFromDB creates a store on an existing BadgerDB connection
func NewFromDB(db *badger.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl}
}

// Get returns the result stored under key
func (s *Store) Get(ctx context.Context, key string) (*models.PipelineResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(resultKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get result: %w", err)
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	r, err := wire.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("cached result %s: %w", key, err)
	}
	return r, nil
}

// Put stores a result under key, expiring it after the configured TTL (if any)
func (s *Store) Put(ctx context.Context, key string, r *models.PipelineResult) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := wire.Marshal(r)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(resultKeyPrefix+key), data)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set result: %w", err)
		}
		return nil
	})
}

// Delete removes the result stored under key
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(resultKeyPrefix + key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete result: %w", err)
		}
		return nil
	})
}

// Len counts the stored results
func (s *Store) Len() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(resultKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
