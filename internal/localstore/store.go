// Package localstore is the durable key/value store behind the offline
// queue and per-user favourites.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
)

// Well-known keys
const (
	KeyPendingOperations = "pendingRideOperations"
	KeyOfflineRides      = "offlineRides"
	favoritesKeyPrefix   = "favoriteLocations:"
)

// FavoritesKey is the key holding a user's favourite locations.
func FavoritesKey(userID string) string {
	return favoritesKeyPrefix + userID
}

// KV is a raw byte store. Get returns nil, nil for a missing key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Store serialises read-modify-write cycles over a KV.
type Store struct {
	mu     sync.Mutex
	kv     KV
	closed bool
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, apperrors.ErrStoreClosed
	}
	return s.kv.Get(ctx, key)
}

// Update runs fn with the current value of key and writes back what it returns.
// A nil result deletes the key. Concurrent updates never interleave.
func (s *Store) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.ErrStoreClosed
	}

	current, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		return s.kv.Delete(ctx, key)
	}
	if err := s.kv.Set(ctx, key, next); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.Update(ctx, key, func([]byte) ([]byte, error) { return nil, nil })
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.kv.Close()
}

// GetJSON decodes the value at key into a T, returning the zero value when absent.
func GetJSON[T any](ctx context.Context, s *Store, key string) (T, error) {
	var out T
	raw, err := s.Get(ctx, key)
	if err != nil || raw == nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

// UpdateJSON decodes key into a T, lets fn mutate it and stores the result.
func UpdateJSON[T any](ctx context.Context, s *Store, key string, fn func(v *T) error) error {
	return s.Update(ctx, key, func(current []byte) ([]byte, error) {
		var v T
		if current != nil {
			if err := json.Unmarshal(current, &v); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
}
