// Package merge implements the keyed last-write-wins update used for every persisted
// record collection.
package merge

import (
	"context"
	"errors"

	"carma_server/core/port/out"
)

// Merge overlays incoming onto existing by key. A key keeps the position of its first
// occurrence; its value is the last one written. Merging the same batch twice gives
// the same result as merging it once.
func Merge[T any](existing, incoming []T, keyOf func(T) string) []T {
	index := make(map[string]int, len(existing)+len(incoming))
	result := make([]T, 0, len(existing)+len(incoming))

	put := func(rec T) {
		k := keyOf(rec)
		if i, ok := index[k]; ok {
			result[i] = rec
			return
		}
		index[k] = len(result)
		result = append(result, rec)
	}
	for _, r := range existing {
		put(r)
	}
	for _, r := range incoming {
		put(r)
	}
	return result
}

// Keys returns the set of keys present in records.
func Keys[T any](records []T, keyOf func(T) string) map[string]struct{} {
	set := make(map[string]struct{}, len(records))
	for _, r := range records {
		set[keyOf(r)] = struct{}{}
	}
	return set
}

// LoadList reads a JSON array document. An absent document is an empty list; a corrupt
// one is reported to obs and also treated as empty. Other store errors are returned.
func LoadList[T any](ctx context.Context, store out.RecordStore, obs out.Observer, name string) ([]T, error) {
	var list []T
	found, err := store.Load(ctx, name, &list)
	if err != nil {
		if errors.Is(err, out.ErrCorrupt) {
			out.ObserverOrNop(obs).Emit(ctx, out.Event{
				Severity: out.SeverityWarn,
				Name:     "store.corrupt",
				Message:  "stored collection unreadable, treating as empty",
				Fields:   map[string]any{"name": name},
				Err:      err,
			})
			return []T{}, nil
		}
		return nil, err
	}
	if !found || list == nil {
		return []T{}, nil
	}
	return list, nil
}

// Store binds a record collection's key function to a RecordStore.
type Store[T any] struct {
	store out.RecordStore
	obs   out.Observer
	keyOf func(T) string
}

func NewStore[T any](store out.RecordStore, obs out.Observer, keyOf func(T) string) *Store[T] {
	return &Store[T]{store: store, obs: out.ObserverOrNop(obs), keyOf: keyOf}
}

func (s *Store[T]) Load(ctx context.Context, name string) ([]T, error) {
	return LoadList[T](ctx, s.store, s.obs, name)
}

// MergeInto loads name, merges incoming and saves the full collection back.
// The read-modify-write is not transactional.
func (s *Store[T]) MergeInto(ctx context.Context, name string, incoming []T) ([]T, error) {
	existing, err := s.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	merged := Merge(existing, incoming, s.keyOf)
	if err := s.store.Save(ctx, name, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Keys returns the keys currently persisted under name.
func (s *Store[T]) Keys(ctx context.Context, name string) (map[string]struct{}, error) {
	list, err := s.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return Keys(list, s.keyOf), nil
}
