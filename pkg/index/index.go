// Package index builds case-insensitive lookups over file listings and
// partitions the keys of two listings into exclusive and shared paths.
package index

import (
	"fmt"
	"sort"
	"strings"
)

// Record is anything identified by a relative path
type Record interface {
	RelativePath() string
}

// CollisionError is returned when two distinct paths of one tree differ only by case
type CollisionError struct {
	Key      string
	Existing string
	Incoming string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("paths %q and %q differ only by case", e.Existing, e.Incoming)
}

// Index maps lower-cased relative paths to records.
// Each key maps to exactly one record.
type Index[T Record] struct {
	records    map[string]T
	keys       []string
	duplicates []string
}

// Key returns the case-folded lookup key of a relative path
func Key(relativePath string) string {
	return strings.ToLower(relativePath)
}

// Build indexes records by case-folded path. A path listed twice with the
// same spelling keeps its first record and is reported by Duplicates.
// Two spellings of the same case-folded path are rejected.
func Build[T Record](records []T) (*Index[T], error) {
	idx := &Index[T]{records: make(map[string]T, len(records))}

	for _, r := range records {
		path := r.RelativePath()
		key := Key(path)
		if existing, ok := idx.records[key]; ok {
			if existing.RelativePath() == path {
				idx.duplicates = append(idx.duplicates, path)
				continue
			}
			return nil, &CollisionError{Key: key, Existing: existing.RelativePath(), Incoming: path}
		}
		idx.records[key] = r
		idx.keys = append(idx.keys, key)
	}

	sort.Strings(idx.keys)
	return idx, nil
}

// Get returns the record for a case-folded key
func (i *Index[T]) Get(key string) (T, bool) {
	r, ok := i.records[key]
	return r, ok
}

// Keys returns the sorted case-folded keys
func (i *Index[T]) Keys() []string {
	return i.keys
}

// Len returns the number of indexed records
func (i *Index[T]) Len() int {
	return len(i.keys)
}

// Duplicates returns paths that were listed more than once with the same spelling
func (i *Index[T]) Duplicates() []string {
	return i.duplicates
}

// Contains reports whether a case-folded key is indexed
func (i *Index[T]) Contains(key string) bool {
	_, ok := i.records[key]
	return ok
}

// KeySet is the read side of an index needed for partitioning
type KeySet interface {
	Keys() []string
	Contains(key string) bool
}

// Partition splits the keys of a and b into keys only in a, keys only in b,
// and keys in both. Every result is sorted.
func Partition(a, b KeySet) (onlyA, onlyB, shared []string) {
	for _, k := range a.Keys() {
		if b.Contains(k) {
			shared = append(shared, k)
		} else {
			onlyA = append(onlyA, k)
		}
	}
	for _, k := range b.Keys() {
		if !a.Contains(k) {
			onlyB = append(onlyB, k)
		}
	}
	return onlyA, onlyB, shared
}
