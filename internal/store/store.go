// Package store is a document store adapter with optimistic multi-document
// transactions, all-or-nothing batch writes, and collection queries.
//
// Documents live at slash separated paths with an even number of segments,
// e.g. "customers/42" or "customers/42/operations/7f3a". The parent of a
// document path is its collection; the last segment of a collection is its
// collection id ("operations"), used for collection-group queries.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists is returned by Create when the path is already taken.
	ErrAlreadyExists = errors.New("document already exists")

	// ErrConflict is returned when a transaction read was invalidated by a
	// concurrent writer before commit. Retryable.
	ErrConflict = errors.New("transaction conflict")

	// ErrUnavailable wraps network or backend failures. Retryable.
	ErrUnavailable = errors.New("store unavailable")
)

// Reader reads single documents. Both Store and Tx satisfy it.
type Reader interface {
	Get(ctx context.Context, path string, dst any) error
}

// Tx is an open optimistic transaction. Writes are buffered and only become
// visible when the enclosing RunTransaction commits.
type Tx interface {
	Reader
	Set(path string, v any) error
	Create(path string, v any) error
}

// TxFunc is the body of a transaction. It may run more than once and must
// not have effects outside the transaction.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is implemented by the memory and Postgres backends.
type Store interface {
	Reader
	Set(ctx context.Context, path string, v any) error
	Create(ctx context.Context, path string, v any) error
	RunTransaction(ctx context.Context, fn TxFunc) error
	BatchWrite(ctx context.Context, ops []WriteOp) error
	List(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	ListGroup(ctx context.Context, collectionID string, filters ...Filter) ([]Document, error)
}

// WriteKind selects the behavior of a batched write.
type WriteKind int

const (
	// WriteSet upserts the document.
	WriteSet WriteKind = iota
	// WriteCreate fails the whole batch if the document exists.
	WriteCreate
)

// WriteOp is one element of a BatchWrite.
type WriteOp struct {
	Kind  WriteKind
	Path  string
	Value any
}

// SetOp builds an upsert write.
func SetOp(path string, v any) WriteOp {
	return WriteOp{Kind: WriteSet, Path: path, Value: v}
}

// CreateOp builds a create-only write.
func CreateOp(path string, v any) WriteOp {
	return WriteOp{Kind: WriteCreate, Path: path, Value: v}
}

// Filter is an equality match on a top-level JSON field. Non-string values
// compare against their JSON text (e.g. "true", "3000").
type Filter struct {
	Field string
	Value string
}

// Where builds an equality filter.
func Where(field, value string) Filter {
	return Filter{Field: field, Value: value}
}

// Document is a raw stored document returned by queries.
type Document struct {
	Path    string
	Data    []byte
	Version int64
}

// ID returns the last path segment.
func (d Document) ID() string {
	_, id := Split(d.Path)
	return id
}

// Decode unmarshals the document body into dst.
func (d Document) Decode(dst any) error {
	return json.Unmarshal(d.Data, dst)
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Split returns the collection and id of a document path.
func Split(path string) (collection, id string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// CollectionID returns the last segment of a collection path.
func CollectionID(collection string) string {
	_, id := Split(collection)
	return id
}

// ValidatePath checks that path names a document: an even, non-zero number
// of non-empty segments.
func ValidatePath(path string) error {
	segments := strings.Split(path, "/")
	if len(segments) == 0 || len(segments)%2 != 0 {
		return fmt.Errorf("invalid document path %q", path)
	}
	for _, s := range segments {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("invalid document path %q", path)
		}
	}
	return nil
}

// Update reads the document at path, applies fn and writes the result back
// in a single transaction.
func Update[T any](ctx context.Context, s Store, path string, fn func(*T) error) (T, error) {
	var out T
	err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		var cur T
		if err := tx.Get(ctx, path, &cur); err != nil {
			return err
		}
		if err := fn(&cur); err != nil {
			return err
		}
		out = cur
		return tx.Set(path, cur)
	})
	return out, err
}

func matches(data []byte, filters []Filter) bool {
	if len(filters) == 0 {
		return true
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false
	}
	for _, f := range filters {
		raw, ok := fields[f.Field]
		if !ok {
			return false
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
		}
		if s != f.Value {
			return false
		}
	}
	return true
}
