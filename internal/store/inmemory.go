package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

type memoryDoc struct {
	data    []byte
	version int64
}

// Memory is a concurrency-safe in-memory Store with the same optimistic
// transaction contract as the Postgres backend.
type Memory struct {
	mu         sync.RWMutex
	docs       map[string]memoryDoc
	seq        int64
	retry      RetryPolicy
	failCommit error
}

// NewInMemory builds an empty in-memory store.
func NewInMemory(policy RetryPolicy) *Memory {
	return &Memory{docs: make(map[string]memoryDoc), retry: policy.orDefault()}
}

// FailNextCommit makes the next transaction or batch commit fail with err
// after its body has run. Nothing of that commit is applied.
func (m *Memory) FailNextCommit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCommit = err
}

func (m *Memory) Get(_ context.Context, path string, dst any) error {
	m.mu.RLock()
	doc, ok := m.docs[path]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return json.Unmarshal(doc.data, dst)
}

func (m *Memory) Set(_ context.Context, path string, v any) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(path, data)
	return nil
}

func (m *Memory) Create(_ context.Context, path string, v any) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[path]; exists {
		return fmt.Errorf("%s: %w", path, ErrAlreadyExists)
	}
	m.put(path, data)
	return nil
}

func (m *Memory) RunTransaction(ctx context.Context, fn TxFunc) error {
	return m.retry.Do(ctx, func(ctx context.Context) error {
		tx := &memoryTx{store: m, reads: make(map[string]int64)}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return m.commit(tx)
	})
}

func (m *Memory) BatchWrite(ctx context.Context, ops []WriteOp) error {
	writes := make([]pendingWrite, 0, len(ops))
	for _, op := range ops {
		w, err := encodeWrite(op.Path, op.Value, op.Kind == WriteCreate)
		if err != nil {
			return err
		}
		writes = append(writes, w)
	}
	return m.retry.Do(ctx, func(context.Context) error {
		return m.commit(&memoryTx{store: m, reads: map[string]int64{}, writes: writes})
	})
}

func (m *Memory) List(_ context.Context, collection string, filters ...Filter) ([]Document, error) {
	return m.scan(func(parent string) bool { return parent == collection }, filters), nil
}

func (m *Memory) ListGroup(_ context.Context, collectionID string, filters ...Filter) ([]Document, error) {
	return m.scan(func(parent string) bool { return CollectionID(parent) == collectionID }, filters), nil
}

func (m *Memory) scan(match func(parent string) bool, filters []Filter) []Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Document
	for path, doc := range m.docs {
		parent, _ := Split(path)
		if !match(parent) || !matches(doc.data, filters) {
			continue
		}
		out = append(out, Document{Path: path, Data: append([]byte(nil), doc.data...), Version: doc.version})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// put must be called with mu held.
func (m *Memory) put(path string, data []byte) {
	m.seq++
	m.docs[path] = memoryDoc{data: data, version: m.seq}
}

func (m *Memory) commit(tx *memoryTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failCommit; err != nil {
		m.failCommit = nil
		return err
	}

	for path, readVersion := range tx.reads {
		var current int64
		if doc, ok := m.docs[path]; ok {
			current = doc.version
		}
		if current != readVersion {
			return fmt.Errorf("%s changed during transaction: %w", path, ErrConflict)
		}
	}

	created := make(map[string]bool)
	for _, w := range tx.writes {
		if !w.create || created[w.path] {
			continue
		}
		if _, exists := m.docs[w.path]; exists {
			return fmt.Errorf("%s: %w", w.path, ErrAlreadyExists)
		}
		created[w.path] = true
	}

	for _, w := range tx.writes {
		m.put(w.path, w.data)
	}
	return nil
}

type pendingWrite struct {
	path   string
	data   []byte
	create bool
}

func encodeWrite(path string, v any, create bool) (pendingWrite, error) {
	if err := ValidatePath(path); err != nil {
		return pendingWrite{}, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return pendingWrite{}, fmt.Errorf("encode %s: %w", path, err)
	}
	return pendingWrite{path: path, data: data, create: create}, nil
}

type memoryTx struct {
	store  *Memory
	reads  map[string]int64
	writes []pendingWrite
}

func (t *memoryTx) Get(_ context.Context, path string, dst any) error {
	for i := len(t.writes) - 1; i >= 0; i-- {
		if t.writes[i].path == path {
			return json.Unmarshal(t.writes[i].data, dst)
		}
	}

	t.store.mu.RLock()
	doc, ok := t.store.docs[path]
	t.store.mu.RUnlock()

	if _, seen := t.reads[path]; !seen {
		t.reads[path] = doc.version
	}
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return json.Unmarshal(doc.data, dst)
}

func (t *memoryTx) Set(path string, v any) error {
	w, err := encodeWrite(path, v, false)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, w)
	return nil
}

func (t *memoryTx) Create(path string, v any) error {
	w, err := encodeWrite(path, v, true)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, w)
	return nil
}
