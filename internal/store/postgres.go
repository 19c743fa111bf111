package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    path          TEXT PRIMARY KEY,
    collection    TEXT NOT NULL,
    collection_id TEXT NOT NULL,
    data          JSONB NOT NULL,
    version       BIGINT NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection);
CREATE INDEX IF NOT EXISTS documents_collection_id_idx ON documents (collection_id);
`

const (
	upsertQuery = `INSERT INTO documents (path, collection, collection_id, data, version)
        VALUES ($1, $2, $3, $4, 1)
        ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, version = documents.version + 1, updated_at = now()`
	insertQuery = `INSERT INTO documents (path, collection, collection_id, data, version)
        VALUES ($1, $2, $3, $4, 1)
        ON CONFLICT (path) DO NOTHING`
)

// Postgres stores documents as JSONB rows with a version column used for
// optimistic validation at commit.
type Postgres struct {
	db    *pgxpool.Pool
	retry RetryPolicy
}

// NewPostgres constructs a Postgres-backed store.
func NewPostgres(db *pgxpool.Pool, policy RetryPolicy) *Postgres {
	return &Postgres{db: db, retry: policy.orDefault()}
}

// Migrate creates the documents table when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.Exec(ctx, schema)
	return classify(err)
}

func (p *Postgres) Get(ctx context.Context, path string, dst any) error {
	var data []byte
	err := p.db.QueryRow(ctx, `SELECT data FROM documents WHERE path = $1`, path).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return classify(err)
	}
	return json.Unmarshal(data, dst)
}

func (p *Postgres) Set(ctx context.Context, path string, v any) error {
	w, err := encodeWrite(path, v, false)
	if err != nil {
		return err
	}
	collection, _ := Split(path)
	_, err = p.db.Exec(ctx, upsertQuery, path, collection, CollectionID(collection), w.data)
	return classify(err)
}

func (p *Postgres) Create(ctx context.Context, path string, v any) error {
	w, err := encodeWrite(path, v, true)
	if err != nil {
		return err
	}
	collection, _ := Split(path)
	cmd, err := p.db.Exec(ctx, insertQuery, path, collection, CollectionID(collection), w.data)
	if err != nil {
		return classify(err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", path, ErrAlreadyExists)
	}
	return nil
}

func (p *Postgres) RunTransaction(ctx context.Context, fn TxFunc) error {
	return p.retry.Do(ctx, func(ctx context.Context) error {
		tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
		if err != nil {
			return classify(err)
		}
		defer tx.Rollback(ctx) // nolint:errcheck

		ptx := &postgresTx{tx: tx, reads: make(map[string]int64)}
		if err := fn(ctx, ptx); err != nil {
			return err
		}
		if err := ptx.flush(ctx); err != nil {
			return err
		}
		return classify(tx.Commit(ctx))
	})
}

func (p *Postgres) BatchWrite(ctx context.Context, ops []WriteOp) error {
	writes := make([]pendingWrite, 0, len(ops))
	for _, op := range ops {
		w, err := encodeWrite(op.Path, op.Value, op.Kind == WriteCreate)
		if err != nil {
			return err
		}
		writes = append(writes, w)
	}
	return p.retry.Do(ctx, func(ctx context.Context) error {
		tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return classify(err)
		}
		defer tx.Rollback(ctx) // nolint:errcheck

		ptx := &postgresTx{tx: tx, reads: map[string]int64{}, writes: writes}
		if err := ptx.flush(ctx); err != nil {
			return err
		}
		return classify(tx.Commit(ctx))
	})
}

func (p *Postgres) List(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	return p.query(ctx, "collection", collection, filters)
}

func (p *Postgres) ListGroup(ctx context.Context, collectionID string, filters ...Filter) ([]Document, error) {
	return p.query(ctx, "collection_id", collectionID, filters)
}

func (p *Postgres) query(ctx context.Context, column, value string, filters []Filter) ([]Document, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT path, data, version FROM documents WHERE `)
	sb.WriteString(column)
	sb.WriteString(` = $1`)
	args := []any{value}
	for _, f := range filters {
		args = append(args, f.Field, f.Value)
		fmt.Fprintf(&sb, ` AND data->>$%d = $%d`, len(args)-1, len(args))
	}
	sb.WriteString(` ORDER BY path`)

	rows, err := p.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.Path, &d.Data, &d.Version); err != nil {
			return nil, classify(err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

type postgresTx struct {
	tx     pgx.Tx
	reads  map[string]int64
	writes []pendingWrite
}

func (t *postgresTx) Get(ctx context.Context, path string, dst any) error {
	for i := len(t.writes) - 1; i >= 0; i-- {
		if t.writes[i].path == path {
			return json.Unmarshal(t.writes[i].data, dst)
		}
	}

	var (
		data    []byte
		version int64
	)
	err := t.tx.QueryRow(ctx, `SELECT data, version FROM documents WHERE path = $1`, path).Scan(&data, &version)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return classify(err)
	}
	if _, seen := t.reads[path]; !seen {
		t.reads[path] = version
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return json.Unmarshal(data, dst)
}

func (t *postgresTx) Set(path string, v any) error {
	w, err := encodeWrite(path, v, false)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, w)
	return nil
}

func (t *postgresTx) Create(path string, v any) error {
	w, err := encodeWrite(path, v, true)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, w)
	return nil
}

// flush locks every document read by the transaction, validates their
// versions and then applies the buffered writes.
func (t *postgresTx) flush(ctx context.Context) error {
	if err := t.validateReads(ctx); err != nil {
		return err
	}

	for _, w := range collapse(t.writes) {
		collection, _ := Split(w.path)
		readVersion, wasRead := t.reads[w.path]
		query := upsertQuery
		if w.create || (wasRead && readVersion == 0) {
			query = insertQuery
		}
		cmd, err := t.tx.Exec(ctx, query, w.path, collection, CollectionID(collection), w.data)
		if err != nil {
			return classify(err)
		}
		if query == insertQuery && cmd.RowsAffected() == 0 {
			if wasRead {
				return fmt.Errorf("%s created concurrently: %w", w.path, ErrConflict)
			}
			return fmt.Errorf("%s: %w", w.path, ErrAlreadyExists)
		}
	}
	return nil
}

func (t *postgresTx) validateReads(ctx context.Context) error {
	if len(t.reads) == 0 {
		return nil
	}
	paths := make([]string, 0, len(t.reads))
	for path := range t.reads {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	rows, err := t.tx.Query(ctx, `SELECT path, version FROM documents WHERE path = ANY($1) ORDER BY path FOR UPDATE`, paths)
	if err != nil {
		return classify(err)
	}
	current := make(map[string]int64, len(paths))
	for rows.Next() {
		var (
			path    string
			version int64
		)
		if err := rows.Scan(&path, &version); err != nil {
			rows.Close()
			return classify(err)
		}
		current[path] = version
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return classify(err)
	}

	for _, path := range paths {
		if current[path] != t.reads[path] {
			return fmt.Errorf("%s changed during transaction: %w", path, ErrConflict)
		}
	}
	return nil
}

// collapse keeps the last write per path, in first-write order, remembering
// whether any write to that path was a create.
func collapse(writes []pendingWrite) []pendingWrite {
	index := make(map[string]int, len(writes))
	var out []pendingWrite
	for _, w := range writes {
		if i, ok := index[w.path]; ok {
			out[i].data = w.data
			out[i].create = out[i].create || w.create
			continue
		}
		index[w.path] = len(out)
		out = append(out, w)
	}
	return out
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrConflict), errors.Is(err, ErrUnavailable), errors.Is(err, ErrNotFound), errors.Is(err, ErrAlreadyExists):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		}
		return fmt.Errorf("postgres %s: %w", pgErr.Code, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
