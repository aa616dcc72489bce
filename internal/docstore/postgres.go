package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Postgres stores every collection in a single JSONB documents table.
// Used for self-hosted deployments without Firestore.
type Postgres struct {
	db *sqlx.DB
}

type docRow struct {
	ID   string `db:"id"`
	Data []byte `db:"data"`
}

type pgSnapshot struct {
	id   string
	data []byte
}

func (s pgSnapshot) ID() string { return s.id }

func (s pgSnapshot) DataTo(dst any) error { return json.Unmarshal(s.data, dst) }

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// filterClause renders one filter as SQL. The field name has already been
// validated against fieldPattern so it is safe to inline.
func filterClause(f Filter, argN int) (string, any, error) {
	accessor := fmt.Sprintf("data->>'%s'", f.Field)
	placeholder := fmt.Sprintf("$%d", argN)

	switch v := f.Value.(type) {
	case time.Time:
		return fmt.Sprintf("(%s)::timestamptz %s %s", accessor, sqlOp(f.Op), placeholder), v, nil
	case bool:
		if f.Op != Eq {
			return "", nil, fmt.Errorf("operator %s not supported for booleans", f.Op)
		}
		return fmt.Sprintf("(%s)::boolean = %s", accessor, placeholder), v, nil
	}
	if n, ok := toFloat(f.Value); ok {
		return fmt.Sprintf("(%s)::double precision %s %s", accessor, sqlOp(f.Op), placeholder), n, nil
	}

	normalized, err := normalize(f.Value)
	if err != nil {
		return "", nil, err
	}
	if s, ok := normalized.(string); ok {
		return fmt.Sprintf("%s %s %s", accessor, sqlOp(f.Op), placeholder), s, nil
	}
	if f.Op != Eq {
		return "", nil, fmt.Errorf("operator %s not supported for %T", f.Op, f.Value)
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("data->'%s' = %s::jsonb", f.Field, placeholder), string(raw), nil
}

func sqlOp(op Op) string {
	if op == Eq {
		return "="
	}
	return string(op)
}

func (p *Postgres) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	where := []string{"collection = $1"}
	args := []any{collection}
	for _, f := range q.Filters {
		clause, arg, err := filterClause(f, len(args)+1)
		if err != nil {
			return nil, err
		}
		where = append(where, clause)
		args = append(args, arg)
	}
	if q.OrderField != "" {
		where = append(where, fmt.Sprintf("data ? '%s'", q.OrderField))
	}

	query := "SELECT id, data FROM documents WHERE " + strings.Join(where, " AND ") + " ORDER BY seq"
	var rows []docRow
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		log.Printf("❌ Document query failed (%s): %v", collection, err)
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	if q.OrderField != "" {
		// Sorted in Go so timestamps stored as RFC 3339 text order chronologically
		keys := make([]any, len(rows))
		for i, row := range rows {
			var fields map[string]any
			if err := json.Unmarshal(row.Data, &fields); err == nil {
				keys[i] = fields[q.OrderField]
			}
		}
		idx := make([]int, len(rows))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			c, _ := compareValues(keys[idx[a]], keys[idx[b]])
			if q.OrderDir == Desc {
				return c > 0
			}
			return c < 0
		})
		sorted := make([]docRow, len(rows))
		for i, j := range idx {
			sorted[i] = rows[j]
		}
		rows = sorted
	}

	out := make([]Snapshot, len(rows))
	for i, row := range rows {
		out[i] = pgSnapshot{id: row.ID, data: row.Data}
	}
	return out, nil
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	var row docRow
	err := p.db.GetContext(ctx, &row, `SELECT id, data FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return pgSnapshot{id: row.ID, data: row.Data}, nil
}

func (p *Postgres) Create(ctx context.Context, collection string, doc any) (string, error) {
	fields, err := encodeDoc(doc)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
	`, collection, id, string(data))
	if err != nil {
		log.Printf("❌ Database error: %v", err)
		return "", fmt.Errorf("create %s: %w", collection, err)
	}
	return id, nil
}

func (p *Postgres) Set(ctx context.Context, collection, id string, doc any) error {
	fields, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id)
		DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
	`, collection, id, string(data))
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, collection, id string, patch Patch) error {
	if err := validatePatch(patch); err != nil {
		return err
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE documents
		SET data = data || $3::jsonb,
		    updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE collection = $1 AND id = $2
	`, collection, id, string(data))
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
