// Package docstore is the backing document store contract shared by every
// resource: collections of documents with store-assigned ids, equality and
// range filters, and a single sort field.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidField = errors.New("invalid field name")
)

// Op is a filter comparison operator
type Op string

const (
	Eq  Op = "=="
	Lt  Op = "<"
	Lte Op = "<="
	Gt  Op = ">"
	Gte Op = ">="
)

type Direction int

const (
	Asc Direction = iota
	Desc
)

// Filter restricts a query to documents whose top-level Field compares to Value
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query is the full query capability a resource may assume
type Query struct {
	Filters    []Filter
	OrderField string
	OrderDir   Direction
}

// Where returns a copy of q with an extra filter
func (q Query) Where(field string, op Op, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// OrderBy returns a copy of q sorted by field
func (q Query) OrderBy(field string, dir Direction) Query {
	q.OrderField = field
	q.OrderDir = dir
	return q
}

// Patch is a partial update keyed by top-level field name
type Patch map[string]any

// Clone returns a shallow copy so callers can stamp fields without aliasing
func (p Patch) Clone() Patch {
	out := make(Patch, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Snapshot is one document as read from the store
type Snapshot interface {
	ID() string
	DataTo(dst any) error
}

// Store is implemented by the Firestore, Postgres and in-memory backends
type Store interface {
	Query(ctx context.Context, collection string, q Query) ([]Snapshot, error)
	Get(ctx context.Context, collection, id string) (Snapshot, error)
	Create(ctx context.Context, collection string, doc any) (string, error)
	Set(ctx context.Context, collection, id string, doc any) error
	Update(ctx context.Context, collection, id string, patch Patch) error
	Delete(ctx context.Context, collection, id string) error
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateQuery(q Query) error {
	for _, f := range q.Filters {
		if !fieldPattern.MatchString(f.Field) {
			return fmt.Errorf("%w: %q", ErrInvalidField, f.Field)
		}
		switch f.Op {
		case Eq, Lt, Lte, Gt, Gte:
		default:
			return fmt.Errorf("unsupported operator %q", f.Op)
		}
	}
	if q.OrderField != "" && !fieldPattern.MatchString(q.OrderField) {
		return fmt.Errorf("%w: %q", ErrInvalidField, q.OrderField)
	}
	return nil
}

func validatePatch(p Patch) error {
	for k := range p {
		if !fieldPattern.MatchString(k) {
			return fmt.Errorf("%w: %q", ErrInvalidField, k)
		}
	}
	return nil
}
