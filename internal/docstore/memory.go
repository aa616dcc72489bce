package docstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory keeps documents in-process. Used for tests and demo mode.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	order []string // insertion order
	docs  map[string]map[string]any
}

type memSnapshot struct {
	id     string
	fields map[string]any
}

func (s memSnapshot) ID() string { return s.id }

func (s memSnapshot) DataTo(dst any) error {
	raw, err := json.Marshal(s.fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// NewMemory initializes an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memCollection)}
}

func (m *Memory) collection(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string]map[string]any)}
		m.collections[name] = c
	}
	return c
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (m *Memory) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	c := m.collections[collection]
	var found []memSnapshot
	if c != nil {
		for _, id := range c.order {
			fields, ok := c.docs[id]
			if !ok {
				continue
			}
			keep := true
			for _, f := range q.Filters {
				if !matches(fields, f) {
					keep = false
					break
				}
			}
			if keep {
				found = append(found, memSnapshot{id: id, fields: copyFields(fields)})
			}
		}
	}
	m.mu.RUnlock()

	if q.OrderField != "" {
		// Documents without the sort field are excluded, as in Firestore
		ordered := found[:0]
		for _, s := range found {
			if _, ok := s.fields[q.OrderField]; ok {
				ordered = append(ordered, s)
			}
		}
		found = ordered
		sort.SliceStable(found, func(i, j int) bool {
			c, _ := compareValues(found[i].fields[q.OrderField], found[j].fields[q.OrderField])
			if q.OrderDir == Desc {
				return c > 0
			}
			return c < 0
		})
	}

	out := make([]Snapshot, len(found))
	for i, s := range found {
		out[i] = s
	}
	return out, nil
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.collections[collection]
	if c == nil {
		return nil, ErrNotFound
	}
	fields, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return memSnapshot{id: id, fields: copyFields(fields)}, nil
}

func (m *Memory) Create(ctx context.Context, collection string, doc any) (string, error) {
	id := uuid.NewString()
	if err := m.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fields, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collection(collection)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = fields
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, patch Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePatch(patch); err != nil {
		return err
	}
	normalized := make(map[string]any, len(patch))
	for k, v := range patch {
		n, err := normalize(v)
		if err != nil {
			return err
		}
		normalized[k] = n
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collections[collection]
	if c == nil {
		return ErrNotFound
	}
	fields, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}
	updated := copyFields(fields)
	for k, v := range normalized {
		updated[k] = v
	}
	c.docs[id] = updated
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collections[collection]
	if c == nil {
		return ErrNotFound
	}
	if _, ok := c.docs[id]; !ok {
		return ErrNotFound
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}
