package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore is the production backend. Documents are stored natively so
// timestamps stay comparable in server-side queries.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

type fsSnapshot struct {
	doc *firestore.DocumentSnapshot
}

func (s fsSnapshot) ID() string { return s.doc.Ref.ID }

func (s fsSnapshot) DataTo(dst any) error { return s.doc.DataTo(dst) }

func mapFirestoreErr(err error) error {
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (f *Firestore) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	query := f.client.Collection(collection).Query
	for _, filter := range q.Filters {
		query = query.Where(filter.Field, string(filter.Op), filter.Value)
	}
	if q.OrderField != "" {
		dir := firestore.Asc
		if q.OrderDir == Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderField, dir)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []Snapshot
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", collection, err)
		}
		out = append(out, fsSnapshot{doc: doc})
	}
	return out, nil
}

func (f *Firestore) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	doc, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if mapped := mapFirestoreErr(err); mapped == ErrNotFound {
			return nil, mapped
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return fsSnapshot{doc: doc}, nil
}

func (f *Firestore) Create(ctx context.Context, collection string, doc any) (string, error) {
	ref, _, err := f.client.Collection(collection).Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (f *Firestore) Set(ctx context.Context, collection, id string, doc any) error {
	if _, err := f.client.Collection(collection).Doc(id).Set(ctx, doc); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *Firestore) Update(ctx context.Context, collection, id string, patch Patch) error {
	if err := validatePatch(patch); err != nil {
		return err
	}
	updates := make([]firestore.Update, 0, len(patch))
	for k, v := range patch {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	if _, err := f.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		if mapped := mapFirestoreErr(err); mapped == ErrNotFound {
			return mapped
		}
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	if _, err := f.client.Collection(collection).Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if mapped := mapFirestoreErr(err); mapped == ErrNotFound {
			return mapped
		}
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}
