// Package docstore is a small document store on top of gorm. Documents are
// schemaless JSON objects grouped into collections; top-level scalar fields and
// set-valued array fields are indexed so they can be queried by equality and
// membership. Subscriptions push the full result set of a query whenever it
// changes.
package docstore

import (
	"context"
	"encoding/json"
	"time"
)

// Fields is the data of a document. The key "id" is reserved; a document's id
// is its key inside the collection.
type Fields map[string]any

type Document struct {
	ID         string
	Collection string
	Data       Fields
	CreateTime time.Time
	UpdateTime time.Time
}

// DataTo decodes the document into v using its json tags. The document id is
// exposed as the "id" field.
func (d *Document) DataTo(v any) error {
	data := make(Fields, len(d.Data)+1)
	for k, val := range d.Data {
		data[k] = val
	}
	data["id"] = d.ID
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// FieldsOf converts a struct into document fields using its json tags.
func FieldsOf(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var f Fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	delete(f, "id")
	return f, nil
}

type Order int

const (
	Unordered Order = iota
	NewestFirst
	OldestFirst
)

type Query struct {
	Where   []Predicate
	OrderBy Order
	Limit   int
}

type SnapshotFunc func(docs []*Document, err error)

// Unsubscribe stops a subscription and waits for its delivery goroutine to
// exit. It is safe to call more than once but must not be called from inside
// the snapshot callback.
type Unsubscribe func()

type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Query(ctx context.Context, collection string, q Query) ([]*Document, error)
	Subscribe(ctx context.Context, collection string, q Query, fn SnapshotFunc) (Unsubscribe, error)
	Create(ctx context.Context, collection string, data Fields) (string, error)
	CreateWithID(ctx context.Context, collection, id string, data Fields) error
	Update(ctx context.Context, collection, id string, data Fields) error
	// AddToSetField adds value to the array field unless it is already a
	// member. added reports whether this call inserted it.
	AddToSetField(ctx context.Context, collection, id, field string, value any) (added bool, err error)
	Delete(ctx context.Context, collection, id string) error
	Batch() Batch
}

// Batch groups writes that are committed in one transaction.
type Batch interface {
	Update(collection, id string, data Fields) Batch
	Delete(collection, id string) Batch
	Commit(ctx context.Context) error
}

// Index declares that ordered queries filtering on Fields are allowed for a
// collection.
type Index struct {
	Collection string
	Fields     []string
}
