package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db      *gorm.DB
	rules   Rules
	feed    ChangeFeed
	indexes []Index
	poll    time.Duration
	now     func() time.Time
}

type Option func(*GormStore)

func WithRules(r Rules) Option {
	return func(s *GormStore) { s.rules = r }
}

func WithChangeFeed(f ChangeFeed) Option {
	return func(s *GormStore) { s.feed = f }
}

func WithIndexes(idx ...Index) Option {
	return func(s *GormStore) { s.indexes = append(s.indexes, idx...) }
}

// WithPollInterval makes subscriptions re-run their query every d in addition
// to reacting to change notifications. Zero disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(s *GormStore) { s.poll = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *GormStore) { s.now = now }
}

func NewGormStore(db *gorm.DB, opts ...Option) *GormStore {
	s := &GormStore{
		db:    db,
		rules: AllowAll,
		feed:  NewLocalFeed(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := s.rules.Check(ctx, OpRead, collection); err != nil {
		return nil, err
	}

	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&row).Error
	if err != nil {
		return nil, classify("get", err)
	}

	docs, err := s.assemble(ctx, collection, []documentRow{row})
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}

func (s *GormStore) Query(ctx context.Context, collection string, q Query) ([]*Document, error) {
	if err := s.rules.Check(ctx, OpRead, collection); err != nil {
		return nil, err
	}
	if err := s.checkIndex(collection, q); err != nil {
		return nil, err
	}
	return s.query(ctx, collection, q)
}

func (s *GormStore) query(ctx context.Context, collection string, q Query) ([]*Document, error) {
	tx := s.db.WithContext(ctx).Model(&documentRow{}).Where("documents.collection = ?", collection)

	for _, p := range q.Where {
		switch p.kind {
		case predEq, predArrayContains:
			enc, err := encodeArg(p.value)
			if err != nil {
				return nil, fmt.Errorf("query %s.%s: %w", collection, p.field, err)
			}
			tx = tx.Where(
				"EXISTS (SELECT 1 FROM document_fields f WHERE f.collection = documents.collection AND f.doc_id = documents.id AND f.field = ? AND f.value = ? AND f.is_array = ?)",
				p.field, enc, p.kind == predArrayContains,
			)
		case predCreatedBefore:
			tx = tx.Where("documents.created_at < ?", p.at.UTC())
		}
	}

	switch q.OrderBy {
	case NewestFirst:
		tx = tx.Order("documents.created_at DESC").Order("documents.id")
	case OldestFirst:
		tx = tx.Order("documents.created_at ASC").Order("documents.id")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []documentRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, classify("query", err)
	}
	return s.assemble(ctx, collection, rows)
}

// checkIndex rejects ordered queries with filters nobody declared an index for.
func (s *GormStore) checkIndex(collection string, q Query) error {
	if q.OrderBy == Unordered {
		return nil
	}

	var fields []string
	for _, p := range q.Where {
		if p.kind != predCreatedBefore {
			fields = append(fields, p.field)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	sort.Strings(fields)

	for _, idx := range s.indexes {
		if idx.Collection != collection || len(idx.Fields) != len(fields) {
			continue
		}
		declared := append([]string(nil), idx.Fields...)
		sort.Strings(declared)
		if strings.Join(declared, ",") == strings.Join(fields, ",") {
			return nil
		}
	}
	return fmt.Errorf("%w: %s(%s) ordered by createdAt", ErrIndexRequired, collection, strings.Join(fields, ","))
}

// assemble turns rows into documents, filling array fields from their
// membership rows in insertion order.
func (s *GormStore) assemble(ctx context.Context, collection string, rows []documentRow) ([]*Document, error) {
	docs := make([]*Document, 0, len(rows))
	if len(rows) == 0 {
		return docs, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}

	var members []fieldRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id IN ? AND is_array = ?", collection, ids, true).
		Order("seq").
		Find(&members).Error
	if err != nil {
		return nil, classify("query", err)
	}

	arrays := make(map[string]map[string][]any)
	for _, m := range members {
		if arrays[m.DocID] == nil {
			arrays[m.DocID] = make(map[string][]any)
		}
		arrays[m.DocID][m.Field] = append(arrays[m.DocID][m.Field], decodeValue(m.Value))
	}

	for _, r := range rows {
		data := make(Fields, len(r.Data))
		for k, v := range r.Data {
			data[k] = plainNumbers(v)
		}
		for field, values := range arrays[r.ID] {
			data[field] = values
		}
		docs = append(docs, &Document{
			ID:         r.ID,
			Collection: collection,
			Data:       data,
			CreateTime: r.CreatedAt.UTC(),
			UpdateTime: r.UpdatedAt.UTC(),
		})
	}
	return docs, nil
}

func (s *GormStore) Create(ctx context.Context, collection string, data Fields) (string, error) {
	id := uuid.NewString()
	if err := s.insert(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// CreateWithID creates a document under a caller-chosen id. It fails with
// ErrAlreadyExists when the id is taken and leaves the existing document as is.
func (s *GormStore) CreateWithID(ctx context.Context, collection, id string, data Fields) error {
	if id == "" {
		return fmt.Errorf("create %s: empty document id", collection)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("create %s: document id longer than %d bytes", collection, MaxIDLength)
	}
	return s.insert(ctx, collection, id, data)
}

func (s *GormStore) insert(ctx context.Context, collection, id string, data Fields) error {
	if err := s.rules.Check(ctx, OpWrite, collection); err != nil {
		return err
	}

	stored := make(Fields, len(data))
	var index []fieldRow
	for k, v := range data {
		if k == "id" {
			continue
		}
		value, rows, err := indexField(collection, id, k, v)
		if err != nil {
			return err
		}
		if value != nil {
			stored[k] = value
		}
		index = append(index, rows...)
	}

	now := s.now().UTC()
	created := now
	if t, ok := data["createdAt"].(time.Time); ok && !t.IsZero() {
		created = t.UTC()
	}
	row := documentRow{
		Collection: collection,
		ID:         id,
		Data:       datatypes.JSONMap(stored),
		CreatedAt:  created,
		UpdatedAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
		}
		if len(index) > 0 {
			return tx.Create(&index).Error
		}
		return nil
	})
	if err != nil {
		return classify("create", err)
	}

	s.feed.Publish(ctx, collection)
	return nil
}

// indexField normalizes one field and builds its index rows. Arrays are kept
// as an empty marker in the JSON body; their members only live in rows.
func indexField(collection, id, field string, v any) (any, []fieldRow, error) {
	n, err := normalize(v)
	if err != nil {
		return nil, nil, fmt.Errorf("field %q: %w", field, err)
	}

	switch x := n.(type) {
	case nil:
		return nil, nil, nil
	case []any:
		rows := make([]fieldRow, 0, len(x))
		seen := make(map[string]bool, len(x))
		for _, el := range x {
			enc, ok := encodeValue(el)
			if !ok {
				return nil, nil, fmt.Errorf("field %q: array members must be short scalars", field)
			}
			if seen[enc] {
				continue
			}
			seen[enc] = true
			rows = append(rows, fieldRow{Collection: collection, DocID: id, Field: field, Value: enc, IsArray: true})
		}
		return []any{}, rows, nil
	default:
		if enc, ok := encodeValue(x); ok {
			return x, []fieldRow{{Collection: collection, DocID: id, Field: field, Value: enc}}, nil
		}
		return x, nil, nil
	}
}

func (s *GormStore) Update(ctx context.Context, collection, id string, data Fields) error {
	if err := s.rules.Check(ctx, OpWrite, collection); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.applyUpdate(tx, collection, id, data)
	})
	if err != nil {
		return classify("update", err)
	}

	s.feed.Publish(ctx, collection)
	return nil
}

// applyUpdate merges data into the document. A nil value removes the field;
// array values replace the whole set. createdAt is immutable.
func (s *GormStore) applyUpdate(tx *gorm.DB, collection, id string, data Fields) error {
	var row documentRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("collection = ? AND id = ?", collection, id).
		Take(&row).Error
	if err != nil {
		return err
	}

	merged := make(datatypes.JSONMap, len(row.Data)+len(data))
	for k, v := range row.Data {
		merged[k] = v
	}

	var index []fieldRow
	for k, v := range data {
		if k == "id" || k == "createdAt" {
			continue
		}
		value, rows, err := indexField(collection, id, k, v)
		if err != nil {
			return err
		}
		if err := tx.Where("collection = ? AND doc_id = ? AND field = ?", collection, id, k).Delete(&fieldRow{}).Error; err != nil {
			return err
		}
		if value == nil {
			delete(merged, k)
		} else {
			merged[k] = value
		}
		index = append(index, rows...)
	}

	if len(index) > 0 {
		if err := tx.Create(&index).Error; err != nil {
			return err
		}
	}

	return tx.Model(&documentRow{}).
		Where("collection = ? AND id = ?", collection, id).
		Updates(map[string]any{"data": merged, "updated_at": s.now().UTC()}).Error
}

func (s *GormStore) AddToSetField(ctx context.Context, collection, id, field string, value any) (bool, error) {
	if err := s.rules.Check(ctx, OpWrite, collection); err != nil {
		return false, err
	}
	enc, err := encodeArg(value)
	if err != nil {
		return false, fmt.Errorf("add to %s.%s: %w", collection, field, err)
	}

	added := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&documentRow{}).Where("collection = ? AND id = ?", collection, id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}

		member := fieldRow{Collection: collection, DocID: id, Field: field, Value: enc, IsArray: true}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member)
		if res.Error != nil {
			return res.Error
		}
		added = res.RowsAffected == 1
		if !added {
			return nil
		}
		return tx.Model(&documentRow{}).
			Where("collection = ? AND id = ?", collection, id).
			Update("updated_at", s.now().UTC()).Error
	})
	if err != nil {
		return false, classify("add to set", err)
	}

	if added {
		s.feed.Publish(ctx, collection)
	}
	return added, nil
}

// Delete removes a document and its index rows. Deleting a missing document is
// not an error.
func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.rules.Check(ctx, OpWrite, collection); err != nil {
		return err
	}

	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = deleteIn(tx, collection, id)
		return err
	})
	if err != nil {
		return classify("delete", err)
	}

	if removed > 0 {
		s.feed.Publish(ctx, collection)
	}
	return nil
}

func deleteIn(tx *gorm.DB, collection, id string) (int64, error) {
	if err := tx.Where("collection = ? AND doc_id = ?", collection, id).Delete(&fieldRow{}).Error; err != nil {
		return 0, err
	}
	res := tx.Where("collection = ? AND id = ?", collection, id).Delete(&documentRow{})
	return res.RowsAffected, res.Error
}
