package docstore

import (
	"context"

	"gorm.io/gorm"
)

type batchOp struct {
	collection string
	id         string
	data       Fields
	remove     bool
}

type gormBatch struct {
	s   *GormStore
	ops []batchOp
}

func (s *GormStore) Batch() Batch {
	return &gormBatch{s: s}
}

func (b *gormBatch) Update(collection, id string, data Fields) Batch {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, data: data})
	return b
}

func (b *gormBatch) Delete(collection, id string) Batch {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, remove: true})
	return b
}

// Commit applies all queued writes atomically. Updating a missing document
// aborts the whole batch with ErrNotFound.
func (b *gormBatch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	for _, op := range b.ops {
		if err := b.s.rules.Check(ctx, OpWrite, op.collection); err != nil {
			return err
		}
	}

	err := b.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range b.ops {
			if op.remove {
				if _, err := deleteIn(tx, op.collection, op.id); err != nil {
					return err
				}
				continue
			}
			if err := b.s.applyUpdate(tx, op.collection, op.id, op.data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return classify("batch", err)
	}

	touched := make(map[string]bool)
	for _, op := range b.ops {
		if !touched[op.collection] {
			touched[op.collection] = true
			b.s.feed.Publish(ctx, op.collection)
		}
	}
	b.ops = nil
	return nil
}
