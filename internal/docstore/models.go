package docstore

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// documentRow holds a document's scalar and nested fields. Array fields live
// in document_fields and are assembled on read.
type documentRow struct {
	Collection string            `gorm:"primaryKey;size:64"`
	ID         string            `gorm:"primaryKey;size:320"`
	Data       datatypes.JSONMap `gorm:"not null"`
	CreatedAt  time.Time         `gorm:"not null;index"`
	UpdatedAt  time.Time         `gorm:"not null"`
}

func (documentRow) TableName() string { return "documents" }

// MaxIDLength bounds caller-chosen ids; it fits any valid email address.
const MaxIDLength = 320

// fieldRow indexes one scalar field or one array member of a document.
type fieldRow struct {
	Seq        uint64 `gorm:"primaryKey;autoIncrement"`
	Collection string `gorm:"size:64;not null;uniqueIndex:idx_field_member,priority:1;index:idx_field_lookup,priority:1"`
	DocID      string `gorm:"size:320;not null;uniqueIndex:idx_field_member,priority:2"`
	Field      string `gorm:"size:64;not null;uniqueIndex:idx_field_member,priority:3;index:idx_field_lookup,priority:2"`
	Value      string `gorm:"size:256;not null;uniqueIndex:idx_field_member,priority:4;index:idx_field_lookup,priority:3"`
	IsArray    bool   `gorm:"not null;default:false"`
}

func (fieldRow) TableName() string { return "document_fields" }

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&documentRow{}, &fieldRow{})
}
