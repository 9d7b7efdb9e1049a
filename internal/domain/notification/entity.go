package notification

import (
	"time"

	"jobmarket/internal/docstore"
)

const Collection = "notifications"

var Indexes = []docstore.Index{
	{Collection: Collection, Fields: []string{"userId"}},
}

type Type string

const (
	TypeJob         Type = "job"
	TypeApplication Type = "application"
	TypeSystem      Type = "system"
)

func (t Type) Valid() bool {
	switch t {
	case TypeJob, TypeApplication, TypeSystem:
		return true
	}
	return false
}

// Payload links a notification to the entities it is about.
type Payload struct {
	JobID       string `json:"jobId,omitempty"`
	ApplicantID string `json:"applicantId,omitempty"`
}

type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      Type       `json:"type"`
	Read      bool       `json:"read"`
	Payload   *Payload   `json:"payload,omitempty"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func fromDocument(doc *docstore.Document) (*Notification, error) {
	var n Notification
	if err := doc.DataTo(&n); err != nil {
		return nil, err
	}
	n.CreatedAt = doc.CreateTime
	n.UpdatedAt = doc.UpdateTime
	return &n, nil
}

type CreateInput struct {
	UserID    string
	Title     string
	Message   string
	Type      Type
	Payload   *Payload
	CreatedAt time.Time
}
