package listing

import (
	"time"

	"jobmarket/internal/docstore"
)

const Collection = "listings"

// Indexes lists the ordered queries this package issues.
var Indexes = []docstore.Index{
	{Collection: Collection, Fields: []string{"moderationStatus"}},
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether an admin may move a listing from s to next.
// Approved and rejected can be re-entered from each other; nothing returns to
// pending.
func (s Status) CanTransition(next Status) bool {
	switch next {
	case StatusApproved, StatusRejected:
		return s.Valid()
	}
	return false
}

type Listing struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Company           string    `json:"company"`
	Description       string    `json:"description"`
	Salary            string    `json:"salary,omitempty"`
	CityID            string    `json:"cityId"`
	District          string    `json:"district,omitempty"`
	JobTypeID         string    `json:"jobTypeId"`
	WorkPreferenceID  string    `json:"workPreferenceId,omitempty"`
	SectorID          string    `json:"sectorId"`
	PositionID        string    `json:"positionId,omitempty"`
	ExperienceLevelID string    `json:"experienceLevelId"`
	ModerationStatus  Status    `json:"moderationStatus"`
	IsActive          bool      `json:"isActive"`
	Applicants        []string  `json:"applicants"`
	EmployerID        string    `json:"employerId"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// IsVisible reports whether the listing belongs in the public feed.
func (l *Listing) IsVisible() bool {
	return l.ModerationStatus == StatusApproved && l.IsActive
}

func (l *Listing) HasApplicant(userID string) bool {
	for _, id := range l.Applicants {
		if id == userID {
			return true
		}
	}
	return false
}

func fromDocument(doc *docstore.Document) (*Listing, error) {
	var l Listing
	if err := doc.DataTo(&l); err != nil {
		return nil, err
	}
	l.CreatedAt = doc.CreateTime
	l.UpdatedAt = doc.UpdateTime
	if l.Applicants == nil {
		l.Applicants = []string{}
	}
	return &l, nil
}

// Draft is what an employer submits to open a listing.
type Draft struct {
	Title             string `json:"title" validate:"required,max=200"`
	Company           string `json:"company" validate:"required,max=200"`
	Description       string `json:"description" validate:"required,max=10000"`
	Salary            string `json:"salary" validate:"max=200"`
	CityID            string `json:"cityId" validate:"required"`
	District          string `json:"district" validate:"max=100"`
	JobTypeID         string `json:"jobTypeId" validate:"required"`
	WorkPreferenceID  string `json:"workPreferenceId"`
	SectorID          string `json:"sectorId" validate:"required"`
	PositionID        string `json:"positionId"`
	ExperienceLevelID string `json:"experienceLevelId" validate:"required"`
}

// Patch edits listing attributes. Ownership, applicants and moderation
// status are not part of it.
type Patch struct {
	Title             *string `json:"title" validate:"omitempty,min=1,max=200"`
	Company           *string `json:"company" validate:"omitempty,min=1,max=200"`
	Description       *string `json:"description" validate:"omitempty,min=1,max=10000"`
	Salary            *string `json:"salary" validate:"omitempty,max=200"`
	CityID            *string `json:"cityId" validate:"omitempty,min=1"`
	District          *string `json:"district" validate:"omitempty,max=100"`
	JobTypeID         *string `json:"jobTypeId" validate:"omitempty,min=1"`
	WorkPreferenceID  *string `json:"workPreferenceId"`
	SectorID          *string `json:"sectorId" validate:"omitempty,min=1"`
	PositionID        *string `json:"positionId"`
	ExperienceLevelID *string `json:"experienceLevelId" validate:"omitempty,min=1"`
}

func (l *Listing) draft() Draft {
	return Draft{
		Title:             l.Title,
		Company:           l.Company,
		Description:       l.Description,
		Salary:            l.Salary,
		CityID:            l.CityID,
		District:          l.District,
		JobTypeID:         l.JobTypeID,
		WorkPreferenceID:  l.WorkPreferenceID,
		SectorID:          l.SectorID,
		PositionID:        l.PositionID,
		ExperienceLevelID: l.ExperienceLevelID,
	}
}

// apply returns the draft with the patch applied and the changed fields.
func (p Patch) apply(d Draft) (Draft, docstore.Fields) {
	changed := docstore.Fields{}
	set := func(dst *string, src *string, key string) {
		if src != nil && *src != *dst {
			*dst = *src
			changed[key] = *src
		}
	}
	set(&d.Title, p.Title, "title")
	set(&d.Company, p.Company, "company")
	set(&d.Description, p.Description, "description")
	set(&d.Salary, p.Salary, "salary")
	set(&d.CityID, p.CityID, "cityId")
	set(&d.District, p.District, "district")
	set(&d.JobTypeID, p.JobTypeID, "jobTypeId")
	set(&d.WorkPreferenceID, p.WorkPreferenceID, "workPreferenceId")
	set(&d.SectorID, p.SectorID, "sectorId")
	set(&d.PositionID, p.PositionID, "positionId")
	set(&d.ExperienceLevelID, p.ExperienceLevelID, "experienceLevelId")
	return d, changed
}
