package notification

import (
	"context"
	"fmt"
)

const NewApplicationTitle = "Yeni Başvuru"

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, userID string, t Type, title, message string, payload *Payload) (*Notification, error) {
	return s.repo.Create(ctx, CreateInput{
		UserID:  userID,
		Type:    t,
		Title:   title,
		Message: message,
		Payload: payload,
	})
}

// NotifyNewApplication tells the employer that someone applied to their
// listing.
func (s *Service) NotifyNewApplication(ctx context.Context, employerID, jobID, jobTitle, applicantID string) error {
	_, err := s.Create(
		ctx,
		employerID,
		TypeApplication,
		NewApplicationTitle,
		fmt.Sprintf("%q ilanınıza yeni bir başvuru yapıldı.", jobTitle),
		&Payload{JobID: jobID, ApplicantID: applicantID},
	)
	return err
}
