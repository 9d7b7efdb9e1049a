// Package application coordinates applying to a listing: it checks the
// applicant against the listing, records them in the applicant set and
// tells the employer.
package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"jobmarket/internal/domain"
	"jobmarket/internal/domain/listing"
	"jobmarket/internal/domain/profile"
	"jobmarket/internal/session"
)

// Listings is the part of the listing repository an application touches.
type Listings interface {
	Get(ctx context.Context, id string) (*listing.Listing, error)
	AddApplicant(ctx context.Context, id, userID string) (bool, error)
	ListByApplicant(ctx context.Context, userID string) ([]*listing.Listing, error)
}

type Notifier interface {
	NotifyNewApplication(ctx context.Context, employerID, jobID, jobTitle, applicantID string) error
}

type Result struct {
	AlreadyApplied bool `json:"alreadyApplied"`
}

type Coordinator struct {
	listings Listings
	profiles profile.Provider
	roles    listing.RoleResolver
	notifier Notifier

	wg sync.WaitGroup
}

func NewCoordinator(listings Listings, profiles profile.Provider, roles listing.RoleResolver, notifier Notifier) *Coordinator {
	return &Coordinator{listings: listings, profiles: profiles, roles: roles, notifier: notifier}
}

// Apply records applicantID as an applicant of jobID. Applying twice is not
// an error; the second call reports AlreadyApplied and changes nothing.
func (c *Coordinator) Apply(ctx context.Context, jobID, applicantID string) (Result, error) {
	l, err := c.listings.Get(ctx, jobID)
	if errors.Is(err, domain.ErrNotFound) {
		return Result{}, fmt.Errorf("listing %s: %w", jobID, domain.ErrListingUnavailable)
	}
	if err != nil {
		return Result{}, err
	}
	if !l.IsVisible() {
		return Result{}, fmt.Errorf("listing %s: %w", jobID, domain.ErrListingUnavailable)
	}

	if l.EmployerID == applicantID {
		return Result{}, domain.ErrSelfApplication
	}

	p, err := c.profiles.GetProfile(ctx, applicantID)
	if errors.Is(err, domain.ErrNotFound) {
		return Result{}, fmt.Errorf("profile %s missing: %w", applicantID, domain.ErrIncompleteProfile)
	}
	if err != nil {
		return Result{}, err
	}
	if !p.Complete() {
		return Result{}, domain.ErrIncompleteProfile
	}

	if l.HasApplicant(applicantID) {
		return Result{AlreadyApplied: true}, nil
	}

	added, err := c.listings.AddApplicant(ctx, jobID, applicantID)
	if err != nil {
		return Result{}, err
	}
	if !added {
		return Result{AlreadyApplied: true}, nil
	}

	c.notify(ctx, l, applicantID)
	return Result{AlreadyApplied: false}, nil
}

// notify tells the employer in the background. The request may finish
// first, so the notification runs on a context that outlives it.
func (c *Coordinator) notify(ctx context.Context, l *listing.Listing, applicantID string) {
	ctx = context.WithoutCancel(ctx)
	if session.CurrentUser(ctx) == nil {
		ctx = session.WithPrincipal(ctx, session.System())
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.notifier.NotifyNewApplication(ctx, l.EmployerID, l.ID, l.Title, applicantID); err != nil {
			log.Printf("apply_notify_failed job_id=%s employer_id=%s applicant_id=%s err=%v", l.ID, l.EmployerID, applicantID, err)
		}
	}()
}

// Wait blocks until every pending notification has been attempted.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// MyApplications returns the listings the user has applied to, newest first.
func (c *Coordinator) MyApplications(ctx context.Context, userID string) ([]*listing.Listing, error) {
	return c.listings.ListByApplicant(ctx, userID)
}

// Applicants returns the profiles of everyone who applied to jobID. Only
// the listing's employer and admins may see them; applicants without a
// profile are skipped.
func (c *Coordinator) Applicants(ctx context.Context, jobID, requesterID string) ([]*profile.Profile, error) {
	l, err := c.listings.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if l.EmployerID != requesterID {
		role, err := c.roles.RoleOf(ctx, requesterID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("unknown requester: %w", domain.ErrAuthorization)
		}
		if err != nil {
			return nil, err
		}
		if role != session.RoleAdmin && role != session.RoleSystem {
			return nil, fmt.Errorf("applicants of %s: %w", jobID, domain.ErrAuthorization)
		}
	}

	out := make([]*profile.Profile, 0, len(l.Applicants))
	for _, id := range l.Applicants {
		p, err := c.profiles.GetProfile(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
