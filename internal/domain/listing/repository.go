package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobmarket/internal/docstore"
	"jobmarket/internal/domain"
	"jobmarket/internal/domain/profile"
	"jobmarket/internal/pkg/validator"
	"jobmarket/internal/refdata"
	"jobmarket/internal/session"
)

type ReferenceData interface {
	Valid(kind refdata.Kind, id string) bool
	ValidDistrict(cityID, district string) bool
}

// RoleResolver tells the repository who a requester is. Roles are looked up
// rather than taken from callers so every operation enforces the same rules.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID string) (session.Role, error)
}

type profileRoles struct {
	profiles profile.Provider
}

// ProfileRoles resolves roles from user profiles. The system principal is
// always treated as an admin.
func ProfileRoles(p profile.Provider) RoleResolver {
	return profileRoles{profiles: p}
}

func (r profileRoles) RoleOf(ctx context.Context, userID string) (session.Role, error) {
	if userID == session.System().ID {
		return session.RoleSystem, nil
	}
	p, err := r.profiles.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

type Repository struct {
	store docstore.Store
	ref   ReferenceData
	roles RoleResolver
	now   func() time.Time
}

func NewRepository(store docstore.Store, ref ReferenceData, roles RoleResolver) *Repository {
	return &Repository{store: store, ref: ref, roles: roles, now: time.Now}
}

func (r *Repository) Get(ctx context.Context, id string) (*Listing, error) {
	if id == "" {
		return nil, fmt.Errorf("get listing: %w", domain.ErrNotFound)
	}
	doc, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		return nil, domain.StoreError("get listing", err)
	}
	l, err := fromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("decode listing %s: %w", id, err)
	}
	return l, nil
}

func (r *Repository) CreateListing(ctx context.Context, d Draft, employerID string) (*Listing, error) {
	role, err := r.role(ctx, employerID)
	if err != nil {
		return nil, err
	}
	if role != session.RoleEmployer && !isAdmin(role) {
		return nil, fmt.Errorf("create listing: %w", domain.ErrAuthorization)
	}
	if err := r.validate(d); err != nil {
		return nil, err
	}

	l := &Listing{
		Title:             d.Title,
		Company:           d.Company,
		Description:       d.Description,
		Salary:            d.Salary,
		CityID:            d.CityID,
		District:          d.District,
		JobTypeID:         d.JobTypeID,
		WorkPreferenceID:  d.WorkPreferenceID,
		SectorID:          d.SectorID,
		PositionID:        d.PositionID,
		ExperienceLevelID: d.ExperienceLevelID,
		ModerationStatus:  StatusPending,
		IsActive:          true,
		Applicants:        []string{},
		EmployerID:        employerID,
		CreatedAt:         r.now().UTC(),
	}
	l.UpdatedAt = l.CreatedAt

	fields, err := docstore.FieldsOf(l)
	if err != nil {
		return nil, fmt.Errorf("encode listing: %w", err)
	}
	delete(fields, "updatedAt")
	fields["createdAt"] = l.CreatedAt

	id, err := r.store.Create(ctx, Collection, fields)
	if err != nil {
		return nil, domain.StoreError("create listing", err)
	}
	l.ID = id
	return l, nil
}

func (r *Repository) UpdateListing(ctx context.Context, id string, p Patch, requesterID string) error {
	l, err := r.authorizeOwner(ctx, id, requesterID)
	if err != nil {
		return err
	}
	if errs := validator.Validate(p); errs != nil {
		return &domain.ValidationError{Fields: errs}
	}

	merged, changed := p.apply(l.draft())
	if len(changed) == 0 {
		return nil
	}
	if err := r.validate(merged); err != nil {
		return err
	}

	if err := r.store.Update(ctx, Collection, id, changed); err != nil {
		return domain.StoreError("update listing", err)
	}
	return nil
}

// SetModerationStatus moves a listing between approved and rejected. Setting
// the current status again is a no-op.
func (r *Repository) SetModerationStatus(ctx context.Context, id string, status Status, requesterAdminID string) error {
	role, err := r.role(ctx, requesterAdminID)
	if err != nil {
		return err
	}
	if !isAdmin(role) {
		return fmt.Errorf("moderate listing: %w", domain.ErrAuthorization)
	}
	if !status.Valid() {
		return domain.Invalid("moderationStatus", "unknown status")
	}

	l, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if l.ModerationStatus == status {
		return nil
	}
	if !l.ModerationStatus.CanTransition(status) {
		return domain.Invalid("moderationStatus", fmt.Sprintf("cannot move from %s to %s", l.ModerationStatus, status))
	}

	if err := r.store.Update(ctx, Collection, id, docstore.Fields{"moderationStatus": status}); err != nil {
		return domain.StoreError("moderate listing", err)
	}
	return nil
}

func (r *Repository) SetActive(ctx context.Context, id string, active bool, requesterID string) error {
	l, err := r.authorizeOwner(ctx, id, requesterID)
	if err != nil {
		return err
	}
	if l.IsActive == active {
		return nil
	}
	if err := r.store.Update(ctx, Collection, id, docstore.Fields{"isActive": active}); err != nil {
		return domain.StoreError("set listing active", err)
	}
	return nil
}

// DeleteListing removes the listing only. Notifications and favorites that
// point at it are left in place and resolve to a missing listing.
func (r *Repository) DeleteListing(ctx context.Context, id, requesterID string) error {
	if _, err := r.authorizeOwner(ctx, id, requesterID); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		return domain.StoreError("delete listing", err)
	}
	return nil
}

// GetApprovedActiveListings returns visible listings matching f, newest
// first. The store query only uses equality filters so no ordered index is
// needed; the rich filter and ordering run here.
func (r *Repository) GetApprovedActiveListings(ctx context.Context, f Filter) ([]*Listing, error) {
	ls, err := r.query(ctx, docstore.Query{Where: []docstore.Predicate{
		docstore.Eq("moderationStatus", StatusApproved),
		docstore.Eq("isActive", true),
	}})
	if err != nil {
		return nil, err
	}

	out := ls[:0]
	for _, l := range ls {
		if l.IsVisible() && f.Match(l) {
			out = append(out, l)
		}
	}
	SortNewestFirst(out)
	return out, nil
}

func (r *Repository) ListByEmployer(ctx context.Context, employerID string) ([]*Listing, error) {
	ls, err := r.query(ctx, docstore.Query{Where: []docstore.Predicate{docstore.Eq("employerId", employerID)}})
	if err != nil {
		return nil, err
	}
	SortNewestFirst(ls)
	return ls, nil
}

// ListByStatus is the admin moderation queue.
func (r *Repository) ListByStatus(ctx context.Context, status Status, requesterID string) ([]*Listing, error) {
	role, err := r.role(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !isAdmin(role) {
		return nil, fmt.Errorf("list by status: %w", domain.ErrAuthorization)
	}
	if !status.Valid() {
		return nil, domain.Invalid("status", "unknown status")
	}

	ls, err := r.query(ctx, docstore.Query{Where: []docstore.Predicate{docstore.Eq("moderationStatus", status)}})
	if err != nil {
		return nil, err
	}
	SortNewestFirst(ls)
	return ls, nil
}

// ListByApplicant returns listings whose applicant set contains userID.
func (r *Repository) ListByApplicant(ctx context.Context, userID string) ([]*Listing, error) {
	ls, err := r.query(ctx, docstore.Query{Where: []docstore.Predicate{docstore.ArrayContains("applicants", userID)}})
	if err != nil {
		return nil, err
	}
	SortNewestFirst(ls)
	return ls, nil
}

// AddApplicant adds userID to the applicant set with the store's set-add.
// added is false when the user was already a member.
func (r *Repository) AddApplicant(ctx context.Context, id, userID string) (bool, error) {
	added, err := r.store.AddToSetField(ctx, Collection, id, "applicants", userID)
	if err != nil {
		return false, domain.StoreError("add applicant", err)
	}
	return added, nil
}

// SubscribeApproved pushes the newest approved listings, at most window of
// them, whenever that set changes. Listings are decoded but not filtered
// further.
func (r *Repository) SubscribeApproved(ctx context.Context, window int, fn func([]*Listing, error)) (docstore.Unsubscribe, error) {
	q := docstore.Query{
		Where:   []docstore.Predicate{docstore.Eq("moderationStatus", StatusApproved)},
		OrderBy: docstore.NewestFirst,
		Limit:   window,
	}
	unsubscribe, err := r.store.Subscribe(ctx, Collection, q, func(docs []*docstore.Document, err error) {
		if err != nil {
			fn(nil, domain.StoreError("listing snapshot", err))
			return
		}
		ls, err := decodeAll(docs)
		fn(ls, err)
	})
	if err != nil {
		return nil, domain.StoreError("subscribe listings", err)
	}
	return unsubscribe, nil
}

func (r *Repository) query(ctx context.Context, q docstore.Query) ([]*Listing, error) {
	docs, err := r.store.Query(ctx, Collection, q)
	if err != nil {
		return nil, domain.StoreError("query listings", err)
	}
	return decodeAll(docs)
}

func decodeAll(docs []*docstore.Document) ([]*Listing, error) {
	out := make([]*Listing, 0, len(docs))
	for _, doc := range docs {
		l, err := fromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("decode listing %s: %w", doc.ID, err)
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *Repository) authorizeOwner(ctx context.Context, id, requesterID string) (*Listing, error) {
	l, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.EmployerID == requesterID && requesterID != "" {
		return l, nil
	}
	role, err := r.role(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !isAdmin(role) {
		return nil, fmt.Errorf("listing %s: %w", id, domain.ErrAuthorization)
	}
	return l, nil
}

// role resolves a requester; unknown users are unauthorized rather than
// not found.
func (r *Repository) role(ctx context.Context, userID string) (session.Role, error) {
	role, err := r.roles.RoleOf(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("unknown requester: %w", domain.ErrAuthorization)
	}
	return role, err
}

func isAdmin(role session.Role) bool {
	return role == session.RoleAdmin || role == session.RoleSystem
}

func (r *Repository) validate(d Draft) error {
	verr := &domain.ValidationError{}
	for field, rule := range validator.Validate(d) {
		verr.Add(field, rule)
	}

	refs := []struct {
		field string
		kind  refdata.Kind
		id    string
	}{
		{"cityId", refdata.City, d.CityID},
		{"jobTypeId", refdata.JobType, d.JobTypeID},
		{"sectorId", refdata.Sector, d.SectorID},
		{"experienceLevelId", refdata.ExperienceLevel, d.ExperienceLevelID},
		{"workPreferenceId", refdata.WorkPreference, d.WorkPreferenceID},
		{"positionId", refdata.Position, d.PositionID},
	}
	for _, ref := range refs {
		if ref.id == "" {
			continue
		}
		if !r.ref.Valid(ref.kind, ref.id) {
			verr.Add(ref.field, "unknown id")
		}
	}
	if d.District != "" && d.CityID != "" && r.ref.Valid(refdata.City, d.CityID) && !r.ref.ValidDistrict(d.CityID, d.District) {
		verr.Add("district", "not in city")
	}
	return verr.OrNil()
}
