package profile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"jobmarket/internal/docstore"
	"jobmarket/internal/domain"
	"jobmarket/internal/session"
)

// Provider is what other components need from user profiles.
type Provider interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

type Repository struct {
	store docstore.Store
	now   func() time.Time
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store, now: time.Now}
}

var _ Provider = (*Repository)(nil)

type CreateInput struct {
	Email        string
	DisplayName  string
	Phone        string
	Role         session.Role
	PasswordHash string
}

// Create stores a new profile. The email is reserved first under its own
// document id so two registrations with the same address cannot both win.
func (r *Repository) Create(ctx context.Context, in CreateInput) (*Profile, error) {
	email := NormalizeEmail(in.Email)
	if email == "" {
		return nil, domain.Invalid("email", "required")
	}
	if !in.Role.Valid() || in.Role == session.RoleSystem {
		return nil, domain.Invalid("role", "unknown role")
	}

	rec := record{
		Profile: Profile{
			Email:       email,
			DisplayName: in.DisplayName,
			Phone:       in.Phone,
			Role:        in.Role,
			CreatedAt:   r.now().UTC(),
		},
		PasswordHash: in.PasswordHash,
	}

	fields, err := docstore.FieldsOf(rec)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	fields["createdAt"] = rec.CreatedAt

	id := uuid.NewString()
	if err := r.store.CreateWithID(ctx, EmailsCollection, email, docstore.Fields{"userId": id}); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, domain.StoreError("reserve email", err)
	}

	if err := r.store.CreateWithID(ctx, Collection, id, fields); err != nil {
		if delErr := r.store.Delete(ctx, EmailsCollection, email); delErr != nil {
			log.Printf("profile_email_release_failed email=%s err=%v", email, delErr)
		}
		return nil, domain.StoreError("create profile", err)
	}

	rec.ID = id
	return &rec.Profile, nil
}

func (r *Repository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	rec, err := r.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &rec.Profile, nil
}

func (r *Repository) get(ctx context.Context, userID string) (*record, error) {
	if userID == "" {
		return nil, fmt.Errorf("get profile: %w", domain.ErrNotFound)
	}
	doc, err := r.store.Get(ctx, Collection, userID)
	if err != nil {
		return nil, domain.StoreError("get profile", err)
	}
	var rec record
	if err := doc.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", userID, err)
	}
	rec.CreatedAt = doc.CreateTime
	return &rec, nil
}

// GetCredentials looks a user up by email and returns the stored password
// hash alongside the profile.
func (r *Repository) GetCredentials(ctx context.Context, email string) (*Profile, string, error) {
	doc, err := r.store.Get(ctx, EmailsCollection, NormalizeEmail(email))
	if err != nil {
		return nil, "", domain.StoreError("lookup email", err)
	}
	var entry emailEntry
	if err := doc.DataTo(&entry); err != nil {
		return nil, "", fmt.Errorf("decode email entry: %w", err)
	}

	rec, err := r.get(ctx, entry.UserID)
	if err != nil {
		return nil, "", err
	}
	return &rec.Profile, rec.PasswordHash, nil
}

type UpdateInput struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=120"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
}

func (r *Repository) Update(ctx context.Context, userID string, in UpdateInput) (*Profile, error) {
	fields := docstore.Fields{}
	if in.DisplayName != nil {
		fields["displayName"] = *in.DisplayName
	}
	if in.Phone != nil {
		fields["phone"] = *in.Phone
	}
	if len(fields) > 0 {
		if err := r.store.Update(ctx, Collection, userID, fields); err != nil {
			return nil, domain.StoreError("update profile", err)
		}
	}
	return r.GetProfile(ctx, userID)
}

func (r *Repository) SetRole(ctx context.Context, userID string, role session.Role) error {
	if !role.Valid() || role == session.RoleSystem {
		return domain.Invalid("role", "unknown role")
	}
	if err := r.store.Update(ctx, Collection, userID, docstore.Fields{"role": role}); err != nil {
		return domain.StoreError("set role", err)
	}
	return nil
}
