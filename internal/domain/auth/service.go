package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"jobmarket/internal/domain"
	"jobmarket/internal/domain/profile"
	"jobmarket/internal/pkg/validator"
	"jobmarket/internal/session"
)

type jwtService interface {
	GenerateToken(userID string, role string) (string, error)
}

type Users interface {
	Create(ctx context.Context, in profile.CreateInput) (*profile.Profile, error)
	GetCredentials(ctx context.Context, email string) (*profile.Profile, string, error)
}

type RegisterRequest struct {
	Email       string       `json:"email" validate:"required,email,max=254"`
	Password    string       `json:"password" validate:"required,min=8,max=72"`
	DisplayName string       `json:"displayName" validate:"max=120"`
	Phone       string       `json:"phone" validate:"max=32"`
	Role        session.Role `json:"role" validate:"required,oneof=jobseeker employer"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type Result struct {
	User        *profile.Profile `json:"user"`
	AccessToken string           `json:"accessToken"`
}

// Service registers users and signs them in. Admins are never created
// here; they are promoted from the command line.
type Service struct {
	users Users
	jwt   jwtService
	cost  int
}

func NewService(users Users, jwt jwtService) *Service {
	return &Service{users: users, jwt: jwt, cost: bcrypt.DefaultCost}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Result, error) {
	if errs := validator.Validate(req); errs != nil {
		return nil, &domain.ValidationError{Fields: errs}
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	// nobody is signed in yet, so the write runs as the system principal
	ctx = session.WithPrincipal(ctx, session.System())
	user, err := s.users.Create(ctx, profile.CreateInput{
		Email:        req.Email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         req.Role,
		PasswordHash: hash,
	})
	if errors.Is(err, profile.ErrEmailTaken) {
		return nil, ErrEmailAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*Result, error) {
	if errs := validator.Validate(req); errs != nil {
		return nil, &domain.ValidationError{Fields: errs}
	}

	ctx = session.WithPrincipal(ctx, session.System())
	user, hash, err := s.users.GetCredentials(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *Service) issue(user *profile.Profile) (*Result, error) {
	token, err := s.jwt.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &Result{User: user, AccessToken: token}, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
