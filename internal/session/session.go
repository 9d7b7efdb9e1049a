package session

import "context"

type Role string

const (
	RoleJobseeker Role = "jobseeker"
	RoleEmployer  Role = "employer"
	RoleAdmin     Role = "admin"
	// RoleSystem is used by background jobs (cleanup, async notifications).
	RoleSystem Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleJobseeker, RoleEmployer, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	ID   string
	Role Role
}

func (p *Principal) IsAdmin() bool {
	return p != nil && (p.Role == RoleAdmin || p.Role == RoleSystem)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// CurrentUser returns the principal attached to ctx, or nil for anonymous calls.
func CurrentUser(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

func System() *Principal {
	return &Principal{ID: "system", Role: RoleSystem}
}
