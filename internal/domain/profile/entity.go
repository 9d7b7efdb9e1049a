package profile

import (
	"strings"
	"time"

	"jobmarket/internal/session"
)

const (
	Collection       = "users"
	EmailsCollection = "user_emails"
)

type Profile struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	DisplayName string       `json:"displayName"`
	Phone       string       `json:"phone"`
	Role        session.Role `json:"role"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Complete reports whether the profile carries what employers need to
// contact an applicant.
func (p *Profile) Complete() bool {
	return strings.TrimSpace(p.DisplayName) != "" && strings.TrimSpace(p.Phone) != ""
}

// record is the stored shape; the password hash never leaves this package
// except through GetCredentials.
type record struct {
	Profile
	PasswordHash string `json:"passwordHash"`
}

type emailEntry struct {
	UserID string `json:"userId"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
