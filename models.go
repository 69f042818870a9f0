package accounts

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/bravado-dev/go-accounts/idgen"
)

// UserIDPrefix tags user identifiers, e.g. USR-20251003143025-K7Q2.
const UserIDPrefix = "USR"

// User is the user model.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            string     `bun:"id,pk" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Status        UserStatus `bun:"status,notnull" json:"status,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// NewUser returns a fully formed record: identifier assigned and status set
// to active. Identifiers are minted here, at construction time, never by a
// persistence hook, and any caller-supplied value is ignored.
func NewUser(username, email, passwordHash string) *User {
	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}
	u.EnsureID()
	u.EnsureStatus()
	return u
}

// EnsureID assigns a generated identifier exactly once.
func (u *User) EnsureID() {
	if u.ID == "" {
		u.ID = idgen.Generate(UserIDPrefix)
	}
}

// EnsureStatus defaults an unset status to active.
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// IsActive reports whether the user is in the active status.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// IsSuspended reports whether the user is suspended.
func (u *User) IsSuspended() bool {
	return u.Status == UserStatusSuspended
}

// IsLocked reports whether the user is locked.
func (u *User) IsLocked() bool {
	return u.Status == UserStatusLocked
}

// IsPending reports whether the user is pending activation.
func (u *User) IsPending() bool {
	return u.Status == UserStatusPending
}

// IsDeleted reports whether the user is soft deleted.
func (u *User) IsDeleted() bool {
	return u.Status.IsDeleted()
}

// CanLogin reports whether the user may authenticate.
func (u *User) CanLogin() bool {
	return u.Status.CanLogin()
}
