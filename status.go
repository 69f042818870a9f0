package accounts

// UserStatus is the persisted lifecycle state of a user account.
type UserStatus string

const (
	// UserStatusActive means the account is in good standing and may log in.
	UserStatusActive UserStatus = "active"
	// UserStatusInactive means the account is dormant but may reactivate itself.
	UserStatusInactive UserStatus = "inactive"
	// UserStatusSuspended means the account was suspended and needs an
	// elevated actor to reinstate it.
	UserStatusSuspended UserStatus = "suspended"
	// UserStatusPending means the account has not completed activation
	// (e.g. email verification).
	UserStatusPending UserStatus = "pending"
	// UserStatusLocked means the account was locked, typically after too
	// many failed login attempts.
	UserStatusLocked UserStatus = "locked"
	// UserStatusDeleted marks the account as soft deleted. Terminal.
	UserStatusDeleted UserStatus = "deleted"
)

// UserStatuses lists every recognized status.
var UserStatuses = []UserStatus{
	UserStatusActive,
	UserStatusInactive,
	UserStatusSuspended,
	UserStatusPending,
	UserStatusLocked,
	UserStatusDeleted,
}

// IsValid reports whether s is a member of the closed status set.
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended,
		UserStatusPending, UserStatusLocked, UserStatusDeleted:
		return true
	}
	return false
}

// CanLogin reports whether an account in this status may authenticate.
func (s UserStatus) CanLogin() bool {
	return s == UserStatusActive
}

// CanSelfReactivate reports whether the account can return to active
// without an elevated actor. Suspended and locked accounts cannot.
func (s UserStatus) CanSelfReactivate() bool {
	return s == UserStatusInactive || s == UserStatusPending
}

// IsDeleted reports whether the account is soft deleted.
func (s UserStatus) IsDeleted() bool {
	return s == UserStatusDeleted
}

func (s UserStatus) String() string {
	return string(s)
}

// ParseUserStatus resolves a string to a member of the status set.
func ParseUserStatus(value string) (UserStatus, error) {
	s := UserStatus(value)
	if !s.IsValid() {
		return "", ErrUnknownStatus.WithMetadata(map[string]any{
			"status": value,
		})
	}
	return s, nil
}

// Transition validates a status change and returns the resulting status.
// Deleted is terminal: the only transition out of it that succeeds is the
// idempotent deleted to deleted no-op. Every other pairing between valid
// statuses is permitted; policy such as "only admins reinstate suspended
// accounts" belongs to the caller.
func Transition(current, target UserStatus) (UserStatus, error) {
	if !current.IsValid() {
		return "", ErrUnknownStatus.WithMetadata(map[string]any{
			"status": current.String(),
		})
	}

	if !target.IsValid() {
		return "", ErrUnknownStatus.WithMetadata(map[string]any{
			"status": target.String(),
		})
	}

	if current.IsDeleted() && !target.IsDeleted() {
		return "", ErrInvalidTransition.WithMetadata(map[string]any{
			"from": current.String(),
			"to":   target.String(),
		})
	}

	return target, nil
}

// SoftDelete moves any status to deleted. It never fails: deleting an
// already deleted account is a no-op success.
func SoftDelete(current UserStatus) (UserStatus, error) {
	return Transition(current, UserStatusDeleted)
}
