package accounts

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/bravado-dev/go-accounts/idgen"
)

var updatePasswordSQL = `UPDATE "users"
SET
	"password_hash" = ?,
	"updated_at" = ?
WHERE
	"status" != 'deleted'
AND (
	"id" = ?
);`

// Users is the persistence surface for user records.
type Users interface {
	Create(ctx context.Context, record *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)

	GetByID(ctx context.Context, id string) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)

	List(ctx context.Context) ([]*User, error)
	ListByStatus(ctx context.Context, status UserStatus) ([]*User, error)
	CountByStatus(ctx context.Context, status UserStatus) (int, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	Update(ctx context.Context, record *User) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, id string, passwordHash string) error
	UpdateStatus(ctx context.Context, id string, status UserStatus, opts ...StatusUpdateOption) (*User, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id string, status UserStatus, opts ...StatusUpdateOption) (*User, error)

	Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus, opts ...TransitionOption) (*User, error)
	SoftDelete(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
	Deactivate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
	Reactivate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
	Suspend(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
	Lock(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
}

type users struct {
	db                  *bun.DB
	stateMachine        UserStateMachine
	stateMachineOptions []StateMachineOption
	activitySink        ActivitySink
	logger              Logger
}

var _ Users = (*users)(nil)

// UsersOption customizes the users repository.
type UsersOption func(*users)

// NewUsersRepository builds the Bun-backed Users repository.
func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := &users{
		db:           db,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

// WithUsersStateMachineOptions forwards options to the lifecycle machine the
// repository builds lazily.
func WithUsersStateMachineOptions(options ...StateMachineOption) UsersOption {
	return func(u *users) {
		if len(options) == 0 {
			return
		}
		u.stateMachineOptions = append(u.stateMachineOptions, options...)
		u.stateMachine = nil
	}
}

// WithUsersStateMachine injects a prebuilt lifecycle machine.
func WithUsersStateMachine(sm UserStateMachine) UsersOption {
	return func(u *users) {
		u.stateMachine = sm
	}
}

// WithUsersActivitySink sets the ActivitySink that receives user.created and
// user.updated events. Status change events come from the lifecycle machine.
func WithUsersActivitySink(sink ActivitySink) UsersOption {
	return func(u *users) {
		u.activitySink = normalizeActivitySink(sink)
	}
}

// WithUsersLogger overrides the logger used for sink failures.
func WithUsersLogger(logger Logger) UsersOption {
	return func(u *users) {
		if logger != nil {
			u.logger = logger
		}
	}
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record)

	if taken, err := a.existsTx(ctx, tx, "username", record.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, NewUserAlreadyExists("username", record.Username)
	}

	if taken, err := a.existsTx(ctx, tx, "email", record.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, NewUserAlreadyExists("email", record.Email)
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert user")
	}

	a.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventUserCreated,
		UserID:    record.ID,
		ToStatus:  record.Status,
	})

	return record, nil
}

func (a *users) GetByID(ctx context.Context, id string) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id string) (*User, error) {
	return a.getByColumnTx(ctx, tx, "id", id)
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return a.getByColumnTx(ctx, a.db, "username", username)
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.getByColumnTx(ctx, a.db, "email", email)
}

// GetByIdentifier resolves the lookup column from the identifier's shape:
// a generated id, an email address, or a username, in that order.
func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	options := resolveUserIdentifier(identifier)
	if len(options) == 0 {
		return nil, NewUserNotFound(identifier)
	}

	for _, opt := range options {
		record, err := a.getByColumnTx(ctx, a.db, opt.column, opt.value)
		if err != nil {
			if IsUserNotFound(err) {
				continue
			}
			return nil, err
		}
		return record, nil
	}

	return nil, NewUserNotFound(identifier)
}

func (a *users) List(ctx context.Context) ([]*User, error) {
	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users")
	}
	return records, nil
}

func (a *users) ListByStatus(ctx context.Context, status UserStatus) ([]*User, error) {
	if !status.IsValid() {
		return nil, ErrUnknownStatus.WithMetadata(map[string]any{
			"status": status.String(),
		})
	}

	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.status = ?", status).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users by status")
	}
	return records, nil
}

func (a *users) CountByStatus(ctx context.Context, status UserStatus) (int, error) {
	if !status.IsValid() {
		return 0, ErrUnknownStatus.WithMetadata(map[string]any{
			"status": status.String(),
		})
	}

	count, err := a.db.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.status = ?", status).
		Count(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count users by status")
	}
	return count, nil
}

func (a *users) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return a.existsTx(ctx, a.db, "username", username)
}

func (a *users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return a.existsTx(ctx, a.db, "email", email)
}

func (a *users) Update(ctx context.Context, record *User) (*User, error) {
	return a.UpdateTx(ctx, a.db, record)
}

func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	if record == nil || record.ID == "" {
		return nil, NewUserNotFound("")
	}

	now := time.Now()
	record.UpdatedAt = &now

	res, err := tx.NewUpdate().
		Model(record).
		Column("username", "email", "first_name", "last_name", "phone_number", "password_hash", "updated_at").
		Where("id = ?", record.ID).
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, NewUserNotFound(record.ID)
	}

	a.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventUserUpdated,
		UserID:    record.ID,
	})

	return a.GetByIDTx(ctx, tx, record.ID)
}

func (a *users) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	return a.UpdatePasswordTx(ctx, a.db, id, passwordHash)
}

func (a *users) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id string, passwordHash string) error {
	res, err := tx.NewRaw(updatePasswordSQL, passwordHash, time.Now(), id).Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return NewUserNotFound(id)
	}

	return nil
}

func (a *users) UpdateStatus(ctx context.Context, id string, status UserStatus, opts ...StatusUpdateOption) (*User, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status, opts...)
}

func (a *users) UpdateStatusTx(ctx context.Context, tx bun.IDB, id string, status UserStatus, opts ...StatusUpdateOption) (*User, error) {
	record := &User{
		ID:     id,
		Status: status,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(record)
		}
	}

	if record.UpdatedAt == nil {
		now := time.Now()
		record.UpdatedAt = &now
	}

	res, err := tx.NewUpdate().
		Model(record).
		Column("status", "updated_at").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user status")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, NewUserNotFound(id)
	}

	return record, nil
}

func (a *users) Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, target, opts...)
}

func (a *users) SoftDelete(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().SoftDelete(ctx, actor, user, opts...)
}

func (a *users) Deactivate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusInactive, opts...)
}

func (a *users) Reactivate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusActive, opts...)
}

func (a *users) Suspend(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusSuspended, opts...)
}

func (a *users) Lock(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusLocked, opts...)
}

func (a *users) recordActivity(ctx context.Context, event ActivityEvent) {
	event.OccurredAt = time.Now()
	if err := a.activitySink.Record(ctx, event); err != nil {
		a.logger.Error("activity sink failed to record %s: %v", event.EventType, err)
	}
}

func (a *users) lifecycleMachine() UserStateMachine {
	if a.stateMachine == nil {
		a.stateMachine = NewUserStateMachine(a, a.stateMachineOptions...)
	}
	return a.stateMachine
}

func (a *users) getByColumnTx(ctx context.Context, tx bun.IDB, column, value string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewUserNotFound(value)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query user")
	}
	return record, nil
}

func (a *users) existsTx(ctx context.Context, tx bun.IDB, column, value string) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias."+column+" = ?", value).
		Exists(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check user existence")
	}
	return exists, nil
}

// StatusUpdateOption allows callers to mutate the record before persisting
// status changes.
type StatusUpdateOption func(*User)

// WithStatusUpdatedAt sets the UpdatedAt timestamp recorded with a status change.
func WithStatusUpdatedAt(at time.Time) StatusUpdateOption {
	return func(u *User) {
		u.UpdatedAt = &at
	}
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.EnsureStatus()
	record.EnsureID()
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 2)

	if idgen.IsValid(trimmed, UserIDPrefix) {
		options = append(options, identifierOption{column: "id", value: trimmed})
		return options
	}

	if _, err := mail.ParseAddress(trimmed); err == nil {
		options = append(options, identifierOption{column: "email", value: trimmed})
	}

	options = append(options, identifierOption{column: "username", value: trimmed})

	return options
}
