package accounts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories plus transaction support.
type RepositoryManager interface {
	Users() Users
	Validate() error
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error
}

type mngr struct {
	db    *bun.DB
	users Users
}

// NewRepositoryManager wires the repositories over a shared Bun handle.
func NewRepositoryManager(db *bun.DB, opts ...UsersOption) RepositoryManager {
	return &mngr{
		db:    db,
		users: NewUsersRepository(db, opts...),
	}
}

func (m *mngr) Users() Users {
	return m.users
}

func (m *mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository manager requires a database handle")
	}
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}
	return nil
}

func (m *mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	return m.db.RunInTx(ctx, opts, fn)
}
