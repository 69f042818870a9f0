package accounts_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	accounts "github.com/bravado-dev/go-accounts"
)

func TestIsUserNotFound(t *testing.T) {
	err := accounts.NewUserNotFound("USR-20240601120000-AAAA")
	assert.True(t, accounts.IsUserNotFound(err))

	assert.False(t, accounts.IsUserNotFound(nil))
	assert.False(t, accounts.IsUserNotFound(errors.New("boom")))
	assert.False(t, accounts.IsUserNotFound(accounts.NewUserAlreadyExists("email", "a@b.co")))
}

func TestIsInvalidTransition(t *testing.T) {
	_, err := accounts.Transition(accounts.UserStatusDeleted, accounts.UserStatusActive)
	assert.True(t, accounts.IsInvalidTransition(err))

	assert.False(t, accounts.IsInvalidTransition(nil))
	assert.False(t, accounts.IsInvalidTransition(errors.New("boom")))
	assert.False(t, accounts.IsInvalidTransition(accounts.NewUserNotFound("x")))
}
