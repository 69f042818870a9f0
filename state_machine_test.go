package accounts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	accounts "github.com/bravado-dev/go-accounts"
)

func TestUserStateMachinePersistsPermittedTransition(t *testing.T) {
	repo := &MockUsers{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	user := &accounts.User{
		ID:     "USR-20240601120000-AAAA",
		Status: accounts.UserStatusActive,
	}

	expected := &accounts.User{
		ID:     user.ID,
		Status: accounts.UserStatusSuspended,
	}

	repo.On("UpdateStatus", mock.Anything, user.ID, accounts.UserStatusSuspended, mock.Anything).
		Return(expected, nil).Once()

	sm := accounts.NewUserStateMachine(repo, accounts.WithStateMachineClock(func() time.Time { return now }))

	result, err := sm.Transition(context.Background(), accounts.ActorRef{ID: "admin", Type: "admin"}, user, accounts.UserStatusSuspended)
	require.NoError(t, err)
	assert.True(t, result.IsSuspended())
	repo.AssertExpectations(t)
}

func TestUserStateMachineRejectsLeavingDeleted(t *testing.T) {
	repo := &MockUsers{}
	user := &accounts.User{
		ID:     "USR-20240601120000-AAAB",
		Status: accounts.UserStatusDeleted,
	}

	sm := accounts.NewUserStateMachine(repo)

	_, err := sm.Transition(context.Background(), accounts.ActorRef{}, user, accounts.UserStatusActive)
	require.Error(t, err)
	assert.True(t, accounts.IsInvalidTransition(err))
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUserStateMachineSameStatusIsNoOp(t *testing.T) {
	repo := &MockUsers{}
	user := &accounts.User{
		ID:     "USR-20240601120000-AAAC",
		Status: accounts.UserStatusDeleted,
	}

	sm := accounts.NewUserStateMachine(repo)

	result, err := sm.Transition(context.Background(), accounts.ActorRef{}, user, accounts.UserStatusDeleted)
	require.NoError(t, err)
	assert.Equal(t, accounts.UserStatusDeleted, result.Status)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUserStateMachineForceTransitionBypassesTerminalRule(t *testing.T) {
	repo := &MockUsers{}
	user := &accounts.User{
		ID:     "USR-20240601120000-AAAD",
		Status: accounts.UserStatusDeleted,
	}

	repo.On("UpdateStatus", mock.Anything, user.ID, accounts.UserStatusActive, mock.Anything).
		Return(&accounts.User{ID: user.ID, Status: accounts.UserStatusActive}, nil).Once()

	sm := accounts.NewUserStateMachine(repo)

	result, err := sm.Transition(
		context.Background(),
		accounts.ActorRef{},
		user,
		accounts.UserStatusActive,
		accounts.WithForceTransition(),
	)
	require.NoError(t, err)
	assert.True(t, result.IsActive())
	repo.AssertExpectations(t)
}

func TestUserStateMachineSoftDelete(t *testing.T) {
	repo := &MockUsers{}
	user := &accounts.User{
		ID:     "USR-20240601120000-AAAE",
		Status: accounts.UserStatusActive,
	}

	repo.On("UpdateStatus", mock.Anything, user.ID, accounts.UserStatusDeleted, mock.Anything).
		Return(&accounts.User{ID: user.ID, Status: accounts.UserStatusDeleted}, nil).Once()

	sm := accounts.NewUserStateMachine(repo)

	result, err := sm.SoftDelete(context.Background(), accounts.ActorRef{ID: "system"}, user)
	require.NoError(t, err)
	assert.True(t, result.IsDeleted())
	repo.AssertExpectations(t)
}

type capturingSink struct {
	events []accounts.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt accounts.ActivityEvent) error {
	c.events = append(c.events, evt)
	return nil
}

func TestUserStateMachineEmitsActivityEvent(t *testing.T) {
	repo := &MockUsers{}
	sink := &capturingSink{}
	user := &accounts.User{
		ID:     "USR-20240601120000-AAAF",
		Status: accounts.UserStatusActive,
	}

	repo.On("UpdateStatus", mock.Anything, user.ID, accounts.UserStatusLocked, mock.Anything).
		Return(&accounts.User{ID: user.ID, Status: accounts.UserStatusLocked}, nil).Once()

	sm := accounts.NewUserStateMachine(repo, accounts.WithStateMachineActivitySink(sink))

	_, err := sm.Transition(
		context.Background(),
		accounts.ActorRef{ID: "admin", Type: "admin"},
		user,
		accounts.UserStatusLocked,
		accounts.WithTransitionReason("too many failed logins"),
	)
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	evt := sink.events[0]
	assert.Equal(t, accounts.ActivityEventUserStatusChanged, evt.EventType)
	assert.Equal(t, user.ID, evt.UserID)
	assert.Equal(t, accounts.UserStatusActive, evt.FromStatus)
	assert.Equal(t, accounts.UserStatusLocked, evt.ToStatus)
	assert.Equal(t, "too many failed logins", evt.Metadata["reason"])
}

func TestUserStateMachineRunsHooksAroundPersistence(t *testing.T) {
	repo := &MockUsers{}
	user := &accounts.User{
		ID:     "USR-20240601120000-AAAG",
		Status: accounts.UserStatusActive,
	}

	repo.On("UpdateStatus", mock.Anything, user.ID, accounts.UserStatusInactive, mock.Anything).
		Return(&accounts.User{ID: user.ID, Status: accounts.UserStatusInactive}, nil).Once()

	var order []string
	sm := accounts.NewUserStateMachine(repo)

	_, err := sm.Transition(
		context.Background(),
		accounts.ActorRef{},
		user,
		accounts.UserStatusInactive,
		accounts.WithBeforeTransitionHook(func(ctx context.Context, tc accounts.TransitionContext) error {
			order = append(order, "before")
			return nil
		}),
		accounts.WithAfterTransitionHook(func(ctx context.Context, tc accounts.TransitionContext) error {
			order = append(order, "after")
			return nil
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"before", "after"}, order)
}

func TestUserStateMachineBeforeHookFailureStopsPersistence(t *testing.T) {
	repo := &MockUsers{}
	user := &accounts.User{
		ID:     "USR-20240601120000-AAAH",
		Status: accounts.UserStatusActive,
	}

	hookErr := errors.New("veto")
	sm := accounts.NewUserStateMachine(repo,
		accounts.WithStateMachineHookErrorHandler(func(ctx context.Context, phase accounts.TransitionHookPhase, err error, tc accounts.TransitionContext) error {
			assert.Equal(t, accounts.HookPhaseBefore, phase)
			return err
		}),
	)

	_, err := sm.Transition(
		context.Background(),
		accounts.ActorRef{},
		user,
		accounts.UserStatusSuspended,
		accounts.WithBeforeTransitionHook(func(ctx context.Context, tc accounts.TransitionContext) error {
			return hookErr
		}),
	)
	require.ErrorIs(t, err, hookErr)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUserStateMachineNilUser(t *testing.T) {
	sm := accounts.NewUserStateMachine(&MockUsers{})

	_, err := sm.Transition(context.Background(), accounts.ActorRef{}, nil, accounts.UserStatusActive)
	require.Error(t, err)
	assert.True(t, accounts.IsInvalidTransition(err))
}

func TestUserStateMachineCurrentStatusDefaults(t *testing.T) {
	sm := accounts.NewUserStateMachine(&MockUsers{})

	assert.Equal(t, accounts.UserStatus(""), sm.CurrentStatus(nil))
	assert.Equal(t, accounts.UserStatusActive, sm.CurrentStatus(&accounts.User{}))
}
