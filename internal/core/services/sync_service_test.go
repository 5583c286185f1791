package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgermate/ledgermate/internal/apperrors"
	"github.com/ledgermate/ledgermate/internal/core/domain"
)

func testSession(userID string) *domain.Session {
	return &domain.Session{
		User:        domain.User{UserID: userID, Email: userID + "@example.com"},
		AccessToken: "token-" + userID,
		ExpiresAt:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestLoginFreshDeviceAdoptsRemoteTimestamp(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	remoteTS := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env.gateway.On("Login", mock.Anything, "u1@example.com", "pw").Return(testSession("u1"), nil)
	env.gateway.On("PullBackup", mock.Anything, "u1").Return(&domain.BackupEnvelope{
		OwnerID:   "u1",
		Payload:   domain.EmptySnapshot(),
		UpdatedAt: remoteTS,
	}, nil)
	env.gateway.On("ListWallets", mock.Anything, "u1").Return([]domain.Wallet{}, nil)

	sess, err := env.sync.Login(ctx, "u1@example.com", "pw")
	require.NoError(t, err)
	require.NotNil(t, sess)

	st := env.sync.State()
	assert.True(t, st.Authenticated)
	assert.True(t, st.Online)
	assert.Equal(t, "u1", st.UserID)
	assert.True(t, st.PendingRestoreAvailable, "remote backup with no local sync pointer must offer a restore")
	require.NotNil(t, st.PendingRestoreAt)
	assert.True(t, st.PendingRestoreAt.Equal(remoteTS))
	require.NotNil(t, st.LastSync)
	assert.True(t, st.LastSync.Equal(remoteTS), "the remote timestamp becomes the local sync pointer")
}

func TestLoginWithoutRemoteBackup(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	env.gateway.On("Login", mock.Anything, "u1@example.com", "pw").Return(testSession("u1"), nil)
	env.gateway.On("PullBackup", mock.Anything, "u1").Return(nil, apperrors.ErrNotFound)
	env.gateway.On("ListWallets", mock.Anything, "u1").Return([]domain.Wallet{}, nil)

	_, err := env.sync.Login(ctx, "u1@example.com", "pw")
	require.NoError(t, err)

	st := env.sync.State()
	assert.True(t, st.Authenticated)
	assert.False(t, st.PendingRestoreAvailable)
	assert.Nil(t, st.LastSync)
}

func TestReconcileGraceWindow(t *testing.T) {
	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name          string
		remoteOffset  time.Duration
		expectRestore bool
	}{
		{name: "within grace window", remoteOffset: 500 * time.Millisecond, expectRestore: false},
		{name: "beyond grace window", remoteOffset: 1500 * time.Millisecond, expectRestore: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			env.setLastSync(base)

			remoteTS := base.Add(tc.remoteOffset)
			env.gateway.On("Login", mock.Anything, "u1@example.com", "pw").Return(testSession("u1"), nil)
			env.gateway.On("PullBackup", mock.Anything, "u1").Return(&domain.BackupEnvelope{
				OwnerID:   "u1",
				Payload:   domain.EmptySnapshot(),
				UpdatedAt: remoteTS,
			}, nil)
			env.gateway.On("ListWallets", mock.Anything, "u1").Return([]domain.Wallet{}, nil)

			_, err := env.sync.Login(context.Background(), "u1@example.com", "pw")
			require.NoError(t, err)

			st := env.sync.State()
			assert.Equal(t, tc.expectRestore, st.PendingRestoreAvailable)
			require.NotNil(t, st.LastSync)
			assert.True(t, st.LastSync.Equal(remoteTS))
		})
	}
}

func TestLoginFailureLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.gateway.On("Login", mock.Anything, "u1@example.com", "bad").Return(nil, apperrors.ErrUnauthorized)

	_, err := env.sync.Login(context.Background(), "u1@example.com", "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	st := env.sync.State()
	assert.False(t, st.Authenticated)
	assert.Empty(t, st.UserID)
}

func TestPushRequiresAuthAndConnectivity(t *testing.T) {
	env := newTestEnv(t, Options{})

	_, err := env.sync.Push(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	env.authenticate("u1")
	env.sync.state.mu.Lock()
	env.sync.state.syncState.Online = false
	env.sync.state.mu.Unlock()

	_, err = env.sync.Push(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrOffline)
}

func TestPushClearsDirtyState(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.authenticate("u1")

	_, err := env.container.Ledger.CreateTransaction(ctx, domain.Transaction{
		Type:   domain.Expense,
		Amount: mustDecimal(t, "12.50"),
		Date:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.True(t, env.sync.State().UnsyncedChanges)

	serverTS := time.Date(2024, 5, 1, 12, 0, 5, 0, time.UTC)
	env.gateway.On("PushBackup", mock.Anything, "u1", mock.Anything).Return(serverTS, nil).Once()

	outcome, err := env.sync.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PushCompleted, outcome)

	st := env.sync.State()
	assert.False(t, st.UnsyncedChanges)
	require.NotNil(t, st.LastSync)
	assert.True(t, st.LastSync.Equal(serverTS))

	for _, txn := range env.container.Ledger.Snapshot().Transactions {
		assert.False(t, txn.PendingSync)
	}
	env.gateway.AssertExpectations(t)
}

func TestPushFailureKeepsDirtyFlag(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.authenticate("u1")

	_, err := env.container.Ledger.CreateTransaction(ctx, domain.Transaction{
		Type:   domain.Income,
		Amount: mustDecimal(t, "100"),
		Date:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	env.gateway.On("PushBackup", mock.Anything, "u1", mock.Anything).
		Return(time.Time{}, fmt.Errorf("%w: connection refused", apperrors.ErrTransport)).Once()

	_, err = env.sync.Push(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTransport)

	st := env.sync.State()
	assert.True(t, st.UnsyncedChanges, "a failed push must leave the retry signal in place")
	assert.Nil(t, st.LastSync)
}

func TestPushSingleFlight(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.authenticate("u1")

	release := make(chan struct{})
	started := make(chan struct{})
	serverTS := time.Date(2024, 5, 1, 12, 0, 5, 0, time.UTC)
	env.gateway.On("PushBackup", mock.Anything, "u1", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(serverTS, nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := env.sync.Push(ctx)
		done <- err
	}()

	<-started
	outcome, err := env.sync.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PushSkipped, outcome, "a concurrent push request must be skipped, not queued")

	close(release)
	require.NoError(t, <-done)

	env.gateway.AssertNumberOfCalls(t, "PushBackup", 1)
}

func TestPushKeepsDirtyFlagForEditsDuringFlight(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.authenticate("u1")

	_, err := env.container.Ledger.CreateTransaction(ctx, domain.Transaction{
		Type:   domain.Expense,
		Amount: mustDecimal(t, "12.50"),
		Date:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	serverTS := time.Date(2024, 5, 1, 12, 0, 5, 0, time.UTC)
	env.gateway.On("PushBackup", mock.Anything, "u1", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(serverTS, nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := env.sync.Push(ctx)
		done <- err
	}()

	// This edit is not in the payload already on the wire.
	<-started
	late, err := env.container.Ledger.CreateTransaction(ctx, domain.Transaction{
		Type:   domain.Income,
		Amount: mustDecimal(t, "40"),
		Date:   time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)

	st := env.sync.State()
	assert.True(t, st.UnsyncedChanges, "the mid-flight edit still needs a push")
	require.NotNil(t, st.LastSync)
	assert.True(t, st.LastSync.Equal(serverTS))

	for _, txn := range env.container.Ledger.Snapshot().Transactions {
		if txn.TransactionID == late.TransactionID {
			assert.True(t, txn.PendingSync, "the mid-flight edit must keep its pendingSync mark")
		}
	}
	env.gateway.AssertExpectations(t)
}

func TestPushWalletContextUsesWalletData(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.authenticate("u1")

	env.sync.state.mu.Lock()
	env.sync.state.syncState.ActiveContext = domain.ContextID("w1")
	env.sync.state.snapshot = domain.EmptySnapshot()
	env.sync.state.mu.Unlock()

	env.gateway.On("PushWalletData", mock.Anything, "w1", "u1", mock.Anything).Return(nil).Once()

	outcome, err := env.sync.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PushCompleted, outcome)

	st := env.sync.State()
	require.NotNil(t, st.LastSync)
	assert.True(t, st.LastSync.Equal(env.now), "wallet pushes record the local clock")
	env.gateway.AssertExpectations(t)
}

func TestRestoreSkipClearsPromptOnly(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.authenticate("u1")

	ts := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)
	env.sync.state.mu.Lock()
	env.sync.state.syncState.PendingRestoreAvailable = true
	env.sync.state.syncState.PendingRestoreAt = &ts
	env.sync.state.mu.Unlock()

	require.NoError(t, env.sync.Restore(context.Background(), domain.RestoreSkip))

	st := env.sync.State()
	assert.False(t, st.PendingRestoreAvailable)
	assert.Nil(t, st.PendingRestoreAt)
	env.gateway.AssertNotCalled(t, "PullBackup", mock.Anything, mock.Anything)
}

func TestRestoreReplaceOverwritesLocalData(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.authenticate("u1")

	_, err := env.container.Ledger.CreateTransaction(ctx, domain.Transaction{
		TransactionID: "txn-local",
		Type:          domain.Expense,
		Amount:        mustDecimal(t, "5"),
		Date:          time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	remote := domain.EmptySnapshot()
	remote.Transactions = []domain.Transaction{{
		TransactionID: "txn-remote",
		Type:          domain.Income,
		Amount:        mustDecimal(t, "50"),
		Date:          time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
	}}
	remoteTS := time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC)
	env.gateway.On("PullBackup", mock.Anything, "u1").Return(&domain.BackupEnvelope{
		OwnerID:   "u1",
		Payload:   remote,
		UpdatedAt: remoteTS,
	}, nil).Once()

	require.NoError(t, env.sync.Restore(ctx, domain.RestoreReplace))

	snap := env.container.Ledger.Snapshot()
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "txn-remote", snap.Transactions[0].TransactionID)

	st := env.sync.State()
	assert.False(t, st.PendingRestoreAvailable)
	require.NotNil(t, st.LastSync)
	assert.True(t, st.LastSync.Equal(remoteTS))
}

func TestRestoreMergeKeepsLocalAndSuppressesDeletes(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.authenticate("u1")

	for _, txn := range []domain.Transaction{
		{TransactionID: "txn-local", Type: domain.Expense, Amount: mustDecimal(t, "5"), Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{TransactionID: "txn-deleted", Type: domain.Expense, Amount: mustDecimal(t, "7"), Date: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)},
	} {
		_, err := env.container.Ledger.CreateTransaction(ctx, txn)
		require.NoError(t, err)
	}
	require.NoError(t, env.container.Ledger.DeleteTransaction(ctx, "txn-deleted"))

	remote := domain.EmptySnapshot()
	remote.Transactions = []domain.Transaction{
		{TransactionID: "txn-remote", Type: domain.Income, Amount: mustDecimal(t, "50"), Date: time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC)},
		{TransactionID: "txn-deleted", Type: domain.Expense, Amount: mustDecimal(t, "7"), Date: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)},
	}
	env.gateway.On("PullBackup", mock.Anything, "u1").Return(&domain.BackupEnvelope{
		OwnerID:   "u1",
		Payload:   remote,
		UpdatedAt: time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC),
	}, nil).Once()

	require.NoError(t, env.sync.Restore(ctx, domain.RestoreMerge))

	ids := map[string]bool{}
	for _, txn := range env.container.Ledger.Snapshot().Transactions {
		ids[txn.TransactionID] = true
	}
	assert.True(t, ids["txn-local"], "local-only entries survive a merge")
	assert.True(t, ids["txn-remote"])
	assert.False(t, ids["txn-deleted"], "locally deleted entries must not be resurrected")
}

func TestRestoreRequiresAuth(t *testing.T) {
	env := newTestEnv(t, Options{})
	err := env.sync.Restore(context.Background(), domain.RestoreReplace)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRestoreRejectedWhilePushInFlight(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.authenticate("u1")

	release := make(chan struct{})
	started := make(chan struct{})
	env.gateway.On("PushBackup", mock.Anything, "u1", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(time.Date(2024, 5, 1, 12, 0, 5, 0, time.UTC), nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := env.sync.Push(ctx)
		done <- err
	}()

	<-started
	err := env.sync.Restore(ctx, domain.RestoreReplace)
	assert.ErrorIs(t, err, apperrors.ErrSyncInProgress)

	close(release)
	require.NoError(t, <-done)
	env.gateway.AssertExpectations(t)
}

func TestLogoutWipesLocalState(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.authenticate("u1")

	_, err := env.container.Ledger.CreateTransaction(ctx, domain.Transaction{
		Type:   domain.Expense,
		Amount: mustDecimal(t, "3"),
		Date:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, env.sync.Logout(ctx))

	st := env.sync.State()
	assert.False(t, st.Authenticated)
	assert.Empty(t, st.UserID)
	assert.False(t, st.UnsyncedChanges)
	assert.True(t, st.Online, "connectivity is unrelated to auth and survives logout")
	assert.True(t, st.ActiveContext.IsPersonal())

	_, err = env.store.Get(ctx, snapshotKey(domain.PersonalContext))
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "logout clears the local store")

	snap := env.container.Ledger.Snapshot()
	assert.Empty(t, snap.Transactions, "the live snapshot resets to first-run defaults")
	assert.NotEmpty(t, snap.Accounts)
}

func TestLogoutInvalidatesInFlightLogin(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	env.gateway.On("Login", mock.Anything, "u1@example.com", "pw").
		Run(func(mock.Arguments) {
			// A logout transition lands while the login call is on the wire.
			env.sync.guard.BeginLogout()
			env.sync.guard.EndLogout()
		}).
		Return(testSession("u1"), nil)

	_, err := env.sync.Login(ctx, "u1@example.com", "pw")
	assert.ErrorIs(t, err, apperrors.ErrStaleSession)
	assert.False(t, env.sync.State().Authenticated)
}

func TestResetPasswordOffline(t *testing.T) {
	env := newTestEnv(t, Options{})
	err := env.sync.ResetPassword(context.Background(), "u1@example.com")
	assert.ErrorIs(t, err, apperrors.ErrOffline)
}

func TestAutoBackupTickSchedules(t *testing.T) {
	cases := []struct {
		name       string
		mode       string
		sinceSync  time.Duration
		expectPush bool
	}{
		{name: "daily due", mode: domain.AutoBackupDaily, sinceSync: 30 * time.Hour, expectPush: true},
		{name: "daily not due", mode: domain.AutoBackupDaily, sinceSync: 10 * time.Hour, expectPush: false},
		{name: "weekly due", mode: domain.AutoBackupWeekly, sinceSync: 200 * time.Hour, expectPush: true},
		{name: "weekly not due", mode: domain.AutoBackupWeekly, sinceSync: 100 * time.Hour, expectPush: false},
		{name: "off never pushes", mode: domain.AutoBackupOff, sinceSync: 1000 * time.Hour, expectPush: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			ctx := context.Background()
			env.authenticate("u1")
			env.setLastSync(env.now.Add(-tc.sinceSync))

			env.sync.state.mu.Lock()
			env.sync.state.snapshot.Settings.AutoBackup = tc.mode
			env.sync.state.mu.Unlock()

			if tc.expectPush {
				env.gateway.On("PushBackup", mock.Anything, "u1", mock.Anything).
					Return(env.now, nil).Once()
			}

			env.sync.RunAutoBackupTick(ctx)

			if tc.expectPush {
				env.gateway.AssertExpectations(t)
			} else {
				env.gateway.AssertNotCalled(t, "PushBackup", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestAutoBackupTickPushesDirtyDataImmediately(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.authenticate("u1")
	env.setLastSync(env.now.Add(-time.Minute))

	// Mode off: unsynced changes still win over the schedule.
	_, err := env.container.Ledger.CreateTransaction(ctx, domain.Transaction{
		Type:   domain.Expense,
		Amount: mustDecimal(t, "1"),
		Date:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	env.gateway.On("PushBackup", mock.Anything, "u1", mock.Anything).Return(env.now, nil).Once()

	env.sync.RunAutoBackupTick(ctx)
	env.gateway.AssertExpectations(t)
}

func TestAutoBackupTickSkipsDuringLogout(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.authenticate("u1")
	env.sync.guard.loggingOut.Store(true)
	defer env.sync.guard.loggingOut.Store(false)

	env.sync.RunAutoBackupTick(context.Background())
	env.gateway.AssertNotCalled(t, "PushBackup", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteWalletLeavesActiveContextFirst(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.authenticate("u1")

	env.sync.state.mu.Lock()
	env.sync.state.syncState.Online = false // Keeps the switch from spawning a remote refresh
	env.sync.state.mu.Unlock()

	require.NoError(t, env.container.Contexts.SwitchContext(ctx, domain.ContextID("w1")))

	env.gateway.On("DeleteWallet", mock.Anything, "w1").Return(nil).Once()

	require.NoError(t, env.sync.DeleteWallet(ctx, "w1"))

	assert.True(t, env.container.Contexts.ActiveContext().IsPersonal())
	_, err := env.store.Get(ctx, snapshotKey(domain.ContextID("w1")))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	env.gateway.AssertExpectations(t)
}

func TestListWalletsRequiresAuth(t *testing.T) {
	env := newTestEnv(t, Options{})
	_, err := env.sync.ListWallets(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestSetOnlineFlipsFlag(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	env.sync.SetOnline(ctx, true)
	assert.True(t, env.sync.State().Online)
	env.sync.SetOnline(ctx, false)
	assert.False(t, env.sync.State().Online)
}

func TestRestoreUnknownStrategyRejected(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.authenticate("u1")
	err := env.sync.Restore(context.Background(), domain.RestoreStrategy("rollback"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLoginReconcileFailureDoesNotFailLogin(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.gateway.On("Login", mock.Anything, "u1@example.com", "pw").Return(testSession("u1"), nil)
	env.gateway.On("PullBackup", mock.Anything, "u1").
		Return(nil, errors.New("gateway exploded"))
	env.gateway.On("ListWallets", mock.Anything, "u1").Return([]domain.Wallet{}, nil)

	_, err := env.sync.Login(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)
	assert.True(t, env.sync.State().Authenticated)
	assert.False(t, env.sync.State().PendingRestoreAvailable)
}
