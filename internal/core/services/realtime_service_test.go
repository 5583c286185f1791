package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgermate/ledgermate/internal/core/domain"
)

func TestRefreshSubscribesToPersonalScope(t *testing.T) {
	env := newTestEnv(t, Options{RealtimeEnabled: true})
	env.authenticate("u1")

	sub := &MockSubscription{}
	sub.On("Close").Return(nil)
	env.gateway.On("Subscribe", mock.Anything, domain.ScopeUserBackup, "u1", mock.Anything).Return(sub, nil).Once()

	env.container.Realtime.Refresh(context.Background())

	assert.True(t, env.sync.State().RealtimeConnected)
	env.gateway.AssertExpectations(t)
}

func TestRefreshFollowsActiveWallet(t *testing.T) {
	env := newTestEnv(t, Options{RealtimeEnabled: true})
	env.authenticate("u1")

	env.sync.state.mu.Lock()
	env.sync.state.syncState.ActiveContext = domain.ContextID("w1")
	env.sync.state.mu.Unlock()

	sub := &MockSubscription{}
	sub.On("Close").Return(nil)
	env.gateway.On("Subscribe", mock.Anything, domain.ScopeWallet, "w1", mock.Anything).Return(sub, nil).Once()

	env.container.Realtime.Refresh(context.Background())

	assert.True(t, env.sync.State().RealtimeConnected)
	env.gateway.AssertExpectations(t)
}

func TestRefreshClosesPreviousSubscription(t *testing.T) {
	env := newTestEnv(t, Options{RealtimeEnabled: true})
	env.authenticate("u1")

	first := &MockSubscription{}
	first.On("Close").Return(nil).Once()
	second := &MockSubscription{}

	env.gateway.On("Subscribe", mock.Anything, domain.ScopeUserBackup, "u1", mock.Anything).Return(first, nil).Once()
	env.gateway.On("Subscribe", mock.Anything, domain.ScopeUserBackup, "u1", mock.Anything).Return(second, nil).Once()

	ctx := context.Background()
	env.container.Realtime.Refresh(ctx)
	env.container.Realtime.Refresh(ctx)

	first.AssertExpectations(t)
	assert.True(t, env.sync.State().RealtimeConnected)
}

func TestRefreshSkipsWhenOfflineOrSignedOut(t *testing.T) {
	env := newTestEnv(t, Options{RealtimeEnabled: true})

	// Signed out
	env.container.Realtime.Refresh(context.Background())
	assert.False(t, env.sync.State().RealtimeConnected)

	// Signed in but offline
	env.authenticate("u1")
	env.sync.state.mu.Lock()
	env.sync.state.syncState.Online = false
	env.sync.state.mu.Unlock()
	env.container.Realtime.Refresh(context.Background())
	assert.False(t, env.sync.State().RealtimeConnected)

	env.gateway.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshDisabledNeverSubscribes(t *testing.T) {
	env := newTestEnv(t, Options{RealtimeEnabled: false})
	env.authenticate("u1")

	env.container.Realtime.Refresh(context.Background())

	assert.False(t, env.sync.State().RealtimeConnected)
	env.gateway.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOwnEchoesAreDropped(t *testing.T) {
	env := newTestEnv(t, Options{RealtimeEnabled: true})
	env.authenticate("u1")

	var onChange func(domain.ChangeEvent)
	sub := &MockSubscription{}
	sub.On("Close").Return(nil)
	env.gateway.On("Subscribe", mock.Anything, domain.ScopeUserBackup, "u1", mock.Anything).
		Run(func(args mock.Arguments) {
			onChange = args.Get(3).(func(domain.ChangeEvent))
		}).
		Return(sub, nil).Once()

	env.container.Realtime.Refresh(context.Background())
	require.NotNil(t, onChange)

	at := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)

	// Echo of this user's own push: no signal.
	onChange(domain.BackupChangeEvent{OwnerID: "u1", EditorID: "u1", UpdatedAt: at})
	select {
	case n := <-env.container.Realtime.Notifications():
		t.Fatalf("own echo raised a notification: %+v", n)
	default:
	}

	// A change authored elsewhere raises a soft signal.
	onChange(domain.BackupChangeEvent{OwnerID: "u1", EditorID: "other-device", UpdatedAt: at})
	select {
	case n := <-env.container.Realtime.Notifications():
		assert.Equal(t, domain.NotifyBackupUpdated, n.Kind)
		assert.True(t, n.Context.IsPersonal())
	default:
		t.Fatal("expected a notification for a foreign change")
	}
}

func TestWalletChangeNotification(t *testing.T) {
	env := newTestEnv(t, Options{RealtimeEnabled: true})
	env.authenticate("u1")

	env.sync.state.mu.Lock()
	env.sync.state.syncState.ActiveContext = domain.ContextID("w1")
	env.sync.state.mu.Unlock()

	var onChange func(domain.ChangeEvent)
	sub := &MockSubscription{}
	sub.On("Close").Return(nil)
	env.gateway.On("Subscribe", mock.Anything, domain.ScopeWallet, "w1", mock.Anything).
		Run(func(args mock.Arguments) {
			onChange = args.Get(3).(func(domain.ChangeEvent))
		}).
		Return(sub, nil).Once()

	env.container.Realtime.Refresh(context.Background())
	require.NotNil(t, onChange)

	onChange(domain.WalletChangeEvent{WalletID: "w1", EditorID: "partner", UpdatedAt: time.Now()})

	select {
	case n := <-env.container.Realtime.Notifications():
		assert.Equal(t, domain.NotifyWalletUpdated, n.Kind)
		assert.Equal(t, domain.ContextID("w1"), n.Context)
	default:
		t.Fatal("expected a wallet notification")
	}
}

func TestNotificationOverflowDropsOldest(t *testing.T) {
	env := newTestEnv(t, Options{RealtimeEnabled: true})
	env.authenticate("u1")

	svc := env.container.Realtime.(*RealtimeService)
	at := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	for i := 0; i < notificationBuffer+5; i++ {
		svc.publish(domain.Notification{Kind: domain.NotifyBackupUpdated, At: at.Add(time.Duration(i) * time.Second)})
	}

	drained := 0
	for {
		select {
		case <-env.container.Realtime.Notifications():
			drained++
			continue
		default:
		}
		break
	}
	assert.Equal(t, notificationBuffer, drained, "the feed is bounded and never blocks producers")
}

func TestCloseTearsDownSubscription(t *testing.T) {
	env := newTestEnv(t, Options{RealtimeEnabled: true})
	env.authenticate("u1")

	sub := &MockSubscription{}
	sub.On("Close").Return(nil).Once()
	env.gateway.On("Subscribe", mock.Anything, domain.ScopeUserBackup, "u1", mock.Anything).Return(sub, nil).Once()

	env.container.Realtime.Refresh(context.Background())
	env.container.Realtime.Close()

	sub.AssertExpectations(t)
	assert.False(t, env.sync.State().RealtimeConnected)
}
