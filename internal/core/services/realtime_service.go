package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ledgermate/ledgermate/internal/core/domain"
	portsrepo "github.com/ledgermate/ledgermate/internal/core/ports/repositories"
	portssvc "github.com/ledgermate/ledgermate/internal/core/ports/services"
)

// notificationBuffer bounds the soft-signal feed; oldest entries are dropped
// when nobody drains it.
const notificationBuffer = 16

// RealtimeService keeps exactly one push-notification subscription open,
// scoped to the active context. Inbound changes authored by someone else
// raise a soft "new data available" signal; remote data is never applied
// here — that is exclusively the reconciliation engine's restore path.
type RealtimeService struct {
	state      *appState
	guard      *SessionGuard
	subscriber portsrepo.RealtimeSubscriber
	logger     *slog.Logger
	enabled    bool

	mu  sync.Mutex
	sub portsrepo.Subscription

	notifications chan domain.Notification
}

// NewRealtimeService creates a new RealtimeService. When enabled is false
// the service never subscribes; Refresh still maintains the connected flag.
func NewRealtimeService(state *appState, guard *SessionGuard, subscriber portsrepo.RealtimeSubscriber, logger *slog.Logger, enabled bool) *RealtimeService {
	return &RealtimeService{
		state:         state,
		guard:         guard,
		subscriber:    subscriber,
		logger:        logger.With(slog.String("component", "realtime")),
		enabled:       enabled,
		notifications: make(chan domain.Notification, notificationBuffer),
	}
}

var _ portssvc.RealtimeSvc = (*RealtimeService)(nil)

// Notifications yields the soft signals raised by inbound remote changes.
func (s *RealtimeService) Notifications() <-chan domain.Notification {
	return s.notifications
}

// Refresh tears down any existing subscription and, when the engine is
// authenticated, online and not mid-logout, opens exactly one new
// subscription scoped to the active context. Called on every change to
// {authenticated, active context, online, realtime config}.
func (s *RealtimeService) Refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked(ctx)

	st := s.state.read()
	if !s.enabled || !st.Authenticated || !st.Online || s.guard.LogoutInProgress() {
		return
	}

	scope, scopeID := domain.ScopeUserBackup, st.UserID
	if !st.ActiveContext.IsPersonal() {
		scope, scopeID = domain.ScopeWallet, string(st.ActiveContext)
	}

	sub, err := s.subscriber.Subscribe(ctx, scope, scopeID, s.handleChange)
	if err != nil {
		s.logger.Warn("Realtime subscription failed",
			slog.String("scope", string(scope)), slog.String("scope_id", scopeID), slog.String("error", err.Error()))
		return
	}
	s.sub = sub

	s.state.mu.Lock()
	s.state.syncState.RealtimeConnected = true
	s.state.mu.Unlock()

	s.logger.Info("Realtime subscribed", slog.String("scope", string(scope)), slog.String("scope_id", scopeID))
}

// Close tears down the subscription for good (component disposal).
func (s *RealtimeService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked(context.Background())
}

func (s *RealtimeService) teardownLocked(_ context.Context) {
	if s.sub == nil {
		return
	}
	if err := s.sub.Close(); err != nil {
		s.logger.Warn("Realtime unsubscribe failed", slog.String("error", err.Error()))
	}
	s.sub = nil

	s.state.mu.Lock()
	s.state.syncState.RealtimeConnected = false
	s.state.mu.Unlock()
}

// handleChange receives validated tagged events from the gateway. Changes
// authored by the current user are echoes of its own pushes and are dropped;
// everything else becomes a non-blocking notification.
func (s *RealtimeService) handleChange(ev domain.ChangeEvent) {
	st := s.state.read()
	if ev.AuthorID() == st.UserID {
		return
	}

	var n domain.Notification
	switch e := ev.(type) {
	case domain.WalletChangeEvent:
		n = domain.Notification{
			Kind:    domain.NotifyWalletUpdated,
			Context: domain.ContextID(e.WalletID),
			Message: "shared wallet updated",
			At:      e.UpdatedAt,
		}
	case domain.BackupChangeEvent:
		n = domain.Notification{
			Kind:    domain.NotifyBackupUpdated,
			Context: domain.PersonalContext,
			Message: "new data received",
			At:      e.UpdatedAt,
		}
	default:
		return
	}

	s.publish(n)
	s.logger.Info("Remote change signalled", slog.String("kind", string(n.Kind)), slog.String("author", ev.AuthorID()))
}

// publish never blocks: on overflow the oldest pending notification is
// dropped to make room.
func (s *RealtimeService) publish(n domain.Notification) {
	for {
		select {
		case s.notifications <- n:
			return
		default:
		}
		select {
		case <-s.notifications:
		default:
		}
	}
}
