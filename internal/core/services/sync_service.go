package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ledgermate/ledgermate/internal/apperrors"
	"github.com/ledgermate/ledgermate/internal/core/domain"
	portsrepo "github.com/ledgermate/ledgermate/internal/core/ports/repositories"
	portssvc "github.com/ledgermate/ledgermate/internal/core/ports/services"
	"github.com/ledgermate/ledgermate/internal/middleware"
)

// reconcileGraceWindow absorbs clock skew between the server-assigned backup
// timestamp and the locally recorded one: remote counts as newer only when
// it is ahead by more than this window.
const reconcileGraceWindow = time.Second

// Auto-backup elapsed-time thresholds per mode.
const (
	autoBackupDailyThreshold  = 24 * time.Hour
	autoBackupWeeklyThreshold = 168 * time.Hour
)

// refresher is the slice of the realtime listener the engine needs.
type refresher interface {
	Refresh(ctx context.Context)
}

// SyncService is the reconciliation engine: it decides, on login, timer tick
// and user request, whether to push local changes, pull remote changes or
// prompt the user, and executes the chosen merge strategy.
type SyncService struct {
	state    *appState
	persist  *persister
	guard    *SessionGuard
	gateway  portsrepo.RemoteGateway
	realtime refresher
	contexts portssvc.ContextSvc
	logger   *slog.Logger

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time

	// pushInFlight is the single-flight guard: at most one outstanding push
	// per process, concurrent requests observe "skipped".
	pushInFlight atomic.Bool

	autoBackupInitialDelay time.Duration
	autoBackupTick         time.Duration
}

// NewSyncService creates a new SyncService. realtime and contexts are wired
// by the container after construction to break the dependency cycle.
func NewSyncService(state *appState, persist *persister, guard *SessionGuard, gateway portsrepo.RemoteGateway, logger *slog.Logger, now func() time.Time) *SyncService {
	if now == nil {
		now = time.Now
	}
	return &SyncService{
		state:                  state,
		persist:                persist,
		guard:                  guard,
		gateway:                gateway,
		logger:                 logger.With(slog.String("component", "sync")),
		now:                    now,
		autoBackupInitialDelay: 10 * time.Second,
		autoBackupTick:         time.Minute,
	}
}

var _ portssvc.SyncSvcFacade = (*SyncService)(nil)

// State returns a copy of the process-wide sync read model.
func (s *SyncService) State() domain.SyncState {
	return s.state.read()
}

// Login authenticates against the gateway and reconciles local state with
// the remote backup. A login that is overtaken by a newer session transition
// mid-flight is discarded with ErrStaleSession.
func (s *SyncService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	token := s.guard.Advance()
	sess, err := s.gateway.Login(ctx, email, password)
	if err != nil {
		logger.Warn("Login failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if !s.guard.StillCurrent(token) {
		logger.Info("Discarding login result from stale session")
		return nil, apperrors.ErrStaleSession
	}

	s.state.mu.Lock()
	s.state.syncState.Authenticated = true
	s.state.syncState.UserID = sess.User.UserID
	s.state.syncState.Online = true
	s.state.mu.Unlock()

	if err := s.reconcile(ctx, token); err != nil {
		// Reconciliation problems never fail a login; they only mean the
		// restore prompt cannot be offered yet.
		logger.Warn("Post-login reconciliation incomplete", slog.String("error", err.Error()))
	}
	s.refreshWalletList(ctx, token)
	if s.realtime != nil {
		s.realtime.Refresh(ctx)
	}

	logger.Info("Login complete", slog.String("user_id", sess.User.UserID))
	return sess, nil
}

// Signup registers a new account and runs the same post-auth sequence as
// Login (a fresh account simply has no remote backup yet).
func (s *SyncService) Signup(ctx context.Context, email, password, name string) (*domain.Session, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	token := s.guard.Advance()
	sess, err := s.gateway.Signup(ctx, email, password, name)
	if err != nil {
		logger.Warn("Signup failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("signup failed: %w", err)
	}
	if !s.guard.StillCurrent(token) {
		return nil, apperrors.ErrStaleSession
	}

	s.state.mu.Lock()
	s.state.syncState.Authenticated = true
	s.state.syncState.UserID = sess.User.UserID
	s.state.syncState.Online = true
	s.state.mu.Unlock()

	if err := s.reconcile(ctx, token); err != nil {
		logger.Warn("Post-signup reconciliation incomplete", slog.String("error", err.Error()))
	}
	s.refreshWalletList(ctx, token)
	if s.realtime != nil {
		s.realtime.Refresh(ctx)
	}
	return sess, nil
}

// Logout resets the engine to unauthenticated defaults: session generation
// bumped, realtime torn down, local store cleared, live snapshot replaced by
// first-run defaults. Connectivity state survives; it is unrelated to auth.
func (s *SyncService) Logout(ctx context.Context) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	s.guard.BeginLogout()
	defer s.guard.EndLogout()

	if s.realtime != nil {
		s.realtime.Refresh(ctx) // Tears down; the logout flag suppresses resubscribe
	}

	if err := s.persist.store.ClearAll(ctx); err != nil {
		logger.Warn("Local store clear failed during logout", slog.String("error", err.Error()))
	}

	s.state.mu.Lock()
	online := s.state.syncState.Online
	s.state.snapshot = domain.DefaultSnapshot()
	s.state.gen++
	s.state.pendingDeletes = nil
	s.state.syncState = domain.SyncState{
		ActiveContext: domain.PersonalContext,
		Online:        online,
	}
	s.state.mu.Unlock()

	logger.Info("Logged out")
	return nil
}

// ResetPassword asks the remote auth provider to send a reset email.
func (s *SyncService) ResetPassword(ctx context.Context, email string) error {
	if !s.state.read().Online {
		return apperrors.ErrOffline
	}
	return s.gateway.ResetPassword(ctx, email)
}

// reconcile runs the pull decision after authentication. Wallet contexts
// pull on switch instead, so this only compares the personal backup.
func (s *SyncService) reconcile(ctx context.Context, token int64) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	st := s.state.read()
	if !st.ActiveContext.IsPersonal() {
		logger.Debug("Active wallet context recorded; skipping backup reconciliation")
		return nil
	}

	env, err := s.gateway.PullBackup(ctx, st.UserID)
	if errors.Is(err, apperrors.ErrNotFound) {
		// First run: no remote backup exists yet. Not an error.
		logger.Debug("No remote backup found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("backup pull failed: %w", err)
	}
	if !s.guard.StillCurrent(token) {
		logger.Debug("Discarding backup pull from stale session")
		return nil
	}

	s.state.mu.Lock()
	last := s.state.syncState.LastSync
	remoteTS := env.UpdatedAt
	newer := last == nil || remoteTS.After(last.Add(reconcileGraceWindow))
	if newer {
		// Restoring can overwrite unsynced local edits, so it stays a
		// user-confirmed action: flag it, never auto-apply.
		s.state.syncState.PendingRestoreAvailable = true
		ts := remoteTS
		s.state.syncState.PendingRestoreAt = &ts
	}
	// Either way the remote timestamp becomes the local sync pointer; this
	// keeps clocks aligned without prompting when nothing is newer.
	s.state.setLastSyncLocked(remoteTS)
	s.state.mu.Unlock()

	s.persist.saveJSONQuiet(ctx, keyLastSync, remoteTS)
	if newer {
		logger.Info("Remote backup is newer; restore available",
			slog.Time("remote_updated_at", remoteTS))
	}
	return nil
}

// Push backs up the active context's data. Single-flight: a push requested
// while one is in flight returns PushSkipped without touching the network.
func (s *SyncService) Push(ctx context.Context) (domain.PushOutcome, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	st := s.state.read()
	if !st.Authenticated {
		return "", apperrors.ErrUnauthorized
	}
	if !st.Online {
		return "", apperrors.ErrOffline
	}

	if !s.pushInFlight.CompareAndSwap(false, true) {
		logger.Debug("Push already in flight; skipping")
		return domain.PushSkipped, nil
	}
	defer s.pushInFlight.Store(false)

	s.state.mu.Lock()
	active := s.state.syncState.ActiveContext
	userID := s.state.syncState.UserID
	payload := s.state.snapshot.Clone()
	gen := s.state.gen
	s.state.mu.Unlock()

	var ts time.Time
	var err error
	if active.IsPersonal() {
		ts, err = s.gateway.PushBackup(ctx, userID, payload)
	} else {
		err = s.gateway.PushWalletData(ctx, string(active), userID, payload)
		ts = s.now()
	}
	if err != nil {
		// unsyncedChanges stays true so the periodic timer retries.
		logger.Warn("Push failed", slog.String("context", active.StorageKey()), slog.String("error", err.Error()))
		return "", fmt.Errorf("push failed: %w", err)
	}

	s.state.mu.Lock()
	if s.state.gen != gen {
		// Edits landed while the payload was on the wire. They are not in
		// the pushed copy, so the dirty flag and their pendingSync marks
		// must survive for the next push.
		s.state.setLastSyncLocked(ts)
		s.state.mu.Unlock()
		s.persist.saveJSONQuiet(ctx, keyLastSync, ts)
		logger.Info("Push complete; newer local edits remain unsynced",
			slog.String("context", active.StorageKey()), slog.Time("last_sync", ts))
		return domain.PushCompleted, nil
	}
	s.state.syncState.UnsyncedChanges = false
	s.state.setLastSyncLocked(ts)
	s.state.pendingDeletes = nil
	for i := range s.state.snapshot.Transactions {
		s.state.snapshot.Transactions[i].PendingSync = false
	}
	snap := s.state.snapshot.Clone()
	s.state.mu.Unlock()

	s.persist.saveSnapshotQuiet(ctx, active, snap)
	s.persist.saveJSONQuiet(ctx, keyUnsyncedChanges, false)
	s.persist.saveJSONQuiet(ctx, keyLastSync, ts)
	s.persist.saveJSONQuiet(ctx, keyPendingDeletes, []string{})

	logger.Info("Push complete", slog.String("context", active.StorageKey()), slog.Time("last_sync", ts))
	return domain.PushCompleted, nil
}

// Restore applies the pending remote backup using the chosen strategy.
// RestoreSkip clears the prompt without touching data; the other strategies
// fetch the remote copy at restore time and apply it.
func (s *SyncService) Restore(ctx context.Context, strategy domain.RestoreStrategy) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if strategy == domain.RestoreSkip {
		s.state.mu.Lock()
		s.state.syncState.PendingRestoreAvailable = false
		s.state.syncState.PendingRestoreAt = nil
		s.state.mu.Unlock()
		logger.Info("Restore skipped by user")
		return nil
	}
	if strategy != domain.RestoreReplace && strategy != domain.RestoreMerge {
		return fmt.Errorf("%w: unknown restore strategy %q", apperrors.ErrValidation, strategy)
	}

	st := s.state.read()
	if !st.Authenticated {
		return apperrors.ErrUnauthorized
	}
	if s.pushInFlight.Load() {
		// Applying remote data over a snapshot whose copy is on the wire
		// would tangle the two baselines; the caller retries after the push.
		return fmt.Errorf("%w: push in flight", apperrors.ErrSyncInProgress)
	}

	var remote domain.Snapshot
	var remoteTS *time.Time
	if st.ActiveContext.IsPersonal() {
		env, err := s.gateway.PullBackup(ctx, st.UserID)
		if err != nil {
			return fmt.Errorf("restore fetch failed: %w", err)
		}
		remote = env.Payload
		ts := env.UpdatedAt
		remoteTS = &ts
	} else {
		payload, err := s.gateway.PullWalletData(ctx, string(st.ActiveContext))
		if err != nil {
			return fmt.Errorf("restore fetch failed: %w", err)
		}
		remote = *payload
		// Wallet data carries no server timestamp; reuse the one recorded
		// when the prompt was raised, if any.
		remoteTS = st.PendingRestoreAt
	}
	remote.Normalize()

	s.state.mu.Lock()
	switch strategy {
	case domain.RestoreReplace:
		s.state.snapshot = remote.Clone()
	case domain.RestoreMerge:
		s.state.snapshot = domain.Merge(s.state.snapshot, remote, s.state.pendingDeletes)
	}
	s.state.gen++
	s.state.syncState.PendingRestoreAvailable = false
	s.state.syncState.PendingRestoreAt = nil
	if remoteTS != nil {
		// Prevents the same restore prompt from re-firing immediately.
		s.state.setLastSyncLocked(*remoteTS)
	}
	active := s.state.syncState.ActiveContext
	snap := s.state.snapshot.Clone()
	s.state.mu.Unlock()

	s.persist.saveSnapshotQuiet(ctx, active, snap)
	if remoteTS != nil {
		s.persist.saveJSONQuiet(ctx, keyLastSync, *remoteTS)
	}

	logger.Info("Restore applied", slog.String("strategy", string(strategy)), slog.String("context", active.StorageKey()))
	return nil
}

// SetOnline flips the connectivity flag and refreshes the realtime
// subscription accordingly (offline tears it down).
func (s *SyncService) SetOnline(ctx context.Context, online bool) {
	s.state.mu.Lock()
	changed := s.state.syncState.Online != online
	s.state.syncState.Online = online
	s.state.mu.Unlock()

	if changed && s.realtime != nil {
		s.realtime.Refresh(ctx)
	}
}

// ListWallets fetches the signed-in user's wallets and caches them locally.
func (s *SyncService) ListWallets(ctx context.Context) ([]domain.Wallet, error) {
	st := s.state.read()
	if !st.Authenticated {
		return nil, apperrors.ErrUnauthorized
	}
	wallets, err := s.gateway.ListWallets(ctx, st.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	if wallets == nil {
		wallets = []domain.Wallet{}
	}
	s.persist.saveJSONQuiet(ctx, keyWallets, wallets)
	return wallets, nil
}

// CreateWallet creates a shared wallet owned by the signed-in user.
func (s *SyncService) CreateWallet(ctx context.Context, name, currencyCode string) (*domain.Wallet, error) {
	st := s.state.read()
	if !st.Authenticated {
		return nil, apperrors.ErrUnauthorized
	}
	wallet, err := s.gateway.CreateWallet(ctx, st.UserID, name, currencyCode)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return wallet, nil
}

// DeleteWallet deletes a wallet remotely and drops its local snapshot. When
// the wallet was the active context, the engine falls back to the personal
// space first.
func (s *SyncService) DeleteWallet(ctx context.Context, walletID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	st := s.state.read()
	if !st.Authenticated {
		return apperrors.ErrUnauthorized
	}

	if st.ActiveContext == domain.ContextID(walletID) && s.contexts != nil {
		if err := s.contexts.SwitchContext(ctx, domain.PersonalContext); err != nil {
			return fmt.Errorf("failed to leave wallet before deletion: %w", err)
		}
	}
	if err := s.gateway.DeleteWallet(ctx, walletID); err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	if err := s.persist.store.Delete(ctx, snapshotKey(domain.ContextID(walletID))); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		logger.Warn("Failed to drop local wallet snapshot", slog.String("wallet_id", walletID), slog.String("error", err.Error()))
	}
	logger.Info("Wallet deleted", slog.String("wallet_id", walletID))
	return nil
}

// refreshWalletList caches the wallet list after auth; best-effort and
// guarded against stale sessions.
func (s *SyncService) refreshWalletList(ctx context.Context, token int64) {
	logger := middleware.GetLoggerFromCtx(ctx)

	st := s.state.read()
	wallets, err := s.gateway.ListWallets(ctx, st.UserID)
	if err != nil {
		logger.Warn("Wallet list fetch failed", slog.String("error", err.Error()))
		return
	}
	if !s.guard.StillCurrent(token) {
		logger.Debug("Discarding wallet list from stale session")
		return
	}
	s.persist.saveJSONQuiet(ctx, keyWallets, wallets)
}

// RunAutoBackupTick executes one auto-backup decision. Order matters:
// offline/unauthenticated and mid-logout ticks are no-ops, an in-flight push
// wins over everything, unsynced changes push immediately regardless of
// elapsed time, and only then does the configured schedule apply.
func (s *SyncService) RunAutoBackupTick(ctx context.Context) {
	logger := middleware.GetLoggerFromCtx(ctx)

	st := s.state.read()
	if !st.Authenticated || !st.Online {
		return
	}
	if s.guard.LogoutInProgress() {
		return
	}
	if s.pushInFlight.Load() {
		return
	}

	if st.UnsyncedChanges {
		if _, err := s.Push(ctx); err != nil {
			logger.Warn("Auto-backup push failed", slog.String("error", err.Error()))
		}
		return
	}

	s.state.mu.Lock()
	mode := s.state.snapshot.Settings.AutoBackup
	s.state.mu.Unlock()

	var threshold time.Duration
	switch mode {
	case domain.AutoBackupDaily:
		threshold = autoBackupDailyThreshold
	case domain.AutoBackupWeekly:
		threshold = autoBackupWeeklyThreshold
	default:
		return
	}

	due := st.LastSync == nil || s.now().Sub(*st.LastSync) > threshold
	if !due {
		return
	}
	if _, err := s.Push(ctx); err != nil {
		logger.Warn("Scheduled backup push failed", slog.String("error", err.Error()))
	}
}

// Start runs the auto-backup timer until ctx is cancelled. The first tick is
// deliberately delayed to let initial state settle after startup.
func (s *SyncService) Start(ctx context.Context) {
	go func() {
		tickCtx := middleware.WithLogger(ctx, s.logger)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.autoBackupInitialDelay):
		}

		ticker := time.NewTicker(s.autoBackupTick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunAutoBackupTick(tickCtx)
			}
		}
	}()
}
