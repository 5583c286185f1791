package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ledgermate/ledgermate/internal/apperrors"
	"github.com/ledgermate/ledgermate/internal/core/domain"
	portsrepo "github.com/ledgermate/ledgermate/internal/core/ports/repositories"
	portssvc "github.com/ledgermate/ledgermate/internal/core/ports/services"
	"github.com/ledgermate/ledgermate/internal/middleware"
)

// ContextService swaps the active financial dataset between the personal
// space and shared wallets. The outgoing snapshot is always persisted before
// the swap, so outgoing edits survive even when the incoming load fails.
type ContextService struct {
	state   *appState
	persist *persister
	guard   *SessionGuard
	wallets portsrepo.WalletRepository

	// onSwitch lets the container hook the realtime listener's resubscribe
	// without a service cycle. May be nil in tests.
	onSwitch func(context.Context)
}

// NewContextService creates a new ContextService.
func NewContextService(state *appState, persist *persister, guard *SessionGuard, wallets portsrepo.WalletRepository) *ContextService {
	return &ContextService{state: state, persist: persist, guard: guard, wallets: wallets}
}

var _ portssvc.ContextSvc = (*ContextService)(nil)

// ActiveContext returns the currently active context id.
func (s *ContextService) ActiveContext() domain.ContextID {
	return s.state.read().ActiveContext
}

// SwitchContext swaps the live snapshot over to the target context.
//
// Order is load-bearing: (1) serialize the outgoing snapshot, (2) swap the
// active id and reset the dirty flag, (3) load or initialize the incoming
// snapshot, (4) when online and the target is a wallet, refresh it from the
// remote copy in the background (remote wallet truth beats stale local
// cache). A failure in (4) leaves the locally loaded snapshot authoritative.
func (s *ContextService) SwitchContext(ctx context.Context, target domain.ContextID) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	s.state.mu.Lock()
	current := s.state.syncState.ActiveContext
	if current == target {
		s.state.mu.Unlock()
		return nil
	}
	outgoing := s.state.snapshot.Clone()
	s.state.mu.Unlock()

	// (1) Outgoing edits must hit the store before anything else changes.
	if err := s.persist.saveSnapshot(ctx, current, outgoing); err != nil {
		logger.Error("Refusing context switch: outgoing snapshot save failed",
			slog.String("from", current.StorageKey()), slog.String("error", err.Error()))
		return fmt.Errorf("failed to save outgoing snapshot: %w", err)
	}

	// (3) Load the incoming snapshot. Wallets without a local copy start
	// empty; the personal space falls back to the legacy key layout, then to
	// first-run defaults.
	incoming, found := s.persist.loadSnapshot(ctx, target)
	if !found {
		if target.IsPersonal() {
			if legacy, ok := s.persist.loadLegacyPersonal(ctx); ok {
				incoming = legacy
			} else {
				incoming = domain.DefaultSnapshot()
			}
		} else {
			incoming = domain.EmptySnapshot()
		}
	}

	// (2)+(3) applied atomically so no observer ever sees the new context id
	// paired with the old data.
	s.state.mu.Lock()
	s.state.syncState.ActiveContext = target
	s.state.syncState.UnsyncedChanges = false
	s.state.snapshot = incoming
	s.state.gen++
	s.state.pendingDeletes = nil
	online := s.state.syncState.Online
	s.state.mu.Unlock()

	s.persist.saveJSONQuiet(ctx, keyActiveContext, target)
	s.persist.saveJSONQuiet(ctx, keyUnsyncedChanges, false)
	s.persist.saveJSONQuiet(ctx, keyPendingDeletes, []string{})

	logger.Info("Context switched",
		slog.String("from", current.StorageKey()), slog.String("to", target.StorageKey()))

	// (4) Shared wallets are multi-writer; the local cache cannot be assumed
	// current, so the remote copy overwrites it when reachable.
	if online && !target.IsPersonal() {
		token := s.guard.Generation()
		go s.refreshWalletFromRemote(middleware.WithLogger(context.Background(), logger), target, token)
	}

	if s.onSwitch != nil {
		s.onSwitch(ctx)
	}
	return nil
}

// refreshWalletFromRemote pulls the wallet's remote dataset and overwrites
// the just-loaded local copy. Best-effort: any failure is logged and the
// local snapshot stays authoritative.
func (s *ContextService) refreshWalletFromRemote(ctx context.Context, target domain.ContextID, token int64) {
	logger := middleware.GetLoggerFromCtx(ctx)

	payload, err := s.wallets.PullWalletData(ctx, string(target))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Debug("No remote data for wallet yet", slog.String("wallet_id", string(target)))
		} else {
			logger.Warn("Remote wallet fetch failed; keeping local copy",
				slog.String("wallet_id", string(target)), slog.String("error", err.Error()))
		}
		return
	}

	if !s.guard.StillCurrent(token) {
		logger.Debug("Discarding wallet fetch from stale session", slog.String("wallet_id", string(target)))
		return
	}

	remote := *payload
	remote.Normalize()

	s.state.mu.Lock()
	if s.state.syncState.ActiveContext != target {
		// The user already switched away; this result is stale.
		s.state.mu.Unlock()
		return
	}
	s.state.snapshot = remote
	s.state.gen++
	snap := s.state.snapshot.Clone()
	s.state.mu.Unlock()

	s.persist.saveSnapshotQuiet(ctx, target, snap)
	logger.Info("Wallet refreshed from remote", slog.String("wallet_id", string(target)))
}
