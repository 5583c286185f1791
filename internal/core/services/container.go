package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/ledgermate/ledgermate/internal/core/domain"
	portsrepo "github.com/ledgermate/ledgermate/internal/core/ports/repositories"
	portssvc "github.com/ledgermate/ledgermate/internal/core/ports/services"
)

// Options tunes container construction. Zero values fall back to sensible
// defaults.
type Options struct {
	Logger          *slog.Logger
	RealtimeEnabled bool

	// AutoBackupInitialDelay postpones the first timer tick so initial state
	// can settle; AutoBackupTick is the fixed interval after that.
	AutoBackupInitialDelay time.Duration
	AutoBackupTick         time.Duration

	// Clock is injectable for tests; nil means time.Now.
	Clock func() time.Time
}

// Container holds all the services and manages their dependencies.
type Container struct {
	Ledger   portssvc.LedgerSvcFacade
	Contexts portssvc.ContextSvc
	Sync     portssvc.SyncSvcFacade
	Realtime portssvc.RealtimeSvc
	Guard    *SessionGuard

	syncImpl *SyncService
}

// Start launches the background auto-backup timer. It stops when ctx is
// cancelled.
func (c *Container) Start(ctx context.Context) {
	c.syncImpl.Start(ctx)
}

// NewContainer creates the service graph over the given local store and
// remote gateway, rehydrating persisted sync state from the store.
func NewContainer(store portsrepo.LocalStore, gateway portsrepo.RemoteGateway, opts Options) *Container {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state := newAppState()
	persist := newPersister(store, logger)
	guard := NewSessionGuard()

	rehydrate(context.Background(), state, persist)

	ledger := NewLedgerService(state, persist)
	contexts := NewContextService(state, persist, guard, gateway)
	syncSvc := NewSyncService(state, persist, guard, gateway, logger, opts.Clock)
	realtime := NewRealtimeService(state, guard, gateway, logger, opts.RealtimeEnabled)

	// Break the service cycle: the engine refreshes the listener, the
	// listener follows the context switcher.
	syncSvc.realtime = realtime
	syncSvc.contexts = contexts
	contexts.onSwitch = realtime.Refresh

	if opts.AutoBackupInitialDelay > 0 {
		syncSvc.autoBackupInitialDelay = opts.AutoBackupInitialDelay
	}
	if opts.AutoBackupTick > 0 {
		syncSvc.autoBackupTick = opts.AutoBackupTick
	}

	return &Container{
		Ledger:   ledger,
		Contexts: contexts,
		Sync:     syncSvc,
		Realtime: realtime,
		Guard:    guard,
		syncImpl: syncSvc,
	}
}

// rehydrate restores persisted sync metadata and the active context's
// snapshot into memory. Authentication state deliberately starts cold; it is
// re-established by the auth flow, which then runs the pull decision.
func rehydrate(ctx context.Context, state *appState, persist *persister) {
	var active domain.ContextID
	if found, err := persist.loadJSON(ctx, keyActiveContext, &active); err == nil && found {
		state.syncState.ActiveContext = active
	}

	snap, found := persist.loadSnapshot(ctx, state.syncState.ActiveContext)
	if !found {
		if state.syncState.ActiveContext.IsPersonal() {
			if legacy, ok := persist.loadLegacyPersonal(ctx); ok {
				snap = legacy
				found = true
			}
		} else {
			snap = domain.EmptySnapshot()
			found = true
		}
	}
	if found {
		state.snapshot = snap
	}

	var lastSync time.Time
	if found, err := persist.loadJSON(ctx, keyLastSync, &lastSync); err == nil && found {
		state.syncState.LastSync = &lastSync
	}
	var unsynced bool
	if found, err := persist.loadJSON(ctx, keyUnsyncedChanges, &unsynced); err == nil && found {
		state.syncState.UnsyncedChanges = unsynced
	}
	var pendingDeletes []string
	if found, err := persist.loadJSON(ctx, keyPendingDeletes, &pendingDeletes); err == nil && found {
		state.pendingDeletes = pendingDeletes
	}
}
