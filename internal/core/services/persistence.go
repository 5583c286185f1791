package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ledgermate/ledgermate/internal/apperrors"
	"github.com/ledgermate/ledgermate/internal/core/domain"
	portsrepo "github.com/ledgermate/ledgermate/internal/core/ports/repositories"
)

// persister serializes engine state into the local store. Writes triggered
// by in-memory mutations are best-effort side effects: failures are logged,
// never surfaced, and the bounded loss window they open is accepted. Only
// the context-switch save-out path demands a hard error (saveSnapshot).
type persister struct {
	store  portsrepo.LocalStore
	logger *slog.Logger
}

func newPersister(store portsrepo.LocalStore, logger *slog.Logger) *persister {
	return &persister{store: store, logger: logger.With(slog.String("component", "localstore"))}
}

func (p *persister) saveJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := p.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

// loadJSON reports found=false when the key is absent.
func (p *persister) loadJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, err := p.store.Get(ctx, key)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// saveJSONQuiet is the fire-and-forget variant used on mutation paths.
func (p *persister) saveJSONQuiet(ctx context.Context, key string, v any) {
	if err := p.saveJSON(ctx, key, v); err != nil {
		p.logger.Warn("Local store write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// saveSnapshot persists a snapshot under its composite per-context key. The
// personal space additionally mirrors into the legacy per-entity keys so
// older data layouts keep round-tripping.
func (p *persister) saveSnapshot(ctx context.Context, id domain.ContextID, snap domain.Snapshot) error {
	if err := p.saveJSON(ctx, snapshotKey(id), snap); err != nil {
		return err
	}
	if id.IsPersonal() {
		p.saveJSONQuiet(ctx, keyTransactions, snap.Transactions)
		p.saveJSONQuiet(ctx, keyAccounts, snap.Accounts)
		p.saveJSONQuiet(ctx, keyCategories, snap.Categories)
		p.saveJSONQuiet(ctx, keyBudget, snap.Budget)
		p.saveJSONQuiet(ctx, keyCategoryBudgets, snap.CategoryBudgets)
		p.saveJSONQuiet(ctx, keySettings, snap.Settings)
		p.saveJSONQuiet(ctx, keyCustomTranslations, snap.CustomTranslations)
	}
	return nil
}

// saveSnapshotQuiet is saveSnapshot on mutation paths: log and move on.
func (p *persister) saveSnapshotQuiet(ctx context.Context, id domain.ContextID, snap domain.Snapshot) {
	if err := p.saveSnapshot(ctx, id, snap); err != nil {
		p.logger.Warn("Snapshot persistence failed",
			slog.String("context", id.StorageKey()), slog.String("error", err.Error()))
	}
}

// loadSnapshot retrieves a per-context snapshot, reporting found=false when
// no composite key exists for the context.
func (p *persister) loadSnapshot(ctx context.Context, id domain.ContextID) (domain.Snapshot, bool) {
	var snap domain.Snapshot
	found, err := p.loadJSON(ctx, snapshotKey(id), &snap)
	if err != nil {
		p.logger.Warn("Snapshot load failed",
			slog.String("context", id.StorageKey()), slog.String("error", err.Error()))
		return domain.Snapshot{}, false
	}
	if !found {
		return domain.Snapshot{}, false
	}
	snap.Normalize()
	return snap, true
}

// loadLegacyPersonal rebuilds the personal snapshot from the legacy
// per-entity keys. found is true when at least one entity key exists.
func (p *persister) loadLegacyPersonal(ctx context.Context) (domain.Snapshot, bool) {
	snap := domain.EmptySnapshot()
	loaded := false
	for key, target := range map[string]any{
		keyTransactions:       &snap.Transactions,
		keyAccounts:           &snap.Accounts,
		keyCategories:         &snap.Categories,
		keyBudget:             &snap.Budget,
		keyCategoryBudgets:    &snap.CategoryBudgets,
		keySettings:           &snap.Settings,
		keyCustomTranslations: &snap.CustomTranslations,
	} {
		found, err := p.loadJSON(ctx, key, target)
		if err != nil {
			p.logger.Warn("Legacy key load failed", slog.String("key", key), slog.String("error", err.Error()))
			continue
		}
		if found {
			loaded = true
		}
	}
	if !loaded {
		return domain.Snapshot{}, false
	}
	snap.Normalize()
	return snap, true
}
