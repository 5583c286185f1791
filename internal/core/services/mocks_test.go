package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/ledgermate/ledgermate/internal/adapters/localstore/memory"
	"github.com/ledgermate/ledgermate/internal/core/domain"
	portsrepo "github.com/ledgermate/ledgermate/internal/core/ports/repositories"
)

// MockRemoteGateway is a mock type for the RemoteGateway interface.
type MockRemoteGateway struct {
	mock.Mock
}

var _ portsrepo.RemoteGateway = (*MockRemoteGateway)(nil)

func (m *MockRemoteGateway) PushBackup(ctx context.Context, ownerID string, payload domain.Snapshot) (time.Time, error) {
	args := m.Called(ctx, ownerID, payload)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockRemoteGateway) PullBackup(ctx context.Context, ownerID string) (*domain.BackupEnvelope, error) {
	args := m.Called(ctx, ownerID)
	env, _ := args.Get(0).(*domain.BackupEnvelope)
	return env, args.Error(1)
}

func (m *MockRemoteGateway) PushWalletData(ctx context.Context, walletID, editorID string, payload domain.Snapshot) error {
	args := m.Called(ctx, walletID, editorID, payload)
	return args.Error(0)
}

func (m *MockRemoteGateway) PullWalletData(ctx context.Context, walletID string) (*domain.Snapshot, error) {
	args := m.Called(ctx, walletID)
	snap, _ := args.Get(0).(*domain.Snapshot)
	return snap, args.Error(1)
}

func (m *MockRemoteGateway) ListWallets(ctx context.Context, ownerID string) ([]domain.Wallet, error) {
	args := m.Called(ctx, ownerID)
	wallets, _ := args.Get(0).([]domain.Wallet)
	return wallets, args.Error(1)
}

func (m *MockRemoteGateway) CreateWallet(ctx context.Context, ownerID, name, currencyCode string) (*domain.Wallet, error) {
	args := m.Called(ctx, ownerID, name, currencyCode)
	wallet, _ := args.Get(0).(*domain.Wallet)
	return wallet, args.Error(1)
}

func (m *MockRemoteGateway) DeleteWallet(ctx context.Context, walletID string) error {
	args := m.Called(ctx, walletID)
	return args.Error(0)
}

func (m *MockRemoteGateway) Subscribe(ctx context.Context, scope domain.ChangeScope, scopeID string, onChange func(domain.ChangeEvent)) (portsrepo.Subscription, error) {
	args := m.Called(ctx, scope, scopeID, onChange)
	sub, _ := args.Get(0).(portsrepo.Subscription)
	return sub, args.Error(1)
}

func (m *MockRemoteGateway) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	args := m.Called(ctx, email, password)
	sess, _ := args.Get(0).(*domain.Session)
	return sess, args.Error(1)
}

func (m *MockRemoteGateway) Signup(ctx context.Context, email, password, name string) (*domain.Session, error) {
	args := m.Called(ctx, email, password, name)
	sess, _ := args.Get(0).(*domain.Session)
	return sess, args.Error(1)
}

func (m *MockRemoteGateway) ResetPassword(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockRemoteGateway) GetSession(ctx context.Context) (*domain.Session, error) {
	args := m.Called(ctx)
	sess, _ := args.Get(0).(*domain.Session)
	return sess, args.Error(1)
}

// MockSubscription is a mock type for the Subscription interface.
type MockSubscription struct {
	mock.Mock
}

func (m *MockSubscription) Close() error {
	args := m.Called()
	return args.Error(0)
}

// testEnv wires a full service container over an in-memory store and a mock
// gateway. now is mutable so tests can move the clock.
type testEnv struct {
	store     *memory.Store
	gateway   *MockRemoteGateway
	container *Container
	sync      *SyncService
	now       time.Time
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	env := &testEnv{
		store:   memory.NewStore(),
		gateway: &MockRemoteGateway{},
		now:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return env.now }
	}
	env.container = NewContainer(env.store, env.gateway, opts)
	env.sync = env.container.syncImpl
	return env
}

// authenticate puts the engine into a signed-in online state without going
// through the login flow.
func (e *testEnv) authenticate(userID string) {
	e.sync.state.mu.Lock()
	e.sync.state.syncState.Authenticated = true
	e.sync.state.syncState.UserID = userID
	e.sync.state.syncState.Online = true
	e.sync.state.mu.Unlock()
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func (e *testEnv) setLastSync(ts time.Time) {
	e.sync.state.mu.Lock()
	e.sync.state.setLastSyncLocked(ts)
	e.sync.state.mu.Unlock()
}
