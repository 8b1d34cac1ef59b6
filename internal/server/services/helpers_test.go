package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/authservice/internal/common"
	"github.com/dmitrijs2005/authservice/internal/logging"
	"github.com/dmitrijs2005/authservice/internal/server/auth"
	"github.com/dmitrijs2005/authservice/internal/server/config"
	"github.com/dmitrijs2005/authservice/internal/server/events"
	"github.com/dmitrijs2005/authservice/internal/server/lease"
	"github.com/dmitrijs2005/authservice/internal/server/models"
	"github.com/dmitrijs2005/authservice/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authservice/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authservice/internal/server/repositories/sqlitetest"
	"github.com/dmitrijs2005/authservice/internal/server/repositories/users"
)

// --- helpers ---

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store  repomanager.RepositoryManager
	clock  *fakeClock
	pub    *recordingPublisher
	signer *auth.JWTSigner
	tokens *RefreshTokenService
	auth   *AuthService
	admin  *UserAdminService
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestConfig() *config.Config {
	return &config.Config{
		DefaultRole:                  string(models.RoleAdmin),
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: common.RefreshTokenValidity,
	}
}

// newFixture wires the services over a migrated in-memory SQLite store.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repomanager.NewSQLiteRepositoryManager(sqlitetest.Open(t))
	return newFixtureWithStore(t, store)
}

func newFixtureWithStore(t *testing.T, store repomanager.RepositoryManager) *fixture {
	t.Helper()

	clock := &fakeClock{t: t0}
	pub := &recordingPublisher{}

	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	signer, err := auth.NewHS256Signer([]byte("test-secret"), "authservice")
	require.NoError(t, err)

	tokens := NewRefreshTokenService(store.RefreshTokens(), common.RefreshTokenValidity, logging.Nop())
	tokens.now = clock.Now

	svc, err := NewAuthService(store, hasher, signer, tokens, pub, newTestConfig(), logging.Nop())
	require.NoError(t, err)
	svc.now = clock.Now

	admin := NewUserAdminService(store, tokens, pub, logging.Nop())
	admin.now = clock.Now

	return &fixture{
		store:  store,
		clock:  clock,
		pub:    pub,
		signer: signer,
		tokens: tokens,
		auth:   svc,
		admin:  admin,
	}
}

// fakeStore is a RepositoryManager over hand-written repositories.
type fakeStore struct {
	users  users.Repository
	tokens refreshtokens.Repository
	txErr  error
}

func (f *fakeStore) Users() users.Repository                 { return f.users }
func (f *fakeStore) RefreshTokens() refreshtokens.Repository { return f.tokens }
func (f *fakeStore) RunMigrations(context.Context) error     { return nil }
func (f *fakeStore) Ping(context.Context) error              { return nil }
func (f *fakeStore) Close(context.Context) error             { return nil }

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context, repos repomanager.Repositories) error) error {
	if f.txErr != nil {
		return f.txErr
	}
	return fn(ctx, f)
}

type fakeUsersRepo struct {
	exists    bool
	existsErr error
	findOut   *models.User
	findErr   error
	createErr error
	updateErr error
	updated   []*models.User
}

func (f *fakeUsersRepo) ExistsByEmail(context.Context, string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeUsersRepo) FindByEmail(context.Context, string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	u := *f.findOut
	return &u, nil
}

func (f *fakeUsersRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return f.FindByEmail(ctx, id)
}

func (f *fakeUsersRepo) Create(context.Context, *models.User) error { return f.createErr }

func (f *fakeUsersRepo) Update(_ context.Context, u *models.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u.Version++
	f.updated = append(f.updated, u)
	return nil
}

type fakeTokensRepo struct {
	created    []*models.RefreshToken
	createErr  error
	findOut    *models.RefreshToken
	findErr    error
	updateErr  error
	deleteN    int64
	deleteErr  error
	lastCutoff time.Time
}

func (f *fakeTokensRepo) Create(_ context.Context, rt *models.RefreshToken) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, rt)
	return nil
}

func (f *fakeTokensRepo) FindByToken(context.Context, string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	rt := *f.findOut
	return &rt, nil
}

func (f *fakeTokensRepo) Update(context.Context, *models.RefreshToken) error { return f.updateErr }

func (f *fakeTokensRepo) DeleteByUserID(context.Context, string) (int64, error) {
	return f.deleteN, f.deleteErr
}

func (f *fakeTokensRepo) DeleteAllExpired(_ context.Context, cutoff time.Time) (int64, error) {
	f.lastCutoff = cutoff
	return f.deleteN, f.deleteErr
}

type fakeLocker struct {
	ok       bool
	err      error
	released bool
}

func (l *fakeLocker) TryAcquire(context.Context, string, time.Duration) (lease.Release, bool, error) {
	if l.err != nil || !l.ok {
		return nil, false, l.err
	}
	return func(context.Context) error { l.released = true; return nil }, true, nil
}
