package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/auth_service/internal/db"
	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/hash"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/pkg/tokens"
)

type mockLedger struct{ mock.Mock }

func (m *mockLedger) PersistRefreshToken(ctx context.Context, userID uint, expiresAt time.Time) (*models.RefreshToken, error) {
	args := m.Called(ctx, userID, expiresAt)
	var out *models.RefreshToken
	if v := args.Get(0); v != nil {
		out = v.(*models.RefreshToken)
	}
	return out, args.Error(1)
}

func (m *mockLedger) ConsumeRefreshToken(ctx context.Context, recordID, userID uint) (bool, error) {
	args := m.Called(ctx, recordID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockLedger) DeleteRefreshToken(ctx context.Context, recordID uint) error {
	return m.Called(ctx, recordID).Error(0)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) CreateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUsers) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	var out *models.User
	if v := args.Get(0); v != nil {
		out = v.(*models.User)
	}
	return out, args.Error(1)
}

func (m *mockUsers) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	var out *models.User
	if v := args.Get(0); v != nil {
		out = v.(*models.User)
	}
	return out, args.Error(1)
}

func (m *mockUsers) EmailTaken(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

func newSigner(t *testing.T) *tokens.Signer {
	t.Helper()
	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	s, err := tokens.NewSigner(testKey, "kid-1", []byte("refresh-secret"))
	require.NoError(t, err)
	return s
}

type fixture struct {
	repo   *repo.GormRepo
	signer *tokens.Signer
	events *recordingPublisher
	auth   *AuthService
	users  *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := repo.New(gdb)
	signer := newSigner(t)
	pub := &recordingPublisher{}
	hasher := &hash.Bcrypt{Cost: bcrypt.MinCost}

	return &fixture{
		repo:   r,
		signer: signer,
		events: pub,
		auth: &AuthService{
			Users:  r,
			Ledger: r,
			Hasher: hasher,
			Signer: signer,
			Events: pub,
		},
		users: &UserService{
			Users:   r,
			Tenants: r,
			Hasher:  hasher,
			Events:  pub,
		},
	}
}
