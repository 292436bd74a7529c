package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/hash"
	"github.com/Skotchmaster/auth_service/internal/logging"
	authmw "github.com/Skotchmaster/auth_service/internal/middleware/auth"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/ratelimit"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/pkg/tokens"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
}

type Ledger interface {
	PersistRefreshToken(ctx context.Context, userID uint, expiresAt time.Time) (*models.RefreshToken, error)
	ConsumeRefreshToken(ctx context.Context, recordID, userID uint) (bool, error)
	DeleteRefreshToken(ctx context.Context, recordID uint) error
}

type TokenIssuer interface {
	IssueAccessToken(subject uint, role string) (string, error)
	IssueRefreshToken(subject uint, role string, recordID uint) (string, error)
	RefreshExpiry() time.Time
}

type LoginThrottle interface {
	Check(ctx context.Context, email, ip string) error
	Fail(ctx context.Context, email, ip string) error
	Reset(ctx context.Context, email string) error
}

type AuthService struct {
	Users    UserStore
	Ledger   Ledger
	Hasher   hash.Hasher
	Signer   TokenIssuer
	Events   events.Publisher
	Throttle LoginThrottle

	dummyOnce sync.Once
	dummyHash string
}

type Session struct {
	User             *models.User
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

func (in *RegisterInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = NormalizeEmail(in.Email)
}

func (in RegisterInput) validate() error {
	var v validator
	v.required("firstName", in.FirstName, "First name is required!")
	v.required("lastName", in.LastName, "Last name is required!")
	v.email(in.Email)
	v.password(in.Password)
	return v.err()
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	in.normalize()
	if err := in.validate(); err != nil {
		l.Info("register_failed", "status", 400, "reason", "validation", "error", err)
		return nil, err
	}

	taken, err := s.Users.EmailTaken(ctx, in.Email)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "email lookup", "error", err)
		return nil, err
	}
	if taken {
		l.Info("register_failed", "status", 400, "reason", "email exists")
		return nil, ErrEmailExists
	}

	pwHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  pwHash,
		Role:      models.RoleCustomer,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrEmailExists) {
			l.Info("register_failed", "status", 400, "reason", "email exists")
			return nil, ErrEmailExists
		}
		l.Error("register_failed", "status", 500, "reason", "create user", "error", err)
		return nil, err
	}

	sess, err := s.issue(ctx, user)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "issue tokens", "error", err)
		return nil, err
	}

	l.Info("user_registered", "user_id", user.ID)
	s.publish(ctx, events.UserRegistered, user, 0)
	return sess, nil
}

// Login answers ErrInvalidCredentials for both an unknown email and a wrong
// password. The unknown-email path still runs a bcrypt comparison so the two
// cannot be told apart by timing.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*Session, error) {
	email = NormalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if err := s.throttle().Check(ctx, email, ip); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			l.Warn("login_failed", "status", 429, "reason", "rate limited")
			return nil, ErrTooManyAttempts
		}
		l.Warn("login_throttle_unavailable", "error", err)
	}

	user, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			l.Error("login_failed", "status", 500, "error", err)
			return nil, err
		}
		s.Hasher.Verify(password, s.dummy())
		s.recordFailure(ctx, email, ip)
		l.Info("login_failed", "status", 400, "reason", "unknown_email")
		return nil, ErrInvalidCredentials
	}

	if !s.Hasher.Verify(password, user.Password) {
		s.recordFailure(ctx, email, ip)
		l.Info("login_failed", "status", 400, "reason", "wrong_password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	if err := s.throttle().Reset(ctx, email); err != nil {
		l.Warn("login_throttle_unavailable", "error", err)
	}

	sess, err := s.issue(ctx, user)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "issue tokens", "error", err)
		return nil, err
	}

	l.Info("user_logged_in", "user_id", user.ID)
	s.publish(ctx, events.UserLoggedIn, user, 0)
	return sess, nil
}

// Refresh rotates the presented refresh token. Its ledger row is consumed
// first, so a token can be exchanged once; the user is re-read so a role
// change shows up in the new pair.
func (s *AuthService) Refresh(ctx context.Context, info authmw.AuthInfo) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh", "token_id", info.TokenID)

	consumed, err := s.Ledger.ConsumeRefreshToken(ctx, info.TokenID, info.Subject)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "consume token", "error", err)
		return nil, err
	}
	if !consumed {
		l.Warn("refresh_failed", "status", 401, "reason", "token already used")
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.Users.FindUserByID(ctx, info.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "user gone")
			return nil, ErrInvalidRefreshToken
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, err
	}

	sess, err := s.issue(ctx, user)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "issue tokens", "error", err)
		return nil, err
	}
	l.Info("token_refreshed", "user_id", user.ID)
	return sess, nil
}

func (s *AuthService) Logout(ctx context.Context, info authmw.AuthInfo) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout", "token_id", info.TokenID)

	if err := s.Ledger.DeleteRefreshToken(ctx, info.TokenID); err != nil {
		l.Error("logout_failed", "status", 500, "error", err)
		return err
	}
	l.Info("user_logged_out", "user_id", info.Subject)
	s.publish(ctx, events.UserLoggedOut, &models.User{ID: info.Subject, Role: info.Role}, 0)
	return nil
}

func (s *AuthService) Self(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.Users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// issue writes the ledger row first; its id is the refresh token's jti.
func (s *AuthService) issue(ctx context.Context, user *models.User) (*Session, error) {
	now := time.Now()
	access, err := s.Signer.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	refreshExp := s.Signer.RefreshExpiry()
	record, err := s.Ledger.PersistRefreshToken(ctx, user.ID, refreshExp)
	if err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	refresh, err := s.Signer.IssueRefreshToken(user.ID, user.Role, record.ID)
	if err != nil {
		if delErr := s.Ledger.DeleteRefreshToken(ctx, record.ID); delErr != nil {
			logging.FromContext(ctx).Error("orphan_refresh_record", "token_id", record.ID, "error", delErr)
		}
		return nil, err
	}

	return &Session{
		User:             user,
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(tokens.AccessTTL),
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, email, ip string) {
	if err := s.throttle().Fail(ctx, email, ip); err != nil {
		logging.FromContext(ctx).Warn("login_throttle_unavailable", "error", err)
	}
}

func (s *AuthService) throttle() LoginThrottle {
	if s.Throttle == nil {
		return (*ratelimit.LoginLimiter)(nil)
	}
	return s.Throttle
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.Hasher.Hash("dummy-password-for-timing")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func (s *AuthService) publish(ctx context.Context, typ string, user *models.User, actor uint) {
	publish(ctx, s.Events, typ, user, actor)
}

func publish(ctx context.Context, p events.Publisher, typ string, user *models.User, actor uint) {
	if p == nil {
		return
	}
	e := events.New(typ, user.ID)
	e.Email = user.Email
	e.Role = user.Role
	e.ActorID = actor
	if err := p.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "event", typ, "error", err)
	}
}
