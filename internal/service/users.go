package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/hash"
	"github.com/Skotchmaster/auth_service/internal/logging"
	authmw "github.com/Skotchmaster/auth_service/internal/middleware/auth"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/util"
)

type UserAdminStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context, page util.Page) ([]models.User, error)
	DeleteUser(ctx context.Context, id uint) error
	EmailTaken(ctx context.Context, email string) (bool, error)
}

type TenantLookup interface {
	FindTenantByID(ctx context.Context, id uint) (*models.Tenant, error)
}

type UserService struct {
	Users   UserAdminStore
	Tenants TenantLookup
	Hasher  hash.Hasher
	Events  events.Publisher
}

type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      string
	TenantID  *uint
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (uint, error) {
	l := logging.FromContext(ctx).With("svc", "users.create")

	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = NormalizeEmail(in.Email)
	in.Role = strings.TrimSpace(in.Role)

	var v validator
	v.required("firstName", in.FirstName, "First name is required!")
	v.required("lastName", in.LastName, "Last name is required!")
	v.email(in.Email)
	v.password(in.Password)
	v.role(in.Role)
	if in.TenantID != nil {
		if _, err := s.Tenants.FindTenantByID(ctx, *in.TenantID); err != nil {
			if !errors.Is(err, repo.ErrNotFound) {
				l.Error("create_user_failed", "status", 500, "reason", "tenant lookup", "error", err)
				return 0, err
			}
			v.add("tenantId", "Tenant does not exist")
		}
	}
	if err := v.err(); err != nil {
		l.Info("create_user_failed", "status", 400, "reason", "validation", "error", err)
		return 0, err
	}

	taken, err := s.Users.EmailTaken(ctx, in.Email)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, ErrEmailExists
	}

	pwHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		l.Error("create_user_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return 0, err
	}
	user := &models.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  pwHash,
		Role:      in.Role,
		TenantID:  in.TenantID,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrEmailExists) {
			return 0, ErrEmailExists
		}
		l.Error("create_user_failed", "status", 500, "error", err)
		return 0, err
	}

	l.Info("user_created", "user_id", user.ID, "role", user.Role)
	return user.ID, nil
}

func (s *UserService) List(ctx context.Context, page util.Page) ([]models.User, error) {
	return s.Users.ListUsers(ctx, page)
}

// Delete lets a user remove their own account; anyone else needs the admin
// role. The user's refresh tokens go with it.
func (s *UserService) Delete(ctx context.Context, actor authmw.AuthInfo, id uint) error {
	l := logging.FromContext(ctx).With("svc", "users.delete", "target_id", id)

	if actor.Subject != id && actor.Role != models.RoleAdmin {
		l.Warn("delete_user_failed", "status", 403, "reason", "not owner")
		return ErrForbidden
	}
	if err := s.Users.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		l.Error("delete_user_failed", "status", 500, "error", err)
		return err
	}

	l.Info("user_deleted")
	publish(ctx, s.Events, events.UserDeleted, &models.User{ID: id}, actor.Subject)
	return nil
}
