// Package users covers account administration. Accounts are never deleted;
// admins disable them through SetStatus.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/access"
	"github.com/hugh/salespulse/internal/apperr"
	"github.com/hugh/salespulse/internal/auth"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/patch"
	"gorm.io/gorm"
)

var (
	updateColumns = []string{"first_name", "last_name", "email", "role"}
	validate      = validator.New()
)

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// List returns every account, active or not, ordered by name.
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).
		Order("last_name, first_name").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// ListAEs returns the active AEs.
func (s *Service) ListAEs(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", models.RoleAE, true).
		Order("last_name, first_name").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("listing AEs: %w", err)
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.User, error) {
	if err := actor.Require(id); err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

// UpdateInput changes only the fields that are set.
type UpdateInput struct {
	FirstName *string      `patch:"first_name"`
	LastName  *string      `patch:"last_name"`
	Email     *string      `patch:"email"`
	Role      *models.Role `patch:"role"`
}

func (in *UpdateInput) normalize() error {
	errs := make(map[string]string)
	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if v == "" {
			errs["first_name"] = "first_name cannot be empty"
		}
		in.FirstName = &v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if v == "" {
			errs["last_name"] = "last_name cannot be empty"
		}
		in.LastName = &v
	}
	if in.Email != nil {
		v := auth.NormalizeEmail(*in.Email)
		if err := validate.Var(v, "required,email"); err != nil {
			errs["email"] = "email must be a valid address"
		}
		in.Email = &v
	}
	if in.Role != nil && !in.Role.Valid() {
		errs["role"] = "role must be one of: ae, admin"
	}
	if len(errs) > 0 {
		return apperr.InvalidFields(errs)
	}
	return nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	set, err := patch.Build(in, updateColumns...)
	if err != nil {
		if errors.Is(err, patch.ErrEmpty) {
			return nil, apperr.BadRequest("no updates provided")
		}
		return nil, err
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil && *in.Email != user.Email {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("email = ? AND id <> ?", *in.Email, id).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("checking email: %w", err)
		}
		if count > 0 {
			return nil, apperr.Conflict("email already in use")
		}
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}(set)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("email already in use")
		}
		return nil, fmt.Errorf("updating user: %w", err)
	}

	s.logger.Info("user updated", "user_id", id, "fields", set.Columns())
	return s.find(ctx, id)
}

// SetStatus enables or disables an account. Disabled users fail
// authentication on their next request.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("updating user status: %w", err)
	}
	s.logger.Info("user status changed", "user_id", id, "is_active", active)
	return s.find(ctx, id)
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return &user, nil
}
