package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is inactive")
)

type Service struct {
	db  *gorm.DB
	jwt *JWTService
}

func NewService(db *gorm.DB, jwt *JWTService) *Service {
	return &Service{db: db, jwt: jwt}
}

// RegisterInput describes an account created by an admin. An empty
// Password makes the service issue a temporary one.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      models.Role
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type RegisterResult struct {
	User              *models.User
	TemporaryPassword string
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an active account. The email check runs first for a
// clean error; the unique index still catches a concurrent duplicate.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	email := NormalizeEmail(input.Email)
	role := input.Role
	if role == "" {
		role = models.RoleAE
	}

	var taken int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if taken > 0 {
		return nil, ErrUserExists
	}

	result := &RegisterResult{}
	password := input.Password
	if password == "" {
		temp, err := TemporaryPassword()
		if err != nil {
			return nil, err
		}
		password, result.TemporaryPassword = temp, temp
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         role,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	result.User = user
	return result, nil
}

// Login checks credentials and issues a session token. Unknown emails
// still pay for one bcrypt comparison so response time does not reveal
// which addresses have accounts.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(input.Email)).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		CheckPassword(input.Password, decoyHash)
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	token, err := s.jwt.GenerateToken(&user)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}
	return &AuthResponse{Token: token, User: &user}, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ActiveUser loads a user for request authentication. Disabled accounts
// are reported as ErrInactiveUser so their tokens stop working at once.
func (s *Service) ActiveUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}
