package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/database/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrOrgExists          = errors.New("organization already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoPassword         = errors.New("account has no password set")
	ErrEmailNotVerified   = errors.New("email not verified")
)

type Service struct {
	db  *gorm.DB
	jwt *JWTService
}

func NewService(db *gorm.DB, jwt *JWTService) *Service {
	return &Service{db: db, jwt: jwt}
}

type RegisterInput struct {
	Name             string
	Email            string
	Password         string
	OrganizationName string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates a new organization and its first user. The user gets the
// ADMIN role and starts unverified; login stays blocked until the email
// verification token is redeemed.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	var existing models.User
	if err := s.db.WithContext(ctx).Where("email = ?", input.Email).First(&existing).Error; err == nil {
		return nil, ErrUserExists
	}

	slug := GenerateSlug(input.OrganizationName)
	var existingOrg models.Organization
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&existingOrg).Error; err == nil {
		return nil, ErrOrgExists
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	org := models.Organization{
		Name: input.OrganizationName,
		Slug: slug,
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return err
		}

		user = models.User{
			Name:           input.Name,
			Email:          input.Email,
			PasswordHash:   hash,
			Role:           models.RoleAdmin,
			OrganizationID: org.ID,
		}

		return tx.Create(&user).Error
	})

	if err != nil {
		return nil, err
	}

	user.Organization = &org
	return &user, nil
}

// Login verifies credentials and returns a signed JWT. Unverified accounts
// are rejected before the password is even compared so the caller can tell
// the user to check their inbox.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("email = ?", input.Email).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == "" {
		return nil, ErrNoPassword
	}

	if !user.IsVerified() {
		return nil, ErrEmailNotVerified
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, user.OrganizationID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, User: &user}, nil
}

// LoginWithGoogle signs in an existing account by its Google email. New
// accounts are not provisioned here; users must register first. A Google
// sign-in counts as proof of email ownership, so an unverified account is
// marked verified on the way through.
func (s *Service) LoginWithGoogle(ctx context.Context, email string) (*AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("email = ?", email).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !user.IsVerified() {
		now := time.Now()
		if err := s.db.WithContext(ctx).Model(&user).
			Update("email_verified_at", &now).Error; err != nil {
			return nil, err
		}
		user.EmailVerifiedAt = &now
	}

	token, err := s.jwt.GenerateToken(user.ID, user.OrganizationID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, User: &user}, nil
}

// MarkEmailVerified stamps the account as verified.
func (s *Service) MarkEmailVerified(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&user).
		Update("email_verified_at", &now).Error; err != nil {
		return nil, err
	}

	user.EmailVerifiedAt = &now
	return &user, nil
}

// ResetPassword replaces the account's password hash.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) error {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(&user).
		Update("password_hash", hash).Error
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("email = ?", email).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GenerateSlug derives the organization slug from its name: lowercased,
// spaces replaced with dashes. Deterministic, so the same name always
// collides rather than silently producing a second org.
func GenerateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(slug, " ", "-")
}
