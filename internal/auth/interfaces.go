package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/database/models"
)

// Authenticator defines the interface for account lifecycle operations.
type Authenticator interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	LoginWithGoogle(ctx context.Context, email string) (*AuthResponse, error)
	MarkEmailVerified(ctx context.Context, email string) (*models.User, error)
	ResetPassword(ctx context.Context, email, newPassword string) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TokenService defines the interface for JWT token operations.
type TokenService interface {
	GenerateToken(userID, orgID uuid.UUID, email string, role models.Role) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator = (*Service)(nil)
	_ TokenService  = (*JWTService)(nil)
)
