package auth

import (
	"context"

	"github.com/flexbase/flexbase/internal/models"
)

// AuthServiceInterface defines the contract for authentication operations.
// Handlers and middleware depend on it so tests can swap in MockAuthService.
type AuthServiceInterface interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	GenerateToken(user *models.User) (*AuthResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*models.User, error)
}

// Ensure Service implements AuthServiceInterface
var _ AuthServiceInterface = (*Service)(nil)
