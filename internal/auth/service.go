package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/flexbase/flexbase/internal/errors"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/models"
	"github.com/flexbase/flexbase/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const (
	// DefaultTokenTTL is used when the service is built with a zero TTL
	DefaultTokenTTL = 7 * 24 * time.Hour

	// CookieName is the cookie page sessions keep the token in
	CookieName = "flexbase_token"
)

// Service handles all authentication operations
type Service struct {
	users     repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewService creates a new authentication service
func NewService(users repository.UserRepository, jwtSecret []byte, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Service{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token     string       `json:"token"`
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// RegisterRequest represents a signup request
type RegisterRequest struct {
	Username    string `json:"username" form:"username"`
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	DisplayName string `json:"displayName" form:"displayName"`
}

// LoginRequest represents a login request. Identifier is an email or a username.
type LoginRequest struct {
	Identifier string `json:"identifier" form:"identifier"`
	Email      string `json:"email" form:"email"`
	Password   string `json:"password" form:"password"`
}

// Validate normalizes the request and reports every invalid field
func (r *RegisterRequest) Validate() error {
	r.Username = models.NormalizeUsername(r.Username)
	r.Email = models.NormalizeEmail(r.Email)
	r.DisplayName = strings.TrimSpace(r.DisplayName)

	var fields []apperrors.FieldError
	if msg := models.ValidateUsername(r.Username); msg != "" {
		fields = append(fields, apperrors.FieldError{Field: "username", Message: msg})
	}
	if _, err := mail.ParseAddress(r.Email); err != nil || r.Email == "" {
		fields = append(fields, apperrors.FieldError{Field: "email", Message: "a valid email address is required"})
	}
	if len(r.Password) < models.MinPasswordLength {
		fields = append(fields, apperrors.FieldError{
			Field:   "password",
			Message: fmt.Sprintf("password must be at least %d characters", models.MinPasswordLength),
		})
	} else if len(r.Password) > models.MaxPasswordBytes {
		fields = append(fields, apperrors.FieldError{
			Field:   "password",
			Message: fmt.Sprintf("password must be at most %d bytes", models.MaxPasswordBytes),
		})
	}
	if len(r.DisplayName) > 50 {
		fields = append(fields, apperrors.FieldError{Field: "displayName", Message: "display name must be at most 50 characters"})
	}
	if len(fields) > 0 {
		return apperrors.ValidationErrors(fields)
	}
	return nil
}

// Register creates a new user with email/password and signs them in
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// DuplicateError carries the offending field to the error handler
		return nil, err
	}

	logger.Log.Info("User registered",
		logger.WithUserID(user.ID.Hex()),
		zap.String("username", user.Username))

	return s.GenerateToken(user)
}

// Login authenticates with an email or username plus password
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" || req.Password == "" {
		return nil, apperrors.ValidationErrors([]apperrors.FieldError{
			{Field: "identifier", Message: "email or username and password are required"},
		})
	}

	var (
		user *models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(ctx, models.NormalizeEmail(identifier))
	} else {
		user, err = s.users.GetByUsername(ctx, models.NormalizeUsername(identifier))
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, invalidCredentials()
	}

	return s.GenerateToken(user)
}

func invalidCredentials() *apperrors.APIError {
	e := apperrors.Unauthorized("invalid email, username or password")
	e.Err = ErrInvalidCredentials
	return e
}

// GenerateToken signs a session token for user
func (s *Service) GenerateToken(user *models.User) (*AuthResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)

	claims := jwt.MapClaims{
		"user_id":  user.ID.Hex(),
		"username": user.Username,
		"exp":      expiresAt.Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     signed,
		User:      user,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken validates a session token and loads its user fresh from the store
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	hex, _ := claims["user_id"].(string)
	id, err := repository.ParseID(hex)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: user no longer exists", ErrInvalidToken)
	}
	return user, err
}
