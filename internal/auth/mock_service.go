package auth

import (
	"context"
	"sync"
	"time"

	"github.com/flexbase/flexbase/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockCall records a method call for assertion
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockAuthService is a mock implementation of AuthServiceInterface for testing.
type MockAuthService struct {
	mu sync.Mutex

	Calls []MockCall

	RegisterFunc      func(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	LoginFunc         func(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	ValidateTokenFunc func(ctx context.Context, tokenString string) (*models.User, error)

	// Default error to return
	DefaultError error

	// Tokens maps issued mock tokens to their users
	Tokens map[string]*models.User
}

// NewMockAuthService creates a new mock auth service with sensible defaults
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{
		Calls:  make([]MockCall, 0),
		Tokens: make(map[string]*models.User),
	}
}

func (m *MockAuthService) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// GetCallsForMethod returns calls for a specific method
func (m *MockAuthService) GetCallsForMethod(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []MockCall
	for _, call := range m.Calls {
		if call.Method == method {
			result = append(result, call)
		}
	}
	return result
}

// AddToken makes token resolve to user
func (m *MockAuthService) AddToken(token string, user *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tokens[token] = user
}

func (m *MockAuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	m.recordCall("Register", req)
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, req)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return m.GenerateToken(&models.User{
		ID:       primitive.NewObjectID(),
		Username: req.Username,
		Email:    req.Email,
	})
}

func (m *MockAuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	m.recordCall("Login", req)
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, req)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return nil, invalidCredentials()
}

func (m *MockAuthService) GenerateToken(user *models.User) (*AuthResponse, error) {
	token := "mock_token_" + user.ID.Hex()
	m.AddToken(token, user)
	return &AuthResponse{
		Token:     token,
		User:      user,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (m *MockAuthService) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	m.recordCall("ValidateToken", tokenString)
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(ctx, tokenString)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.Tokens[tokenString]; ok {
		return user, nil
	}
	return nil, ErrInvalidToken
}

// Ensure MockAuthService implements AuthServiceInterface
var _ AuthServiceInterface = (*MockAuthService)(nil)
