package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"hybrid-session-hub/internal/account/domain"
	"hybrid-session-hub/internal/ownership"
	"hybrid-session-hub/internal/security"
)

// Sentinel errors for the auth service; handlers map them to HTTP status codes.
var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// RegisterInput carries the optional profile fields accepted at registration.
type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
	Avatar      string
	Email       string
	Phone       string
}

// SessionStarter begins a device session for an authenticated account.
// Implemented by ownership.Coordinator.
type SessionStarter interface {
	Login(ctx context.Context, accountID, deviceID string) (*ownership.LoginResult, error)
}

// AuthService implements username/password registration and login. Password
// verification happens here; session placement is delegated to the
// coordinator.
type AuthService struct {
	accounts AccountRepo
	starter  SessionStarter
	hasher   *security.Hasher
	nowF     func() time.Time
}

// AccountRepo is the minimal account repository needed by the auth service.
type AccountRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(accounts AccountRepo, starter SessionStarter, hasher *security.Hasher) *AuthService {
	return &AuthService{accounts: accounts, starter: starter, hasher: hasher, nowF: time.Now}
}

// Register creates an account with a hashed password. Usernames are
// case-insensitive unique.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	username := strings.TrimSpace(strings.ToLower(in.Username))
	if username == "" {
		return nil, errors.New("username is required")
	}
	if len(in.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	existing, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}
	hashed, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, err
	}
	now := s.nowF().UTC()
	acct := &domain.Account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hashed,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Avatar:       in.Avatar,
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := acct.Validate(); err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// Login verifies the password and places the account on the device. The
// returned result carries the session with its credential pair attached.
func (s *AuthService) Login(ctx context.Context, username, password, deviceID string) (*ownership.LoginResult, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	acct, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if acct == nil || acct.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(acct.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.starter.Login(ctx, acct.ID, deviceID)
}

// Get returns the account for id, or nil if not found.
func (s *AuthService) Get(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.GetByID(ctx, id)
}
