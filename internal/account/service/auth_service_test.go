package service

import (
	"context"
	"errors"
	"testing"

	accountrepo "hybrid-session-hub/internal/account/repository"
	"hybrid-session-hub/internal/ownership"
	"hybrid-session-hub/internal/security"
	sessiondomain "hybrid-session-hub/internal/session/domain"
)

type fakeStarter struct {
	lastAccountID string
	lastDeviceID  string
	err           error
}

func (f *fakeStarter) Login(ctx context.Context, accountID, deviceID string) (*ownership.LoginResult, error) {
	f.lastAccountID = accountID
	f.lastDeviceID = deviceID
	if f.err != nil {
		return nil, f.err
	}
	return &ownership.LoginResult{
		Session: &sessiondomain.Session{ID: "sess-1", AccountID: accountID, DeviceID: deviceID, Active: true},
	}, nil
}

func newTestService(t *testing.T) (*AuthService, *fakeStarter) {
	t.Helper()
	starter := &fakeStarter{}
	// MinCost keeps the bcrypt work factor out of test runtime.
	svc := NewAuthService(accountrepo.NewMemoryRepository(), starter, security.NewHasher(4))
	return svc, starter
}

func TestRegister_CreatesAccount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	acct, err := svc.Register(ctx, RegisterInput{
		Username:    "Alice",
		Password:    "s3cret-pass",
		DisplayName: "Alice L",
		Email:       "alice@example.com",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if acct.ID == "" {
		t.Error("account ID not set")
	}
	if acct.Username != "alice" {
		t.Errorf("username = %q, want lowercased alice", acct.Username)
	}
	if acct.PasswordHash == "" || acct.PasswordHash == "s3cret-pass" {
		t.Error("password not hashed")
	}
}

func TestRegister_UsernameTaken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "s3cret-pass"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Register(ctx, RegisterInput{Username: "ALICE", Password: "other-pass-1"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("err = %v, want ErrUsernameTaken", err)
	}
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Password: "short"}); err == nil {
		t.Error("expected error for short password")
	}
}

func TestLogin_DelegatesToCoordinator(t *testing.T) {
	ctx := context.Background()
	svc, starter := newTestService(t)

	acct, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "s3cret-pass"})
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.Login(ctx, "alice", "s3cret-pass", "dev-1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if starter.lastAccountID != acct.ID || starter.lastDeviceID != "dev-1" {
		t.Errorf("coordinator called with %q/%q", starter.lastAccountID, starter.lastDeviceID)
	}
	if res.Session == nil || !res.Session.Active {
		t.Errorf("result session = %+v", res.Session)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()
	svc, starter := newTestService(t)

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "s3cret-pass"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Login(ctx, "alice", "wrong-pass-1", "dev-1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
	if starter.lastAccountID != "" {
		t.Error("coordinator called despite failed password check")
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Login(context.Background(), "ghost", "whatever-pass", "dev-1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}
