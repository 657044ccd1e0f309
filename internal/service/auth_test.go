package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/auth"
	"github.com/sakif/blog-api/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository. Usernames are
// unique, like the UNIQUE constraint in the real stores.
type fakeUserRepo struct {
	byID   map[xid.ID]*model.User
	byName map[string]*model.User
	// set to a non-nil error to simulate a database failure
	err error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:   make(map[xid.ID]*model.User),
		byName: make(map[string]*model.User),
	}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.byName[user.Username]; ok {
		return apperror.Conflict("user", user.Username)
	}
	user.ID = xid.New()
	user.CreatedAt = time.Now().UTC()
	stored := *user
	f.byID[user.ID] = &stored
	f.byName[user.Username] = &stored
	return nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, apperror.NotFound("user", username)
	}
	result := *u
	return &result, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id xid.ID) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id.String())
	}
	result := *u
	return &result, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// newTestAuthService returns an AuthService wired with fake dependencies and
// the minimum bcrypt cost.
func newTestAuthService(t *testing.T, repo *fakeUserRepo) (*AuthService, *auth.TokenService) {
	t.Helper()
	ts := newTestTokenService(t)
	return NewAuthService(repo, ts, auth.NewPasswordServiceForTest(4), testLogger()), ts
}

func assertValidation(t *testing.T, err error) {
	t.Helper()
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// Register TESTS
// =========================================================================

func TestRegister_Success(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	user, err := svc.Register(context.Background(), "  alice  ", "wonderland")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if user.ID.IsNil() {
		t.Error("user.ID should be assigned")
	}
	if user.Username != "alice" {
		t.Errorf("Username = %q, want trimmed %q", user.Username, "alice")
	}
	if user.PasswordHash == "" || user.PasswordHash == "wonderland" {
		t.Errorf("PasswordHash = %q, want a bcrypt hash", user.PasswordHash)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		password  string
		wantField string
	}{
		{"empty username", "", "pw", "username"},
		{"whitespace username", "   ", "pw", "username"},
		{"username too long", strings.Repeat("u", MaxUsernameLength+1), "pw", "username"},
		{"empty password", "alice", "", "password"},
		{"password too long", "alice", strings.Repeat("p", auth.MaxPasswordBytes+1), "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestAuthService(t, newFakeUserRepo())

			_, err := svc.Register(context.Background(), tt.username, tt.password)
			assertValidation(t, err)

			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "first"); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	_, err := svc.Register(ctx, "alice", "second")
	assertValidation(t, err)
	if errors.Is(err, apperror.ErrConflict) {
		t.Error("a taken username should surface as a validation error, not a conflict")
	}
}

func TestRegister_RepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.err = errors.New("database is on fire")
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Register(context.Background(), "alice", "pw")
	if err == nil {
		t.Fatal("Register() should fail when the store fails")
	}
	if errors.Is(err, apperror.ErrValidation) {
		t.Error("a store failure must not look like a validation error")
	}
}

// =========================================================================
// Login TESTS
// =========================================================================

func TestLogin_RoundTrip(t *testing.T) {
	svc, ts := newTestAuthService(t, newFakeUserRepo())
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "wonderland")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.Login(ctx, "alice", "wonderland")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.User.ID != user.ID {
		t.Errorf("Login user = %s, want %s", result.User.ID, user.ID)
	}

	identity, err := ts.Verify(result.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if identity.UserID != user.ID || identity.Username != "alice" {
		t.Errorf("token identity = %+v, want alice/%s", identity, user.ID)
	}
}

func TestLogin_WrongCredentials(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "wonderland"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	cases := []struct{ username, password string }{
		{"alice", "looking-glass"},
		{"alice", ""},
		{"bob", "wonderland"},
		{"", ""},
	}
	for _, c := range cases {
		result, err := svc.Login(ctx, c.username, c.password)
		assertValidation(t, err)
		if result != nil {
			t.Errorf("Login(%q, %q) returned a result alongside an error", c.username, c.password)
		}
		if err.Error() != msgWrongCredentials {
			t.Errorf("message = %q, want %q", err.Error(), msgWrongCredentials)
		}
	}
}

// bcrypt ignores everything past 72 bytes; a longer password that starts
// with the real one must still be rejected.
func TestLogin_OverlongPasswordRejected(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())
	ctx := context.Background()

	password := strings.Repeat("a", auth.MaxPasswordBytes)
	if _, err := svc.Register(ctx, "alice", password); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.Login(ctx, "alice", password+"WRONG-SUFFIX")
	assertValidation(t, err)
	if result != nil {
		t.Fatalf("Login() issued a token for a wrong password: %+v", result)
	}

	if _, err := svc.Login(ctx, "alice", password); err != nil {
		t.Fatalf("Login() with the exact password error = %v", err)
	}
}

func TestLogin_RepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	repo.err = errors.New("connection refused")

	_, err := svc.Login(context.Background(), "alice", "pw")
	if err == nil || errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Login() error = %v, want a non-validation error", err)
	}
}

// =========================================================================
// Profile TESTS
// =========================================================================

func TestProfile(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())

	identity := &auth.Identity{UserID: xid.New(), Username: "alice", IssuedAt: time.Now()}
	got, err := svc.Profile(context.Background(), identity)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if *got != *identity {
		t.Errorf("Profile() = %+v, want %+v", got, identity)
	}

	if _, err := svc.Profile(context.Background(), nil); !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("Profile(nil) error = %v, want ErrUnauthenticated", err)
	}
}
