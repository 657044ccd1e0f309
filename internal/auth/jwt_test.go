package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const testSecret = "test-secret-at-least-16-chars!!"

// newTestTokenService creates a TokenService with a fixed secret.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestNewTokenService_SecretLength(t *testing.T) {
	if _, err := NewTokenService("short"); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
	if _, err := NewTokenService("this-is-16-chars"); err != nil {
		t.Fatalf("NewTokenService() unexpected error for a 16-char secret: %v", err)
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	issuedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return issuedAt }

	userID := xid.New()
	token, err := ts.Issue(userID, "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Fatalf("token should have 3 dot-separated parts, got %d", len(parts))
	}

	identity, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if identity.UserID != userID {
		t.Errorf("UserID = %s, want %s", identity.UserID, userID)
	}
	if identity.Username != "alice" {
		t.Errorf("Username = %q, want %q", identity.Username, "alice")
	}
	if !identity.IssuedAt.Equal(issuedAt) {
		t.Errorf("IssuedAt = %v, want %v", identity.IssuedAt, issuedAt)
	}
}

func TestIssue_NilUserID(t *testing.T) {
	ts := newTestTokenService(t)
	if _, err := ts.Issue(xid.NilID(), "alice"); err == nil {
		t.Fatal("Issue() should refuse a nil user id")
	}
}

// Tokens never expire: one issued years ago still verifies.
func TestVerify_OldTokenStillValid(t *testing.T) {
	ts := newTestTokenService(t)
	ts.now = func() time.Time { return time.Now().AddDate(-5, 0, 0) }

	token, err := ts.Issue(xid.New(), "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	ts.now = time.Now
	if _, err := ts.Verify(token); err != nil {
		t.Fatalf("Verify() should accept an old token, got: %v", err)
	}
}

func TestVerify_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	valid, err := ts.Issue(xid.New(), "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other, err := NewTokenService("a-completely-different-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	foreign, _ := other.Issue(xid.New(), "mallory")

	// Swap in the payload of another token signed with the same key.
	swapped, _ := ts.Issue(xid.New(), "bob")
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + strings.Split(swapped, ".")[1] + "." + parts[2]

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": xid.New().String(),
		"iss": tokenIssuer,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": xid.New().String(),
		"iss": tokenIssuer,
	}).SignedString([]byte(testSecret))

	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": xid.New().String(),
		"iss": "someone-else",
	}).SignedString([]byte(testSecret))

	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "not-an-id",
		"iss": tokenIssuer,
	}).SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "this.is.garbage"},
		{"tampered signature", tampered},
		{"signed with another secret", foreign},
		{"alg none", unsigned},
		{"HS512", hs512},
		{"wrong issuer", wrongIssuer},
		{"subject is not an id", badSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Verify(tt.token); err == nil {
				t.Errorf("Verify(%s) should fail", tt.name)
			}
		})
	}
}
