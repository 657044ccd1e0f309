// Package auth provides the session token codec, the ownership guard and the
// HTTP middleware that turns a session cookie into an Identity.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. POST /login checks the password and calls TokenService.Issue
//  2. The signed token is stored in the "token" HttpOnly cookie
//  3. On later requests the middleware reads the cookie, verifies the token
//     and puts the Identity in the request context
//  4. Services compare Identity.UserID with a post's AuthorID before mutating it
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:    {"alg":"HS256","typ":"JWT"}
//	- Payload:   {"sub":"<userID>","username":"alice","iat":1700000000,"iss":"blog-api"}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
//
// NO EXPIRY:
// Tokens carry no "exp" claim and Verify never looks at their age. A token
// stays valid for as long as the signing secret does; rotating JWT_SECRET is
// the only way to invalidate every session. Logout only clears the cookie.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const tokenIssuer = "blog-api"

// Identity is the authenticated user derived from a valid session token.
type Identity struct {
	UserID   xid.ID    `json:"id"`
	Username string    `json:"username"`
	IssuedAt time.Time `json:"iat"`
}

// TokenService signs and verifies session tokens with one HMAC secret.
// The secret is process-wide configuration, set once in NewTokenService
// and read-only afterwards.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// claims is the JWT payload: the registered claims ("sub" holds the user
// id) plus the username, so /profile can answer without a database lookup.
type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issue creates a signed token binding userID, username and the issue time.
func (s *TokenService) Issue(userID xid.ID, username string) (string, error) {
	if userID.IsNil() {
		return "", errors.New("auth: cannot issue a token for a nil user id")
	}

	c := claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID.String(),
			IssuedAt: jwt.NewNumericDate(s.now()),
			Issuer:   tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and checks a token string and returns the Identity it asserts.
//
// VALIDATION CHECKS:
//   - Signature is valid for our secret
//   - Algorithm is HS256 (blocks "none" and algorithm-confusion tricks)
//   - Issuer is "blog-api"
//   - Subject parses as a user id
//
// Age is not checked (see the package comment).
func (s *TokenService) Verify(tokenStr string) (Identity, error) {
	if tokenStr == "" {
		return Identity{}, errors.New("auth: empty token")
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, errors.New("auth: invalid token claims")
	}

	userID, err := xid.FromString(c.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("auth: invalid token subject: %w", err)
	}

	id := Identity{UserID: userID, Username: c.Username}
	if c.IssuedAt != nil {
		id.IssuedAt = c.IssuedAt.Time
	}
	return id, nil
}
