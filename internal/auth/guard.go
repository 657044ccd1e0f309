package auth

import (
	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/model"
)

// Guard makes the two access decisions of the app: is this request
// authenticated, and may this identity mutate this post.
type Guard struct {
	tokens *TokenService
}

func NewGuard(tokens *TokenService) *Guard {
	return &Guard{tokens: tokens}
}

// Authenticate turns a raw session token into an Identity. An absent or
// invalid token is an apperror.Unauthenticated, never a panic.
func (g *Guard) Authenticate(token string) (Identity, error) {
	if token == "" {
		return Identity{}, apperror.Unauthenticated("valid authentication required")
	}
	id, err := g.tokens.Verify(token)
	if err != nil {
		return Identity{}, apperror.Unauthenticated("invalid session token")
	}
	return id, nil
}

// AuthorizeOwnership allows the mutation only when the identity is the
// post's author. Ids are compared as xid.ID values.
func AuthorizeOwnership(identity Identity, post *model.Post) error {
	if post == nil || identity.UserID.IsNil() || identity.UserID != post.AuthorID {
		return apperror.Forbidden("you are not the author of this post")
	}
	return nil
}
