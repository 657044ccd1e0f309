package model

import (
	"time"

	"github.com/rs/xid"
)

// Post is a blog post.
//
// AuthorID is bound once, at creation, from the authenticated identity.
// Updates never touch it. Author is a read-side join filled in by the
// repository (GetByID and List) so clients can show the author's name
// without a second request.
//
// Cover holds the stored path of the cover image, e.g.
// "uploads/cs1v2k0d0h9s73b6l4r0.png", or "" when the post has none.
type Post struct {
	ID        xid.ID    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Content   string    `json:"content"`
	Cover     string    `json:"cover"`
	AuthorID  xid.ID    `json:"authorId"`
	Author    *Author   `json:"author,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Author is the public projection of a User attached to a Post.
type Author struct {
	ID       xid.ID `json:"id"`
	Username string `json:"username"`
}
