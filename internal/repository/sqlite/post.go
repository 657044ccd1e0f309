package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/model"
	"github.com/sakif/blog-api/internal/repository"
)

var _ repository.PostRepository = (*PostDB)(nil)

// PostDB implements repository.PostRepository.
//
// now is the clock used for created_at/updated_at. It is a field so tests
// in this package can pin timestamps and check ordering deterministically.
type PostDB struct {
	conn *sql.DB
	now  func() time.Time
}

// selectPost joins the author's username onto every post read.
// LEFT JOIN keeps a post visible even if its author row were missing.
const selectPost = `
	SELECT p.id, p.title, p.summary, p.content, p.cover, p.author_id,
	       p.created_at, p.updated_at, u.username
	FROM posts p
	LEFT JOIN users u ON u.id = p.author_id`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*model.Post, error) {
	var (
		p        model.Post
		username sql.NullString
	)
	if err := row.Scan(
		&p.ID, &p.Title, &p.Summary, &p.Content, &p.Cover, &p.AuthorID,
		&p.CreatedAt, &p.UpdatedAt, &username,
	); err != nil {
		return nil, err
	}
	if username.Valid {
		p.Author = &model.Author{ID: p.AuthorID, Username: username.String}
	}
	return &p, nil
}

// Create inserts a post, assigning ID, CreatedAt and UpdatedAt in place.
func (d *PostDB) Create(ctx context.Context, post *model.Post) error {
	now := d.now().UTC()
	post.ID = xid.NewWithTime(now)
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO posts (id, title, summary, content, cover, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.Title,
		post.Summary,
		post.Content,
		post.Cover,
		post.AuthorID,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	return nil
}

func (d *PostDB) GetByID(ctx context.Context, id xid.ID) (*model.Post, error) {
	post, err := scanPost(d.conn.QueryRowContext(ctx, selectPost+` WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id.String())
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return post, nil
}

// List returns the most recent posts, newest first. Posts created in the
// same instant are ordered by id, which is itself time-ordered.
func (d *PostDB) List(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	limit := repository.ClampLimit(opts.Limit)

	rows, err := d.conn.QueryContext(ctx,
		selectPost+` ORDER BY p.created_at DESC, p.id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// Update overwrites the mutable columns of an existing post. author_id and
// created_at are deliberately absent from the SET list.
func (d *PostDB) Update(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = d.now().UTC()

	result, err := d.conn.ExecContext(ctx,
		`UPDATE posts
		 SET title = ?, summary = ?, content = ?, cover = ?, updated_at = ?
		 WHERE id = ?`,
		post.Title,
		post.Summary,
		post.Content,
		post.Cover,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", post.ID.String())
	}

	return nil
}

func (d *PostDB) Delete(ctx context.Context, id xid.ID) error {
	result, err := d.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", id.String())
	}

	return nil
}
