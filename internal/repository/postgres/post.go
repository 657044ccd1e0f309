package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/model"
	"github.com/sakif/blog-api/internal/repository"
)

var _ repository.PostRepository = (*PostDB)(nil)

// PostDB implements repository.PostRepository on PostgreSQL.
type PostDB struct {
	db  *sqlx.DB
	now func() time.Time
}

const (
	insertPostQuery = `INSERT INTO posts (id, title, summary, content, cover, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	selectPostQuery = `SELECT p.id, p.title, p.summary, p.content, p.cover, p.author_id,
		p.created_at, p.updated_at, u.username
		FROM posts p LEFT JOIN users u ON u.id = p.author_id`
	updatePostQuery = `UPDATE posts SET title = $1, summary = $2, content = $3, cover = $4, updated_at = $5
		WHERE id = $6`
	deletePostQuery = `DELETE FROM posts WHERE id = $1`
)

// postRow is the joined row shape read by selectPostQuery.
type postRow struct {
	ID        xid.ID         `db:"id"`
	Title     string         `db:"title"`
	Summary   string         `db:"summary"`
	Content   string         `db:"content"`
	Cover     string         `db:"cover"`
	AuthorID  xid.ID         `db:"author_id"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
	Username  sql.NullString `db:"username"`
}

func (r postRow) toModel() model.Post {
	p := model.Post{
		ID:        r.ID,
		Title:     r.Title,
		Summary:   r.Summary,
		Content:   r.Content,
		Cover:     r.Cover,
		AuthorID:  r.AuthorID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Username.Valid {
		p.Author = &model.Author{ID: r.AuthorID, Username: r.Username.String}
	}
	return p
}

func (d *PostDB) Create(ctx context.Context, post *model.Post) error {
	now := d.now().UTC()
	post.ID = xid.NewWithTime(now)
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := d.db.ExecContext(ctx, insertPostQuery,
		post.ID, post.Title, post.Summary, post.Content, post.Cover,
		post.AuthorID, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: creating post: %w", err)
	}
	return nil
}

func (d *PostDB) GetByID(ctx context.Context, id xid.ID) (*model.Post, error) {
	var row postRow
	err := d.db.GetContext(ctx, &row, selectPostQuery+` WHERE p.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id.String())
		}
		return nil, fmt.Errorf("postgres: getting post %s: %w", id, err)
	}
	p := row.toModel()
	return &p, nil
}

func (d *PostDB) List(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	limit := repository.ClampLimit(opts.Limit)

	var rows []postRow
	err := d.db.SelectContext(ctx, &rows,
		selectPostQuery+` ORDER BY p.created_at DESC, p.id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing posts: %w", err)
	}

	posts := make([]model.Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.toModel())
	}
	return posts, nil
}

func (d *PostDB) Update(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = d.now().UTC()

	result, err := d.db.ExecContext(ctx, updatePostQuery,
		post.Title, post.Summary, post.Content, post.Cover, post.UpdatedAt, post.ID)
	if err != nil {
		return fmt.Errorf("postgres: updating post %s: %w", post.ID, err)
	}
	return checkAffected(result, post.ID)
}

func (d *PostDB) Delete(ctx context.Context, id xid.ID) error {
	result, err := d.db.ExecContext(ctx, deletePostQuery, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting post %s: %w", id, err)
	}
	return checkAffected(result, id)
}

func checkAffected(result sql.Result, id xid.ID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("post", id.String())
	}
	return nil
}
