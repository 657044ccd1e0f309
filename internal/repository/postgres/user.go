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

var _ repository.UserRepository = (*UserDB)(nil)

// UserDB implements repository.UserRepository on PostgreSQL.
type UserDB struct {
	db  *sqlx.DB
	now func() time.Time
}

const (
	insertUserQuery = `INSERT INTO users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`
	selectUserQuery = `SELECT id, username, password_hash, created_at FROM users`
)

func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New()
	user.CreatedAt = u.now().UTC()

	_, err := u.db.ExecContext(ctx, insertUserQuery,
		user.ID, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("postgres: inserting user %q: %w", user.Username, err)
	}
	return nil
}

func (u *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := u.db.GetContext(ctx, &user, selectUserQuery+` WHERE username = $1`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("postgres: getting user %q: %w", username, err)
	}
	return &user, nil
}

func (u *UserDB) GetByID(ctx context.Context, id xid.ID) (*model.User, error) {
	var user model.User
	err := u.db.GetContext(ctx, &user, selectUserQuery+` WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id.String())
		}
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}
	return &user, nil
}
