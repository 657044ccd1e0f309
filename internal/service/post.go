// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository and storage interfaces, never concrete types, so
// tests can pass in-memory fakes and main can pick sqlite or postgres, disk
// or MinIO, without touching this package.
//
// Services never see HTTP: they accept plain values and return apperror
// values, and the handler maps those to status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/rs/xid"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/auth"
	"github.com/sakif/blog-api/internal/model"
	"github.com/sakif/blog-api/internal/repository"
	"github.com/sakif/blog-api/internal/storage"
)

const (
	MaxTitleLength   = 200
	MaxSummaryLength = 1000
)

// PostInput is the editable part of a post. Update overwrites all three
// fields unconditionally, so an empty string clears a field.
type PostInput struct {
	Title   string
	Summary string
	Content string
}

func (in PostInput) validate() error {
	if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if utf8.RuneCountInString(in.Summary) > MaxSummaryLength {
		return apperror.ValidationFailed("summary",
			fmt.Sprintf("summary must be %d characters or less", MaxSummaryLength))
	}
	return nil
}

// Cover is an uploaded cover file. Filename is the client-supplied name and
// is only used for its extension.
type Cover struct {
	Filename    string
	Size        int64
	ContentType string
	Body        io.Reader
}

// PostService enforces the post lifecycle: who may create, change and
// delete a post, and how its cover is stored.
type PostService struct {
	posts  repository.PostRepository
	files  storage.FileStorage
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, files storage.FileStorage, logger *slog.Logger) *PostService {
	return &PostService{
		posts:  posts,
		files:  files,
		logger: logger,
	}
}

// Create stores the cover (if any), then the post. The author is always the
// caller; a client cannot choose it.
//
// If the post cannot be saved after the cover was stored, the cover is
// removed again so no unreferenced file is left behind.
func (s *PostService) Create(ctx context.Context, identity *auth.Identity, in PostInput, cover *Cover) (*model.Post, error) {
	if identity == nil {
		return nil, apperror.Unauthenticated("valid authentication required")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	post := &model.Post{
		Title:    in.Title,
		Summary:  in.Summary,
		Content:  in.Content,
		AuthorID: identity.UserID,
	}

	var key string
	if cover != nil {
		var err error
		if key, err = s.storeCover(ctx, cover); err != nil {
			return nil, err
		}
		post.Cover = storage.PublicPath(key)
	}

	if err := s.posts.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("author", identity.UserID.String()),
			slog.String("error", err.Error()),
		)
		s.discardCover(ctx, key)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	post.Author = &model.Author{ID: identity.UserID, Username: identity.Username}

	s.logger.Info("post created",
		slog.String("id", post.ID.String()),
		slog.String("author", identity.Username),
	)

	return post, nil
}

// GetByID needs no authentication. A malformed id is reported the same way
// as an unknown one.
func (s *PostService) GetByID(ctx context.Context, id string) (*model.Post, error) {
	postID, err := parsePostID(id)
	if err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, postID)
}

// ListRecent returns up to limit posts, newest first, each with its
// author's username. limit is clamped to (0, repository.MaxListLimit].
func (s *PostService) ListRecent(ctx context.Context, limit int) ([]model.Post, error) {
	posts, err := s.posts.List(ctx, repository.ListOptions{
		Limit: repository.ClampLimit(limit),
	})
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

// Update overwrites title, summary and content. The cover changes only when
// a new file is attached; otherwise the stored path is kept as is. The old
// cover file stays in storage.
//
// ORDER OF CHECKS: the post must exist (NotFound), then the caller must be
// authenticated (Unauthenticated), then be its author (Forbidden).
// Concurrent updates are last-write-wins.
func (s *PostService) Update(ctx context.Context, identity *auth.Identity, id string, in PostInput, cover *Cover) (*model.Post, error) {
	post, err := s.authorizedPost(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	post.Title = in.Title
	post.Summary = in.Summary
	post.Content = in.Content

	var key string
	if cover != nil {
		if key, err = s.storeCover(ctx, cover); err != nil {
			return nil, err
		}
		post.Cover = storage.PublicPath(key)
	}

	if err := s.posts.Update(ctx, post); err != nil {
		s.discardCover(ctx, key)
		if errors.Is(err, apperror.ErrNotFound) {
			// Deleted between the fetch and the write.
			return nil, err
		}
		s.logger.Error("failed to update post",
			slog.String("id", post.ID.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating post: %w", err)
	}

	s.logger.Info("post updated",
		slog.String("id", post.ID.String()),
		slog.Bool("newCover", cover != nil),
	)

	return post, nil
}

// Delete removes the post permanently. Checks run in the same order as
// Update. The cover file is not removed.
func (s *PostService) Delete(ctx context.Context, identity *auth.Identity, id string) error {
	post, err := s.authorizedPost(ctx, identity, id)
	if err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to delete post",
			slog.String("id", post.ID.String()),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting post: %w", err)
	}

	s.logger.Info("post deleted", slog.String("id", post.ID.String()))
	return nil
}

// authorizedPost fetches the post and checks that identity may mutate it.
func (s *PostService) authorizedPost(ctx context.Context, identity *auth.Identity, id string) (*model.Post, error) {
	postID, err := parsePostID(id)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if identity == nil {
		return nil, apperror.Unauthenticated("valid authentication required")
	}
	if err := auth.AuthorizeOwnership(*identity, post); err != nil {
		s.logger.Warn("ownership check failed",
			slog.String("post", post.ID.String()),
			slog.String("user", identity.UserID.String()),
		)
		return nil, err
	}

	return post, nil
}

// storeCover saves the file under a fresh key and returns the key.
func (s *PostService) storeCover(ctx context.Context, cover *Cover) (string, error) {
	if cover.Body == nil {
		return "", apperror.ValidationFailed("file", "cover file is empty")
	}

	key := storage.NewKey(cover.Filename)
	if err := s.files.Save(ctx, key, cover.Body, cover.Size, cover.ContentType); err != nil {
		s.logger.Error("failed to store cover",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("storing cover: %w", err)
	}
	return key, nil
}

// discardCover removes a cover stored by this request. Failures are only
// logged: the request has already failed for another reason.
func (s *PostService) discardCover(ctx context.Context, key string) {
	if key == "" {
		return
	}
	// The request context may already be cancelled.
	ctx = context.WithoutCancel(ctx)
	if err := s.files.Remove(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.logger.Warn("failed to remove orphaned cover",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

func parsePostID(id string) (xid.ID, error) {
	id = strings.TrimSpace(id)
	postID, err := xid.FromString(id)
	if err != nil || postID.IsNil() {
		return xid.NilID(), apperror.NotFound("post", id)
	}
	return postID, nil
}
