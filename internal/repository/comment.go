package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rfcbot/rfcbot/internal/domain"
	"github.com/rfcbot/rfcbot/internal/pkg/logger"
)

type CommentRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewCommentRepo(db *pgxpool.Pool, logger *logger.Logger) *CommentRepo {
	return &CommentRepo{
		db:     db,
		logger: logger.Component("repository/comment"),
	}
}

// Upsert stores a comment and reports whether it was newly inserted.
// The distinction matters upstream: only first sightings of a comment
// trigger command processing.
func (r *CommentRepo) Upsert(ctx context.Context, comment *domain.IssueComment) (bool, error) {
	query := `
        INSERT INTO issue_comments (
            id, issue_number, issue_repository, author, body, created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET
            body       = EXCLUDED.body,
            updated_at = EXCLUDED.updated_at
        RETURNING (xmax = 0) AS inserted
    `

	var inserted bool
	err := r.db.QueryRow(ctx, query,
		comment.ID, comment.IssueNumber, comment.IssueRepository,
		comment.User, comment.Body, comment.CreatedAt, comment.UpdatedAt,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert comment: %w", err)
	}
	return inserted, nil
}

func (r *CommentRepo) Get(ctx context.Context, id int64) (*domain.IssueComment, error) {
	comment := &domain.IssueComment{}
	query := `
        SELECT id, issue_number, issue_repository, author, body, created_at, updated_at
        FROM issue_comments
        WHERE id = $1
    `

	err := r.db.QueryRow(ctx, query, id).Scan(
		&comment.ID, &comment.IssueNumber, &comment.IssueRepository,
		&comment.User, &comment.Body, &comment.CreatedAt, &comment.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query comment: %w", err)
	}
	return comment, nil
}

func (r *CommentRepo) UpdateBody(ctx context.Context, id int64, body string) error {
	query := `UPDATE issue_comments SET body = $1 WHERE id = $2`

	result, err := r.db.Exec(ctx, query, body, id)
	if err != nil {
		return fmt.Errorf("update comment body: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrCommentNotFound
	}
	return nil
}
