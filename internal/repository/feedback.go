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

type FeedbackRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewFeedbackRepo(db *pgxpool.Pool, logger *logger.Logger) *FeedbackRepo {
	return &FeedbackRepo{
		db:     db,
		logger: logger.Component("repository/feedback"),
	}
}

func (r *FeedbackRepo) Create(ctx context.Context, fr *domain.FeedbackRequest) error {
	query := `
        INSERT INTO feedback_requests (initiator, requested, issue_number, issue_repository, feedback_comment)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `

	err := r.db.QueryRow(ctx, query,
		fr.Initiator, fr.Requested, fr.IssueNumber, fr.IssueRepository, fr.FeedbackComment,
	).Scan(&fr.ID)
	if err != nil {
		return fmt.Errorf("insert feedback request: %w", err)
	}
	return nil
}

func (r *FeedbackRepo) Get(ctx context.Context, requested int64, issueNumber int, repository int64) (*domain.FeedbackRequest, error) {
	fr := &domain.FeedbackRequest{}
	query := `
        SELECT id, initiator, requested, issue_number, issue_repository, feedback_comment
        FROM feedback_requests
        WHERE requested = $1 AND issue_number = $2 AND issue_repository = $3
    `

	err := r.db.QueryRow(ctx, query, requested, issueNumber, repository).Scan(
		&fr.ID, &fr.Initiator, &fr.Requested, &fr.IssueNumber,
		&fr.IssueRepository, &fr.FeedbackComment,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFeedbackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query feedback request: %w", err)
	}
	return fr, nil
}

func (r *FeedbackRepo) Satisfy(ctx context.Context, id int64, commentID int64) error {
	query := `UPDATE feedback_requests SET feedback_comment = $1 WHERE id = $2`

	result, err := r.db.Exec(ctx, query, commentID, id)
	if err != nil {
		return fmt.Errorf("satisfy feedback request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrFeedbackNotFound
	}
	return nil
}
