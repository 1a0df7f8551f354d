package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rfcbot/rfcbot/internal/domain"
	"github.com/rfcbot/rfcbot/internal/pkg/logger"
)

type ReviewRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewReviewRepo(db *pgxpool.Pool, logger *logger.Logger) *ReviewRepo {
	return &ReviewRepo{
		db:     db,
		logger: logger.Component("repository/review"),
	}
}

// CreateBatch persists review requests for a fresh proposal. Uses a
// transaction so a proposal never ends up with a partial reviewer list.
func (r *ReviewRepo) CreateBatch(ctx context.Context, requests []*domain.ReviewRequest) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		for _, req := range requests {
			err := tx.QueryRow(ctx, `
                INSERT INTO review_requests (proposal, reviewer, reviewed)
                VALUES ($1, $2, $3)
                RETURNING id
            `, req.Proposal, req.Reviewer, req.Reviewed).Scan(&req.ID)
			if err != nil {
				return fmt.Errorf("insert review request for %d: %w", req.Reviewer, err)
			}
		}
		return nil
	})
}

// SetReviewed is monotonic: it only ever turns the flag on, and silently
// does nothing when no matching row exists.
func (r *ReviewRepo) SetReviewed(ctx context.Context, proposalID, reviewerID int64) error {
	query := `
        UPDATE review_requests
        SET reviewed = TRUE
        WHERE proposal = $1 AND reviewer = $2
    `

	if _, err := r.db.Exec(ctx, query, proposalID, reviewerID); err != nil {
		return fmt.Errorf("set reviewed: %w", err)
	}
	return nil
}

func (r *ReviewRepo) ListStatuses(ctx context.Context, proposalID int64) ([]domain.ReviewerStatus, error) {
	query := `
        SELECT u.id, u.login, rr.reviewed
        FROM review_requests rr
        INNER JOIN users u ON u.id = rr.reviewer
        WHERE rr.proposal = $1
        ORDER BY u.login
    `

	rows, err := r.db.Query(ctx, query, proposalID)
	if err != nil {
		return nil, fmt.Errorf("query review statuses: %w", err)
	}
	defer rows.Close()

	statuses := []domain.ReviewerStatus{}
	for rows.Next() {
		var s domain.ReviewerStatus
		if err := rows.Scan(&s.UserID, &s.Login, &s.Reviewed); err != nil {
			return nil, fmt.Errorf("scan review status: %w", err)
		}
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review statuses: %w", err)
	}
	return statuses, nil
}

func (r *ReviewRepo) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				r.logger.Error("failed to rollback transaction",
					"error", rbErr,
					"original_error", err,
				)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
