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

type PullRequestRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewPullRequestRepo(db *pgxpool.Pool, logger *logger.Logger) *PullRequestRepo {
	return &PullRequestRepo{
		db:     db,
		logger: logger.Component("repository/pullrequest"),
	}
}

func (r *PullRequestRepo) Upsert(ctx context.Context, pr *domain.PullRequest) (bool, error) {
	query := `
        INSERT INTO pull_requests (
            id, number, repository, assignee, title, state, body, locked,
            commits, additions, deletions, changed_files,
            created_at, updated_at, closed_at, merged_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        ON CONFLICT (number, repository) DO UPDATE SET
            assignee      = EXCLUDED.assignee,
            title         = EXCLUDED.title,
            state         = EXCLUDED.state,
            body          = EXCLUDED.body,
            locked        = EXCLUDED.locked,
            commits       = EXCLUDED.commits,
            additions     = EXCLUDED.additions,
            deletions     = EXCLUDED.deletions,
            changed_files = EXCLUDED.changed_files,
            created_at    = EXCLUDED.created_at,
            updated_at    = EXCLUDED.updated_at,
            closed_at     = EXCLUDED.closed_at,
            merged_at     = EXCLUDED.merged_at
        RETURNING (xmax = 0) AS inserted
    `

	var inserted bool
	err := r.db.QueryRow(ctx, query,
		pr.ID, pr.Number, pr.Repository, pr.Assignee, pr.Title, pr.State,
		pr.Body, pr.Locked, pr.Commits, pr.Additions, pr.Deletions,
		pr.ChangedFiles, pr.CreatedAt, pr.UpdatedAt, pr.ClosedAt, pr.MergedAt,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert pull request: %w", err)
	}
	return inserted, nil
}

func (r *PullRequestRepo) Get(ctx context.Context, number int, repository int64) (*domain.PullRequest, error) {
	pr := &domain.PullRequest{}
	query := `
        SELECT id, number, repository, assignee, title, state, body, locked,
               commits, additions, deletions, changed_files,
               created_at, updated_at, closed_at, merged_at
        FROM pull_requests
        WHERE number = $1 AND repository = $2
    `

	err := r.db.QueryRow(ctx, query, number, repository).Scan(
		&pr.ID, &pr.Number, &pr.Repository, &pr.Assignee, &pr.Title,
		&pr.State, &pr.Body, &pr.Locked, &pr.Commits, &pr.Additions,
		&pr.Deletions, &pr.ChangedFiles, &pr.CreatedAt, &pr.UpdatedAt,
		&pr.ClosedAt, &pr.MergedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPRNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query pull request: %w", err)
	}
	return pr, nil
}
