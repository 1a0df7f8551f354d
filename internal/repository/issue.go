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

type IssueRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewIssueRepo(db *pgxpool.Pool, logger *logger.Logger) *IssueRepo {
	return &IssueRepo{
		db:     db,
		logger: logger.Component("repository/issue"),
	}
}

func (r *IssueRepo) Upsert(ctx context.Context, issue *domain.Issue) error {
	query := `
        INSERT INTO issues (
            number, repository, author, assignee, open, is_pull_request,
            title, body, locked, labels, created_at, updated_at, closed_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        ON CONFLICT (number, repository) DO UPDATE SET
            author          = EXCLUDED.author,
            assignee        = EXCLUDED.assignee,
            open            = EXCLUDED.open,
            is_pull_request = EXCLUDED.is_pull_request,
            title           = EXCLUDED.title,
            body            = EXCLUDED.body,
            locked          = EXCLUDED.locked,
            labels          = EXCLUDED.labels,
            created_at      = EXCLUDED.created_at,
            updated_at      = EXCLUDED.updated_at,
            closed_at       = EXCLUDED.closed_at
    `

	_, err := r.db.Exec(ctx, query,
		issue.Number, issue.Repository, issue.User, issue.Assignee,
		issue.Open, issue.PullRequest, issue.Title, issue.Body,
		issue.Locked, issue.Labels, issue.CreatedAt, issue.UpdatedAt,
		issue.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert issue: %w", err)
	}
	return nil
}

func (r *IssueRepo) Get(ctx context.Context, number int, repository int64) (*domain.Issue, error) {
	issue := &domain.Issue{}
	query := `
        SELECT number, repository, author, assignee, open, is_pull_request,
               title, body, locked, labels, created_at, updated_at, closed_at
        FROM issues
        WHERE number = $1 AND repository = $2
    `

	err := r.db.QueryRow(ctx, query, number, repository).Scan(
		&issue.Number, &issue.Repository, &issue.User, &issue.Assignee,
		&issue.Open, &issue.PullRequest, &issue.Title, &issue.Body,
		&issue.Locked, &issue.Labels, &issue.CreatedAt, &issue.UpdatedAt,
		&issue.ClosedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrIssueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query issue: %w", err)
	}
	return issue, nil
}
