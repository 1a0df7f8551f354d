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

type ConcernRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewConcernRepo(db *pgxpool.Pool, logger *logger.Logger) *ConcernRepo {
	return &ConcernRepo{
		db:     db,
		logger: logger.Component("repository/concern"),
	}
}

func (r *ConcernRepo) Create(ctx context.Context, c *domain.Concern) error {
	query := `
        INSERT INTO concerns (proposal, initiator, name, initiating_comment, resolved_comment)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `

	err := r.db.QueryRow(ctx, query,
		c.Proposal, c.Initiator, c.Name, c.InitiatingComment, c.ResolvedComment,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert concern: %w", err)
	}
	return nil
}

func (r *ConcernRepo) GetByName(ctx context.Context, proposalID int64, name string) (*domain.Concern, error) {
	c := &domain.Concern{}
	query := `
        SELECT id, proposal, initiator, name, initiating_comment, resolved_comment
        FROM concerns
        WHERE proposal = $1 AND name = $2
    `

	err := r.db.QueryRow(ctx, query, proposalID, name).Scan(
		&c.ID, &c.Proposal, &c.Initiator, &c.Name,
		&c.InitiatingComment, &c.ResolvedComment,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrConcernNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query concern: %w", err)
	}
	return c, nil
}

func (r *ConcernRepo) Resolve(ctx context.Context, id int64, commentID int64) error {
	query := `UPDATE concerns SET resolved_comment = $1 WHERE id = $2`

	result, err := r.db.Exec(ctx, query, commentID, id)
	if err != nil {
		return fmt.Errorf("resolve concern: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConcernNotFound
	}
	return nil
}

func (r *ConcernRepo) ListByProposal(ctx context.Context, proposalID int64) ([]*domain.Concern, error) {
	query := `
        SELECT id, proposal, initiator, name, initiating_comment, resolved_comment
        FROM concerns
        WHERE proposal = $1
        ORDER BY name
    `

	rows, err := r.db.Query(ctx, query, proposalID)
	if err != nil {
		return nil, fmt.Errorf("query concerns: %w", err)
	}
	defer rows.Close()

	concerns := []*domain.Concern{}
	for rows.Next() {
		c := &domain.Concern{}
		err := rows.Scan(&c.ID, &c.Proposal, &c.Initiator, &c.Name,
			&c.InitiatingComment, &c.ResolvedComment)
		if err != nil {
			return nil, fmt.Errorf("scan concern: %w", err)
		}
		concerns = append(concerns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate concerns: %w", err)
	}
	return concerns, nil
}
