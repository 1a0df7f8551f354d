package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rfcbot/rfcbot/internal/domain"
	"github.com/rfcbot/rfcbot/internal/pkg/logger"
)

type ProposalRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewProposalRepo(db *pgxpool.Pool, logger *logger.Logger) *ProposalRepo {
	return &ProposalRepo{
		db:     db,
		logger: logger.Component("repository/proposal"),
	}
}

const proposalColumns = `
    id, issue_number, issue_repository, initiator, initiating_comment,
    tracking_comment, disposition, fcp_start, closed
`

func (r *ProposalRepo) Create(ctx context.Context, p *domain.Proposal) error {
	query := `
        INSERT INTO proposals (
            issue_number, issue_repository, initiator, initiating_comment,
            tracking_comment, disposition, fcp_start, closed
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `

	err := r.db.QueryRow(ctx, query,
		p.IssueNumber, p.IssueRepository, p.Initiator, p.InitiatingComment,
		p.TrackingComment, p.Disposition, p.Start, p.Closed,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}
	return nil
}

// GetByIssue returns the issue's proposal regardless of state. A closed
// proposal still blocks a new one: finalized dispositions are history,
// not something to redo.
func (r *ProposalRepo) GetByIssue(ctx context.Context, number int, repository int64) (*domain.Proposal, error) {
	query := `SELECT ` + proposalColumns + `
        FROM proposals
        WHERE issue_number = $1 AND issue_repository = $2
    `

	p, err := scanProposal(r.db.QueryRow(ctx, query, number, repository))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProposalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query proposal: %w", err)
	}
	return p, nil
}

func (r *ProposalRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM proposals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrProposalNotFound
	}
	return nil
}

func (r *ProposalRepo) SetStart(ctx context.Context, id int64, start *time.Time) error {
	result, err := r.db.Exec(ctx, `UPDATE proposals SET fcp_start = $1 WHERE id = $2`, start, id)
	if err != nil {
		return fmt.Errorf("set proposal start: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrProposalNotFound
	}
	return nil
}

func (r *ProposalRepo) SetClosed(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `UPDATE proposals SET closed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("set proposal closed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrProposalNotFound
	}
	return nil
}

func (r *ProposalRepo) ListPending(ctx context.Context) ([]*domain.Proposal, error) {
	query := `SELECT ` + proposalColumns + `
        FROM proposals
        WHERE fcp_start IS NULL AND NOT closed
        ORDER BY id
    `
	return r.list(ctx, query)
}

func (r *ProposalRepo) ListExpired(ctx context.Context, before time.Time) ([]*domain.Proposal, error) {
	query := `SELECT ` + proposalColumns + `
        FROM proposals
        WHERE fcp_start IS NOT NULL AND fcp_start < $1 AND NOT closed
        ORDER BY id
    `
	return r.list(ctx, query, before)
}

func (r *ProposalRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Proposal, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}
	defer rows.Close()

	proposals := []*domain.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proposals: %w", err)
	}
	return proposals, nil
}

func scanProposal(row pgx.Row) (*domain.Proposal, error) {
	p := &domain.Proposal{}
	err := row.Scan(
		&p.ID, &p.IssueNumber, &p.IssueRepository, &p.Initiator,
		&p.InitiatingComment, &p.TrackingComment, &p.Disposition,
		&p.Start, &p.Closed,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
