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

type SyncRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewSyncRepo(db *pgxpool.Pool, logger *logger.Logger) *SyncRepo {
	return &SyncRepo{
		db:     db,
		logger: logger.Component("repository/sync"),
	}
}

func (r *SyncRepo) Record(ctx context.Context, record *domain.SyncRecord) error {
	query := `
        INSERT INTO platform_sync (successful, ran_at, message)
        VALUES ($1, $2, $3)
        RETURNING id
    `

	err := r.db.QueryRow(ctx, query, record.Successful, record.RanAt, record.Message).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("insert sync record: %w", err)
	}
	return nil
}

func (r *SyncRepo) LastSuccessful(ctx context.Context) (*time.Time, error) {
	query := `
        SELECT ran_at
        FROM platform_sync
        WHERE successful
        ORDER BY ran_at DESC
        LIMIT 1
    `

	var ranAt time.Time
	err := r.db.QueryRow(ctx, query).Scan(&ranAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last sync: %w", err)
	}
	return &ranAt, nil
}
