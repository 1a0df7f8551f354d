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

type UserRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewUserRepo(db *pgxpool.Pool, logger *logger.Logger) *UserRepo {
	return &UserRepo{
		db:     db,
		logger: logger.Component("repository/user"),
	}
}

func (r *UserRepo) Upsert(ctx context.Context, user *domain.User) error {
	query := `
        INSERT INTO users (id, login)
        VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET login = EXCLUDED.login
    `

	if _, err := r.db.Exec(ctx, query, user.ID, user.Login); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user := &domain.User{}
	query := `SELECT id, login FROM users WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.Login)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

func (r *UserRepo) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	user := &domain.User{}
	query := `SELECT id, login FROM users WHERE login = $1`

	err := r.db.QueryRow(ctx, query, login).Scan(&user.ID, &user.Login)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user by login: %w", err)
	}
	return user, nil
}
