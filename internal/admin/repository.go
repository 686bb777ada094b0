package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	// Upsert creates the admin or replaces the password of an existing one.
	Upsert(ctx context.Context, a *Admin) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func (r *pgxRepository) GetByEmail(ctx context.Context, email string) (*Admin, error) {
	query, args, err := psql.Select("id", "email", "password_hash", "created_at").
		From("public.admins").
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get admin query failed: %w", err)
	}

	var a Admin
	err = r.pool.QueryRow(ctx, query, args...).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin failed: %w", err)
	}
	return &a, nil
}

func (r *pgxRepository) Upsert(ctx context.Context, a *Admin) error {
	query, args, err := psql.Insert("public.admins").
		Columns("email", "password_hash").
		Values(a.Email, a.PasswordHash).
		Suffix("ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert admin query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("upsert admin failed: %w", err)
	}
	return nil
}
