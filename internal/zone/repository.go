package zone

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/zone-booking-backend/internal/db"
)

type Repository interface {
	List(ctx context.Context) ([]*Zone, error)
	GetByID(ctx context.Context, id int64) (*Zone, error)
	// CreateIfMissing inserts z unless a zone with the same name exists.
	// It reports whether a row was inserted.
	CreateIfMissing(ctx context.Context, z *Zone) (bool, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func selectZones() squirrel.SelectBuilder {
	return psql.Select("z.id", "z.name", "z.price_per_hour", "z.description", "z.created_at").
		From("public.zones z")
}

func (r *pgxRepository) List(ctx context.Context) ([]*Zone, error) {
	query, args, err := selectZones().OrderBy("z.id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list zones query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list zones failed: %w", err)
	}
	defer rows.Close()

	result := make([]*Zone, 0)
	for rows.Next() {
		var z Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.PricePerHour, &z.Description, &z.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan zone failed: %w", err)
		}
		result = append(result, &z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zones failed: %w", err)
	}
	return result, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id int64) (*Zone, error) {
	return Get(ctx, r.pool, id)
}

// Get loads a zone through q, which may be a pool or a running transaction.
func Get(ctx context.Context, q db.Querier, id int64) (*Zone, error) {
	query, args, err := selectZones().Where(squirrel.Eq{"z.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get zone query failed: %w", err)
	}

	var z Zone
	err = q.QueryRow(ctx, query, args...).
		Scan(&z.ID, &z.Name, &z.PricePerHour, &z.Description, &z.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get zone failed: %w", err)
	}
	return &z, nil
}

func (r *pgxRepository) CreateIfMissing(ctx context.Context, z *Zone) (bool, error) {
	query, args, err := psql.Insert("public.zones").
		Columns("name", "price_per_hour", "description").
		Values(z.Name, z.PricePerHour, z.Description).
		Suffix("ON CONFLICT (name) DO NOTHING RETURNING id, created_at").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build create zone query failed: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&z.ID, &z.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create zone failed: %w", err)
	}
	return true, nil
}
