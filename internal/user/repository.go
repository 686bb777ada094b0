package user

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/nekogravitycat/zone-booking-backend/internal/db"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// UpsertByPhone inserts u or, when the phone is already known, replaces the
// stored name and (only when u.Email is set) the stored email. u is updated
// in place with the persisted row.
func UpsertByPhone(ctx context.Context, q db.Querier, u *User) error {
	if !ValidPhone(u.Phone) {
		return ErrInvalidPhone
	}

	query, args, err := psql.Insert("public.users").
		Columns("name", "phone", "email").
		Values(u.Name, u.Phone, u.Email).
		Suffix(`ON CONFLICT ON CONSTRAINT users_phone_key DO UPDATE
			SET name = EXCLUDED.name,
				email = COALESCE(EXCLUDED.email, users.email),
				updated_at = now()
			RETURNING id, name, phone, email, created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert user query failed: %w", err)
	}

	err = q.QueryRow(ctx, query, args...).
		Scan(&u.ID, &u.Name, &u.Phone, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert user failed: %w", err)
	}
	return nil
}
