package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/zone-booking-backend/internal/db"
	"github.com/nekogravitycat/zone-booking-backend/internal/timeslot"
	"github.com/nekogravitycat/zone-booking-backend/internal/user"
	"github.com/nekogravitycat/zone-booking-backend/internal/zone"
)

const (
	activeSlotConstraint = "bookings_active_slot_key"
	zoneFKConstraint     = "bookings_zone_id_fkey"
)

type Repository interface {
	// CreateWithCustomer upserts the customer by phone and inserts b in one
	// transaction. A live booking on the same zone, date and start yields
	// ErrSlotTaken and nothing is written.
	CreateWithCustomer(ctx context.Context, b *Booking, customer *user.User) error
	GetByID(ctx context.Context, id int64) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, error)

	// BookedSlots returns the windows held by non-cancelled bookings.
	BookedSlots(ctx context.Context, zoneID int64, date timeslot.DateKey) ([]timeslot.Slot, error)

	// LeaseConfirmation and LeaseReminder reserve delivery for the caller
	// while the matching flag is still false and no lease newer than
	// staleBefore exists. They report whether the lease was taken.
	LeaseConfirmation(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error)
	LeaseReminder(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error)

	// MarkConfirmationSent and MarkReminderSent flip their flag only if it
	// is still false and report whether this call changed it.
	MarkConfirmationSent(ctx context.Context, id int64) (bool, error)
	MarkReminderSent(ctx context.Context, id int64) (bool, error)

	// ListReminderCandidates returns confirmed, unreminded bookings dated
	// within [from, to] that have no claim newer than staleBefore.
	ListReminderCandidates(ctx context.Context, from, to timeslot.DateKey, staleBefore time.Time) ([]*Booking, error)
	// ClaimReminder records that a reminder was queued at now. It fails to
	// claim when another claim newer than staleBefore exists.
	ClaimReminder(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error)
	ReleaseReminder(ctx context.Context, id int64) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func selectBookings() squirrel.SelectBuilder {
	return psql.Select(
		"b.id", "b.user_id", "b.zone_id", "b.date", "b.start_time", "b.end_time", "b.status",
		"b.reminder_sent", "b.confirmation_sent", "b.created_at", "b.updated_at",
		"u.id", "u.name", "u.phone", "u.email",
		"z.id", "z.name", "z.price_per_hour", "z.description", "z.created_at",
	).
		From("public.bookings b").
		LeftJoin("public.users u ON b.user_id = u.id").
		Join("public.zones z ON b.zone_id = z.id")
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b         Booking
		date      time.Time
		userID    *int64
		userName  *string
		userPhone *string
		userEmail *string
		z         zone.Zone
	)
	if err := row.Scan(
		&b.ID, &b.UserID, &b.ZoneID, &date, &b.StartTime, &b.EndTime, &b.Status,
		&b.ReminderSent, &b.ConfirmationSent, &b.CreatedAt, &b.UpdatedAt,
		&userID, &userName, &userPhone, &userEmail,
		&z.ID, &z.Name, &z.PricePerHour, &z.Description, &z.CreatedAt,
	); err != nil {
		return nil, err
	}

	b.Date = timeslot.FromStorage(date)
	b.Zone = &z
	if userID != nil {
		b.User = &user.User{ID: *userID, Email: userEmail}
		if userName != nil {
			b.User.Name = *userName
		}
		if userPhone != nil {
			b.User.Phone = *userPhone
		}
	}
	return &b, nil
}

func (r *pgxRepository) CreateWithCustomer(ctx context.Context, b *Booking, customer *user.User) error {
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		z, err := zone.Get(ctx, tx, b.ZoneID)
		if err != nil {
			return err
		}

		if err := user.UpsertByPhone(ctx, tx, customer); err != nil {
			return err
		}

		query, args, err := psql.Insert("public.bookings").
			Columns("user_id", "zone_id", "date", "start_time", "end_time", "status").
			Values(customer.ID, b.ZoneID, b.Date.Time(), b.StartTime, b.EndTime, b.Status).
			Suffix("RETURNING id, reminder_sent, confirmation_sent, created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build create booking query failed: %w", err)
		}

		if err := tx.QueryRow(ctx, query, args...).
			Scan(&b.ID, &b.ReminderSent, &b.ConfirmationSent, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return fmt.Errorf("create booking failed: %w", err)
		}

		b.UserID = customer.ID
		b.User = customer
		b.Zone = z
		return nil
	})

	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, activeSlotConstraint):
		return ErrSlotTaken
	case errors.Is(err, zone.ErrNotFound), db.IsForeignKeyViolation(err, zoneFKConstraint):
		return ErrZoneNotFound
	case errors.Is(err, user.ErrInvalidPhone):
		return ErrInvalidPhone
	default:
		return err
	}
}

func (r *pgxRepository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	query, args, err := selectBookings().Where(squirrel.Eq{"b.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, error) {
	query := selectBookings()

	if filter.Date != nil {
		query = query.Where(squirrel.Eq{"b.date": filter.Date.Time()})
	}
	if filter.ZoneID > 0 {
		query = query.Where(squirrel.Eq{"b.zone_id": filter.ZoneID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}

	sql, args, err := query.OrderBy("b.start_time ASC", "b.date ASC", "b.id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list bookings query failed: %w", err)
	}

	return r.queryBookings(ctx, "list bookings", sql, args)
}

func (r *pgxRepository) queryBookings(ctx context.Context, op, sql string, args []any) ([]*Booking, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	defer rows.Close()

	result := make([]*Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	return result, nil
}

func (r *pgxRepository) BookedSlots(ctx context.Context, zoneID int64, date timeslot.DateKey) ([]timeslot.Slot, error) {
	query, args, err := psql.Select("start_time", "end_time").
		From("public.bookings").
		Where(squirrel.Eq{"zone_id": zoneID, "date": date.Time()}).
		Where(squirrel.NotEq{"status": StatusCancelled}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build booked slots query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list booked slots failed: %w", err)
	}
	slots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (timeslot.Slot, error) {
		var s timeslot.Slot
		err := row.Scan(&s.StartTime, &s.EndTime)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("list booked slots failed: %w", err)
	}
	return slots, nil
}

func (r *pgxRepository) LeaseConfirmation(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	return r.lease(ctx, id, "confirmation_sent", "confirmation_sending_at", now, staleBefore)
}

func (r *pgxRepository) LeaseReminder(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	return r.lease(ctx, id, "reminder_sent", "reminder_sending_at", now, staleBefore)
}

func (r *pgxRepository) lease(ctx context.Context, id int64, flag, column string, now, staleBefore time.Time) (bool, error) {
	query, args, err := psql.Update("public.bookings").
		Set(column, now).
		Where(squirrel.Eq{"id": id, flag: false}).
		Where(unclaimed(column, staleBefore)).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build lease %s query failed: %w", column, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("lease %s failed: %w", column, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgxRepository) MarkConfirmationSent(ctx context.Context, id int64) (bool, error) {
	return r.flipFlag(ctx, id, "confirmation_sent")
}

func (r *pgxRepository) MarkReminderSent(ctx context.Context, id int64) (bool, error) {
	return r.flipFlag(ctx, id, "reminder_sent")
}

func (r *pgxRepository) flipFlag(ctx context.Context, id int64, column string) (bool, error) {
	query, args, err := psql.Update("public.bookings").
		Set(column, true).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, column: false}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build update %s query failed: %w", column, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update %s failed: %w", column, err)
	}
	return tag.RowsAffected() == 1, nil
}

func unclaimed(column string, staleBefore time.Time) squirrel.Sqlizer {
	return squirrel.Or{
		squirrel.Eq{column: nil},
		squirrel.Lt{column: staleBefore},
	}
}

func (r *pgxRepository) ListReminderCandidates(ctx context.Context, from, to timeslot.DateKey, staleBefore time.Time) ([]*Booking, error) {
	sql, args, err := selectBookings().
		Where(squirrel.Eq{"b.status": StatusConfirmed, "b.reminder_sent": false}).
		Where(squirrel.GtOrEq{"b.date": from.Time()}).
		Where(squirrel.LtOrEq{"b.date": to.Time()}).
		Where(unclaimed("b.reminder_queued_at", staleBefore)).
		OrderBy("b.date ASC", "b.start_time ASC", "b.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reminder candidates query failed: %w", err)
	}
	return r.queryBookings(ctx, "list reminder candidates", sql, args)
}

func (r *pgxRepository) ClaimReminder(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	query, args, err := psql.Update("public.bookings").
		Set("reminder_queued_at", now).
		Where(squirrel.Eq{"id": id, "reminder_sent": false}).
		Where(unclaimed("reminder_queued_at", staleBefore)).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build claim reminder query failed: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("claim reminder failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgxRepository) ReleaseReminder(ctx context.Context, id int64) error {
	query, args, err := psql.Update("public.bookings").
		Set("reminder_queued_at", nil).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build release reminder query failed: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("release reminder failed: %w", err)
	}
	return nil
}
