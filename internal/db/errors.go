package db

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nekogravitycat/zone-booking-backend/internal/pkg/apperror"
)

// ErrUnavailable reports a timeout or connection failure. No partial write
// is left behind, so the whole request is safe to retry.
var ErrUnavailable = apperror.New(http.StatusInternalServerError, "Service temporarily unavailable, please retry")

// Classify maps store failures onto the application error taxonomy.
// AppErrors pass through unchanged; timeouts and connection failures become
// ErrUnavailable; anything else is returned as is.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if IsTransient(err) {
		return apperror.Wrap(err, ErrUnavailable.Code, ErrUnavailable.Message)
	}
	return err
}

// IsTransient reports whether err is a timeout or a connection failure.
func IsTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsConnectionException(pgErr.Code) || pgErr.Code == pgerrcode.QueryCanceled
	}
	return false
}

// IsUniqueViolation reports whether err violates the named unique constraint.
func IsUniqueViolation(err error, constraint string) bool {
	return isViolation(err, pgerrcode.UniqueViolation, constraint)
}

// IsForeignKeyViolation reports whether err violates the named foreign key.
func IsForeignKeyViolation(err error, constraint string) bool {
	return isViolation(err, pgerrcode.ForeignKeyViolation, constraint)
}

func isViolation(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
