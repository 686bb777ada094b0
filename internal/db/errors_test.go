package db

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/nekogravitycat/zone-booking-backend/internal/pkg/apperror"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))

	timeout := fmt.Errorf("query failed: %w", context.DeadlineExceeded)
	got := Classify(timeout)
	assert.ErrorIs(t, got, ErrUnavailable)
	assert.ErrorIs(t, got, context.DeadlineExceeded)
	assert.Equal(t, http.StatusInternalServerError, apperror.StatusOf(got))

	conflict := apperror.New(http.StatusConflict, "taken")
	assert.Same(t, conflict, Classify(conflict))

	plain := errors.New("boom")
	assert.Same(t, plain, Classify(plain))
}

func TestViolationHelpers(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "bookings_active_slot_key"})
	assert.True(t, IsUniqueViolation(err, "bookings_active_slot_key"))
	assert.True(t, IsUniqueViolation(err, ""))
	assert.False(t, IsUniqueViolation(err, "users_phone_key"))
	assert.False(t, IsForeignKeyViolation(err, ""))

	fk := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "bookings_zone_id_fkey"}
	assert.True(t, IsForeignKeyViolation(fk, "bookings_zone_id_fkey"))

	assert.True(t, IsTransient(&pgconn.PgError{Code: pgerrcode.ConnectionFailure}))
	assert.False(t, IsTransient(errors.New("syntax")))
}
