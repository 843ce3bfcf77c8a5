package base

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Freeeeeet/attendance_tracker/internal/apperr"
)

const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
	sqlStateCheckViolation      = "23514"
	sqlStateSerialization       = "40001"
	sqlStateDeadlock            = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsUniqueViolation(err error) bool {
	return pgCode(err) == sqlStateUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == sqlStateForeignKeyViolation
}

// IsTransient reports failures where the statement never reached the server
// or the server asked for a retry.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch pgCode(err) {
	case sqlStateSerialization, sqlStateDeadlock:
		return true
	}
	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}

// Classify maps driver errors onto the apperr taxonomy. Errors already
// classified, and errors it does not recognise, are returned unchanged.
func Classify(err error) error {
	if err == nil || apperr.KindOf(err) != "" {
		return err
	}
	switch pgCode(err) {
	case sqlStateUniqueViolation:
		return &apperr.Error{Kind: apperr.KindConflict, Reason: apperr.ReasonDuplicate, Message: "already exists", Err: err}
	case sqlStateForeignKeyViolation:
		return &apperr.Error{Kind: apperr.KindNotFound, Reason: apperr.ReasonNotFound, Message: "referenced row does not exist", Err: err}
	case sqlStateCheckViolation:
		return &apperr.Error{Kind: apperr.KindInvalidInput, Message: "value rejected by constraint", Err: err}
	}
	if IsTransient(err) {
		return apperr.Transient(err)
	}
	return err
}

// RetryRead runs a read once more when the first attempt failed transiently.
// Writes must not go through here.
func RetryRead(ctx context.Context, fn func(ctx context.Context) error) error {
	err := Classify(fn(ctx))
	if !apperr.Is(err, apperr.KindTransient) || ctx.Err() != nil {
		return err
	}
	return Classify(fn(ctx))
}
