package errors

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyField extracts the column from unique violation detail: "Key (field)=(value) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapDBError maps database errors to AppError instances.
//   - pgx.ErrNoRows, sql.ErrNoRows → NotFound
//   - unique violations → Conflict
//   - foreign key violations → ForeignKey
//   - check / not-null violations → Validation
//   - context deadline / cancellation → Timeout / Canceled
//
// Unrecognized errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Code: ErrCodeTimeout, Message: "database operation timed out", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{Code: ErrCodeCanceled, Message: "database operation canceled", Cause: err}
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return &AppError{Code: ErrCodeNotFound, Message: "resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return &AppError{
			Code:    ErrCodeConflict,
			Message: "record already exists",
			Field:   fieldFromPgError(pgErr),
			Cause:   pgErr,
		}
	case pgerrcode.ForeignKeyViolation:
		return &AppError{
			Code:    ErrCodeForeignKey,
			Message: foreignKeyMessage(pgErr),
			Cause:   pgErr,
		}
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation, pgerrcode.InvalidTextRepresentation:
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "invalid value",
			Field:   pgErr.ColumnName,
			Cause:   pgErr,
		}
	case pgerrcode.QueryCanceled:
		return &AppError{Code: ErrCodeTimeout, Message: "database statement timed out", Cause: pgErr}
	default:
		return &AppError{Code: ErrCodeInternal, Message: "database error", Cause: pgErr}
	}
}

func fieldFromPgError(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return m[1]
	}
	return ""
}

func foreignKeyMessage(pgErr *pgconn.PgError) string {
	switch pgErr.TableName {
	case "inference_jobs", "embeddings":
		return "referenced message does not exist"
	case "messages":
		return "message is still referenced"
	default:
		return "referenced record does not exist"
	}
}
