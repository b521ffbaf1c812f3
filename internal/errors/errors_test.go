package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(cause, ErrCodeInternal, "store message")

	assert.Equal(t, "store message: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
		code ErrorCode
	}{
		{"unauthorized", Unauthorized("missing bearer"), IsUnauthorized, ErrCodeUnauthorized},
		{"validation", Validation("content is required"), IsValidation, ErrCodeValidation},
		{"not found", NotFoundf("message %s not found", "m1"), IsNotFound, ErrCodeNotFound},
		{"internal", Internal("boom"), IsInternal, ErrCodeInternal},
		{"timeout", Timeout("inference exceeded 30s"), IsTimeout, ErrCodeTimeout},
		{"wrapped twice", fmt.Errorf("enqueue: %w", Timeout("slow")), IsTimeout, ErrCodeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.is(tt.err))
			assert.Equal(t, tt.code, GetCode(tt.err))
		})
	}

	assert.Empty(t, GetCode(errors.New("plain")))
	assert.Equal(t, "content", GetField(ValidationField("content", "required")))
}

func TestMapDBError(t *testing.T) {
	tests := []struct {
		name      string
		in        error
		wantCode  ErrorCode
		wantField string
	}{
		{name: "deadline", in: context.DeadlineExceeded, wantCode: ErrCodeTimeout},
		{name: "canceled", in: fmt.Errorf("query: %w", context.Canceled), wantCode: ErrCodeCanceled},
		{name: "pgx no rows", in: pgx.ErrNoRows, wantCode: ErrCodeNotFound},
		{name: "sql no rows", in: sql.ErrNoRows, wantCode: ErrCodeNotFound},
		{
			name: "unique violation parses detail",
			in: &pgconn.PgError{
				Code:   pgerrcode.UniqueViolation,
				Detail: "Key (message_id)=(abc) already exists.",
			},
			wantCode:  ErrCodeConflict,
			wantField: "message_id",
		},
		{
			name:     "foreign key",
			in:       &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, TableName: "inference_jobs"},
			wantCode: ErrCodeForeignKey,
		},
		{
			name:      "not null",
			in:        &pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "content"},
			wantCode:  ErrCodeValidation,
			wantField: "content",
		},
		{
			name:     "bad uuid text",
			in:       &pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation},
			wantCode: ErrCodeValidation,
		},
		{
			name:     "other pg error",
			in:       &pgconn.PgError{Code: pgerrcode.DiskFull},
			wantCode: ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapDBError(tt.in)
			require.Error(t, got)
			assert.Equal(t, tt.wantCode, GetCode(got))
			assert.Equal(t, tt.wantField, GetField(got))
			assert.ErrorIs(t, got, tt.in)
		})
	}

	plain := errors.New("not a db error")
	assert.Same(t, plain, MapDBError(plain))
	assert.NoError(t, MapDBError(nil))
}
