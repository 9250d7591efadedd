package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapDBError_NilError(t *testing.T) {
	if err := MapDBError(nil); err != nil {
		t.Errorf("MapDBError(nil) = %v, want nil", err)
	}
}

func TestMapDBError_Codes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{name: "deadline exceeded", err: context.DeadlineExceeded, wantCode: ErrCodeTimeout},
		{name: "canceled", err: context.Canceled, wantCode: ErrCodeCanceled},
		{name: "no rows", err: fmt.Errorf("scan: %w", pgx.ErrNoRows), wantCode: ErrCodeNotFound},
		{name: "unique", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, wantCode: ErrCodeConflict},
		{name: "check", err: &pgconn.PgError{Code: pgerrcode.CheckViolation}, wantCode: ErrCodeValidation},
		{name: "not null", err: &pgconn.PgError{Code: pgerrcode.NotNullViolation}, wantCode: ErrCodeValidation},
		{name: "bad uuid", err: &pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation}, wantCode: ErrCodeValidation},
		{name: "serialization", err: &pgconn.PgError{Code: pgerrcode.SerializationFailure}, wantCode: ErrCodeConflict},
		{name: "other pg", err: &pgconn.PgError{Code: pgerrcode.DiskFull}, wantCode: ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapDBError(tt.err)
			if code := GetCode(got); code != tt.wantCode {
				t.Errorf("MapDBError() code = %v, want %v", code, tt.wantCode)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("mapped error must wrap the original")
			}
		})
	}
}

func TestMapDBError_UniqueFieldFromDetail(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:   pgerrcode.UniqueViolation,
		Detail: "Key (phone)=(+33600000000) already exists.",
	}
	var appErr *AppError
	if !errors.As(MapDBError(pgErr), &appErr) {
		t.Fatalf("expected AppError")
	}
	if appErr.Field != "phone" {
		t.Errorf("Field = %q, want phone", appErr.Field)
	}
}

func TestMapDBError_Unrecognized(t *testing.T) {
	plain := errors.New("something else")
	if got := MapDBError(plain); !errors.Is(got, plain) || GetCode(got) != "" {
		t.Errorf("unrecognized errors must pass through, got %v", got)
	}
}
