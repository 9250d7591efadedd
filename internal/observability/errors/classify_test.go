package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"testing"

	apperrors "github.com/greenhands/greenhands-shell/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "app error", err: apperrors.NotFound("x"), want: "not_found"},
		{name: "wrapped app error", err: fmt.Errorf("load: %w", apperrors.Unauthorized("no")), want: "unauthorized"},
		{name: "plain", err: goerrors.New("boom"), want: "errors_errorstring"},
		{name: "deadline", err: fmt.Errorf("x: %w", context.DeadlineExceeded), want: "context_deadlineexceedederror"},
		{name: "op error", err: &net.OpError{Op: "dial", Err: goerrors.New("refused")}, want: "errors_errorstring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
