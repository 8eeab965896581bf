package apperror

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMapErrorToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("user not found: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("start: %w", ErrConflict), http.StatusConflict},
		{fmt.Errorf("claim: %w", ErrInvalidState), http.StatusConflict},
		{ErrRetryLimitExceeded, http.StatusConflict},
		{fmt.Errorf("points: %w", ErrValidation), http.StatusBadRequest},
		{ErrDependencyUnavailable, http.StatusServiceUnavailable},
		{New(http.StatusTeapot, "teapot", nil), http.StatusTeapot},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := MapErrorToStatus(tc.err); got != tc.want {
			t.Fatalf("MapErrorToStatus(%v)=%d want %d", tc.err, got, tc.want)
		}
	}
}

func TestKind(t *testing.T) {
	if got := Kind(fmt.Errorf("x: %w", ErrInvalidState)); got != "invalid_state" {
		t.Fatalf("got %q", got)
	}
	if got := Kind(errors.New("x")); got != "internal" {
		t.Fatalf("got %q", got)
	}
}

func TestFromStorage(t *testing.T) {
	if FromStorage(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	if err := FromStorage(driver.ErrBadConn); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("bad conn should map to dependency unavailable, got %v", err)
	}
	if err := FromStorage(context.DeadlineExceeded); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("deadline should map to dependency unavailable, got %v", err)
	}
	plain := errors.New("constraint")
	if err := FromStorage(plain); err != plain {
		t.Fatalf("plain error should pass through, got %v", err)
	}
}
