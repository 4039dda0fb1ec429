package domain

import (
	"errors"
	"testing"
)

func TestQueryError_UnwrapsToInvalidRequest(t *testing.T) {
	err := NewQueryError("failed to parse query [status:(]")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatal("QueryError should unwrap to ErrInvalidRequest")
	}

	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatal("errors.As should find *QueryError")
	}
	if qe.Reason != "failed to parse query [status:(]" {
		t.Errorf("reason = %q", qe.Reason)
	}
	if err.Error() != "invalid request: failed to parse query [status:(]" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestInvalidf(t *testing.T) {
	err := Invalidf("limit must be between 1 and %d", 100)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatal("expected ErrInvalidRequest")
	}
	if err.Error() != "invalid request: limit must be between 1 and 100" {
		t.Errorf("message = %q", err.Error())
	}
}
