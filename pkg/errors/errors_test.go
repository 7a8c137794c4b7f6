package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := New("PUSH_FAILED", "failed", 502).WithInternal(internal)

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalStillMatchesSentinel(t *testing.T) {
	cause := stdErrors.New("smtp timeout")
	err := ErrUpstream.WithInternal(cause)

	if err == ErrUpstream {
		t.Fatal("expected WithInternal to return a copy")
	}
	if ErrUpstream.Internal != nil {
		t.Fatal("expected sentinel to remain unchanged")
	}
	if !stdErrors.Is(err, ErrUpstream) {
		t.Fatal("expected copy to match its sentinel")
	}
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected copy to unwrap to its cause")
	}

	wrapped := fmt.Errorf("send report: %w", err)
	if !stdErrors.Is(wrapped, ErrUpstream) {
		t.Fatal("expected wrapped copy to match sentinel")
	}
	if stdErrors.Is(wrapped, ErrInternalServer) {
		t.Fatal("expected different codes not to match")
	}
}

func TestWithDetails(t *testing.T) {
	details := []string{"email", "password"}
	err := ErrValidation.WithDetails(details)

	if ErrValidation.Details != nil {
		t.Fatal("expected sentinel details to remain unset")
	}
	if got, ok := err.Details.([]string); !ok || len(got) != 2 {
		t.Fatalf("unexpected details: %#v", err.Details)
	}
	if !stdErrors.Is(err, ErrValidation) {
		t.Fatal("expected copy to match sentinel")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}

	nested := fmt.Errorf("redeem: %w", ErrDuplicateAccount)
	if out := FromError(nested); out.Code != ErrDuplicateAccount.Code {
		t.Fatalf("expected duplicate account code, got %s", out.Code)
	}
}

func TestNilAppError(t *testing.T) {
	var err *AppError
	if err.WithMessage("x") != nil || err.Error() != "<nil>" || err.Is(ErrNotFound) {
		t.Fatal("expected nil receiver to stay nil")
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected %s, got %s", ErrBadRequest.Code, err.Code)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrBadRequest.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}
