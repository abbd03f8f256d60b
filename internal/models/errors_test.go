package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{
		Param:    "productType",
		Location: LocationQuery,
		Reason:   "value not allowed",
		Value:    "toaster",
		Allowed:  []string{"wireless", "switch"},
	}

	msg := err.Error()
	for _, want := range []string{"productType", "(query)", "toaster", "wireless, switch"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected %q in %q", want, msg)
		}
	}
}

func TestNotFoundErrorCandidates(t *testing.T) {
	err := &NotFoundError{Kind: "operation", Name: "getOrg", Candidates: []string{"getOrganization", "getOrganizations"}}
	if !strings.Contains(err.Error(), "did you mean: getOrganization, getOrganizations") {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestExecutionErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := fmt.Errorf("wrapped: %w", &ExecutionError{Kind: KindTransport, OperationID: "getDevice", Attempt: 3, Err: cause})

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatal("Expected errors.As to find ExecutionError")
	}
	if execErr.Attempt != 3 {
		t.Errorf("Expected attempt 3, got %d", execErr.Attempt)
	}
	if !errors.Is(err, cause) {
		t.Error("Expected cause to be reachable through Unwrap")
	}
	if !execErr.Retryable() {
		t.Error("Expected transport errors to be retryable")
	}
	if (&ExecutionError{Kind: KindClientFault}).Retryable() {
		t.Error("Expected client faults to be permanent")
	}
}
