package models

import (
	"fmt"
	"strings"
)

// CatalogError is a startup-fatal inconsistency in the operation catalog
type CatalogError struct {
	OperationID string `json:"operationId,omitempty"`
	Reason      string `json:"reason"`
}

func (e *CatalogError) Error() string {
	if e.OperationID == "" {
		return "catalog: " + e.Reason
	}
	return fmt.Sprintf("catalog: operation %s: %s", e.OperationID, e.Reason)
}

// ValidationError is a caller-recoverable argument problem
type ValidationError struct {
	Param    string   `json:"param"`
	Location Location `json:"location,omitempty"`
	Reason   string   `json:"reason"`
	Expected string   `json:"expected,omitempty"`
	Value    any      `json:"value,omitempty"`
	Allowed  []string `json:"allowed,omitempty"`
	Valid    []string `json:"valid,omitempty"`
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid parameter ")
	sb.WriteString(e.Param)
	if e.Location != "" {
		fmt.Fprintf(&sb, " (%s)", e.Location)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	if e.Expected != "" {
		fmt.Fprintf(&sb, ", expected %s", e.Expected)
	}
	if e.Value != nil {
		fmt.Fprintf(&sb, ", got %v", e.Value)
	}
	if len(e.Allowed) > 0 {
		fmt.Fprintf(&sb, ", allowed: %s", strings.Join(e.Allowed, ", "))
	}
	if len(e.Valid) > 0 {
		fmt.Fprintf(&sb, ", valid parameters: %s", strings.Join(e.Valid, ", "))
	}
	return sb.String()
}

// NotFoundError reports an unknown operation or credential
type NotFoundError struct {
	Kind       string   `json:"kind"` // "operation" or "credential"
	Name       string   `json:"name"`
	Candidates []string `json:"candidates,omitempty"`
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
	if len(e.Candidates) > 0 {
		msg += " (did you mean: " + strings.Join(e.Candidates, ", ") + ")"
	}
	return msg
}

// ErrorKind classifies execution failures
type ErrorKind string

const (
	KindTransport   ErrorKind = "transport"
	KindRateLimited ErrorKind = "rateLimited"
	KindServerFault ErrorKind = "serverFault"
	KindClientFault ErrorKind = "clientFault"
	KindTimeout     ErrorKind = "timeout"
)

// ExecutionError is the normalized failure of an outbound call
type ExecutionError struct {
	Kind        ErrorKind `json:"kind"`
	OperationID string    `json:"operationId"`
	Credential  string    `json:"credential"`
	StatusCode  int       `json:"statusCode,omitempty"`
	Attempt     int       `json:"attempt"`
	Message     string    `json:"message"`
	Body        any       `json:"body,omitempty"`
	Err         error     `json:"-"`
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%s %s after %d attempt(s)", e.OperationID, e.Kind, e.Attempt)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed
func (e *ExecutionError) Retryable() bool {
	switch e.Kind {
	case KindTransport, KindRateLimited, KindServerFault:
		return true
	}
	return false
}
