package models

import (
	"time"
)

// Trace is the record of one dispatched execution
type Trace struct {
	ID          string    `json:"id"`
	OperationID string    `json:"operationId"`
	Backend     string    `json:"backend"`
	Credential  string    `json:"credential"`
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	Timestamp   time.Time `json:"timestamp"`
	Duration    int64     `json:"duration"` // Duration in nanoseconds
	StatusCode  int       `json:"statusCode,omitempty"`
	Attempt     int       `json:"attempt"`
	FromCache   bool      `json:"fromCache"`
	Error       string    `json:"error,omitempty"`
	ErrorKind   string    `json:"errorKind,omitempty"`
}

// TraceFilter represents filters for querying traces
type TraceFilter struct {
	OperationID string    `json:"operationId,omitempty"`
	Credential  string    `json:"credential,omitempty"`
	Method      string    `json:"method,omitempty"`
	StatusCode  int       `json:"statusCode,omitempty"`
	ErrorsOnly  bool      `json:"errorsOnly,omitempty"`
	StartTime   time.Time `json:"startTime,omitempty"`
	EndTime     time.Time `json:"endTime,omitempty"`
	Limit       int       `json:"limit,omitempty"`
}

// Matches reports whether t passes every set field of the filter; Limit is ignored
func (f *TraceFilter) Matches(t *Trace) bool {
	if f == nil {
		return true
	}
	switch {
	case f.OperationID != "" && t.OperationID != f.OperationID:
		return false
	case f.Credential != "" && t.Credential != f.Credential:
		return false
	case f.Method != "" && t.Method != f.Method:
		return false
	case f.StatusCode != 0 && t.StatusCode != f.StatusCode:
		return false
	case f.ErrorsOnly && t.Error == "":
		return false
	case !f.StartTime.IsZero() && t.Timestamp.Before(f.StartTime):
		return false
	case !f.EndTime.IsZero() && t.Timestamp.After(f.EndTime):
		return false
	}
	return true
}
