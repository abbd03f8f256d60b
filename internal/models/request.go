package models

import (
	"net/url"
	"strings"
	"time"
)

// QueryParam is one encoded query-string pair
type QueryParam struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ResolvedRequest is a validated request shape ready to be dispatched
type ResolvedRequest struct {
	Operation *OperationSpec `json:"-"`
	Method    string         `json:"method"`
	Path      string         `json:"path"`
	Query     []QueryParam   `json:"query,omitempty"`
	Body      map[string]any `json:"body,omitempty"`
}

// OperationID returns the ID of the operation the request was built for
func (r *ResolvedRequest) OperationID() string {
	if r.Operation == nil {
		return ""
	}
	return r.Operation.ID
}

// Backend returns the backend namespace of the request
func (r *ResolvedRequest) Backend() string {
	if r.Operation == nil || r.Operation.Backend == "" {
		return BackendMeraki
	}
	return r.Operation.Backend
}

// RawQuery encodes Query in declaration order
func (r *ResolvedRequest) RawQuery() string {
	if len(r.Query) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, q := range r.Query {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(q.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(q.Value))
	}
	return sb.String()
}

// Target returns path plus encoded query
func (r *ResolvedRequest) Target() string {
	if q := r.RawQuery(); q != "" {
		return r.Path + "?" + q
	}
	return r.Path
}

// CacheKey builds the cache key for the request under a credential label.
// Path and query are already normalized by the resolver, so identical
// argument sets always produce the same key.
func (r *ResolvedRequest) CacheKey(label string) string {
	return CachePrefix(r.Backend(), label) + r.OperationID() + "|" + r.Target()
}

// CredentialKey identifies a credential across backends; both backends
// may register the same label
func CredentialKey(backend, label string) string {
	if backend == "" {
		backend = BackendMeraki
	}
	return backend + "|" + label
}

// CachePrefix is the key prefix shared by all entries of one backend credential
func CachePrefix(backend, label string) string {
	return CredentialKey(backend, label) + "|"
}

// ExecutionResult is the normalized outcome of a successful call
type ExecutionResult struct {
	OperationID string        `json:"operationId"`
	Credential  string        `json:"credential"`
	StatusCode  int           `json:"statusCode"`
	Body        any           `json:"body"`
	FromCache   bool          `json:"fromCache"`
	Attempt     int           `json:"attempt"`
	Duration    time.Duration `json:"duration"`
}

// CachedResponse is a stored response of an idempotent call
type CachedResponse struct {
	StatusCode int           `json:"statusCode"`
	Body       any           `json:"body"`
	StoredAt   time.Time     `json:"storedAt"`
	TTL        time.Duration `json:"ttl"`
}

// Expired reports whether the entry is older than its TTL at now
func (c *CachedResponse) Expired(now time.Time) bool {
	return c.TTL > 0 && now.Sub(c.StoredAt) >= c.TTL
}
