package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
	"github.com/prasenjit/go-meraki-mcp/internal/stats"
	"github.com/prasenjit/go-meraki-mcp/internal/storage"
)

// Dispatcher executes resolved requests against the remote backends.
// Idempotent reads are cached per credential; failures that may succeed
// on another try are retried with exponential backoff.
type Dispatcher struct {
	opts   Options
	cache  storage.Cache
	logger zerolog.Logger
	group  singleflight.Group

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a dispatcher. A nil cache disables response caching.
func New(opts Options, cache storage.Cache, logger zerolog.Logger) *Dispatcher {
	opts.applyDefaults()
	return &Dispatcher{
		opts:     opts,
		cache:    cache,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Options returns the effective dispatcher options
func (d *Dispatcher) Options() Options {
	return d.opts
}

// Execute sends req with cred and returns the decoded response
func (d *Dispatcher) Execute(ctx context.Context, req *models.ResolvedRequest, cred models.Credential) (*models.ExecutionResult, error) {
	if req == nil || req.Operation == nil {
		return nil, &models.CatalogError{Reason: "execute called without a resolved request"}
	}
	backend, ok := d.opts.Backends[req.Backend()]
	if !ok {
		return nil, &models.CatalogError{
			OperationID: req.OperationID(),
			Reason:      fmt.Sprintf("unknown backend %q", req.Backend()),
		}
	}

	if d.opts.RequestTimeout > 0 {
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.opts.RequestTimeout)
			defer cancel()
		}
	}

	start := time.Now()
	res, err := d.execute(ctx, backend, req, cred)
	d.observe(backend, req, cred, time.Since(start), res, err)
	return res, err
}

func (d *Dispatcher) execute(ctx context.Context, backend Backend, req *models.ResolvedRequest, cred models.Credential) (*models.ExecutionResult, error) {
	if !req.Operation.Idempotent() || d.cache == nil || d.opts.CacheTTL <= 0 {
		return d.call(ctx, backend, req, cred)
	}

	key := req.CacheKey(cred.Label)
	if entry, ok := d.cache.Get(key); ok {
		return cachedResult(req, cred, entry), nil
	}

	// Identical concurrent misses share one outbound call, detached from every
	// caller. Each caller waits only as long as its own context allows.
	ch := d.group.DoChan(key, func() (any, error) {
		if entry, ok := d.cache.Get(key); ok {
			return cachedResult(req, cred, entry), nil
		}
		sharedCtx := context.WithoutCancel(ctx)
		if d.opts.RequestTimeout > 0 {
			var cancel context.CancelFunc
			sharedCtx, cancel = context.WithTimeout(sharedCtx, d.opts.RequestTimeout)
			defer cancel()
		}
		res, err := d.call(sharedCtx, backend, req, cred)
		if err != nil {
			return nil, err
		}
		d.cache.Put(key, &models.CachedResponse{
			StatusCode: res.StatusCode,
			Body:       cloneBody(res.Body),
			TTL:        d.opts.CacheTTL,
		})
		return res, nil
	})

	select {
	case <-ctx.Done():
		return nil, timeoutError(req, cred, 0, context.Cause(ctx))
	case shared := <-ch:
		if shared.Err != nil {
			var execErr *models.ExecutionError
			if errors.As(shared.Err, &execErr) && execErr.Kind == models.KindTimeout && ctx.Err() == nil {
				// the shared call ran out of time but this caller has budget left
				return d.call(ctx, backend, req, cred)
			}
			return nil, shared.Err
		}
		res := *shared.Val.(*models.ExecutionResult)
		res.Body = cloneBody(res.Body)
		return &res, nil
	}
}

func cachedResult(req *models.ResolvedRequest, cred models.Credential, entry *models.CachedResponse) *models.ExecutionResult {
	return &models.ExecutionResult{
		OperationID: req.OperationID(),
		Credential:  cred.Label,
		StatusCode:  entry.StatusCode,
		Body:        cloneBody(entry.Body),
		FromCache:   true,
		Attempt:     1,
	}
}

// cloneBody deep-copies a decoded JSON value so callers never share
// maps or slices with the cache
func cloneBody(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneBody(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneBody(item)
		}
		return out
	}
	return v
}

// call runs the retry loop. Attempts are strictly sequential.
func (d *Dispatcher) call(ctx context.Context, backend Backend, req *models.ResolvedRequest, cred models.Credential) (*models.ExecutionResult, error) {
	var payload []byte
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = data
	}
	url := strings.TrimRight(backend.BaseURL, "/") + req.Target()
	limiter := d.limiter(models.CredentialKey(req.Backend(), cred.Label))
	start := time.Now()

	attempt := 0
	operation := func() (*models.ExecutionResult, error) {
		attempt++
		if err := limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(timeoutError(req, cred, attempt, err))
		}

		d.logger.Debug().
			Str("op", req.OperationID()).
			Str("credential", cred.Label).
			Int("attempt", attempt).
			Str("method", req.Method).
			Str("url", url).
			Msg("Sending request")

		res, err := d.send(ctx, backend, url, payload, req, cred)
		if err == nil {
			res.Attempt = attempt
			return res, nil
		}

		var execErr *models.ExecutionError
		if !errors.As(err, &execErr) {
			return nil, backoff.Permanent(err)
		}
		execErr.Attempt = attempt
		if ctx.Err() != nil {
			return nil, backoff.Permanent(timeoutError(req, cred, attempt, context.Cause(ctx)))
		}
		if !execErr.Retryable() {
			return nil, backoff.Permanent(execErr)
		}
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.opts.InitialBackoff
	b.MaxInterval = d.opts.MaxBackoff

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(d.opts.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			d.logger.Warn().
				Err(err).
				Str("op", req.OperationID()).
				Str("credential", cred.Label).
				Int("attempt", attempt).
				Dur("backoff", next).
				Msg("Retrying request")
		}),
	)
	if err == nil {
		res.Duration = time.Since(start)
		return res, nil
	}

	var execErr *models.ExecutionError
	if errors.As(err, &execErr) {
		return nil, execErr
	}
	if ctx.Err() != nil {
		// deadline hit while waiting between attempts
		return nil, timeoutError(req, cred, attempt, err)
	}
	return nil, err
}

// send performs one HTTP attempt and classifies the outcome
func (d *Dispatcher) send(ctx context.Context, backend Backend, url string, payload []byte, req *models.ResolvedRequest, cred models.Credential) (*models.ExecutionResult, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, &models.ExecutionError{
			Kind:        models.KindClientFault,
			OperationID: req.OperationID(),
			Credential:  cred.Label,
			Message:     "invalid request: " + err.Error(),
			Err:         err,
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", d.opts.UserAgent)
	httpReq.Header.Set(backend.AuthHeader, backend.AuthPrefix+cred.Secret)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.opts.HTTPClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, timeoutError(req, cred, 0, context.Cause(ctx))
		}
		return nil, &models.ExecutionError{
			Kind:        models.KindTransport,
			OperationID: req.OperationID(),
			Credential:  cred.Label,
			Message:     err.Error(),
			Err:         err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, timeoutError(req, cred, 0, context.Cause(ctx))
		}
		return nil, &models.ExecutionError{
			Kind:        models.KindTransport,
			OperationID: req.OperationID(),
			Credential:  cred.Label,
			StatusCode:  resp.StatusCode,
			Message:     "failed to read response body: " + err.Error(),
			Err:         err,
		}
	}

	if resp.StatusCode < 400 {
		decoded, err := decodeBody(data)
		if err != nil {
			// the remote answered; repeating a write because of its body is not safe
			return nil, backoff.Permanent(&models.ExecutionError{
				Kind:        models.KindTransport,
				OperationID: req.OperationID(),
				Credential:  cred.Label,
				StatusCode:  resp.StatusCode,
				Message:     "malformed response body",
				Body:        truncate(string(data), 500),
				Err:         err,
			})
		}
		return &models.ExecutionResult{
			OperationID: req.OperationID(),
			Credential:  cred.Label,
			StatusCode:  resp.StatusCode,
			Body:        decoded,
		}, nil
	}

	execErr := &models.ExecutionError{
		OperationID: req.OperationID(),
		Credential:  cred.Label,
		StatusCode:  resp.StatusCode,
		Message:     errorMessage(data, resp.StatusCode),
		Body:        errorBody(data),
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		execErr.Kind = models.KindRateLimited
		if wait := retryAfter(resp.Header.Get("Retry-After")); wait > 0 {
			return nil, errors.Join(execErr, &backoff.RetryAfterError{Duration: wait})
		}
	case resp.StatusCode >= 500:
		execErr.Kind = models.KindServerFault
	default:
		execErr.Kind = models.KindClientFault
	}
	return nil, execErr
}

func timeoutError(req *models.ResolvedRequest, cred models.Credential, attempt int, cause error) *models.ExecutionError {
	return &models.ExecutionError{
		Kind:        models.KindTimeout,
		OperationID: req.OperationID(),
		Credential:  cred.Label,
		Attempt:     attempt,
		Message:     "deadline exceeded",
		Err:         cause,
	}
}

// limiter returns the token bucket of one backend credential
func (d *Dispatcher) limiter(key string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.limiters[key]
	if !ok {
		limit := rate.Inf
		if d.opts.RequestsPerSecond > 0 {
			limit = rate.Limit(d.opts.RequestsPerSecond)
		}
		l = rate.NewLimiter(limit, d.opts.Burst)
		d.limiters[key] = l
	}
	return l
}

// Invalidate drops every cached response of one backend credential
func (d *Dispatcher) Invalidate(backend, label string) int {
	if d.cache == nil {
		return 0
	}
	removed := d.cache.DeletePrefix(models.CachePrefix(backend, label))
	d.logger.Info().Str("backend", backend).Str("credential", label).Int("entries", removed).Msg("Cache invalidated")
	return removed
}

// Call is one entry of a batch
type Call struct {
	Request    *models.ResolvedRequest
	Credential models.Credential
}

// BatchResult is the outcome of one batch entry
type BatchResult struct {
	Result *models.ExecutionResult
	Err    error
}

// ExecuteBatch runs calls concurrently, at most MaxParallel at a time.
// Results are index-aligned with calls; one failure never cancels the others.
func (d *Dispatcher) ExecuteBatch(ctx context.Context, calls []Call) []BatchResult {
	results := make([]BatchResult, len(calls))

	var g errgroup.Group
	g.SetLimit(d.opts.MaxParallel)
	for i, call := range calls {
		g.Go(func() error {
			res, err := d.Execute(ctx, call.Request, call.Credential)
			results[i] = BatchResult{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *Dispatcher) observe(backend Backend, req *models.ResolvedRequest, cred models.Credential, elapsed time.Duration, res *models.ExecutionResult, err error) {
	e := stats.Execution{
		OperationID: req.OperationID(),
		Credential:  cred.Label,
		Method:      req.Method,
		Path:        req.Operation.PathTemplate,
		Duration:    elapsed,
		Err:         err,
	}
	trace := &models.Trace{
		ID:          uuid.New().String(),
		OperationID: req.OperationID(),
		Backend:     req.Backend(),
		Credential:  cred.Label,
		Method:      req.Method,
		URL:         strings.TrimRight(backend.BaseURL, "/") + req.Target(),
		Duration:    elapsed.Nanoseconds(),
	}

	if res != nil {
		e.Attempts = res.Attempt
		e.FromCache = res.FromCache
		e.StatusCode = res.StatusCode
		trace.Attempt = res.Attempt
		trace.FromCache = res.FromCache
		trace.StatusCode = res.StatusCode
	}
	var execErr *models.ExecutionError
	if errors.As(err, &execErr) {
		e.Attempts = execErr.Attempt
		e.StatusCode = execErr.StatusCode
		trace.Attempt = execErr.Attempt
		trace.StatusCode = execErr.StatusCode
		trace.ErrorKind = string(execErr.Kind)
	}
	if err != nil {
		trace.Error = err.Error()
		d.logger.Warn().
			Err(err).
			Str("op", e.OperationID).
			Str("credential", cred.Label).
			Int("attempt", e.Attempts).
			Int("status", e.StatusCode).
			Msg("Execution failed")
	}

	if d.opts.Stats != nil {
		d.opts.Stats.RecordExecution(e)
	}
	if d.opts.Metrics != nil {
		d.opts.Metrics.Observe(e)
	}
	if d.opts.Tracer != nil {
		d.opts.Tracer.RecordTrace(trace)
	}
}

// decodeBody decodes a JSON response; an empty body decodes to nil
func decodeBody(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// errorBody keeps a structured error payload when the remote sent JSON
func errorBody(data []byte) any {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if decoded, err := decodeBody(data); err == nil {
		return decoded
	}
	return truncate(string(data), 500)
}

// errorMessage extracts a human-readable message from an error response.
// The dashboard API reports {"errors": [...]}; the backup backend uses
// "detail" or "message".
func errorMessage(data []byte, status int) string {
	if gjson.ValidBytes(data) {
		parsed := gjson.ParseBytes(data)
		if errs := parsed.Get("errors"); errs.IsArray() {
			var parts []string
			errs.ForEach(func(_, v gjson.Result) bool {
				parts = append(parts, v.String())
				return true
			})
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		}
		for _, key := range []string{"message", "detail", "error"} {
			if v := parsed.Get(key); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	if text := strings.TrimSpace(string(data)); text != "" && !gjson.ValidBytes(data) {
		return truncate(text, 200)
	}
	return http.StatusText(status)
}

// retryAfter parses a Retry-After header in seconds or HTTP-date form
func retryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
