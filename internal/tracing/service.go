package tracing

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

// Service keeps a bounded history of dispatched executions
type Service struct {
	mu          sync.RWMutex
	traces      []*models.Trace
	maxTraces   int
	retention   time.Duration
	subscribers map[string]chan *models.Trace
}

// NewService creates a new tracing service. A zero retention keeps
// traces until they are pushed out by maxTraces.
func NewService(maxTraces int, retention time.Duration) *Service {
	if maxTraces <= 0 {
		maxTraces = 1000
	}

	return &Service{
		traces:      make([]*models.Trace, 0),
		maxTraces:   maxTraces,
		retention:   retention,
		subscribers: make(map[string]chan *models.Trace),
	}
}

// RecordTrace records a new trace
func (s *Service) RecordTrace(trace *models.Trace) {
	s.mu.Lock()

	if trace.ID == "" {
		trace.ID = uuid.New().String()
	}
	if trace.Timestamp.IsZero() {
		trace.Timestamp = time.Now()
	}

	s.traces = append(s.traces, trace)

	if len(s.traces) > s.maxTraces {
		s.traces = s.traces[len(s.traces)-s.maxTraces:]
	}
	s.pruneLocked(time.Now())

	// Sends never block and happen under the lock so Unsubscribe cannot
	// close a channel mid-send
	for _, ch := range s.subscribers {
		select {
		case ch <- trace:
		default:
		}
	}
	s.mu.Unlock()
}

// pruneLocked drops traces older than the retention window; s.mu must be held
func (s *Service) pruneLocked(now time.Time) {
	if s.retention <= 0 {
		return
	}
	cutoff := now.Add(-s.retention)
	drop := 0
	for drop < len(s.traces) && s.traces[drop].Timestamp.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		s.traces = append(s.traces[:0:0], s.traces[drop:]...)
	}
}

// GetTraces returns traces matching the filter, newest first
func (s *Service) GetTraces(filter *models.TraceFilter) []*models.Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Trace, 0)

	for i := len(s.traces) - 1; i >= 0; i-- {
		trace := s.traces[i]

		if !filter.Matches(trace) {
			continue
		}

		result = append(result, trace)

		if filter != nil && filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}

	return result
}

// GetTrace returns a single trace by ID
func (s *Service) GetTrace(id string) *models.Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, trace := range s.traces {
		if trace.ID == id {
			return trace
		}
	}

	return nil
}

// ClearTraces removes all traces
func (s *Service) ClearTraces() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.traces = make([]*models.Trace, 0)
}

// ClearTracesByCredential removes traces recorded under one credential label
func (s *Service) ClearTracesByCredential(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := make([]*models.Trace, 0)
	for _, trace := range s.traces {
		if trace.Credential != label {
			filtered = append(filtered, trace)
		}
	}
	s.traces = filtered
}

// Subscribe creates a subscription for live traces
func (s *Service) Subscribe() (string, chan *models.Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan *models.Trace, 100)
	s.subscribers[id] = ch

	return id, ch
}

// Unsubscribe removes a subscription
func (s *Service) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// GetStats returns tracing statistics
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"totalTraces":       len(s.traces),
		"maxTraces":         s.maxTraces,
		"retention":         s.retention.String(),
		"activeSubscribers": len(s.subscribers),
	}
}
