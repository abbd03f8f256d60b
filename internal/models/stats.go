package models

import (
	"sync/atomic"
	"time"
)

// GlobalStats represents global execution statistics
type GlobalStats struct {
	TotalExecutions   int64           `json:"totalExecutions"`
	TotalErrors       int64           `json:"totalErrors"`
	TotalCacheHits    int64           `json:"totalCacheHits"`
	TotalRetries      int64           `json:"totalRetries"`
	TotalOperations   int             `json:"totalOperations"`
	AvgResponseTimeMs float64         `json:"avgResponseTimeMs"`
	RequestsPerSecond float64         `json:"requestsPerSecond"`
	StartTime         time.Time       `json:"startTime"`
	Uptime            string          `json:"uptime"`
	TopOperations     []OperationStat `json:"topOperations"`
	RecentErrors      []ErrorStat     `json:"recentErrors"`
	RequestsByHour    []HourlyStat    `json:"requestsByHour"`
}

// OperationStat represents statistics for a specific operation
type OperationStat struct {
	OperationID       string  `json:"operationId"`
	Method            string  `json:"method"`
	Path              string  `json:"path"`
	TotalExecutions   int64   `json:"totalExecutions"`
	TotalErrors       int64   `json:"totalErrors"`
	CacheHits         int64   `json:"cacheHits"`
	Retries           int64   `json:"retries"`
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs"`
	MinResponseTimeMs float64 `json:"minResponseTimeMs"`
	MaxResponseTimeMs float64 `json:"maxResponseTimeMs"`
	LastRequestTime   string  `json:"lastRequestTime,omitempty"`
}

// ErrorStat represents a failed execution
type ErrorStat struct {
	Timestamp   time.Time `json:"timestamp"`
	OperationID string    `json:"operationId"`
	Credential  string    `json:"credential"`
	Kind        string    `json:"kind"`
	StatusCode  int       `json:"statusCode,omitempty"`
	Error       string    `json:"error"`
}

// HourlyStat represents hourly execution statistics
type HourlyStat struct {
	Hour     string `json:"hour"`
	Requests int64  `json:"requests"`
	Errors   int64  `json:"errors"`
}

// AtomicOperationStat is a thread-safe version of operation statistics
type AtomicOperationStat struct {
	OperationID     string
	Method          string
	Path            string
	TotalExecutions atomic.Int64
	TotalErrors     atomic.Int64
	CacheHits       atomic.Int64
	Retries         atomic.Int64
	TotalTimeNs     atomic.Int64
	MinTimeNs       atomic.Int64
	MaxTimeNs       atomic.Int64
	LastRequestTime atomic.Value // stores time.Time
}

// ToOperationStat converts to a regular OperationStat
func (a *AtomicOperationStat) ToOperationStat() OperationStat {
	total := a.TotalExecutions.Load()
	totalTimeNs := a.TotalTimeNs.Load()
	var avgMs float64
	if total > 0 {
		avgMs = float64(totalTimeNs) / float64(total) / 1e6
	}

	var lastReqTime string
	if t, ok := a.LastRequestTime.Load().(time.Time); ok && !t.IsZero() {
		lastReqTime = t.Format(time.RFC3339)
	}

	return OperationStat{
		OperationID:       a.OperationID,
		Method:            a.Method,
		Path:              a.Path,
		TotalExecutions:   total,
		TotalErrors:       a.TotalErrors.Load(),
		CacheHits:         a.CacheHits.Load(),
		Retries:           a.Retries.Load(),
		AvgResponseTimeMs: avgMs,
		MinResponseTimeMs: float64(a.MinTimeNs.Load()) / 1e6,
		MaxResponseTimeMs: float64(a.MaxTimeNs.Load()) / 1e6,
		LastRequestTime:   lastReqTime,
	}
}
