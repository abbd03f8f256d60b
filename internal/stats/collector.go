package stats

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

// Execution is one finished dispatcher call
type Execution struct {
	OperationID string
	Credential  string
	Method      string
	Path        string // path template, not the resolved path
	Duration    time.Duration
	Attempts    int
	FromCache   bool
	StatusCode  int
	Err         error
}

// Outcome labels the result of an execution for metrics
func (e Execution) Outcome() string {
	if e.Err == nil {
		if e.FromCache {
			return "cached"
		}
		return "success"
	}
	var execErr *models.ExecutionError
	if errors.As(e.Err, &execErr) {
		return string(execErr.Kind)
	}
	return "error"
}

// Collector collects and aggregates statistics
type Collector struct {
	mu             sync.RWMutex
	startTime      time.Time
	operations     map[string]*models.AtomicOperationStat // operationID -> stats
	recentErrors   []models.ErrorStat
	hourlyStats    map[string]*hourlyCounter // "YYYY-MM-DD-HH" -> counter
	maxErrors      int
	maxHourlySlots int
}

type hourlyCounter struct {
	Hour     string
	Requests int64
	Errors   int64
}

// NewCollector creates a new statistics collector
func NewCollector() *Collector {
	return &Collector{
		startTime:      time.Now(),
		operations:     make(map[string]*models.AtomicOperationStat),
		recentErrors:   make([]models.ErrorStat, 0),
		hourlyStats:    make(map[string]*hourlyCounter),
		maxErrors:      100,
		maxHourlySlots: 168, // 7 days
	}
}

// RecordExecution records a finished execution
func (c *Collector) RecordExecution(e Execution) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Get or create operation stats
	opStats, ok := c.operations[e.OperationID]
	if !ok {
		opStats = &models.AtomicOperationStat{
			OperationID: e.OperationID,
			Method:      e.Method,
			Path:        e.Path,
		}
		opStats.MinTimeNs.Store(e.Duration.Nanoseconds())
		c.operations[e.OperationID] = opStats
	}

	// Update stats
	opStats.TotalExecutions.Add(1)
	opStats.TotalTimeNs.Add(e.Duration.Nanoseconds())
	opStats.LastRequestTime.Store(time.Now())
	if e.FromCache {
		opStats.CacheHits.Add(1)
	}
	if e.Attempts > 1 {
		opStats.Retries.Add(int64(e.Attempts - 1))
	}

	// Update min/max
	durationNs := e.Duration.Nanoseconds()
	for {
		currentMin := opStats.MinTimeNs.Load()
		if durationNs >= currentMin || opStats.MinTimeNs.CompareAndSwap(currentMin, durationNs) {
			break
		}
	}
	for {
		currentMax := opStats.MaxTimeNs.Load()
		if durationNs <= currentMax || opStats.MaxTimeNs.CompareAndSwap(currentMax, durationNs) {
			break
		}
	}

	if e.Err != nil {
		opStats.TotalErrors.Add(1)
		c.recordError(e)
	}

	// Update hourly stats
	hourKey := time.Now().Format("2006-01-02-15")
	hourly, ok := c.hourlyStats[hourKey]
	if !ok {
		hourly = &hourlyCounter{Hour: hourKey}
		c.hourlyStats[hourKey] = hourly
		c.cleanupOldHourlyStats()
	}
	hourly.Requests++
	if e.Err != nil {
		hourly.Errors++
	}
}

// recordError appends to the recent errors ring; c.mu must be held
func (c *Collector) recordError(e Execution) {
	errorStat := models.ErrorStat{
		Timestamp:   time.Now(),
		OperationID: e.OperationID,
		Credential:  e.Credential,
		Kind:        e.Outcome(),
		StatusCode:  e.StatusCode,
		Error:       e.Err.Error(),
	}

	c.recentErrors = append(c.recentErrors, errorStat)
	if len(c.recentErrors) > c.maxErrors {
		c.recentErrors = c.recentErrors[1:]
	}
}

// cleanupOldHourlyStats removes hourly stats older than maxHourlySlots
func (c *Collector) cleanupOldHourlyStats() {
	if len(c.hourlyStats) <= c.maxHourlySlots {
		return
	}

	// Get sorted keys
	keys := make([]string, 0, len(c.hourlyStats))
	for k := range c.hourlyStats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Remove oldest entries
	toRemove := len(keys) - c.maxHourlySlots
	for i := 0; i < toRemove; i++ {
		delete(c.hourlyStats, keys[i])
	}
}

// GetGlobalStats returns global statistics
func (c *Collector) GetGlobalStats(totalOperations int) *models.GlobalStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var totalExecutions, totalErrors, totalCacheHits, totalRetries, totalTimeNs int64

	opStats := make([]models.OperationStat, 0, len(c.operations))
	for _, op := range c.operations {
		stat := op.ToOperationStat()
		opStats = append(opStats, stat)
		totalExecutions += stat.TotalExecutions
		totalErrors += stat.TotalErrors
		totalCacheHits += stat.CacheHits
		totalRetries += stat.Retries
		totalTimeNs += op.TotalTimeNs.Load()
	}

	// Sort by total executions (descending), then id for a stable listing
	sort.Slice(opStats, func(i, j int) bool {
		if opStats[i].TotalExecutions != opStats[j].TotalExecutions {
			return opStats[i].TotalExecutions > opStats[j].TotalExecutions
		}
		return opStats[i].OperationID < opStats[j].OperationID
	})

	// Top 10 operations
	topOps := opStats
	if len(topOps) > 10 {
		topOps = topOps[:10]
	}

	var avgResponseTimeMs float64
	if totalExecutions > 0 {
		avgResponseTimeMs = float64(totalTimeNs) / float64(totalExecutions) / 1e6
	}

	uptime := time.Since(c.startTime).Seconds()
	var requestsPerSecond float64
	if uptime > 0 {
		requestsPerSecond = float64(totalExecutions) / uptime
	}

	recentErrors := make([]models.ErrorStat, len(c.recentErrors))
	copy(recentErrors, c.recentErrors)

	return &models.GlobalStats{
		TotalExecutions:   totalExecutions,
		TotalErrors:       totalErrors,
		TotalCacheHits:    totalCacheHits,
		TotalRetries:      totalRetries,
		TotalOperations:   totalOperations,
		AvgResponseTimeMs: avgResponseTimeMs,
		RequestsPerSecond: requestsPerSecond,
		StartTime:         c.startTime,
		Uptime:            formatDuration(time.Since(c.startTime)),
		TopOperations:     topOps,
		RecentErrors:      recentErrors,
		RequestsByHour:    c.buildHourlyStats(),
	}
}

// GetOperationStats returns statistics for a specific operation
func (c *Collector) GetOperationStats(operationID string) *models.OperationStat {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if op, ok := c.operations[operationID]; ok {
		stat := op.ToOperationStat()
		return &stat
	}

	return nil
}

// buildHourlyStats builds the hourly statistics for the last 24 hours
func (c *Collector) buildHourlyStats() []models.HourlyStat {
	now := time.Now()
	stats := make([]models.HourlyStat, 0, 24)

	for i := 23; i >= 0; i-- {
		hour := now.Add(-time.Duration(i) * time.Hour)
		hourKey := hour.Format("2006-01-02-15")

		stat := models.HourlyStat{
			Hour: hour.Format("15:00"),
		}

		if hourly, ok := c.hourlyStats[hourKey]; ok {
			stat.Requests = hourly.Requests
			stat.Errors = hourly.Errors
		}

		stats = append(stats, stat)
	}

	return stats
}

// Reset resets all statistics
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.operations = make(map[string]*models.AtomicOperationStat)
	c.recentErrors = make([]models.ErrorStat, 0)
	c.hourlyStats = make(map[string]*hourlyCounter)
}

// formatDuration formats a duration in a human-readable format
func formatDuration(d time.Duration) string {
	if d >= time.Hour {
		return d.Round(time.Minute).String()
	}
	if d >= time.Minute {
		return d.Round(time.Second).String()
	}
	return d.Round(time.Millisecond).String()
}
