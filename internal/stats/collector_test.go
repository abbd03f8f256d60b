package stats

import (
	"errors"
	"testing"
	"time"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

func execution(opID string, duration time.Duration, err error) Execution {
	return Execution{
		OperationID: opID,
		Credential:  "default",
		Method:      "GET",
		Path:        "/organizations",
		Duration:    duration,
		Attempts:    1,
		Err:         err,
	}
}

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	if c == nil {
		t.Fatal("NewCollector returned nil")
	}
	if c.operations == nil {
		t.Fatal("Operations map not initialized")
	}
	if c.recentErrors == nil {
		t.Fatal("Recent errors slice not initialized")
	}
	if c.hourlyStats == nil {
		t.Fatal("Hourly stats map not initialized")
	}
	if c.maxErrors != 100 {
		t.Errorf("Expected maxErrors 100, got %d", c.maxErrors)
	}
	if c.maxHourlySlots != 168 {
		t.Errorf("Expected maxHourlySlots 168, got %d", c.maxHourlySlots)
	}
}

func TestRecordExecution(t *testing.T) {
	c := NewCollector()

	c.RecordExecution(execution("getOrganizations", 100*time.Millisecond, nil))

	stats := c.GetGlobalStats(1)
	if stats.TotalExecutions != 1 {
		t.Errorf("Expected 1 total execution, got %d", stats.TotalExecutions)
	}
	if stats.TotalErrors != 0 {
		t.Errorf("Expected 0 errors, got %d", stats.TotalErrors)
	}

	c.RecordExecution(execution("getOrganizations", 50*time.Millisecond, errors.New("boom")))

	stats = c.GetGlobalStats(1)
	if stats.TotalExecutions != 2 {
		t.Errorf("Expected 2 total executions, got %d", stats.TotalExecutions)
	}
	if stats.TotalErrors != 1 {
		t.Errorf("Expected 1 error, got %d", stats.TotalErrors)
	}
	if len(stats.RecentErrors) != 1 {
		t.Fatalf("Expected 1 recent error, got %d", len(stats.RecentErrors))
	}
	if stats.RecentErrors[0].Kind != "error" {
		t.Errorf("Expected kind error, got %s", stats.RecentErrors[0].Kind)
	}
}

func TestRecordExecution_CacheHitsAndRetries(t *testing.T) {
	c := NewCollector()

	hit := execution("getOrganizations", time.Millisecond, nil)
	hit.FromCache = true
	c.RecordExecution(hit)

	retried := execution("getOrganizations", time.Second, nil)
	retried.Attempts = 3
	c.RecordExecution(retried)

	stat := c.GetOperationStats("getOrganizations")
	if stat == nil {
		t.Fatal("Expected operation stats")
	}
	if stat.CacheHits != 1 {
		t.Errorf("Expected 1 cache hit, got %d", stat.CacheHits)
	}
	if stat.Retries != 2 {
		t.Errorf("Expected 2 retries, got %d", stat.Retries)
	}

	global := c.GetGlobalStats(1)
	if global.TotalCacheHits != 1 || global.TotalRetries != 2 {
		t.Errorf("Expected 1 cache hit and 2 retries, got %d and %d", global.TotalCacheHits, global.TotalRetries)
	}
}

func TestRecordExecution_MinMaxTime(t *testing.T) {
	c := NewCollector()

	c.RecordExecution(execution("getDevice", 100*time.Millisecond, nil))
	c.RecordExecution(execution("getDevice", 50*time.Millisecond, nil))
	c.RecordExecution(execution("getDevice", 200*time.Millisecond, nil))

	stat := c.GetOperationStats("getDevice")
	if stat.MinResponseTimeMs != 50 {
		t.Errorf("Expected min 50ms, got %f", stat.MinResponseTimeMs)
	}
	if stat.MaxResponseTimeMs != 200 {
		t.Errorf("Expected max 200ms, got %f", stat.MaxResponseTimeMs)
	}
	if stat.AvgResponseTimeMs < 116 || stat.AvgResponseTimeMs > 117 {
		t.Errorf("Expected avg ~116.67ms, got %f", stat.AvgResponseTimeMs)
	}
}

func TestRecordExecution_ErrorKind(t *testing.T) {
	c := NewCollector()

	e := execution("getNetworkClients", time.Second, &models.ExecutionError{
		Kind:        models.KindServerFault,
		OperationID: "getNetworkClients",
		StatusCode:  503,
		Attempt:     3,
	})
	e.StatusCode = 503
	c.RecordExecution(e)

	stats := c.GetGlobalStats(1)
	if len(stats.RecentErrors) != 1 {
		t.Fatalf("Expected 1 recent error, got %d", len(stats.RecentErrors))
	}
	got := stats.RecentErrors[0]
	if got.Kind != "serverFault" {
		t.Errorf("Expected kind serverFault, got %s", got.Kind)
	}
	if got.StatusCode != 503 {
		t.Errorf("Expected status 503, got %d", got.StatusCode)
	}
	if got.Credential != "default" {
		t.Errorf("Expected credential default, got %s", got.Credential)
	}
}

func TestRecentErrors_MaxLimit(t *testing.T) {
	c := NewCollector()
	c.maxErrors = 5

	for i := 0; i < 10; i++ {
		c.RecordExecution(execution("getDevice", time.Millisecond, errors.New("boom")))
	}

	stats := c.GetGlobalStats(1)
	if len(stats.RecentErrors) != 5 {
		t.Errorf("Expected 5 recent errors, got %d", len(stats.RecentErrors))
	}
}

func TestGetGlobalStats_TopOperations(t *testing.T) {
	c := NewCollector()

	for i := 0; i < 15; i++ {
		opID := string(rune('a' + i))
		for j := 0; j <= i; j++ {
			c.RecordExecution(execution(opID, time.Millisecond, nil))
		}
	}

	stats := c.GetGlobalStats(15)
	if len(stats.TopOperations) != 10 {
		t.Fatalf("Expected 10 top operations, got %d", len(stats.TopOperations))
	}
	if stats.TopOperations[0].OperationID != "o" {
		t.Errorf("Expected busiest operation o first, got %s", stats.TopOperations[0].OperationID)
	}
	if stats.TotalOperations != 15 {
		t.Errorf("Expected 15 total operations, got %d", stats.TotalOperations)
	}
}

func TestGetGlobalStats_HourlyStats(t *testing.T) {
	c := NewCollector()

	c.RecordExecution(execution("getDevice", time.Millisecond, nil))
	c.RecordExecution(execution("getDevice", time.Millisecond, errors.New("boom")))

	stats := c.GetGlobalStats(1)
	if len(stats.RequestsByHour) != 24 {
		t.Fatalf("Expected 24 hourly slots, got %d", len(stats.RequestsByHour))
	}
	current := stats.RequestsByHour[23]
	if current.Requests != 2 || current.Errors != 1 {
		t.Errorf("Expected 2 requests and 1 error this hour, got %d and %d", current.Requests, current.Errors)
	}
}

func TestGetOperationStats_Unknown(t *testing.T) {
	c := NewCollector()
	if c.GetOperationStats("missing") != nil {
		t.Error("Expected nil stats for unknown operation")
	}
}

func TestReset(t *testing.T) {
	c := NewCollector()

	c.RecordExecution(execution("getDevice", time.Millisecond, errors.New("boom")))
	c.Reset()

	stats := c.GetGlobalStats(1)
	if stats.TotalExecutions != 0 {
		t.Errorf("Expected 0 executions after reset, got %d", stats.TotalExecutions)
	}
	if len(stats.RecentErrors) != 0 {
		t.Errorf("Expected 0 errors after reset, got %d", len(stats.RecentErrors))
	}
}

func TestHourlyStatsCleanup(t *testing.T) {
	c := NewCollector()
	c.maxHourlySlots = 3

	c.mu.Lock()
	c.hourlyStats["2024-01-01-00"] = &hourlyCounter{Hour: "2024-01-01-00", Requests: 1}
	c.hourlyStats["2024-01-01-01"] = &hourlyCounter{Hour: "2024-01-01-01", Requests: 1}
	c.hourlyStats["2024-01-01-02"] = &hourlyCounter{Hour: "2024-01-01-02", Requests: 1}
	c.hourlyStats["2024-01-01-03"] = &hourlyCounter{Hour: "2024-01-01-03", Requests: 1}
	c.mu.Unlock()

	c.RecordExecution(execution("getDevice", time.Millisecond, nil))

	c.mu.RLock()
	count := len(c.hourlyStats)
	c.mu.RUnlock()

	if count != c.maxHourlySlots {
		t.Errorf("Expected %d hourly slots, got %d", c.maxHourlySlots, count)
	}
}

func TestConcurrentStatsAccess(t *testing.T) {
	c := NewCollector()

	done := make(chan bool)

	go func() {
		for i := 0; i < 100; i++ {
			var err error
			if i%5 == 0 {
				err = errors.New("boom")
			}
			c.RecordExecution(execution("getDevice", time.Duration(i)*time.Millisecond, err))
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			_ = c.GetGlobalStats(1)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			_ = c.GetOperationStats("getDevice")
		}
		done <- true
	}()

	for i := 0; i < 3; i++ {
		<-done
	}

	stats := c.GetGlobalStats(1)
	if stats.TotalExecutions != 100 {
		t.Errorf("Expected 100 executions, got %d", stats.TotalExecutions)
	}
	if stats.TotalErrors != 20 {
		t.Errorf("Expected 20 errors, got %d", stats.TotalErrors)
	}
}

func TestExecutionOutcome(t *testing.T) {
	tests := []struct {
		name string
		exec Execution
		want string
	}{
		{"success", Execution{}, "success"},
		{"cached", Execution{FromCache: true}, "cached"},
		{"plain error", Execution{Err: errors.New("boom")}, "error"},
		{"timeout", Execution{Err: &models.ExecutionError{Kind: models.KindTimeout}}, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.exec.Outcome(); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{1500 * time.Microsecond, "2ms"},
		{30 * time.Second, "30s"},
		{5*time.Minute + 10*time.Second, "5m10s"},
		{2*time.Hour + 30*time.Second, "2h1m0s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatDuration(tt.duration); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}
