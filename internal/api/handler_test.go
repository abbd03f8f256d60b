package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/prasenjit/go-meraki-mcp/internal/credentials"
	"github.com/prasenjit/go-meraki-mcp/internal/dispatcher"
	"github.com/prasenjit/go-meraki-mcp/internal/engine"
	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

func newUpstream(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/organizations":
			w.Write([]byte(`[{"id":"100","name":"Prod Org"}]`))
		case "/devices/Q2XX-1":
			w.Write([]byte(`{"serial":"Q2XX-1","name":"sw1","model":"MS120"}`))
		case "/networks/L_slow":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{}`))
		case "/networks/L_busy":
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"errors":["Too many requests"]}`))
		case "/networks/L_down":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"errors":["boom"]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"errors":["Not found"]}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func setupTestRouter(t *testing.T, hits *atomic.Int64) (*engine.Engine, http.Handler) {
	gin.SetMode(gin.TestMode)

	upstream := newUpstream(t, hits)
	core, err := engine.New(engine.Options{
		MerakiKeys: []credentials.KeyPair{{Label: "prod", Secret: "prod-secret"}, {Label: "lab", Secret: "lab-secret"}},
		SelentKeys: []credentials.KeyPair{{Label: "default", Secret: "sel"}},
		Dispatcher: dispatcher.Options{
			Backends: map[string]dispatcher.Backend{
				models.BackendMeraki: dispatcher.MerakiBackend(upstream.URL),
				models.BackendSelent: dispatcher.SelentBackend(upstream.URL),
			},
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
			CacheTTL:       time.Minute,
			RequestTimeout: 100 * time.Millisecond,
		},
		Logger: zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}
	t.Cleanup(func() { core.Close() })

	return core, NewRouter(core, zerolog.Nop()).Handler()
}

func doJSON(h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestListOperations(t *testing.T) {
	core, h := setupTestRouter(t, nil)

	w := doJSON(h, "GET", "/_api/operations?pageSize=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	result := decode(t, w)

	if int(result["total"].(float64)) != core.Catalog().Len() {
		t.Errorf("Expected total %d, got %v", core.Catalog().Len(), result["total"])
	}
	if items := result["items"].([]any); len(items) != 5 {
		t.Errorf("Expected 5 items, got %d", len(items))
	}

	w = doJSON(h, "GET", "/_api/operations?section=compliance", nil)
	result = decode(t, w)
	for _, item := range result["items"].([]any) {
		if item.(map[string]any)["section"] != "compliance" {
			t.Errorf("Expected only compliance operations, got %v", item)
		}
	}

	w = doJSON(h, "GET", "/_api/operations?page=1000", nil)
	result = decode(t, w)
	if items := result["items"].([]any); len(items) != 0 {
		t.Errorf("Expected empty page, got %d items", len(items))
	}
}

func TestDescribeOperation(t *testing.T) {
	_, h := setupTestRouter(t, nil)

	w := doJSON(h, "GET", "/_api/operations/getDevice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	result := decode(t, w)
	required := result["required"].([]any)
	if len(required) != 1 || required[0].(map[string]any)["name"] != "serial" {
		t.Errorf("Expected serial as the only required parameter, got %v", required)
	}

	w = doJSON(h, "GET", "/_api/operations/getDevic", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	details := decode(t, w)["details"].(map[string]any)
	if details["kind"] != "operation" {
		t.Errorf("Expected operation kind, got %v", details["kind"])
	}
}

func TestSearch(t *testing.T) {
	_, h := setupTestRouter(t, nil)

	w := doJSON(h, "GET", "/_api/search?q=list+organizations", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	result := decode(t, w)
	if result["fastPath"] != true {
		t.Errorf("Expected fast path hit, got %v", result["fastPath"])
	}

	w = doJSON(h, "GET", "/_api/search?q=firewall+rules+appliance&limit=3", nil)
	result = decode(t, w)
	matches := result["matches"].([]any)
	if len(matches) == 0 || len(matches) > 3 {
		t.Errorf("Expected between 1 and 3 matches, got %d", len(matches))
	}

	w = doJSON(h, "GET", "/_api/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without query, got %d", w.Code)
	}
}

func TestExecute(t *testing.T) {
	var hits atomic.Int64
	_, h := setupTestRouter(t, &hits)

	body := map[string]any{"operationId": "getDevice", "args": map[string]any{"serial": "Q2XX-1"}}
	w := doJSON(h, "POST", "/_api/execute", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decode(t, w)
	if result["credential"] != "prod" {
		t.Errorf("Expected credential prod, got %v", result["credential"])
	}
	if result["fromCache"] != false {
		t.Errorf("Expected a fresh response")
	}

	w = doJSON(h, "POST", "/_api/execute", body)
	if decode(t, w)["fromCache"] != true {
		t.Errorf("Expected second response from cache")
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 upstream call, got %d", hits.Load())
	}
}

func TestExecuteFields(t *testing.T) {
	_, h := setupTestRouter(t, nil)

	w := doJSON(h, "POST", "/_api/execute", map[string]any{
		"operationId": "getDevice",
		"args":        map[string]any{"serial": "Q2XX-1"},
		"fields":      []string{"model"},
	})
	result := decode(t, w)
	got := result["body"].(map[string]any)
	if len(got) != 1 || got["model"] != "MS120" {
		t.Errorf("Expected only model field, got %v", got)
	}
}

func TestExecuteErrorMapping(t *testing.T) {
	_, h := setupTestRouter(t, nil)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"missing operation id", map[string]any{"args": map[string]any{}}, http.StatusBadRequest},
		{"missing parameter", map[string]any{"operationId": "getDevice"}, http.StatusBadRequest},
		{"unknown parameter", map[string]any{"operationId": "getDevice", "args": map[string]any{"serial": "x", "foo": 1}}, http.StatusBadRequest},
		{"unknown operation", map[string]any{"operationId": "nope"}, http.StatusNotFound},
		{"unknown credential", map[string]any{"operationId": "getDevice", "args": map[string]any{"serial": "x"}, "credential": "ghost"}, http.StatusNotFound},
		{"client fault", map[string]any{"operationId": "getNetwork", "args": map[string]any{"networkId": "L_missing"}}, http.StatusBadGateway},
		{"server fault", map[string]any{"operationId": "getNetwork", "args": map[string]any{"networkId": "L_down"}}, http.StatusBadGateway},
		{"rate limited", map[string]any{"operationId": "getNetwork", "args": map[string]any{"networkId": "L_busy"}}, http.StatusTooManyRequests},
		{"timeout", map[string]any{"operationId": "getNetwork", "args": map[string]any{"networkId": "L_slow"}}, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(h, "POST", "/_api/execute", tt.body)
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if _, ok := decode(t, w)["error"]; !ok {
				t.Errorf("Expected error field in body")
			}
		})
	}
}

func TestExecuteValidationDetails(t *testing.T) {
	_, h := setupTestRouter(t, nil)

	w := doJSON(h, "POST", "/_api/execute", map[string]any{"operationId": "getDevice"})
	details := decode(t, w)["details"].(map[string]any)
	if details["param"] != "serial" {
		t.Errorf("Expected param serial, got %v", details["param"])
	}
	if details["location"] != "path" {
		t.Errorf("Expected location path, got %v", details["location"])
	}
}

func TestExecuteBatch(t *testing.T) {
	_, h := setupTestRouter(t, nil)

	w := doJSON(h, "POST", "/_api/execute/batch", map[string]any{
		"calls": []map[string]any{
			{"operationId": "getDevice", "args": map[string]any{"serial": "Q2XX-1"}},
			{"operationId": "getDevice"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	results := decode(t, w)["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if _, ok := results[0].(map[string]any)["result"]; !ok {
		t.Errorf("Expected first call to succeed, got %v", results[0])
	}
	errBody, ok := results[1].(map[string]any)["error"].(map[string]any)
	if !ok {
		t.Fatalf("Expected second call to fail, got %v", results[1])
	}
	if errBody["status"].(float64) != http.StatusBadRequest {
		t.Errorf("Expected status 400 in error, got %v", errBody["status"])
	}

	w = doJSON(h, "POST", "/_api/execute/batch", map[string]any{"calls": []map[string]any{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for empty batch, got %d", w.Code)
	}
}

func TestCredentials(t *testing.T) {
	_, h := setupTestRouter(t, nil)

	w := doJSON(h, "GET", "/_api/credentials", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "prod-secret") {
		t.Errorf("Expected secrets to be masked, got %s", w.Body.String())
	}
	creds := decode(t, w)["credentials"].([]any)
	if len(creds) != 2 {
		t.Errorf("Expected 2 credentials, got %d", len(creds))
	}

	w = doJSON(h, "PUT", "/_api/credentials/active", map[string]any{"label": "lab"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = doJSON(h, "POST", "/_api/execute", map[string]any{"operationId": "getDevice", "args": map[string]any{"serial": "Q2XX-1"}})
	if decode(t, w)["credential"] != "lab" {
		t.Errorf("Expected lab to be used after switching")
	}

	w = doJSON(h, "PUT", "/_api/credentials/active", map[string]any{"label": "ghost"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = doJSON(h, "GET", "/_api/credentials?backend=selent", nil)
	if decode(t, w)["backend"] != "selent" {
		t.Errorf("Expected selent backend")
	}

	w = doJSON(h, "GET", "/_api/credentials?backend=other", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown backend, got %d", w.Code)
	}
}

func TestOrganizations(t *testing.T) {
	_, h := setupTestRouter(t, nil)

	w := doJSON(h, "POST", "/_api/organizations/discover", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if total := decode(t, w)["total"].(float64); total != 1 {
		t.Errorf("Expected 1 organization, got %v", total)
	}

	w = doJSON(h, "GET", "/_api/organizations?name=prod", nil)
	orgs := decode(t, w)["organizations"].([]any)
	if len(orgs) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(orgs))
	}
	if orgs[0].(map[string]any)["credential"] != "prod" {
		t.Errorf("Expected org owned by prod, got %v", orgs[0])
	}

	w = doJSON(h, "GET", "/_api/organizations?name=prod&exact=true", nil)
	if total := decode(t, w)["total"].(float64); total != 0 {
		t.Errorf("Expected no exact match, got %v", total)
	}
}

func TestClearCache(t *testing.T) {
	var hits atomic.Int64
	core, h := setupTestRouter(t, &hits)

	body := map[string]any{"operationId": "getDevice", "args": map[string]any{"serial": "Q2XX-1"}}
	doJSON(h, "POST", "/_api/execute", body)
	if core.CacheSize() != 1 {
		t.Fatalf("Expected 1 cache entry, got %d", core.CacheSize())
	}

	w := doJSON(h, "DELETE", "/_api/cache?credential=lab", nil)
	if decode(t, w)["removed"].(float64) != 0 {
		t.Errorf("Expected nothing removed for lab")
	}

	w = doJSON(h, "DELETE", "/_api/cache?credential=prod&backend=selent", nil)
	if decode(t, w)["removed"].(float64) != 0 {
		t.Errorf("Expected nothing removed for selent prod")
	}

	w = doJSON(h, "DELETE", "/_api/cache?credential=prod", nil)
	if decode(t, w)["removed"].(float64) != 1 {
		t.Errorf("Expected one entry removed for prod")
	}

	doJSON(h, "POST", "/_api/execute", body)
	if hits.Load() != 2 {
		t.Errorf("Expected a second upstream call after invalidation, got %d", hits.Load())
	}

	doJSON(h, "DELETE", "/_api/cache", nil)
	if core.CacheSize() != 0 {
		t.Errorf("Expected empty cache, got %d", core.CacheSize())
	}
}

func TestStatsAndTraces(t *testing.T) {
	_, h := setupTestRouter(t, nil)

	doJSON(h, "POST", "/_api/execute", map[string]any{"operationId": "getDevice", "args": map[string]any{"serial": "Q2XX-1"}})
	doJSON(h, "POST", "/_api/execute", map[string]any{"operationId": "getNetwork", "args": map[string]any{"networkId": "L_missing"}})

	w := doJSON(h, "GET", "/_api/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	stats := decode(t, w)
	if stats["totalExecutions"].(float64) != 2 {
		t.Errorf("Expected 2 executions, got %v", stats["totalExecutions"])
	}

	w = doJSON(h, "GET", "/_api/stats/operations/getDevice", nil)
	if decode(t, w)["totalExecutions"].(float64) != 1 {
		t.Errorf("Expected 1 execution for getDevice")
	}

	w = doJSON(h, "GET", "/_api/stats/operations/getOrganizations", nil)
	if decode(t, w)["message"] != "No statistics available" {
		t.Errorf("Expected no statistics message")
	}

	w = doJSON(h, "GET", "/_api/traces?errorsOnly=true", nil)
	var traces []map[string]any
	json.Unmarshal(w.Body.Bytes(), &traces)
	if len(traces) != 1 {
		t.Fatalf("Expected 1 failed trace, got %d", len(traces))
	}
	if traces[0]["errorKind"] != "clientFault" {
		t.Errorf("Expected clientFault trace, got %v", traces[0]["errorKind"])
	}

	id := traces[0]["id"].(string)
	w = doJSON(h, "GET", "/_api/traces/"+id, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for trace, got %d", w.Code)
	}

	w = doJSON(h, "GET", "/_api/traces/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for missing trace, got %d", w.Code)
	}

	doJSON(h, "DELETE", "/_api/traces", nil)
	w = doJSON(h, "GET", "/_api/traces", nil)
	json.Unmarshal(w.Body.Bytes(), &traces)
	if len(traces) != 0 {
		t.Errorf("Expected no traces after clear, got %d", len(traces))
	}

	doJSON(h, "POST", "/_api/stats/reset", nil)
	w = doJSON(h, "GET", "/_api/stats", nil)
	if decode(t, w)["totalExecutions"].(float64) != 0 {
		t.Errorf("Expected stats to be reset")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, h := setupTestRouter(t, nil)

	doJSON(h, "POST", "/_api/execute", map[string]any{"operationId": "getDevice", "args": map[string]any{"serial": "Q2XX-1"}})

	w := doJSON(h, "GET", "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `meraki_mcp_executions_total{operation="getDevice",outcome="success"} 1`) {
		t.Errorf("Expected execution counter in metrics output, got:\n%s", w.Body.String())
	}
}

func TestHealthCheck(t *testing.T) {
	_, h := setupTestRouter(t, nil)

	w := doJSON(h, "GET", "/_api/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	result := decode(t, w)
	if result["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", result["status"])
	}
	creds := result["credentials"].(map[string]any)
	if creds["meraki"].(float64) != 2 {
		t.Errorf("Expected 2 meraki credentials, got %v", creds["meraki"])
	}
}

func TestCORSAndNoRoute(t *testing.T) {
	_, h := setupTestRouter(t, nil)

	w := doJSON(h, "OPTIONS", "/_api/execute", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected CORS header")
	}

	w = doJSON(h, "GET", "/nowhere", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
