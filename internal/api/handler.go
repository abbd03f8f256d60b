package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prasenjit/go-meraki-mcp/internal/engine"
	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

// maxBatchSize bounds one /execute/batch request
const maxBatchSize = 50

// Handler handles API requests
type Handler struct {
	core    *engine.Engine
	started time.Time
}

// NewHandler creates a new API handler
func NewHandler(core *engine.Engine) *Handler {
	return &Handler{core: core, started: time.Now()}
}

// ListOperations returns a page of catalog operations
func (h *Handler) ListOperations(c *gin.Context) {
	ops := h.core.Operations(c.Query("section"))

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	start := (page - 1) * pageSize
	if start > len(ops) {
		start = len(ops)
	}
	end := start + pageSize
	if end > len(ops) {
		end = len(ops)
	}

	items := make([]models.OperationSummary, 0, end-start)
	for _, op := range ops[start:end] {
		items = append(items, op.Summary())
	}

	c.JSON(http.StatusOK, gin.H{
		"items":    items,
		"total":    len(ops),
		"page":     page,
		"pageSize": pageSize,
		"sections": h.core.Catalog().Sections(),
	})
}

// DescribeOperation returns the parameter documentation of an operation
func (h *Handler) DescribeOperation(c *gin.Context) {
	doc, err := h.core.Describe(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Search ranks operations against the q parameter
func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q is required"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	res := h.core.Search(query, limit)

	matches := make([]gin.H, 0, len(res.Matches))
	for _, m := range res.Matches {
		matches = append(matches, gin.H{
			"operation": m.Operation.Summary(),
			"score":     m.Score,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"query":    res.Query,
		"fastPath": res.FastPath,
		"matches":  matches,
	})
}

type executeRequest struct {
	OperationID    string         `json:"operationId" binding:"required"`
	Args           map[string]any `json:"args"`
	Credential     string         `json:"credential"`
	OrganizationID string         `json:"organizationId"`
	Fields         []string       `json:"fields"`
}

func (r executeRequest) input() engine.ExecuteInput {
	return engine.ExecuteInput{
		OperationID:    r.OperationID,
		Args:           r.Args,
		Credential:     r.Credential,
		OrganizationID: r.OrganizationID,
		Fields:         r.Fields,
	}
}

// Execute runs one operation
func (h *Handler) Execute(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.core.Execute(c.Request.Context(), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ExecuteBatch runs several operations concurrently
func (h *Handler) ExecuteBatch(c *gin.Context) {
	var req struct {
		Calls []executeRequest `json:"calls" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Calls) == 0 || len(req.Calls) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Batch must contain between 1 and " + strconv.Itoa(maxBatchSize) + " calls"})
		return
	}

	inputs := make([]engine.ExecuteInput, len(req.Calls))
	for i, call := range req.Calls {
		inputs[i] = call.input()
	}

	results := h.core.ExecuteBatch(c.Request.Context(), inputs)

	out := make([]gin.H, len(results))
	for i, r := range results {
		if r.Err != nil {
			status, body := errorResponse(r.Err)
			body["status"] = status
			out[i] = gin.H{"error": body}
			continue
		}
		out[i] = gin.H{"result": r.Result}
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

// ListCredentials returns the masked credentials of a backend
func (h *Handler) ListCredentials(c *gin.Context) {
	backend := c.DefaultQuery("backend", models.BackendMeraki)
	infos, err := h.core.Credentials(backend)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backend": backend, "credentials": infos})
}

// SetActiveCredential switches the active credential of a backend
func (h *Handler) SetActiveCredential(c *gin.Context) {
	var input struct {
		Backend string `json:"backend"`
		Label   string `json:"label" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Backend == "" {
		input.Backend = models.BackendMeraki
	}

	if err := h.core.SetActive(input.Backend, input.Label); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backend": input.Backend, "active": input.Label})
}

// DiscoverOrganizations maps every reachable organization to a credential
func (h *Handler) DiscoverOrganizations(c *gin.Context) {
	orgs, err := h.core.DiscoverOrganizations(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"organizations": orgs, "total": len(orgs)})
}

// ListOrganizations returns discovered organizations, optionally filtered by name
func (h *Handler) ListOrganizations(c *gin.Context) {
	orgs := h.core.KnownOrganizations()
	if name := c.Query("name"); name != "" {
		orgs = h.core.FindOrganizations(name, c.DefaultQuery("exact", "false") != "true")
	}
	c.JSON(http.StatusOK, gin.H{"organizations": orgs, "total": len(orgs)})
}

// ClearCache drops cached responses of one credential, or all of them
func (h *Handler) ClearCache(c *gin.Context) {
	if label := c.Query("credential"); label != "" {
		backend := c.DefaultQuery("backend", models.BackendMeraki)
		n := h.core.Invalidate(backend, label)
		c.JSON(http.StatusOK, gin.H{"message": "Cache invalidated", "backend": backend, "credential": label, "removed": n})
		return
	}
	n := h.core.CacheSize()
	h.core.ClearCache()
	c.JSON(http.StatusOK, gin.H{"message": "Cache cleared", "removed": n})
}

// GetGlobalStats returns global statistics
func (h *Handler) GetGlobalStats(c *gin.Context) {
	stats := h.core.Stats().GetGlobalStats(h.core.Catalog().Len())
	c.JSON(http.StatusOK, stats)
}

// GetOperationStats returns statistics for an operation
func (h *Handler) GetOperationStats(c *gin.Context) {
	id := c.Param("id")

	stats := h.core.Stats().GetOperationStats(id)
	if stats == nil {
		c.JSON(http.StatusOK, gin.H{"message": "No statistics available"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ResetStats resets all statistics
func (h *Handler) ResetStats(c *gin.Context) {
	h.core.Stats().Reset()
	c.JSON(http.StatusOK, gin.H{"message": "Statistics reset"})
}

// ListTraces returns traces
func (h *Handler) ListTraces(c *gin.Context) {
	filter := &models.TraceFilter{
		Limit: 100, // Default limit
	}

	// Parse query params
	if opID := c.Query("operationId"); opID != "" {
		filter.OperationID = opID
	}
	if label := c.Query("credential"); label != "" {
		filter.Credential = label
	}
	if method := c.Query("method"); method != "" {
		filter.Method = strings.ToUpper(method)
	}
	if status, err := strconv.Atoi(c.Query("status")); err == nil {
		filter.StatusCode = status
	}
	if c.Query("errorsOnly") == "true" {
		filter.ErrorsOnly = true
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}

	traces := h.core.Tracer().GetTraces(filter)
	c.JSON(http.StatusOK, traces)
}

// GetTrace returns a single trace
func (h *Handler) GetTrace(c *gin.Context) {
	id := c.Param("id")

	trace := h.core.Tracer().GetTrace(id)
	if trace == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trace not found"})
		return
	}

	c.JSON(http.StatusOK, trace)
}

// ClearTraces clears all traces, or those of one credential
func (h *Handler) ClearTraces(c *gin.Context) {
	if label := c.Query("credential"); label != "" {
		h.core.Tracer().ClearTracesByCredential(label)
	} else {
		h.core.Tracer().ClearTraces()
	}
	c.JSON(http.StatusOK, gin.H{"message": "Traces cleared"})
}

// HealthCheck returns health status
func (h *Handler) HealthCheck(c *gin.Context) {
	merakiKeys, _ := h.core.Credentials(models.BackendMeraki)
	selentKeys, _ := h.core.Credentials(models.BackendSelent)

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().Format(time.RFC3339),
		"uptime":     time.Since(h.started).Round(time.Second).String(),
		"operations": h.core.Catalog().Len(),
		"credentials": gin.H{
			models.BackendMeraki: len(merakiKeys),
			models.BackendSelent: len(selentKeys),
		},
	})
}

// writeError maps domain errors onto HTTP statuses
func writeError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	c.JSON(status, body)
}

func errorResponse(err error) (int, gin.H) {
	var (
		verr    *models.ValidationError
		nf      *models.NotFoundError
		execErr *models.ExecutionError
		catErr  *models.CatalogError
	)

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, gin.H{"error": verr.Error(), "details": verr}
	case errors.As(err, &nf):
		return http.StatusNotFound, gin.H{"error": nf.Error(), "details": nf}
	case errors.As(err, &execErr):
		return executionStatus(execErr), gin.H{"error": execErr.Error(), "details": execErr}
	case errors.As(err, &catErr):
		return http.StatusInternalServerError, gin.H{"error": catErr.Error(), "details": catErr}
	}
	return http.StatusBadGateway, gin.H{"error": err.Error()}
}

func executionStatus(e *models.ExecutionError) int {
	switch e.Kind {
	case models.KindRateLimited:
		return http.StatusTooManyRequests
	case models.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
