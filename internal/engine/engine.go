// Package engine ties the operation catalog, search index, parameter
// resolver, credential managers and dispatcher into one entry point used
// by the HTTP and MCP tool surfaces.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prasenjit/go-meraki-mcp/internal/catalog"
	"github.com/prasenjit/go-meraki-mcp/internal/credentials"
	"github.com/prasenjit/go-meraki-mcp/internal/dispatcher"
	"github.com/prasenjit/go-meraki-mcp/internal/models"
	"github.com/prasenjit/go-meraki-mcp/internal/resolver"
	"github.com/prasenjit/go-meraki-mcp/internal/search"
	"github.com/prasenjit/go-meraki-mcp/internal/stats"
	"github.com/prasenjit/go-meraki-mcp/internal/storage"
	"github.com/prasenjit/go-meraki-mcp/internal/tracing"
)

// Options configures an Engine
type Options struct {
	// Catalog defaults to the builtin catalog merged with ExtraOperations
	Catalog         *catalog.Catalog
	ExtraOperations []*models.OperationSpec

	// Parsed credentials per backend
	MerakiKeys []credentials.KeyPair
	SelentKeys []credentials.KeyPair

	Dispatcher dispatcher.Options
	Cache      storage.Cache

	// Fast-path intents; nil uses search.DefaultIntents
	Intents map[string]string

	Logger zerolog.Logger
}

// Engine is the discovery and execution facade
type Engine struct {
	catalog    *catalog.Catalog
	index      *search.Index
	creds      map[string]*credentials.Manager
	router     *credentials.OrgRouter
	dispatcher *dispatcher.Dispatcher
	cache      storage.Cache
	logger     zerolog.Logger
}

// New builds an Engine. Catalog inconsistencies and bad credentials are returned as errors.
func New(opts Options) (*Engine, error) {
	cat := opts.Catalog
	if cat == nil {
		ops, err := catalog.BuiltinOperations()
		if err != nil {
			return nil, err
		}
		cat, err = catalog.New(catalog.Merge(ops, opts.ExtraOperations))
		if err != nil {
			return nil, err
		}
	}

	creds := map[string]*credentials.Manager{
		models.BackendMeraki: credentials.NewManager(),
		models.BackendSelent: credentials.NewManager(),
	}
	if err := credentials.RegisterAll(creds[models.BackendMeraki], opts.MerakiKeys); err != nil {
		return nil, fmt.Errorf("meraki credentials: %w", err)
	}
	if err := credentials.RegisterAll(creds[models.BackendSelent], opts.SelentKeys); err != nil {
		return nil, fmt.Errorf("selent credentials: %w", err)
	}

	dopts := opts.Dispatcher
	if dopts.Stats == nil {
		dopts.Stats = stats.NewCollector()
	}
	if dopts.Metrics == nil {
		dopts.Metrics = stats.NewMetrics()
	}
	if dopts.Tracer == nil {
		dopts.Tracer = tracing.NewService(1000, 0)
	}

	cache := opts.Cache
	if cache == nil {
		cache = storage.NewMemoryCache()
	}

	intents := opts.Intents
	if intents == nil {
		intents = search.DefaultIntents
	}

	e := &Engine{
		catalog:    cat,
		index:      search.NewIndexWithIntents(cat, intents),
		creds:      creds,
		router:     credentials.NewOrgRouter(creds[models.BackendMeraki], opts.Logger),
		dispatcher: dispatcher.New(dopts, cache, opts.Logger),
		cache:      cache,
		logger:     opts.Logger,
	}

	e.logger.Info().
		Int("operations", cat.Len()).
		Int("merakiKeys", creds[models.BackendMeraki].Len()).
		Int("selentKeys", creds[models.BackendSelent].Len()).
		Msg("engine ready")

	return e, nil
}

// Catalog returns the operation catalog
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Stats returns the execution statistics collector
func (e *Engine) Stats() *stats.Collector { return e.dispatcher.Options().Stats }

// Metrics returns the Prometheus metrics
func (e *Engine) Metrics() *stats.Metrics { return e.dispatcher.Options().Metrics }

// Tracer returns the trace service
func (e *Engine) Tracer() *tracing.Service { return e.dispatcher.Options().Tracer }

// Close releases the response cache
func (e *Engine) Close() error { return e.cache.Close() }

// Search ranks operations against a free-form query, fast path first
func (e *Engine) Search(query string, limit int) search.Result {
	return e.index.Lookup(query, limit)
}

// Lookup returns the operation with the given id
func (e *Engine) Lookup(operationID string) (*models.OperationSpec, error) {
	return e.catalog.Lookup(operationID)
}

// Operations lists catalog operations, optionally restricted to one section
func (e *Engine) Operations(section string) []*models.OperationSpec {
	all := e.catalog.All()
	if section == "" {
		return all
	}
	out := make([]*models.OperationSpec, 0)
	for _, op := range all {
		if strings.EqualFold(op.Section, section) {
			out = append(out, op)
		}
	}
	return out
}

// ParamDoc documents one parameter of an operation
type ParamDoc struct {
	Name        string          `json:"name"`
	Location    models.Location `json:"location"`
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Allowed     []string        `json:"allowed,omitempty"`
	Default     any             `json:"default,omitempty"`
	Nullable    bool            `json:"nullable,omitempty"`
}

// OperationDoc is the parameter documentation of one operation
type OperationDoc struct {
	models.OperationSummary
	Required []ParamDoc     `json:"required"`
	Optional []ParamDoc     `json:"optional"`
	Example  map[string]any `json:"example"`
}

// Describe documents the parameters an operation accepts
func (e *Engine) Describe(operationID string) (*OperationDoc, error) {
	op, err := e.catalog.Lookup(operationID)
	if err != nil {
		return nil, err
	}

	doc := &OperationDoc{
		OperationSummary: op.Summary(),
		Required:         []ParamDoc{},
		Optional:         []ParamDoc{},
		Example:          map[string]any{},
	}
	for _, p := range op.Params() {
		pd := ParamDoc{
			Name:        p.Name,
			Location:    p.Location,
			Type:        string(p.Type),
			Description: p.Description,
			Allowed:     p.AllowedValues,
			Default:     p.Default,
			Nullable:    p.Nullable,
		}
		if p.Required {
			doc.Required = append(doc.Required, pd)
			doc.Example[p.Name] = exampleValue(p)
		} else {
			doc.Optional = append(doc.Optional, pd)
		}
	}
	return doc, nil
}

func exampleValue(p models.ParameterSpec) any {
	switch p.Type {
	case models.TypeInteger:
		return 0
	case models.TypeBoolean:
		return false
	case models.TypeEnum:
		if len(p.AllowedValues) > 0 {
			return p.AllowedValues[0]
		}
	case models.TypeArray:
		return []any{}
	case models.TypeObject:
		return map[string]any{}
	}
	return "<" + p.Name + ">"
}

// ExecuteInput is one execution request
type ExecuteInput struct {
	OperationID    string         `json:"operationId"`
	Args           map[string]any `json:"args,omitempty"`
	Credential     string         `json:"credential,omitempty"`
	OrganizationID string         `json:"organizationId,omitempty"`
	Fields         []string       `json:"fields,omitempty"`
}

// Execute resolves and dispatches one operation.
// The credential is the explicit label if given, otherwise the label owning
// the organization in the arguments, otherwise the active one.
func (e *Engine) Execute(ctx context.Context, in ExecuteInput) (*models.ExecutionResult, error) {
	op, err := e.catalog.Lookup(in.OperationID)
	if err != nil {
		return nil, err
	}

	req, err := resolver.Resolve(op, in.Args)
	if err != nil {
		return nil, err
	}
	if err := validateFields(in.Fields); err != nil {
		return nil, err
	}

	cred, err := e.credentialFor(op, in)
	if err != nil {
		return nil, err
	}

	res, err := e.dispatcher.Execute(ctx, req, cred)
	if err != nil {
		return nil, err
	}

	if len(in.Fields) > 0 {
		projected, err := Project(res.Body, in.Fields)
		if err != nil {
			return nil, err
		}
		out := *res
		out.Body = projected
		res = &out
	}
	return res, nil
}

func (e *Engine) credentialFor(op *models.OperationSpec, in ExecuteInput) (models.Credential, error) {
	manager, err := e.manager(op.Backend)
	if err != nil {
		return models.Credential{}, err
	}

	if in.Credential != "" {
		return manager.Resolve(in.Credential)
	}

	if op.Backend == models.BackendMeraki {
		orgID := in.OrganizationID
		if orgID == "" {
			if v, ok := in.Args["organizationId"].(string); ok {
				orgID = v
			}
		}
		if orgID != "" {
			if label, ok := e.router.LabelFor(orgID); ok {
				return manager.Resolve(label)
			}
		}
	}

	return manager.Resolve("")
}

// ExecuteBatch runs several executions concurrently; results are index-aligned with inputs
func (e *Engine) ExecuteBatch(ctx context.Context, inputs []ExecuteInput) []dispatcher.BatchResult {
	results := make([]dispatcher.BatchResult, len(inputs))
	calls := make([]dispatcher.Call, 0, len(inputs))
	slots := make([]int, 0, len(inputs))

	for i, in := range inputs {
		op, err := e.catalog.Lookup(in.OperationID)
		if err != nil {
			results[i].Err = err
			continue
		}
		req, err := resolver.Resolve(op, in.Args)
		if err != nil {
			results[i].Err = err
			continue
		}
		if err := validateFields(in.Fields); err != nil {
			results[i].Err = err
			continue
		}
		cred, err := e.credentialFor(op, in)
		if err != nil {
			results[i].Err = err
			continue
		}
		calls = append(calls, dispatcher.Call{Request: req, Credential: cred})
		slots = append(slots, i)
	}

	for j, r := range e.dispatcher.ExecuteBatch(ctx, calls) {
		i := slots[j]
		results[i] = r
		if r.Err == nil && len(inputs[i].Fields) > 0 {
			projected, err := Project(r.Result.Body, inputs[i].Fields)
			if err != nil {
				results[i] = dispatcher.BatchResult{Err: err}
				continue
			}
			out := *r.Result
			out.Body = projected
			results[i].Result = &out
		}
	}
	return results
}

func (e *Engine) manager(backend string) (*credentials.Manager, error) {
	if backend == "" {
		backend = models.BackendMeraki
	}
	m, ok := e.creds[backend]
	if !ok {
		return nil, &models.NotFoundError{Kind: "backend", Name: backend, Candidates: e.backends()}
	}
	return m, nil
}

func (e *Engine) backends() []string {
	out := make([]string, 0, len(e.creds))
	for name := range e.creds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Credentials lists the credentials of a backend without their secrets
func (e *Engine) Credentials(backend string) ([]models.CredentialInfo, error) {
	m, err := e.manager(backend)
	if err != nil {
		return nil, err
	}
	return m.Describe(), nil
}

// SetActive switches the active credential of a backend
func (e *Engine) SetActive(backend, label string) error {
	m, err := e.manager(backend)
	if err != nil {
		return err
	}
	if err := m.SetActive(label); err != nil {
		return err
	}
	e.logger.Info().Str("backend", backend).Str("credential", label).Msg("active credential changed")
	return nil
}

// DiscoverOrganizations asks every dashboard credential for its organizations
// and remembers which credential owns each one.
func (e *Engine) DiscoverOrganizations(ctx context.Context) ([]models.OrgInfo, error) {
	op, err := e.catalog.Lookup("getOrganizations")
	if err != nil {
		return nil, err
	}
	req, err := resolver.Resolve(op, nil)
	if err != nil {
		return nil, err
	}

	fetch := func(ctx context.Context, cred models.Credential) ([]byte, error) {
		res, err := e.dispatcher.Execute(ctx, req, cred)
		if err != nil {
			return nil, err
		}
		return marshalBody(res.Body)
	}
	return e.router.Discover(ctx, fetch)
}

// KnownOrganizations returns the organizations found by the last discovery
func (e *Engine) KnownOrganizations() []models.OrgInfo {
	return e.router.Organizations()
}

// FindOrganizations matches discovered organizations by name.
// Fuzzy matching is a case-insensitive substring test.
func (e *Engine) FindOrganizations(name string, fuzzy bool) []models.OrgInfo {
	matches := make([]models.OrgInfo, 0)
	needle := strings.ToLower(name)
	for _, org := range e.router.Organizations() {
		if fuzzy && strings.Contains(strings.ToLower(org.Name), needle) {
			matches = append(matches, org)
		} else if !fuzzy && org.Name == name {
			matches = append(matches, org)
		}
	}
	return matches
}

// Invalidate drops every cached response of one credential of a backend
func (e *Engine) Invalidate(backend, label string) int {
	if backend == "" {
		backend = models.BackendMeraki
	}
	n := e.dispatcher.Invalidate(backend, label)
	e.logger.Info().Str("backend", backend).Str("credential", label).Int("entries", n).Msg("cache invalidated")
	return n
}

// ClearCache drops every cached response
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// CacheSize returns the number of cached responses
func (e *Engine) CacheSize() int {
	return e.cache.Len()
}
