package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

// FetchOrganizations returns the raw JSON organization list visible to cred
type FetchOrganizations func(ctx context.Context, cred models.Credential) ([]byte, error)

// OrgRouter remembers which credential can reach which organization
type OrgRouter struct {
	manager *Manager
	logger  zerolog.Logger

	mu   sync.RWMutex
	orgs map[string]models.OrgInfo
	list []models.OrgInfo
}

// NewOrgRouter creates a router over the credentials of manager
func NewOrgRouter(manager *Manager, logger zerolog.Logger) *OrgRouter {
	return &OrgRouter{
		manager: manager,
		logger:  logger,
		orgs:    make(map[string]models.OrgInfo),
	}
}

// Discover queries the organizations of every credential concurrently and
// rebuilds the routing table. When two credentials see the same
// organization the one registered first wins. Discover fails only if no
// credential could be queried.
func (r *OrgRouter) Discover(ctx context.Context, fetch FetchOrganizations) ([]models.OrgInfo, error) {
	creds := r.manager.All()
	if len(creds) == 0 {
		return nil, fmt.Errorf("no credentials registered")
	}

	found := make([][]models.OrgInfo, len(creds))
	errs := make([]error, len(creds))

	var g errgroup.Group
	for i, cred := range creds {
		g.Go(func() error {
			data, err := fetch(ctx, cred)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", cred.Label, err)
				return nil
			}
			orgs, err := parseOrganizations(data, cred.Label)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", cred.Label, err)
				return nil
			}
			found[i] = orgs
			return nil
		})
	}
	_ = g.Wait()

	orgs := make(map[string]models.OrgInfo)
	var list []models.OrgInfo
	failed := 0
	for i := range creds {
		if errs[i] != nil {
			failed++
			r.logger.Warn().Err(errs[i]).Str("credential", creds[i].Label).Msg("Organization discovery failed")
			continue
		}
		for _, org := range found[i] {
			if _, exists := orgs[org.ID]; exists {
				continue
			}
			orgs[org.ID] = org
			list = append(list, org)
		}
	}
	if failed == len(creds) {
		return nil, fmt.Errorf("organization discovery failed: %w", errors.Join(errs...))
	}

	r.mu.Lock()
	r.orgs = orgs
	r.list = list
	r.mu.Unlock()

	r.logger.Info().Int("organizations", len(list)).Int("credentials", len(creds)-failed).Msg("Organizations discovered")
	return append([]models.OrgInfo(nil), list...), nil
}

func parseOrganizations(data []byte, label string) ([]models.OrgInfo, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid organizations response")
	}
	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("organizations response is not a list")
	}

	orgs := make([]models.OrgInfo, 0, int(parsed.Get("#").Int()))
	parsed.ForEach(func(_, org gjson.Result) bool {
		id := org.Get("id").String()
		if id == "" {
			return true
		}
		orgs = append(orgs, models.OrgInfo{ID: id, Name: org.Get("name").String(), Credential: label})
		return true
	})
	return orgs, nil
}

// LabelFor returns the credential label that can reach orgID
func (r *OrgRouter) LabelFor(orgID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	org, ok := r.orgs[orgID]
	return org.Credential, ok
}

// Organizations returns the discovered organizations in discovery order
func (r *OrgRouter) Organizations() []models.OrgInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.OrgInfo(nil), r.list...)
}
