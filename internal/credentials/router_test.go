package credentials

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

func TestOrgRouterDiscover(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("prod", "p"))
	require.NoError(t, m.Register("lab", "l"))

	responses := map[string]string{
		"p": `[{"id":"100","name":"Prod Org"},{"id":"300","name":"Shared"}]`,
		"l": `[{"id":"200","name":"Lab Org"},{"id":"300","name":"Shared"}]`,
	}
	fetch := func(ctx context.Context, cred models.Credential) ([]byte, error) {
		return []byte(responses[cred.Secret]), nil
	}

	r := NewOrgRouter(m, zerolog.Nop())
	orgs, err := r.Discover(context.Background(), fetch)
	require.NoError(t, err)
	assert.Len(t, orgs, 3)

	label, ok := r.LabelFor("100")
	assert.True(t, ok)
	assert.Equal(t, "prod", label)

	label, ok = r.LabelFor("200")
	assert.True(t, ok)
	assert.Equal(t, "lab", label)

	// shared organizations go to the first registered credential
	label, ok = r.LabelFor("300")
	assert.True(t, ok)
	assert.Equal(t, "prod", label)

	_, ok = r.LabelFor("999")
	assert.False(t, ok)

	assert.Equal(t, models.OrgInfo{ID: "100", Name: "Prod Org", Credential: "prod"}, r.Organizations()[0])
}

func TestOrgRouterPartialFailure(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("prod", "p"))
	require.NoError(t, m.Register("broken", "b"))

	fetch := func(ctx context.Context, cred models.Credential) ([]byte, error) {
		if cred.Label == "broken" {
			return nil, fmt.Errorf("401 unauthorized")
		}
		return []byte(`[{"id":"100","name":"Prod Org"}]`), nil
	}

	r := NewOrgRouter(m, zerolog.Nop())
	orgs, err := r.Discover(context.Background(), fetch)
	require.NoError(t, err)
	assert.Len(t, orgs, 1)
}

func TestOrgRouterAllFail(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("prod", "p"))

	fetch := func(ctx context.Context, cred models.Credential) ([]byte, error) {
		return []byte(`{"errors":["nope"]}`), nil
	}

	r := NewOrgRouter(m, zerolog.Nop())
	_, err := r.Discover(context.Background(), fetch)
	assert.Error(t, err)
	assert.Empty(t, r.Organizations())
}

func TestOrgRouterNoCredentials(t *testing.T) {
	r := NewOrgRouter(NewManager(), zerolog.Nop())
	_, err := r.Discover(context.Background(), nil)
	assert.Error(t, err)
}
