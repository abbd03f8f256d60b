package search

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasenjit/go-meraki-mcp/internal/catalog"
)

func builtinIndex(t *testing.T) *Index {
	t.Helper()
	cat, err := catalog.Builtin()
	require.NoError(t, err)
	return NewIndex(cat)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"List Organizations", []string{"list", "organizations"}},
		{"getOrganizationNetworks", []string{"get", "organization", "networks"}},
		{"l3FirewallRules", []string{"l3", "firewall", "rules"}},
		{"MXDevice uplink-status", []string{"mx", "device", "uplink", "status"}},
		{"  device   Q2XX-1234 ", []string{"device", "q2xx", "1234"}},
		{"", nil},
		{"!!!", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestSearchListOrganizations(t *testing.T) {
	idx := builtinIndex(t)

	matches := idx.Search("list organizations", 5)
	require.NotEmpty(t, matches)
	assert.LessOrEqual(t, len(matches), 5)
	assert.Equal(t, "getOrganizations", matches[0].Operation.ID)
	assert.True(t, matches[0].Operation.HasTag("organizations"))

	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestSearchUnmatchedQuery(t *testing.T) {
	idx := builtinIndex(t)

	assert.Empty(t, idx.Search("xyzzyunmatched", 5))
	assert.Empty(t, idx.Search("the of and", 5))
	assert.Empty(t, idx.Search("", 5))
}

func TestSearchRanksPhraseAndTags(t *testing.T) {
	idx := builtinIndex(t)

	matches := idx.Search("firewall rules", 3)
	require.NotEmpty(t, matches)
	assert.Equal(t, "getNetworkApplianceFirewallL3FirewallRules", matches[0].Operation.ID)
	assert.Equal(t, "updateNetworkApplianceFirewallL3FirewallRules", matches[1].Operation.ID)

	matches = idx.Search("show switch port configuration", 5)
	require.NotEmpty(t, matches)
	assert.Equal(t, "switch", matches[0].Operation.Section)
}

func TestSearchSynonyms(t *testing.T) {
	idx := builtinIndex(t)

	matches := idx.Search("wifi ssids", 3)
	require.NotEmpty(t, matches)
	assert.Equal(t, "wireless", matches[0].Operation.Section)

	matches = idx.Search("orgs", 3)
	require.NotEmpty(t, matches)
	assert.Equal(t, "organizations", matches[0].Operation.Section)
}

func TestSearchIsDeterministic(t *testing.T) {
	idx := builtinIndex(t)

	first := idx.Search("network", 50)
	for i := 0; i < 5; i++ {
		again := idx.Search("network", 50)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].Operation.ID, again[j].Operation.ID)
		}
	}
}

func TestSearchTieBreakByDeclarationOrder(t *testing.T) {
	idx := builtinIndex(t)

	matches := idx.Search("network", 50)
	position := make(map[string]int)
	for i, op := range idx.cat.All() {
		position[op.ID] = i
	}
	for i := 1; i < len(matches); i++ {
		if matches[i-1].Score == matches[i].Score {
			assert.Less(t, position[matches[i-1].Operation.ID], position[matches[i].Operation.ID])
		}
	}
}

func TestSearchLimitIsClamped(t *testing.T) {
	idx := builtinIndex(t)

	assert.LessOrEqual(t, len(idx.Search("get", 500)), MaxLimit)
	assert.LessOrEqual(t, len(idx.Search("get", 0)), DefaultLimit)
	assert.Len(t, idx.Search("get", 1), 1)

	assert.Equal(t, 1, ClampLimit(1))
	assert.Equal(t, DefaultLimit, ClampLimit(-3))
	assert.Equal(t, MaxLimit, ClampLimit(51))
}

func TestFastPathExactMatchOnly(t *testing.T) {
	idx := builtinIndex(t)

	op, ok := idx.FastPath("  List   ORGANIZATIONS! ")
	require.True(t, ok)
	assert.Equal(t, "getOrganizations", op.ID)

	_, ok = idx.FastPath("list organizations please")
	assert.False(t, ok)
	_, ok = idx.FastPath("list organization")
	assert.False(t, ok)

	res := idx.Lookup("device status", 5)
	assert.True(t, res.FastPath)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "getOrganizationDevicesStatuses", res.Matches[0].Operation.ID)
	assert.Equal(t, math.MaxFloat64, res.Matches[0].Score)
	for _, m := range idx.Search("device status", 5) {
		assert.Less(t, m.Score, res.Matches[0].Score)
	}

	res = idx.Lookup("device status of my switches", 5)
	assert.False(t, res.FastPath)
	assert.NotEmpty(t, res.Matches)
}

func TestFastPathDropsUnknownTargets(t *testing.T) {
	cat, err := catalog.Builtin()
	require.NoError(t, err)

	idx := NewIndexWithIntents(cat, map[string]string{
		"Show Orgs":      "getOrganizations",
		"launch rockets": "launchRockets",
	})

	op, ok := idx.FastPath("show orgs")
	require.True(t, ok)
	assert.Equal(t, "getOrganizations", op.ID)

	_, ok = idx.FastPath("launch rockets")
	assert.False(t, ok)
}

func TestRebuildIsIdempotent(t *testing.T) {
	idx := builtinIndex(t)

	before := idx.Search("device clients", 10)
	idx.Rebuild()
	idx.Rebuild()
	after := idx.Search("device clients", 10)

	require.Equal(t, len(before), len(after))
	for i := range before {
		assert.Equal(t, before[i].Operation.ID, after[i].Operation.ID)
		assert.Equal(t, before[i].Score, after[i].Score)
	}
}

func TestConcurrentSearchAndRebuild(t *testing.T) {
	idx := builtinIndex(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if n%4 == 0 {
					idx.Rebuild()
					continue
				}
				matches := idx.Search("list organizations", 5)
				if len(matches) == 0 || matches[0].Operation.ID != "getOrganizations" {
					t.Errorf("unexpected search result during rebuild: %v", matches)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
