package credentials

import (
	"fmt"
	"strings"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

// KeyPair is one labelled secret parsed from configuration
type KeyPair struct {
	Label  string
	Secret string
}

// ParseKeys parses a comma-separated key list such as
// "prod:abc123,lab:def456" or a single bare key. A lone bare key gets the
// default label; bare keys in a longer list are labelled key_<position>.
func ParseKeys(s string) ([]KeyPair, error) {
	var entries []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			entries = append(entries, part)
		}
	}

	pairs := make([]KeyPair, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		var label, secret string
		if name, key, ok := strings.Cut(entry, ":"); ok {
			label = strings.TrimSpace(name)
			secret = strings.TrimSpace(key)
			if label == "" {
				return nil, fmt.Errorf("key entry %d: empty name", i+1)
			}
			if secret == "" {
				return nil, fmt.Errorf("key entry %q: empty key", label)
			}
		} else {
			secret = entry
			if len(entries) == 1 {
				label = models.DefaultLabel
			} else {
				label = fmt.Sprintf("key_%d", i+1)
			}
		}

		if seen[label] {
			return nil, fmt.Errorf("duplicate key name %q", label)
		}
		seen[label] = true
		pairs = append(pairs, KeyPair{Label: label, Secret: secret})
	}
	return pairs, nil
}

// RegisterAll adds every pair to m in order
func RegisterAll(m *Manager, pairs []KeyPair) error {
	for _, p := range pairs {
		if err := m.Register(p.Label, p.Secret); err != nil {
			return fmt.Errorf("failed to register key %s: %w", p.Label, err)
		}
	}
	return nil
}
