package credentials

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

// Manager holds the labelled secrets of one backend and tracks which one
// is active. The active label is swapped atomically, so concurrent readers
// always observe either the old or the new value.
type Manager struct {
	mu      sync.RWMutex
	secrets map[string]string
	order   []string
	active  atomic.Pointer[string]
}

// NewManager creates an empty credential manager
func NewManager() *Manager {
	return &Manager{secrets: make(map[string]string)}
}

// Register adds a credential. An empty label means the default label.
// The first credential registered becomes active.
func (m *Manager) Register(label, secret string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		label = models.DefaultLabel
	}
	if strings.TrimSpace(secret) == "" {
		return &models.ValidationError{Param: label, Reason: "empty secret"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.secrets[label]; exists {
		return &models.ValidationError{Param: label, Reason: "credential label already registered"}
	}
	m.secrets[label] = secret
	m.order = append(m.order, label)

	if m.active.Load() == nil {
		m.active.Store(&label)
	}
	return nil
}

// SetActive makes label the default for calls that name no credential.
// An unknown label leaves the previous active credential in place.
func (m *Manager) SetActive(label string) error {
	m.mu.RLock()
	_, exists := m.secrets[label]
	labels := append([]string(nil), m.order...)
	m.mu.RUnlock()

	if !exists {
		return &models.NotFoundError{Kind: "credential", Name: label, Candidates: labels}
	}
	m.active.Store(&label)
	return nil
}

// Active returns the active label, or "" when nothing is registered
func (m *Manager) Active() string {
	if p := m.active.Load(); p != nil {
		return *p
	}
	return ""
}

// Resolve returns the credential for label; "" selects the active one
func (m *Manager) Resolve(label string) (models.Credential, error) {
	active := m.Active()
	if label == "" {
		label = active
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if label == "" {
		return models.Credential{}, fmt.Errorf("no credentials registered")
	}
	secret, exists := m.secrets[label]
	if !exists {
		return models.Credential{}, &models.NotFoundError{
			Kind:       "credential",
			Name:       label,
			Candidates: append([]string(nil), m.order...),
		}
	}
	return models.Credential{Label: label, Secret: secret, Active: label == active}, nil
}

// List returns the registered labels in registration order
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// All returns every credential in registration order
func (m *Manager) All() []models.Credential {
	active := m.Active()

	m.mu.RLock()
	defer m.mu.RUnlock()

	creds := make([]models.Credential, 0, len(m.order))
	for _, label := range m.order {
		creds = append(creds, models.Credential{Label: label, Secret: m.secrets[label], Active: label == active})
	}
	return creds
}

// Describe lists credentials with masked secrets
func (m *Manager) Describe() []models.CredentialInfo {
	creds := m.All()
	infos := make([]models.CredentialInfo, len(creds))
	for i, c := range creds {
		infos[i] = models.CredentialInfo{Label: c.Label, Active: c.Active, Masked: models.Mask(c.Secret)}
	}
	return infos
}

// Len returns the number of registered credentials
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}
