package dispatcher

import (
	"net/http"
	"time"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
	"github.com/prasenjit/go-meraki-mcp/internal/stats"
	"github.com/prasenjit/go-meraki-mcp/internal/tracing"
)

// Backend is one remote API the dispatcher can call
type Backend struct {
	BaseURL    string
	AuthHeader string // header carrying the secret
	AuthPrefix string // prepended to the secret, e.g. "Bearer "
}

// MerakiBackend returns the dashboard API backend at baseURL
func MerakiBackend(baseURL string) Backend {
	return Backend{BaseURL: baseURL, AuthHeader: "Authorization", AuthPrefix: "Bearer "}
}

// SelentBackend returns the backup and compliance backend at baseURL
func SelentBackend(baseURL string) Backend {
	return Backend{BaseURL: baseURL, AuthHeader: "x-api-key"}
}

// Options configures a Dispatcher
type Options struct {
	Backends  map[string]Backend
	UserAgent string

	// Retry
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Per-credential pacing; zero RequestsPerSecond disables it
	RequestsPerSecond float64
	Burst             int

	CacheTTL       time.Duration
	RequestTimeout time.Duration // bounds one Execute when the caller sets no deadline
	MaxParallel    int

	HTTPClient *http.Client

	// Optional observers
	Stats   *stats.Collector
	Metrics *stats.Metrics
	Tracer  *tracing.Service
}

// DefaultOptions returns the dispatcher defaults for the public dashboard API
func DefaultOptions() Options {
	return Options{
		Backends: map[string]Backend{
			models.BackendMeraki: MerakiBackend("https://api.meraki.com/api/v1"),
			models.BackendSelent: SelentBackend("https://backend.selent.ai"),
		},
		UserAgent:         "SelentMCP/1.0 SelentAI",
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        8 * time.Second,
		RequestsPerSecond: 10,
		Burst:             10,
		CacheTTL:          300 * time.Second,
		RequestTimeout:    90 * time.Second,
		MaxParallel:       8,
	}
}

func (o *Options) applyDefaults() {
	d := DefaultOptions()
	if o.Backends == nil {
		o.Backends = d.Backends
	}
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = d.InitialBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = d.MaxBackoff
	}
	if o.MaxBackoff < o.InitialBackoff {
		o.MaxBackoff = o.InitialBackoff
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.MaxParallel <= 0 {
		o.MaxParallel = d.MaxParallel
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
}
