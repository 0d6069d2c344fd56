package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/errors"
	"github.com/yasminebenbraiek/multimedia-library-api/pkg/security"
)

// BackendConfig addresses the catalog service for one kind
type BackendConfig struct {
	// Address is the service's host:port (e.g., "localhost:50051")
	Address string `json:"address"`

	// TLS configures the client side of the link
	TLS security.ClientTLSConfig `json:"tls,omitempty"`
}

// RateLimitConfig configures the token bucket shared by both facades
type RateLimitConfig struct {
	Enabled bool `json:"enabled"`

	// RequestsPerSecond is the sustained rate
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`

	// Burst is the bucket size (default: RequestsPerSecond rounded up)
	Burst int `json:"burst,omitempty"`
}

// Config holds configuration for the gateway and its facades
type Config struct {
	// ListenAddr is the HTTP bind address for both facades (default: ":4000")
	ListenAddr string `json:"listen_addr"`

	// GraphQLPath is where the graph facade is mounted (default: "/graphql")
	GraphQLPath string `json:"graphql_path"`

	// GraphQLMaxDepth limits selection nesting on the graph facade (default: 10)
	GraphQLMaxDepth int `json:"graphql_max_depth,omitempty"`

	// EnableCORS enables CORS headers (default: false, requires explicit cors_origins)
	EnableCORS bool `json:"enable_cors"`

	// CORSOrigins lists allowed CORS origins (required when EnableCORS is true)
	// Use ["*"] for development only
	CORSOrigins []string `json:"cors_origins,omitempty"`

	// MaxRequestSize limits request body size in bytes (default: 1MB)
	MaxRequestSize int64 `json:"max_request_size,omitempty"`

	// CallTimeoutStr bounds every backend call (default: "5s")
	CallTimeoutStr string `json:"call_timeout,omitempty"`

	// RateLimit guards both facades
	RateLimit RateLimitConfig `json:"rate_limit"`

	// Backends maps each kind ("book", "magazine", "audiovisual") to its service
	Backends map[string]BackendConfig `json:"backends"`

	// callTimeout is the parsed duration (internal use)
	callTimeout time.Duration
}

// Validate ensures the gateway configuration is valid and fills in defaults
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = ":4000"
	}

	if c.GraphQLPath == "" {
		c.GraphQLPath = "/graphql"
	}
	if !strings.HasPrefix(c.GraphQLPath, "/") {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("graphql_path must start with '/': %s", c.GraphQLPath))
	}

	if c.GraphQLMaxDepth == 0 {
		c.GraphQLMaxDepth = 10
	}
	if c.GraphQLMaxDepth < 1 || c.GraphQLMaxDepth > 50 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"graphql_max_depth must be between 1 and 50")
	}

	if c.MaxRequestSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"max_request_size cannot be negative")
	}
	if c.MaxRequestSize == 0 {
		c.MaxRequestSize = 1024 * 1024 // 1MB default
	}
	if c.MaxRequestSize > 100*1024*1024 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"max_request_size cannot exceed 100MB")
	}

	if c.CallTimeoutStr == "" {
		c.callTimeout = 5 * time.Second
	} else {
		parsed, err := time.ParseDuration(c.CallTimeoutStr)
		if err != nil {
			return errors.WrapInvalid(err, "Config", "Validate",
				fmt.Sprintf("invalid call_timeout format: %s", c.CallTimeoutStr))
		}
		c.callTimeout = parsed
	}
	if c.callTimeout < 100*time.Millisecond || c.callTimeout > 60*time.Second {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"call_timeout must be between 100ms and 60s")
	}

	// CORS requires explicit origin configuration
	if c.EnableCORS && len(c.CORSOrigins) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"enable_cors requires explicit cors_origins configuration (use [\"*\"] for development only)")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				"rate_limit.requests_per_second must be positive when rate limiting is enabled")
		}
		if c.RateLimit.Burst < 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				"rate_limit.burst cannot be negative")
		}
	}

	for _, schema := range catalog.All() {
		backend, ok := c.Backends[string(schema.Kind)]
		if !ok || backend.Address == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
				fmt.Sprintf("backends.%s.address is required", schema.Kind))
		}
	}
	for kind := range c.Backends {
		if _, err := catalog.ParseKind(kind); err != nil {
			return errors.WrapInvalid(err, "Config", "Validate", "backends")
		}
	}

	return nil
}

// CallTimeout returns the parsed per-call deadline
func (c *Config) CallTimeout() time.Duration {
	if c.callTimeout == 0 {
		return 5 * time.Second
	}
	return c.callTimeout
}

// DefaultConfig returns default gateway configuration with the services on
// their conventional local ports
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":4000",
		GraphQLPath:     "/graphql",
		GraphQLMaxDepth: 10,
		EnableCORS:      false, // Disabled by default (requires explicit configuration)
		CORSOrigins:     []string{},
		MaxRequestSize:  1024 * 1024, // 1MB
		CallTimeoutStr:  "5s",
		Backends: map[string]BackendConfig{
			string(catalog.KindBook):        {Address: "localhost:50051"},
			string(catalog.KindMagazine):    {Address: "localhost:50052"},
			string(catalog.KindAudiovisual): {Address: "localhost:50053"},
		},
	}
}
