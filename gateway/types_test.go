package gateway_test

import (
	"testing"
	"time"

	pkgerrors "github.com/yasminebenbraiek/multimedia-library-api/errors"
	"github.com/yasminebenbraiek/multimedia-library-api/gateway"
)

func validConfig() gateway.Config {
	return gateway.DefaultConfig()
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *gateway.Config)
		expectError bool
	}{
		{
			name:        "defaults are valid",
			mutate:      func(c *gateway.Config) {},
			expectError: false,
		},
		{
			name: "valid config with CORS",
			mutate: func(c *gateway.Config) {
				c.EnableCORS = true
				c.CORSOrigins = []string{"https://example.com"}
			},
			expectError: false,
		},
		{
			name: "CORS without origins",
			mutate: func(c *gateway.Config) {
				c.EnableCORS = true
				c.CORSOrigins = nil
			},
			expectError: true,
		},
		{
			name:        "negative max request size",
			mutate:      func(c *gateway.Config) { c.MaxRequestSize = -1 },
			expectError: true,
		},
		{
			name:        "max request size too large",
			mutate:      func(c *gateway.Config) { c.MaxRequestSize = 200 * 1024 * 1024 },
			expectError: true,
		},
		{
			name:        "unparsable call timeout",
			mutate:      func(c *gateway.Config) { c.CallTimeoutStr = "soon" },
			expectError: true,
		},
		{
			name:        "call timeout too short",
			mutate:      func(c *gateway.Config) { c.CallTimeoutStr = "10ms" },
			expectError: true,
		},
		{
			name:        "graphql path without slash",
			mutate:      func(c *gateway.Config) { c.GraphQLPath = "graphql" },
			expectError: true,
		},
		{
			name:        "graphql depth too large",
			mutate:      func(c *gateway.Config) { c.GraphQLMaxDepth = 51 },
			expectError: true,
		},
		{
			name:        "missing backend",
			mutate:      func(c *gateway.Config) { delete(c.Backends, "magazine") },
			expectError: true,
		},
		{
			name: "unknown backend kind",
			mutate: func(c *gateway.Config) {
				c.Backends["podcast"] = gateway.BackendConfig{Address: "localhost:50054"}
			},
			expectError: true,
		},
		{
			name: "rate limit without rate",
			mutate: func(c *gateway.Config) {
				c.RateLimit = gateway.RateLimitConfig{Enabled: true}
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error but got nil")
				}
				if !pkgerrors.IsInvalid(err) {
					t.Errorf("expected Invalid error classification, got: %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := gateway.Config{
		Backends: validConfig().Backends,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ListenAddr != ":4000" {
		t.Errorf("expected default listen address :4000, got %q", cfg.ListenAddr)
	}
	if cfg.GraphQLPath != "/graphql" {
		t.Errorf("expected default graphql path, got %q", cfg.GraphQLPath)
	}
	if cfg.GraphQLMaxDepth != 10 {
		t.Errorf("expected default graphql depth 10, got %d", cfg.GraphQLMaxDepth)
	}
	if cfg.MaxRequestSize != 1024*1024 {
		t.Errorf("expected 1MB default max request size, got %d", cfg.MaxRequestSize)
	}
	if cfg.CallTimeout() != 5*time.Second {
		t.Errorf("expected 5s default call timeout, got %v", cfg.CallTimeout())
	}
}

func TestDefaultConfig_Ports(t *testing.T) {
	cfg := gateway.DefaultConfig()

	expected := map[string]string{
		"book":        "localhost:50051",
		"magazine":    "localhost:50052",
		"audiovisual": "localhost:50053",
	}
	for kind, addr := range expected {
		if got := cfg.Backends[kind].Address; got != addr {
			t.Errorf("backend %s: expected %s, got %s", kind, addr, got)
		}
	}
}
