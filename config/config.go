package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/errors"
	"github.com/yasminebenbraiek/multimedia-library-api/gateway"
	"github.com/yasminebenbraiek/multimedia-library-api/pkg/security"
)

//go:embed schema.json
var schemaJSON []byte

// ServiceConfig configures one catalog service
type ServiceConfig struct {
	// ListenAddr is the gRPC bind address (e.g., ":50051")
	ListenAddr string `json:"listen_addr"`

	// Database is the SQLite file path
	Database string `json:"database"`

	// MetricsPort overrides metrics.port for this service; 0 keeps it
	MetricsPort int `json:"metrics_port,omitempty"`

	TLS security.ServerTLSConfig `json:"tls,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint of every binary
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

// Config represents the complete application configuration
type Config struct {
	Gateway  gateway.Config           `json:"gateway"`
	Services map[string]ServiceConfig `json:"services"` // keyed by kind
	Metrics  MetricsConfig            `json:"metrics"`
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "SafeConfig", "Update", "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return Default()
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	// Re-derive parsed fields that are not serialized
	_ = clone.Gateway.Validate()
	return &clone
}

// Validate checks the whole configuration and fills in gateway defaults
func (c *Config) Validate() error {
	if err := c.Gateway.Validate(); err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "gateway")
	}

	for _, schema := range catalog.All() {
		svc, ok := c.Services[string(schema.Kind)]
		if !ok {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
				fmt.Sprintf("services.%s is required", schema.Kind))
		}
		if svc.ListenAddr == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
				fmt.Sprintf("services.%s.listen_addr is required", schema.Kind))
		}
		if svc.Database == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
				fmt.Sprintf("services.%s.database is required", schema.Kind))
		}
		if svc.MetricsPort < 0 || svc.MetricsPort > 65535 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				fmt.Sprintf("services.%s.metrics_port out of range: %d", schema.Kind, svc.MetricsPort))
		}
		if err := validateTLS(svc.TLS); err != nil {
			return errors.WrapInvalid(err, "Config", "Validate",
				fmt.Sprintf("services.%s.tls", schema.Kind))
		}
	}
	for kind := range c.Services {
		if _, err := catalog.ParseKind(kind); err != nil {
			return errors.WrapInvalid(err, "Config", "Validate", "services")
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				fmt.Sprintf("metrics.port out of range: %d", c.Metrics.Port))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				"metrics.path must start with '/'")
		}

		// Every binary may run on one host, so their ports must differ
		owners := map[int]string{c.Metrics.Port: "metrics.port"}
		for _, schema := range catalog.All() {
			port := c.ServiceMetrics(schema.Kind).Port
			name := fmt.Sprintf("services.%s.metrics_port", schema.Kind)
			if other, taken := owners[port]; taken {
				return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
					fmt.Sprintf("%s %d collides with %s", name, port, other))
			}
			owners[port] = name
		}
	}
	return nil
}

func validateTLS(cfg security.ServerTLSConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return fmt.Errorf("%w: cert_file and key_file are required when TLS is enabled", errors.ErrMissingConfig)
	}
	switch cfg.MinVersion {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("%w: unsupported min_version %q", errors.ErrInvalidConfig, cfg.MinVersion)
	}
}

// Service returns the configuration of the service for kind
func (c *Config) Service(kind catalog.Kind) (ServiceConfig, error) {
	svc, ok := c.Services[string(kind)]
	if !ok {
		return ServiceConfig{}, errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Service",
			fmt.Sprintf("services.%s", kind))
	}
	return svc, nil
}

// ServiceMetrics returns the metrics endpoint of the service for kind: the
// shared settings with the service's own port when one is set.
func (c *Config) ServiceMetrics(kind catalog.Kind) MetricsConfig {
	m := c.Metrics
	if svc, ok := c.Services[string(kind)]; ok && svc.MetricsPort != 0 {
		m.Port = svc.MetricsPort
	}
	return m
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Default returns the configuration for a local deployment: the gateway on
// :4000 with metrics on 9090, and the services on their conventional ports
// with metrics on 9091 onwards.
func Default() *Config {
	cfg := &Config{
		Gateway:  gateway.DefaultConfig(),
		Services: make(map[string]ServiceConfig, len(catalog.All())),
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
	}
	for i, schema := range catalog.All() {
		cfg.Services[string(schema.Kind)] = ServiceConfig{
			ListenAddr:  fmt.Sprintf(":%d", 50051+i),
			Database:    schema.Table + ".db",
			MetricsPort: 9091 + i,
		}
	}
	return cfg
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: false,
		envPrefix:  "LIBRARY",
		lookupEnv:  os.LookupEnv,
	}
}

// AddLayer adds a configuration file layer. JSON and YAML files are accepted.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables semantic validation after decoding
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, every file layer and environment overrides, checks
// the result against the embedded schema and decodes it.
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "encode defaults")
	}

	for _, path := range l.layers {
		layer, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", "load "+path)
		}
		merged = deepMergeMaps(merged, layer)
	}

	overrides, err := l.envOverrides()
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "environment overrides")
	}
	merged = deepMergeMaps(merged, overrides)

	if err := validateSchema(merged); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "schema validation")
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "encode merged config")
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "decode merged config")
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// loadRaw loads a JSON or YAML layer as a generic map
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrParsingFailed, err)
		}
		// Depth is checked on the JSON form so both formats share one limit
		asJSON, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrParsingFailed, err)
		}
		if err := validateJSONDepth(asJSON); err != nil {
			return nil, err
		}
	default:
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrParsingFailed, err)
		}
	}
	removeNilValues(raw)
	return raw, nil
}

// envOverrides reads LIBRARY_* variables into a layer map
func (l *Loader) envOverrides() (map[string]any, error) {
	out := map[string]any{}
	var firstErr error

	get := func(name string) (string, bool) {
		key := l.envPrefix + "_" + name
		val, ok := l.lookupEnv(key)
		if !ok || val == "" {
			return "", false
		}
		if err := validateEnvVar(key, val); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return "", false
		}
		return val, true
	}
	set := func(value any, keys ...string) {
		m := out
		for _, k := range keys[:len(keys)-1] {
			next, ok := m[k].(map[string]any)
			if !ok {
				next = map[string]any{}
				m[k] = next
			}
			m = next
		}
		m[keys[len(keys)-1]] = value
	}

	if val, ok := get("GATEWAY_LISTEN_ADDR"); ok {
		set(val, "gateway", "listen_addr")
	}
	if val, ok := get("GATEWAY_CALL_TIMEOUT"); ok {
		set(val, "gateway", "call_timeout")
	}
	if val, ok := get("GATEWAY_CORS_ORIGINS"); ok {
		origins := []any{}
		for _, o := range strings.Split(val, ",") {
			origins = append(origins, strings.TrimSpace(o))
		}
		set(true, "gateway", "enable_cors")
		set(origins, "gateway", "cors_origins")
	}

	for _, schema := range catalog.All() {
		kind := string(schema.Kind)
		upper := strings.ToUpper(kind)
		if val, ok := get(upper + "_ADDR"); ok {
			set(val, "gateway", "backends", kind, "address")
		}
		if val, ok := get(upper + "_LISTEN_ADDR"); ok {
			set(val, "services", kind, "listen_addr")
		}
		if val, ok := get(upper + "_DATABASE"); ok {
			set(val, "services", kind, "database")
		}
		if val, ok := get(upper + "_METRICS_PORT"); ok {
			port, err := strconv.Atoi(val)
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("%w: %s_%s_METRICS_PORT=%q", errors.ErrInvalidConfig, l.envPrefix, upper, val)
			}
			set(port, "services", kind, "metrics_port")
		}
	}

	if val, ok := get("METRICS_PORT"); ok {
		port, err := strconv.Atoi(val)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%w: %s_METRICS_PORT=%q", errors.ErrInvalidConfig, l.envPrefix, val)
		}
		set(port, "metrics", "port")
	}

	return out, firstErr
}

// validateSchema checks the merged document against the embedded JSON Schema
func validateSchema(doc map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(msgs, "; "))
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// removeNilValues recursively removes nil values from a map
func removeNilValues(m map[string]any) {
	for k, v := range m {
		if v == nil {
			delete(m, k)
		} else if nested, ok := v.(map[string]any); ok {
			removeNilValues(nested)
		}
	}
}
