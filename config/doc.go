// Package config loads the configuration shared by the API gateway and the
// three catalog services.
//
// One document configures the whole deployment: the gateway section (listen
// address, facades, CORS, rate limiting and one backend address per kind),
// one services entry per kind (gRPC listen address, SQLite database, TLS)
// and the metrics endpoint. Each binary reads the parts it needs.
//
// # Loading
//
// Loader starts from Default, merges every file layer in order and applies
// environment overrides last:
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/base.json")
//	loader.AddLayer("configs/production.yaml") // Overrides base
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Layers may be JSON (.json) or YAML (.yaml, .yml). Maps are merged key by
// key, so a layer only needs the values it changes. Every other value
// replaces the one below it.
//
// # Environment Overrides
//
// Variables use the LIBRARY_ prefix:
//
//	LIBRARY_GATEWAY_LISTEN_ADDR    gateway.listen_addr
//	LIBRARY_GATEWAY_CALL_TIMEOUT   gateway.call_timeout
//	LIBRARY_GATEWAY_CORS_ORIGINS   gateway.cors_origins (comma separated, enables CORS)
//	LIBRARY_<KIND>_ADDR            gateway.backends.<kind>.address
//	LIBRARY_<KIND>_LISTEN_ADDR     services.<kind>.listen_addr
//	LIBRARY_<KIND>_DATABASE        services.<kind>.database
//	LIBRARY_<KIND>_METRICS_PORT    services.<kind>.metrics_port
//	LIBRARY_METRICS_PORT           metrics.port (the gateway, and any service without its own)
//
// where KIND is BOOK, MAGAZINE or AUDIOVISUAL.
//
// # Validation
//
// The merged document is checked against an embedded JSON Schema before it is
// decoded, which rejects unknown keys, unknown kinds and malformed addresses.
// With validation enabled, Config.Validate then applies the semantic rules
// (timeout bounds, TLS file pairs, CORS origins) and fills in gateway
// defaults. All failures are classified as invalid.
//
// # Thread Safety
//
// SafeConfig guards a Config with an RWMutex. Get returns a deep copy; Update
// validates before swapping.
//
// # Security
//
// Config files are read through path and size checks: traversal outside the
// working directory is refused, files are capped at 10MB and nesting depth is
// limited. Environment values are length-checked and may not contain NUL
// bytes.
package config
