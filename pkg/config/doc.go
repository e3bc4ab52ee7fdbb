// Package config provides configuration management for cascade.
//
// Configuration is read from a YAML file, completed with defaults and
// overridden by environment variables. Every command accepts --config; the
// compile service also reloads it on SIGHUP.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("cascade.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("cascade.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CASCADE_SECTION_FIELD:
//
//   - CASCADE_COMPILER_MATH overrides compiler.math
//   - CASCADE_IMPORTS_INCLUDE_PATHS overrides imports.include_paths
//     (comma or path-list separated)
//   - CASCADE_LOGGING_LEVEL overrides logging.level
//   - CASCADE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// Validation errors are collected and reported together with field paths:
//
//	configuration validation failed with 2 errors:
//	  - compiler.math: must be one of: always, parens-division, parens
//	  - logging.format: must be one of: json, text, console
//
// # Example Configuration
//
//	compiler:
//	  math: parens-division
//	  strict_units: true
//	  global_vars:
//	    primary: "#336699"
//
//	imports:
//	  include_paths: ["styles/vendor"]
//
//	logging:
//	  level: info
//	  format: text
//
//	server:
//	  listen_address: "127.0.0.1:8080"
package config
