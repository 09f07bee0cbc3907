// Package config handles YAML configuration loading with environment
// variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable
// interpolation. The database, redis, and kafka sections are optional and
// gated by their `enabled` flags; the hub runs fully in-memory without them.
package config
