// Package config defines the gateway configuration model, its YAML
// loader with environment variable substitution, validation, and a
// file watcher for hot reload.
package config
