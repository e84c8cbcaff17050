// Package config handles configuration loading and management for testrig.
//
// It provides functionality for:
//   - Loading configuration from .testrig.yaml or testrig.yaml files
//   - Default configuration values
//   - Merging file configuration with command-line overrides
package config
