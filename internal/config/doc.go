// Package config loads and validates the YAML application
// configuration, with environment overrides for secrets.
package config
