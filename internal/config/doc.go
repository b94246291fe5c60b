// Package config loads runtime settings from environment variables.
package config
