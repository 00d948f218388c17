// Package config loads process configuration from an optional YAML file,
// .env files and UOV_-prefixed environment variables, in increasing order
// of precedence.
package config
