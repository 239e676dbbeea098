// Package config loads the client configuration from a YAML file.
// Environment variables in the file are expanded before parsing, and every
// omitted setting falls back to a sensible default.
package config
