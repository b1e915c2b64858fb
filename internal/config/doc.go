// Package config loads and validates environment-based configuration
// for the MRWA execution core.
package config
