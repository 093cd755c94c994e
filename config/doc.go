// Package config loads the tablecache settings from an optional file and
// TABLECACHE_* environment variables.
package config
