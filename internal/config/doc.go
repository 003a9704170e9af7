// Package config loads runtime configuration from an optional JSON/YAML
// file with an OPLOG_* environment overlay applied on top.
package config
