// Package serverrun wires the runtime, metrics, and the HTTP inspection
// server into a single blocking Run entrypoint used by the CLI.
package serverrun
