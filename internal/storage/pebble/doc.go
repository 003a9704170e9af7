// Package pebblestore wraps Pebble behind the storage.Store interface with
// an explicit fsync policy. It is the durable backend for instance journals;
// FsyncModeAlways is the default because losing a persisted outcome breaks
// the exactly-once capture guarantee.
package pebblestore
