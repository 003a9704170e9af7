// Package log provides structured logging for oplog components.
//
// Loggers are constructed explicitly and passed by dependency injection;
// there is no package-level default. The Field-based API keeps call sites
// allocation-light:
//
//	logger := log.NewLogger(
//		log.WithLevel(log.InfoLevel),
//		log.WithFormatter(&log.TextFormatter{}),
//		log.WithOutput(log.NewConsoleOutput()),
//	)
//	logger.Info("journal opened", log.Str("instance", id), log.Uint64("records", n))
//
// RedirectStdLog routes standard-library log output (Pebble uses it) through
// a Logger so the process emits a single stream in one format.
package log
