// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Host Sink:
//
// The head unit shell exposes its own logger taking
// (level, subject, message, colorHint). Setting Config.Sink tees every
// entry into it: the zap logger name becomes the subject, fields are
// flattened to "[key=value]" pairs, and levels collapse to DEBUG, INFO and
// ERROR with the shell's console colors. Without a sink nothing is sent.
//
// Example Usage:
//
//	logger, _ := logging.New(logging.Config{Level: "debug", Sink: shellSink})
//	log := logger.Subject("DataHandler")
//	log.Info("Table data loaded", zap.String("table", "vdt"))
package logging
