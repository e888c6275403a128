// Package logger provides structured logging for dagflow runtimes using
// zerolog.
//
// It supports JSON and console output, level configuration, and loggers
// scoped to a run or a node with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("engine").WithRun(runID)
//	log.WithNode("outer.inner.task").Debug("node completed", logger.DurationFields("invoke", d))
package logger
