// Package logger provides structured logging for the application.
//
// It builds on Go's standard library log/slog package: Setup configures a
// JSON logger with a configurable level, and the context helpers carry
// request-scoped loggers and trace IDs through call chains.
package logger
