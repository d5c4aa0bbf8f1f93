// Package logger builds configured slog loggers: JSON or text output,
// static service attributes, and context extractors that stamp
// request-scoped values onto every record.
package logger
