// Package logging builds slog loggers with the console and JSON handlers used
// throughout presswork, plus attribute helpers and standardized field keys so
// components emit consistent structured output.
package logging
