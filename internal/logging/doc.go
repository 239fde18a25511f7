// Package logging builds the slog loggers used across the converter: a
// console handler that renders "TIMESTAMP LEVEL component: message k=v" lines
// and a JSON handler for machine consumption, plus small attr helpers so call
// sites stay terse.
package logging
