// Package logging configures the process-wide slog logger for searchindex.
//
// Records are JSON encoded and written to stderr. When a log file is
// configured (or --debug is set) they are also written to a size-rotated file
// under ~/.searchindex/logs/.
package logging
