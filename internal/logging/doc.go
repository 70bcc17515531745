// Package logging configures structured slog output for scribeindex.
//
// Logs are JSON lines written to ~/.scribeindex/logs/scribeindex.log with
// size-based rotation, optionally mirrored to stderr. The serve command
// turns stderr mirroring off because stdout/stderr carry the MCP stream.
package logging
