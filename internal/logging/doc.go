// Package logging provides opt-in file-based logging with rotation for the
// grid coalesce engine's CLI. When --debug is set, structured JSON logs are
// written to ~/.gridcoalesce/logs/ for debugging and troubleshooting.
//
// By default (without --debug), logging is minimal and goes to stderr only.
package logging
