// Package logging provides opt-in file-based logging with rotation for the
// working set compiler. When debug logging is enabled, structured logs are
// written to ~/.wscompile/logs/ for troubleshooting generator fan-out and
// selection decisions.
//
// By default, logging is minimal and goes to stderr only.
package logging
