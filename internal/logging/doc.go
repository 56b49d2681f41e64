// Package logging provides file-based structured logging with rotation
// for minirag. Logs are written as JSON to ~/.minirag/logs/ with an
// optional stderr tee for interactive use.
package logging
