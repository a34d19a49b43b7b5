// Package logging provides file-based logging with rotation for memoryd.
// `memoryd serve` writes JSON logs to ~/.memoryd/logs/server.log at the
// level chosen by --log-level, else the log_level config key, else info.
//
// In MCP serve mode, stdout is reserved exclusively for protocol frames and
// nothing is written to stderr either; see SetupMCPModeWithLevel. Use
// `memoryd logs` to read or follow the log file.
package logging
