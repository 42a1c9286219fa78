// Package logger provides leveled logging for shrine CLI commands and the
// session agent.
//
// Info and debug output is gated by the --verbose and --debug flags; warnings
// and errors always print to stderr. The agent runs with timestamps enabled
// since its output lands in a log file under the runtime directory.
package logger
