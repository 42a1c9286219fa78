// Package ui provides semantic text formatting for CLI output.
//
// Formatters render colorized output when the terminal supports it and fall
// back to plain text decorations (backticks, quotes) when NO_COLOR is set or
// colors are unavailable. Secret values are printed raw, never through a
// formatter.
package ui
