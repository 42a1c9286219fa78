// Package errors provides typed error values for the shrine application.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. The CLI
// layer maps every sentinel to a stable message and a non-zero exit code.
//
// One deliberate asymmetry: a wrong password and a corrupted container both
// surface as ErrIntegrity, so callers cannot distinguish them.
package errors
