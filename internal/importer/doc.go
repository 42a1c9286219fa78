// Package importer parses dotenv-style files for `shrine import`.
//
// The grammar is deliberately small and pinned by tests: split at the first
// `=`, strip unescaped `#` comments anywhere on the line, skip blank and
// comment-only lines. Everything after the first `=` (including further `=`
// characters) belongs to the value.
package importer
