// Package utils provides small helpers shared across the shrine CLI:
// terminal passphrase prompts and system identity lookups.
package utils
