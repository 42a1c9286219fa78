package errors

import "errors"

// Container errors indicate the shrine file could not be read back into a store.
var (
	// ErrIntegrity indicates authenticated decryption failed. A wrong password
	// and a corrupted container are reported identically so that an attacker
	// cannot tell which one it was.
	ErrIntegrity = errors.New("wrong password or corrupted shrine")

	// ErrFormat indicates the container has an unknown magic number or an
	// unsupported format version.
	ErrFormat = errors.New("unsupported shrine file format")

	// ErrInvalidPath indicates a secret path is empty or has an empty segment.
	ErrInvalidPath = errors.New("invalid secret path")
)

// Repository errors indicate issues with the shrine file or its contents.
var (
	// ErrShrineNotFound indicates no shrine file exists at the given location.
	ErrShrineNotFound = errors.New("shrine file not found")

	// ErrSecretNotFound indicates the requested secret path is not in the store.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrAlreadyExists indicates init was run on an existing shrine without --force.
	ErrAlreadyExists = errors.New("shrine file already exists")

	// ErrConcurrentModification indicates the shrine file changed on disk
	// between load and persist.
	ErrConcurrentModification = errors.New("shrine file was modified concurrently")
)

// Collaborator errors cover version control and the agent.
var (
	// ErrGit indicates a git operation failed. It is always reported as a
	// warning; the shrine mutation it follows has already been persisted.
	ErrGit = errors.New("git operation failed")

	// ErrSessionExpired indicates the agent no longer holds a session for the
	// shrine; the caller must re-unlock or fall back to a password prompt.
	ErrSessionExpired = errors.New("session expired")

	// ErrAgentNotRunning indicates the agent socket is absent or refusing
	// connections.
	ErrAgentNotRunning = errors.New("agent is not running")
)
