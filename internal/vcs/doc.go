// Package vcs records shrine mutations in a git repository living next to
// the shrine file.
//
// Behavior is driven by three options stored inside the shrine itself:
// git.enabled gates staging, git.commit.auto gates committing and
// git.push.auto gates pushing. The adapter shells out to the git binary;
// failures are reported to the caller as warnings wrapped in ErrGit, since
// the secret mutation has already been persisted by the time Record runs.
package vcs
