// Package agent implements the session daemon: a long-lived process that
// caches derived shrine keys so repeated commands skip the password prompt.
//
// The agent serves a small JSON protocol over HTTP on a unix socket with
// owner-only permissions, one request at a time. A session holds the derived
// key for one shrine file with a fixed absolute expiry set at unlock time;
// activity never extends it. A scheduled sweep clears expired sessions every
// second, and explicit lock or agent shutdown clears them immediately, all
// through the same teardown routine.
//
// The agent and a cold-path process are not prevented from mutating the same
// shrine concurrently by construction; the repository's advisory lock and
// fingerprint check narrow that race to a ConcurrentModification error.
package agent
