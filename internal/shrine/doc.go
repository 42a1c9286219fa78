// Package shrine implements the encrypted store engine: password-based key
// derivation, the on-disk container format, authenticated encryption of the
// secret store, and the load → mutate → persist repository cycle.
//
// # Container format
//
// A shrine is a single binary file:
//
//	"shrine" | version | uuid | kdf iterations | salt | nonce | ciphertext+tag
//
// The key is derived with PBKDF2-HMAC-SHA256 from the user password and the
// stored salt; the payload (secrets plus configuration, JSON) is sealed with
// AES-256-GCM using the shrine uuid as associated data. The whole store is
// re-encrypted as a single unit on every mutation, which keeps nonce
// management trivial; shrine files are small enough that this is not a
// performance concern.
//
// # Durability
//
// Persisting always writes a temporary file in the shrine folder and renames
// it over the original, so the on-disk file is either the full pre-mutation
// or the full post-mutation container, never a partial write. Re-keying uses
// the same discipline: the original stays valid until the rename.
package shrine
