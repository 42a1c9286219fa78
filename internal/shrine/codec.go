package shrine

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"

	kerrors "github.com/shrinedev/shrine/internal/errors"
)

// Encode serializes store and seals it into container bytes with key. A fresh
// random nonce is generated on every call; the whole store is re-encrypted as
// a single unit on every mutation.
func Encode(store *Store, key []byte, h *Header) ([]byte, error) {
	plaintext, err := json.Marshal(store)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize store: %w", err)
	}
	defer Bytes(plaintext).Wipe()

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	h.Nonce = nonce

	ciphertext := aead.Seal(nil, nonce, plaintext, aad(h))
	return MarshalContainer(h, ciphertext), nil
}

// Decode parses container bytes, derives the key from password and the stored
// salt and work factor, and opens the store. Authentication failures are
// reported as ErrIntegrity regardless of cause.
func Decode(data, password []byte) (*Store, *Header, []byte, error) {
	h, ciphertext, err := ParseContainer(data)
	if err != nil {
		return nil, nil, nil, err
	}

	key := DeriveKey(password, h.Salt, h.Iterations)
	store, err := open(h, ciphertext, key)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, h, key, nil
}

// DecodeWithKey opens container bytes with an already derived key. This is
// the warm path: the agent caches the key so clients skip the KDF.
func DecodeWithKey(data, key []byte) (*Store, *Header, error) {
	h, ciphertext, err := ParseContainer(data)
	if err != nil {
		return nil, nil, err
	}
	store, err := open(h, ciphertext, key)
	if err != nil {
		return nil, nil, err
	}
	return store, h, nil
}

func open(h *Header, ciphertext, key []byte) (*Store, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, h.Nonce, ciphertext, aad(h))
	if err != nil {
		return nil, kerrors.ErrIntegrity
	}
	defer Bytes(plaintext).Wipe()

	store := NewStore()
	if err := json.Unmarshal(plaintext, store); err != nil {
		return nil, fmt.Errorf("%w: undecodable payload", kerrors.ErrFormat)
	}
	if store.Secrets == nil {
		store.Secrets = make(map[string]Bytes)
	}
	if store.Config == nil {
		store.Config = make(map[string]string)
	}
	return store, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

// aad binds the shrine uuid to the ciphertext.
func aad(h *Header) []byte {
	return []byte(h.UUID.String())
}
