package shrine

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	kerrors "github.com/shrinedev/shrine/internal/errors"
)

// On-disk container layout, all fields big-endian:
//
//	magic "shrine" (6) | version (1) | uuid (16) |
//	kdf iterations (4) | salt (16) | nonce (12) | ciphertext+tag
//
// The header is not encrypted but the shrine uuid is bound to the ciphertext
// as AEAD associated data, so header tampering fails decryption.

var magicNumber = []byte("shrine")

const (
	// FormatVersion is the container version this build reads and writes.
	FormatVersion = 1

	// NonceSize is the AES-GCM nonce length in bytes.
	NonceSize = 12

	headerSize = 6 + 1 + 16 + 4 + SaltSize + NonceSize
)

// Header is the cleartext portion of a shrine container.
type Header struct {
	Version    byte
	UUID       uuid.UUID
	Iterations int
	Salt       []byte
	Nonce      []byte
}

// NewHeader returns a header for a brand new shrine: fresh uuid, fresh salt,
// current format version and the default KDF work factor.
func NewHeader() (*Header, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	return &Header{
		Version:    FormatVersion,
		UUID:       uuid.New(),
		Iterations: DefaultIterations,
		Salt:       salt,
		Nonce:      make([]byte, NonceSize),
	}, nil
}

// MarshalContainer serializes a header and ciphertext into container bytes.
func MarshalContainer(h *Header, ciphertext []byte) []byte {
	buf := make([]byte, 0, headerSize+len(ciphertext))
	buf = append(buf, magicNumber...)
	buf = append(buf, h.Version)
	buf = append(buf, h.UUID[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(h.Iterations))
	buf = append(buf, h.Salt...)
	buf = append(buf, h.Nonce...)
	buf = append(buf, ciphertext...)
	return buf
}

// ParseContainer splits container bytes into a header and the ciphertext.
// Unknown magic numbers and unsupported versions fail with ErrFormat.
func ParseContainer(data []byte) (*Header, []byte, error) {
	if len(data) < headerSize {
		return nil, nil, fmt.Errorf("%w: truncated container (%d bytes)", kerrors.ErrFormat, len(data))
	}
	if !bytes.Equal(data[:6], magicNumber) {
		return nil, nil, fmt.Errorf("%w: bad magic number", kerrors.ErrFormat)
	}

	h := &Header{Version: data[6]}
	if h.Version != FormatVersion {
		return nil, nil, fmt.Errorf("%w: version %d", kerrors.ErrFormat, h.Version)
	}

	copy(h.UUID[:], data[7:23])
	h.Iterations = int(binary.BigEndian.Uint32(data[23:27]))
	h.Salt = append([]byte(nil), data[27:27+SaltSize]...)
	h.Nonce = append([]byte(nil), data[27+SaltSize:headerSize]...)

	ciphertext := append([]byte(nil), data[headerSize:]...)
	return h, ciphertext, nil
}
