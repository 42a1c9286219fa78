package shrine

import (
	"regexp"
	"sort"
	"strings"

	kerrors "github.com/shrinedev/shrine/internal/errors"
)

// Bytes holds a secret value. Call Wipe when the value is no longer needed so
// it does not linger in process memory.
type Bytes []byte

// Wipe overwrites the underlying bytes with zeros.
func (b Bytes) Wipe() {
	for i := range b {
		b[i] = 0
	}
}

// Store is the decrypted content of a shrine: a secret mapping plus the
// shrine configuration. Both are serialized and encrypted as a single unit.
type Store struct {
	Secrets map[string]Bytes  `json:"secrets"`
	Config  map[string]string `json:"config"`
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		Secrets: make(map[string]Bytes),
		Config:  make(map[string]string),
	}
}

// ValidatePath checks that a secret path is non-empty and that every
// /-delimited segment is non-empty. Paths are case-sensitive.
func ValidatePath(path string) error {
	if path == "" {
		return kerrors.ErrInvalidPath
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			return kerrors.ErrInvalidPath
		}
	}
	return nil
}

// Get returns the value stored at path.
func (s *Store) Get(path string) (Bytes, error) {
	value, ok := s.Secrets[path]
	if !ok {
		return nil, kerrors.ErrSecretNotFound
	}
	return value, nil
}

// Set stores value at path, overwriting any previous value.
func (s *Store) Set(path string, value []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if previous, ok := s.Secrets[path]; ok {
		previous.Wipe()
	}
	s.Secrets[path] = Bytes(value)
	return nil
}

// Remove deletes the value stored at path.
func (s *Store) Remove(path string) error {
	value, ok := s.Secrets[path]
	if !ok {
		return kerrors.ErrSecretNotFound
	}
	value.Wipe()
	delete(s.Secrets, path)
	return nil
}

// List returns the sorted secret paths matching pattern. An empty pattern
// matches everything.
func (s *Store) List(pattern string) ([]string, error) {
	var re *regexp.Regexp
	if pattern != "" {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
	}

	paths := make([]string, 0, len(s.Secrets))
	for path := range s.Secrets {
		if re == nil || re.MatchString(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	return paths, nil
}

// Wipe overwrites every secret value in the store.
func (s *Store) Wipe() {
	for _, value := range s.Secrets {
		value.Wipe()
	}
}
