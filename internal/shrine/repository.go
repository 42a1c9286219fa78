package shrine

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	kerrors "github.com/shrinedev/shrine/internal/errors"
	"github.com/shrinedev/shrine/internal/importer"
	logger "github.com/shrinedev/shrine/internal/logging"
	"github.com/shrinedev/shrine/internal/vcs"
)

// FileName is the shrine file name inside its folder.
const FileName = "shrine"

// FilePath returns the shrine file path for a folder.
func FilePath(folder string) string {
	return filepath.Join(folder, FileName)
}

// Repository wraps one load → mutate → persist cycle over a shrine file.
//
// The repository holds an advisory lock on <file>.lock for the whole cycle
// and remembers a fingerprint of the file content it loaded; Save refuses to
// clobber a file whose fingerprint changed in between. Callers must Close
// the repository to release the lock and wipe decrypted material.
//
// The lock only serializes cold-path processes against each other. An agent
// serving the warm path uses the same repository and therefore the same
// lock, but nothing prevents a warm and a cold mutation from racing between
// unlock and re-lock; the fingerprint check turns that race into
// ErrConcurrentModification instead of silent data loss.
type Repository struct {
	path        string
	store       *Store
	header      *Header
	key         []byte
	fingerprint [sha256.Size]byte
	created     bool
	flock       *flock.Flock

	// Logger receives version-control warnings; mutations never fail on git.
	Logger logger.Logger
}

// Init creates a new shrine file protected by password. It fails with
// ErrAlreadyExists when a shrine is already present, unless force is set, in
// which case the existing file is replaced on the first Save.
func Init(folder string, password []byte, force bool) (*Repository, error) {
	path := FilePath(folder)

	if err := os.MkdirAll(folder, 0700); err != nil {
		return nil, fmt.Errorf("failed to create shrine folder: %w", err)
	}

	if _, err := os.Stat(path); err == nil && !force {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrAlreadyExists, path)
	}

	lock, err := acquire(path)
	if err != nil {
		return nil, err
	}

	header, err := NewHeader()
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	return &Repository{
		path:    path,
		store:   NewStore(),
		header:  header,
		key:     DeriveKey(password, header.Salt, header.Iterations),
		created: true,
		flock:   lock,
	}, nil
}

// Open loads and decrypts the shrine in folder using password.
func Open(folder string, password []byte) (*Repository, error) {
	return load(folder, func(data []byte) (*Store, *Header, []byte, error) {
		return Decode(data, password)
	})
}

// OpenWithKey loads and decrypts the shrine using an already derived key.
// This is the warm path used by the agent.
func OpenWithKey(folder string, key []byte) (*Repository, error) {
	return load(folder, func(data []byte) (*Store, *Header, []byte, error) {
		store, header, err := DecodeWithKey(data, key)
		return store, header, key, err
	})
}

func load(folder string, decode func([]byte) (*Store, *Header, []byte, error)) (*Repository, error) {
	path := FilePath(folder)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrShrineNotFound, path)
	}

	lock, err := acquire(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to read shrine file: %w", err)
	}

	store, header, key, err := decode(data)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	return &Repository{
		path:        path,
		store:       store,
		header:      header,
		key:         key,
		fingerprint: sha256.Sum256(data),
		flock:       lock,
	}, nil
}

func acquire(path string) (*flock.Flock, error) {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock shrine file: %w", err)
	}
	return lock, nil
}

// Key returns the derived key, for caching in an agent session.
func (r *Repository) Key() []byte {
	return r.key
}

// UUID returns the shrine identity from the container header.
func (r *Repository) UUID() uuid.UUID {
	return r.header.UUID
}

// Path returns the shrine file path.
func (r *Repository) Path() string {
	return r.path
}

// Get returns the secret stored at path.
func (r *Repository) Get(path string) (Bytes, error) {
	return r.store.Get(path)
}

// Set upserts a secret. The change is in memory until Save.
func (r *Repository) Set(path string, value []byte) error {
	return r.store.Set(path, value)
}

// Remove deletes a secret. The change is in memory until Save.
func (r *Repository) Remove(path string) error {
	return r.store.Remove(path)
}

// List returns the sorted secret paths matching pattern.
func (r *Repository) List(pattern string) ([]string, error) {
	return r.store.List(pattern)
}

// GetConfig returns a configuration option.
func (r *Repository) GetConfig(key string) (string, bool) {
	value, ok := r.store.Config[key]
	return value, ok
}

// SetConfig upserts a configuration option. The change is in memory until Save.
func (r *Repository) SetConfig(key, value string) {
	r.store.Config[key] = value
}

// Import applies parsed entries to the store, prefixing every key with
// prefix. Imported values overwrite existing ones. Returns the number of
// entries applied.
func (r *Repository) Import(entries []importer.Entry, prefix string) (int, error) {
	for _, entry := range entries {
		if err := r.store.Set(prefix+entry.Key, []byte(entry.Value)); err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}

// Convert re-keys the shrine: a fresh salt is generated, the key is derived
// from newPassword, and the store is re-encrypted and persisted atomically.
// A crash before the final rename leaves the original file untouched.
func (r *Repository) Convert(newPassword []byte) error {
	salt, err := GenerateSalt()
	if err != nil {
		return err
	}

	r.header.Salt = salt
	r.header.Iterations = DefaultIterations
	r.key = DeriveKey(newPassword, salt, r.header.Iterations)

	return r.Save()
}

// Save encrypts the store and atomically replaces the shrine file: the new
// container is written to a temporary file in the same directory and renamed
// over the original, so readers observe either the old or the new content in
// full. On success the version-control adapter records the change; its
// failures are logged as warnings only.
func (r *Repository) Save() error {
	data, err := Encode(r.store, r.key, r.header)
	if err != nil {
		return err
	}

	if err := r.checkFingerprint(); err != nil {
		return err
	}

	if err := replaceFile(r.path, data); err != nil {
		return err
	}
	r.fingerprint = sha256.Sum256(data)

	change := vcs.ChangeUpdate
	if r.created {
		change = vcs.ChangeInit
		r.created = false
	}
	if err := vcs.Record(r.path, vcs.ParseConfig(r.store.Config), change); err != nil {
		r.Logger.Warnf("shrine saved, but git failed: %v", err)
	}

	return nil
}

// checkFingerprint fails with ErrConcurrentModification when the on-disk file
// no longer matches what this repository loaded.
func (r *Repository) checkFingerprint() error {
	if r.created {
		return nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("%w: %s", kerrors.ErrConcurrentModification, r.path)
	}
	if sha256.Sum256(data) != r.fingerprint {
		return fmt.Errorf("%w: %s", kerrors.ErrConcurrentModification, r.path)
	}
	return nil
}

func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, FileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if err := tmp.Chmod(0600); err != nil {
		cleanup()
		return fmt.Errorf("failed to restrict temporary file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write shrine file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync shrine file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	// The rename is the only irrevocable step.
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace shrine file: %w", err)
	}

	return nil
}

// Close releases the advisory lock and wipes decrypted material. It is safe
// to call multiple times.
func (r *Repository) Close() {
	if r.store != nil {
		r.store.Wipe()
		r.store = nil
	}
	if r.key != nil {
		Bytes(r.key).Wipe()
		r.key = nil
	}
	if r.flock != nil {
		_ = r.flock.Unlock()
		r.flock = nil
	}
}

// ContainerInfo describes a shrine container without decrypting it.
type ContainerInfo struct {
	Path        string
	Version     byte
	UUID        uuid.UUID
	Iterations  int
	PayloadSize int
}

// Inspect reads container metadata from the shrine in folder. No password is
// required; only the cleartext header is examined.
func Inspect(folder string) (*ContainerInfo, error) {
	path := FilePath(folder)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrShrineNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read shrine file: %w", err)
	}

	header, ciphertext, err := ParseContainer(data)
	if err != nil {
		return nil, err
	}

	return &ContainerInfo{
		Path:        path,
		Version:     header.Version,
		UUID:        header.UUID,
		Iterations:  header.Iterations,
		PayloadSize: len(ciphertext),
	}, nil
}
