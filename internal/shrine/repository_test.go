package shrine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/shrinedev/shrine/internal/errors"
	"github.com/shrinedev/shrine/internal/importer"
)

func initTestShrine(t *testing.T, folder, password string) {
	t.Helper()

	repo, err := Init(folder, []byte(password), false)
	require.NoError(t, err)
	require.NoError(t, repo.Set("secret", []byte("password123")))
	require.NoError(t, repo.Save())
	repo.Close()
}

func TestInitAndOpenRoundTrip(t *testing.T) {
	folder := t.TempDir()
	initTestShrine(t, folder, "password")

	repo, err := Open(folder, []byte("password"))
	require.NoError(t, err)
	defer repo.Close()

	value, err := repo.Get("secret")
	require.NoError(t, err)
	assert.Equal(t, Bytes("password123"), value)

	info, err := os.Stat(FilePath(folder))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestInitRefusesExistingShrine(t *testing.T) {
	folder := t.TempDir()
	initTestShrine(t, folder, "password")

	_, err := Init(folder, []byte("password"), false)
	assert.ErrorIs(t, err, kerrors.ErrAlreadyExists)
}

func TestInitForceReplacesShrine(t *testing.T) {
	folder := t.TempDir()
	initTestShrine(t, folder, "password")

	repo, err := Init(folder, []byte("newpassword"), true)
	require.NoError(t, err)
	require.NoError(t, repo.Save())
	newUUID := repo.UUID()
	repo.Close()

	// The replacement is a brand new shrine: new identity, old content gone.
	reopened, err := Open(folder, []byte("newpassword"))
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, newUUID, reopened.UUID())
	_, err = reopened.Get("secret")
	assert.ErrorIs(t, err, kerrors.ErrSecretNotFound)
}

func TestOpenWrongPassword(t *testing.T) {
	folder := t.TempDir()
	initTestShrine(t, folder, "password")

	_, err := Open(folder, []byte("wrong"))
	assert.ErrorIs(t, err, kerrors.ErrIntegrity)
}

func TestOpenMissingShrine(t *testing.T) {
	_, err := Open(t.TempDir(), []byte("password"))
	assert.ErrorIs(t, err, kerrors.ErrShrineNotFound)
}

func TestOpenWithKey(t *testing.T) {
	folder := t.TempDir()
	initTestShrine(t, folder, "password")

	repo, err := Open(folder, []byte("password"))
	require.NoError(t, err)
	key := append([]byte(nil), repo.Key()...)
	repo.Close()

	warm, err := OpenWithKey(folder, key)
	require.NoError(t, err)
	defer warm.Close()

	value, err := warm.Get("secret")
	require.NoError(t, err)
	assert.Equal(t, Bytes("password123"), value)
}

func TestConvertReKeysShrine(t *testing.T) {
	folder := t.TempDir()
	initTestShrine(t, folder, "old")

	repo, err := Open(folder, []byte("old"))
	require.NoError(t, err)
	oldUUID := repo.UUID()
	require.NoError(t, repo.Convert([]byte("new")))
	repo.Close()

	_, err = Open(folder, []byte("old"))
	assert.ErrorIs(t, err, kerrors.ErrIntegrity)

	reopened, err := Open(folder, []byte("new"))
	require.NoError(t, err)
	defer reopened.Close()

	// Re-keying changes the credentials, not the identity or the content.
	assert.Equal(t, oldUUID, reopened.UUID())
	value, err := reopened.Get("secret")
	require.NoError(t, err)
	assert.Equal(t, Bytes("password123"), value)
}

func TestSaveDetectsConcurrentModification(t *testing.T) {
	folder := t.TempDir()
	initTestShrine(t, folder, "password")

	repo, err := Open(folder, []byte("password"))
	require.NoError(t, err)
	defer repo.Close()

	// Simulate another writer that ignored the advisory lock.
	require.NoError(t, os.WriteFile(FilePath(folder), []byte("clobbered"), 0600))

	require.NoError(t, repo.Set("secret", []byte("update")))
	assert.ErrorIs(t, repo.Save(), kerrors.ErrConcurrentModification)
}

func TestSavePersistsAcrossReopen(t *testing.T) {
	folder := t.TempDir()
	initTestShrine(t, folder, "password")

	repo, err := Open(folder, []byte("password"))
	require.NoError(t, err)
	require.NoError(t, repo.Set("env/db", []byte("dsn")))
	require.NoError(t, repo.Remove("secret"))
	require.NoError(t, repo.Save())
	repo.Close()

	reopened, err := Open(folder, []byte("password"))
	require.NoError(t, err)
	defer reopened.Close()

	paths, err := reopened.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"env/db"}, paths)
}

func TestImportOverwritesExisting(t *testing.T) {
	folder := t.TempDir()
	initTestShrine(t, folder, "password")

	repo, err := Open(folder, []byte("password"))
	require.NoError(t, err)
	defer repo.Close()

	count, err := repo.Import([]importer.Entry{
		{Key: "secret", Value: "imported"},
		{Key: "extra", Value: "v"},
	}, "env/")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	value, err := repo.Get("env/secret")
	require.NoError(t, err)
	assert.Equal(t, Bytes("imported"), value)

	// The unprefixed original is untouched.
	value, err = repo.Get("secret")
	require.NoError(t, err)
	assert.Equal(t, Bytes("password123"), value)
}

func TestInspect(t *testing.T) {
	folder := t.TempDir()
	initTestShrine(t, folder, "password")

	info, err := Inspect(folder)
	require.NoError(t, err)

	assert.Equal(t, FilePath(folder), info.Path)
	assert.EqualValues(t, FormatVersion, info.Version)
	assert.Equal(t, DefaultIterations, info.Iterations)
	assert.Greater(t, info.PayloadSize, 0)

	_, err = Inspect(t.TempDir())
	assert.ErrorIs(t, err, kerrors.ErrShrineNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(folder, FileName), []byte("not a shrine"), 0600))
	_, err = Inspect(folder)
	assert.ErrorIs(t, err, kerrors.ErrFormat)
}

func TestCloseIsIdempotent(t *testing.T) {
	folder := t.TempDir()
	initTestShrine(t, folder, "password")

	repo, err := Open(folder, []byte("password"))
	require.NoError(t, err)
	repo.Close()
	repo.Close()
}
