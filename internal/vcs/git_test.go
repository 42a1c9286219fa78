package vcs

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
}

func writeShrineFile(t *testing.T, folder string) string {
	t.Helper()
	path := filepath.Join(folder, "shrine")
	require.NoError(t, os.WriteFile(path, []byte("container"), 0600))
	return path
}

func TestParseConfig(t *testing.T) {
	assert.Equal(t, Config{}, ParseConfig(map[string]string{}))
	assert.Equal(t, Config{Enabled: true, CommitAuto: true}, ParseConfig(map[string]string{
		ConfigEnabled:    "true",
		ConfigCommitAuto: "true",
		ConfigPushAuto:   "garbage",
	}))
}

func TestWriteConfig(t *testing.T) {
	options := map[string]string{}
	WriteConfig(options, DefaultConfig())

	assert.Equal(t, map[string]string{
		ConfigEnabled:    "true",
		ConfigCommitAuto: "true",
		ConfigPushAuto:   "false",
	}, options)
}

func TestInitRepositoryIsIdempotent(t *testing.T) {
	requireGit(t)
	folder := t.TempDir()

	require.NoError(t, InitRepository(folder))
	require.NoError(t, InitRepository(folder))

	_, err := os.Stat(filepath.Join(folder, ".git"))
	assert.NoError(t, err)
}

func TestRecordCommitsChanges(t *testing.T) {
	requireGit(t)
	folder := t.TempDir()
	file := writeShrineFile(t, folder)

	require.NoError(t, InitRepository(folder))
	require.NoError(t, Record(file, DefaultConfig(), ChangeInit))

	message, err := HeadMessage(folder)
	require.NoError(t, err)
	assert.Equal(t, "Initialize shrine", message)

	require.NoError(t, os.WriteFile(file, []byte("updated container"), 0600))
	require.NoError(t, Record(file, DefaultConfig(), ChangeUpdate))

	message, err = HeadMessage(folder)
	require.NoError(t, err)
	assert.Equal(t, "Update shrine", message)

	count, err := CommitCount(folder)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRecordHonorsConfig(t *testing.T) {
	requireGit(t)
	folder := t.TempDir()
	file := writeShrineFile(t, folder)

	require.NoError(t, InitRepository(folder))
	require.NoError(t, Record(file, DefaultConfig(), ChangeInit))

	// Disabled: nothing is staged or committed.
	require.NoError(t, os.WriteFile(file, []byte("second"), 0600))
	require.NoError(t, Record(file, Config{Enabled: false}, ChangeUpdate))

	// Staging only: the file is added but no commit is created.
	require.NoError(t, Record(file, Config{Enabled: true, CommitAuto: false}, ChangeUpdate))

	count, err := CommitCount(folder)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecordOutsideRepositoryFails(t *testing.T) {
	requireGit(t)
	folder := t.TempDir()
	file := writeShrineFile(t, folder)

	err := Record(file, DefaultConfig(), ChangeInit)
	assert.Error(t, err)
}
