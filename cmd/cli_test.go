package cmd

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrinedev/shrine/internal/agent"
	logger "github.com/shrinedev/shrine/internal/logging"
	"github.com/shrinedev/shrine/internal/shrine"
	"github.com/shrinedev/shrine/internal/vcs"
)

func init() {
	shrine.DefaultIterations = 64
}

// setupTest isolates a test from the user's real config, agent and shrine.
// It returns a fresh folder for the shrine file.
func setupTest(t *testing.T) string {
	t.Helper()
	t.Setenv("SHRINE_CONFIG_DIR", t.TempDir())
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	t.Setenv("SHRINE_FOLDER", "")
	t.Setenv("NO_COLOR", "1")
	return t.TempDir()
}

// runCommand executes the CLI with args and captures stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ResetGlobalState()
	RootCmd.SetArgs(args)

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	execErr := RootCmd.Execute()

	require.NoError(t, w.Close())
	os.Stdout = old
	out, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(out), execErr
}

func mustInit(t *testing.T, folder, password string) {
	t.Helper()
	_, err := runCommand(t, "init", "--password", password, "-f", folder)
	require.NoError(t, err)
}

func TestInitSetGetRoundTrip(t *testing.T) {
	folder := setupTest(t)

	output, err := runCommand(t, "init", "--password", "password", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "Shrine initialized at")

	output, err = runCommand(t, "set", "secret", "password123", "--password", "password", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "Stored secret")

	output, err = runCommand(t, "get", "secret", "--password", "password", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "password123\n")
}

func TestInitRefusesExistingShrine(t *testing.T) {
	folder := setupTest(t)
	mustInit(t, folder, "password")

	output, err := runCommand(t, "init", "--password", "password", "-f", folder)
	require.Error(t, err)
	assert.Contains(t, output, "A shrine already exists")
	assert.Contains(t, output, "--force")

	output, err = runCommand(t, "init", "--password", "other", "--force", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "Shrine initialized at")
}

func TestGetWrongPassword(t *testing.T) {
	folder := setupTest(t)
	mustInit(t, folder, "password")

	output, err := runCommand(t, "get", "secret", "--password", "wrong", "-f", folder)
	require.Error(t, err)
	assert.Contains(t, output, "Wrong password or corrupted shrine")
}

func TestGetMissingShrine(t *testing.T) {
	folder := setupTest(t)

	output, err := runCommand(t, "get", "secret", "--password", "password", "-f", folder)
	require.Error(t, err)
	assert.Contains(t, output, "No shrine found")
	assert.Contains(t, output, "shrine init")
}

func TestGetMissingSecret(t *testing.T) {
	folder := setupTest(t)
	mustInit(t, folder, "password")

	output, err := runCommand(t, "get", "nothing", "--password", "password", "-f", folder)
	require.Error(t, err)
	assert.Contains(t, output, "Secret not found")
}

func TestSetInvalidPath(t *testing.T) {
	folder := setupTest(t)
	mustInit(t, folder, "password")

	output, err := runCommand(t, "set", "a//b", "value", "--password", "password", "-f", folder)
	require.Error(t, err)
	assert.Contains(t, output, "Invalid secret path")
}

func TestLsAndRm(t *testing.T) {
	folder := setupTest(t)
	mustInit(t, folder, "password")

	for _, key := range []string{"env/prod/db", "env/dev/db", "standalone"} {
		_, err := runCommand(t, "set", key, "v", "--password", "password", "-f", folder)
		require.NoError(t, err)
	}

	output, err := runCommand(t, "ls", "--password", "password", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "total 3\n")
	assert.Contains(t, output, "env/dev/db\nenv/prod/db\nstandalone\n")

	output, err = runCommand(t, "ls", "^env/prod/", "--password", "password", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "total 1\n")
	assert.NotContains(t, output, "env/dev/db")

	output, err = runCommand(t, "rm", "standalone", "--password", "password", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "Removed standalone")

	output, err = runCommand(t, "ls", "--password", "password", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "total 2\n")
}

func TestConvertReKeysShrine(t *testing.T) {
	folder := setupTest(t)
	mustInit(t, folder, "old")

	_, err := runCommand(t, "set", "secret", "password123", "--password", "old", "-f", folder)
	require.NoError(t, err)

	output, err := runCommand(t, "convert", "--password", "old", "--new-password", "new", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "re-keyed")

	output, err = runCommand(t, "get", "secret", "--password", "old", "-f", folder)
	require.Error(t, err)
	assert.Contains(t, output, "Wrong password or corrupted shrine")

	output, err = runCommand(t, "get", "secret", "--password", "new", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "password123\n")
}

func TestImportDotenvFile(t *testing.T) {
	folder := setupTest(t)
	mustInit(t, folder, "password")

	envFile := filepath.Join(t.TempDir(), "secrets.env")
	content := "key1=val1#comment\nkey2=val2==\n\n# comment only\nno_equals\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0600))

	output, err := runCommand(t, "import", envFile, "--password", "password", "--prefix", "env/", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "Imported 2 secret(s)")

	output, err = runCommand(t, "get", "env/key1", "--password", "password", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "val1\n")

	output, err = runCommand(t, "get", "env/key2", "--password", "password", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "val2==\n")
}

func TestConfigGetSet(t *testing.T) {
	folder := setupTest(t)
	mustInit(t, folder, "password")

	output, err := runCommand(t, "config", "get", "git.enabled", "--password", "password", "-f", folder)
	require.Error(t, err)
	assert.Contains(t, output, "No such option")

	output, err = runCommand(t, "config", "set", "git.enabled", "false", "--password", "password", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "Set git.enabled = false")

	output, err = runCommand(t, "config", "get", "git.enabled", "--password", "password", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "false\n")
}

func TestInfo(t *testing.T) {
	folder := setupTest(t)
	mustInit(t, folder, "password")

	output, err := runCommand(t, "info", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "Format version: 1")
	assert.Contains(t, output, "PBKDF2-HMAC-SHA256, 64 iterations")
	assert.Contains(t, output, "AES-256-GCM")
}

func TestDump(t *testing.T) {
	folder := setupTest(t)
	mustInit(t, folder, "password")

	_, err := runCommand(t, "set", "secret", "password123", "--password", "password", "-f", folder)
	require.NoError(t, err)

	output, err := runCommand(t, "dump", "--password", "password", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "secret=password123\n")
}

func TestShrineFolderEnvironmentVariable(t *testing.T) {
	folder := setupTest(t)
	mustInit(t, folder, "password")

	_, err := runCommand(t, "set", "secret", "from-env", "--password", "password", "-f", folder)
	require.NoError(t, err)

	t.Setenv("SHRINE_FOLDER", folder)
	output, err := runCommand(t, "get", "secret", "--password", "password")
	require.NoError(t, err)
	assert.Contains(t, output, "from-env\n")
}

func TestInitWithGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
	folder := setupTest(t)

	_, err := runCommand(t, "init", "--git", "--password", "password", "-f", folder)
	require.NoError(t, err)

	message, err := vcs.HeadMessage(folder)
	require.NoError(t, err)
	assert.Equal(t, "Initialize shrine", message)

	_, err = runCommand(t, "set", "secret", "v", "--password", "password", "-f", folder)
	require.NoError(t, err)

	message, err = vcs.HeadMessage(folder)
	require.NoError(t, err)
	assert.Equal(t, "Update shrine", message)

	count, err := vcs.CommitCount(folder)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Disabling auto-commit takes effect on its own persist: that save and
	// every following mutation are staged but not committed.
	_, err = runCommand(t, "config", "set", "git.commit.auto", "false", "--password", "password", "-f", folder)
	require.NoError(t, err)

	_, err = runCommand(t, "set", "another", "v", "--password", "password", "-f", folder)
	require.NoError(t, err)

	count, err = vcs.CommitCount(folder)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAgentStatusNotRunning(t *testing.T) {
	setupTest(t)

	output, err := runCommand(t, "agent", "status")
	require.NoError(t, err)
	assert.Contains(t, output, "Is running: false")
}

func TestWarmPathThroughAgent(t *testing.T) {
	folder := setupTest(t)
	mustInit(t, folder, "password")

	runtimeDir := filepath.Join(os.Getenv("XDG_RUNTIME_DIR"), "shrine")
	require.NoError(t, os.MkdirAll(runtimeDir, 0700))

	server := agent.NewServer(time.Minute, logger.Logger{})
	done := make(chan error, 1)
	go func() { done <- server.Serve(runtimeDir) }()
	t.Cleanup(func() {
		server.Stop()
		require.NoError(t, <-done)
	})

	client := agent.NewClient(runtimeDir)
	for i := 0; i < 50 && !client.Running(); i++ {
		time.Sleep(20 * time.Millisecond)
	}
	require.True(t, client.Running())

	// First command unlocks a session on demand, using the supplied password.
	output, err := runCommand(t, "set", "secret", "warm", "--password", "password", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "Stored secret")

	_, sessions, err := client.Pid()
	require.NoError(t, err)
	assert.Equal(t, 1, sessions)

	// Later commands ride the session; the password flag is not needed.
	output, err = runCommand(t, "get", "secret", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "warm\n")

	output, err = runCommand(t, "ls", "-f", folder)
	require.NoError(t, err)
	assert.Contains(t, output, "total 1\n")
}
