package vcs

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	kerrors "github.com/shrinedev/shrine/internal/errors"
	"github.com/shrinedev/shrine/internal/utils"
)

// Config keys stored in the shrine alongside the secrets.
const (
	ConfigEnabled    = "git.enabled"
	ConfigCommitAuto = "git.commit.auto"
	ConfigPushAuto   = "git.push.auto"
)

// Commit messages are part of the CLI contract.
const (
	initCommitMessage   = "Initialize shrine"
	updateCommitMessage = "Update shrine"
)

// Change describes what kind of mutation is being recorded.
type Change int

const (
	// ChangeInit is the first persist of a brand new shrine.
	ChangeInit Change = iota
	// ChangeUpdate is any subsequent persist.
	ChangeUpdate
)

// Config is the version-control configuration read from the shrine.
type Config struct {
	Enabled    bool
	CommitAuto bool
	PushAuto   bool
}

// DefaultConfig is the configuration written by `shrine init --git`.
func DefaultConfig() Config {
	return Config{Enabled: true, CommitAuto: true, PushAuto: false}
}

// ParseConfig reads the git.* options from a shrine config mapping. Missing
// or unparsable options count as false.
func ParseConfig(options map[string]string) Config {
	parse := func(key string) bool {
		value, err := strconv.ParseBool(options[key])
		return err == nil && value
	}
	return Config{
		Enabled:    parse(ConfigEnabled),
		CommitAuto: parse(ConfigCommitAuto),
		PushAuto:   parse(ConfigPushAuto),
	}
}

// WriteConfig stores cfg into a shrine config mapping.
func WriteConfig(options map[string]string, cfg Config) {
	options[ConfigEnabled] = strconv.FormatBool(cfg.Enabled)
	options[ConfigCommitAuto] = strconv.FormatBool(cfg.CommitAuto)
	options[ConfigPushAuto] = strconv.FormatBool(cfg.PushAuto)
}

// InitRepository creates a git repository in folder if one does not exist yet.
func InitRepository(folder string) error {
	if _, err := runGit(folder, "rev-parse", "--git-dir"); err == nil {
		return nil
	}
	if _, err := runGit(folder, "init"); err != nil {
		return err
	}
	return nil
}

// Record stages, commits and pushes the shrine file according to cfg. The
// shrine mutation has already been durably persisted when Record runs, so
// every failure here is a warning for the caller, never a fatal error.
func Record(shrineFile string, cfg Config, change Change) error {
	if !cfg.Enabled {
		return nil
	}

	folder := filepath.Dir(shrineFile)

	if _, err := runGit(folder, "add", filepath.Base(shrineFile)); err != nil {
		return err
	}

	if !cfg.CommitAuto {
		return nil
	}

	message := updateCommitMessage
	if change == ChangeInit {
		message = initCommitMessage
	}

	args := []string{"commit", "-m", message}
	args = append(identityArgs(), args...)
	if _, err := runGit(folder, args...); err != nil {
		return err
	}

	if cfg.PushAuto {
		if _, err := runGit(folder, "push"); err != nil {
			return err
		}
	}

	return nil
}

// identityArgs supplies a commit identity so commits succeed on machines
// without a global git config.
func identityArgs() []string {
	username, err := utils.GetUsername()
	if err != nil || username == "" {
		username = "shrine"
	}
	return []string{
		"-c", "user.name=" + username,
		"-c", "user.email=" + username + "@localhost",
	}
}

func runGit(folder string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = folder

	output, err := cmd.CombinedOutput()
	if err != nil {
		if strings.Contains(err.Error(), "executable file not found") {
			return "", fmt.Errorf("%w: git command not found", kerrors.ErrGit)
		}
		return "", fmt.Errorf("%w: git %s: %s", kerrors.ErrGit, args[0], strings.TrimSpace(string(output)))
	}

	return string(output), nil
}

// HeadMessage returns the subject line of the last commit in folder. Used by
// status output and tests.
func HeadMessage(folder string) (string, error) {
	output, err := runGit(folder, "log", "-1", "--pretty=%s")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// CommitCount returns the number of commits in folder.
func CommitCount(folder string) (int, error) {
	output, err := runGit(folder, "rev-list", "--count", "HEAD")
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(strings.TrimSpace(output))
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected rev-list output", kerrors.ErrGit)
	}
	return count, nil
}
