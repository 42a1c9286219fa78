package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"

	"github.com/shrinedev/shrine/internal/agent"
	"github.com/shrinedev/shrine/internal/configs"
	kerrors "github.com/shrinedev/shrine/internal/errors"
	"github.com/shrinedev/shrine/internal/shrine"
	"github.com/shrinedev/shrine/internal/ui"
	"github.com/shrinedev/shrine/internal/utils"
)

// startSpinner creates and starts a spinner with the given message when not
// in verbose or debug mode. Returns the spinner and a function that should be
// deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The
// cleanup function automatically calls ui.EnsureNewline() on the final
// message before printing it.
func startSpinner(message string) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	// Ignore color errors - continue without colored spinner if it fails.
	_ = s.Color("cyan")

	if !verbose && !debug {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		// Restore log output first.
		if !verbose && !debug {
			log.SetOutput(os.Stdout)
		}

		// Ensure final message ends with a newline.
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		// Stop the spinner first to clear the spinner line.
		if !verbose && !debug {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// fail records an error FinalMSG on the spinner and returns an error so the
// command exits non-zero.
func fail(s *spinner.Spinner, message string, err error) error {
	s.FinalMSG = ui.Error.Sprint("✗") + " " + message
	if err == nil {
		return errors.New(message)
	}
	Logger.Debugf("%v", err)
	return err
}

// resolveFolder picks the shrine folder: --path/--folder flag, then the
// SHRINE_FOLDER environment variable, then the user config default, then the
// current working directory.
func resolveFolder() (string, error) {
	for _, flag := range []string{pathFlag, folderFlag} {
		if flag != "" {
			return filepath.Abs(flag)
		}
	}
	if env := os.Getenv("SHRINE_FOLDER"); env != "" {
		return filepath.Abs(env)
	}
	if settings, err := configs.Load(); err == nil && settings.Folder != "" {
		return filepath.Abs(settings.Folder)
	}
	return os.Getwd()
}

// resolvePassword returns the --password flag value or prompts on the
// terminal without echo.
func resolvePassword(prompt string) ([]byte, error) {
	if passwordFlag != "" {
		return []byte(passwordFlag), nil
	}
	return utils.ReadPassphrase(prompt)
}

// openRepository is the cold path: derive the key from a supplied password
// and open the shrine directly.
func openRepository(folder string) (*shrine.Repository, error) {
	password, err := resolvePassword("Enter shrine password: ")
	if err != nil {
		return nil, err
	}
	defer shrine.Bytes(password).Wipe()

	repo, err := shrine.Open(folder, password)
	if err != nil {
		return nil, err
	}
	repo.Logger = Logger
	return repo, nil
}

// withAgent is the warm path: run op through the agent when one is
// reachable, unlocking a session on demand. It returns handled=false when
// the caller must fall back to the cold path, with identical observable
// results.
func withAgent(folder string, op func(c *agent.Client) error) (handled bool, err error) {
	runtimeDir, err := configs.RuntimeDir()
	if err != nil {
		return false, nil
	}

	client := agent.NewClient(runtimeDir)
	if !client.Running() {
		return false, nil
	}
	Logger.Debugf("Agent is running, using the warm path")

	err = op(client)
	if errors.Is(err, kerrors.ErrAgentNotRunning) {
		return false, nil
	}
	if !errors.Is(err, kerrors.ErrSessionExpired) {
		return true, err
	}

	// No live session: unlock one and retry once.
	password, perr := resolvePassword("Enter shrine password: ")
	if perr != nil {
		return false, nil
	}
	defer shrine.Bytes(password).Wipe()

	if uerr := client.Unlock(folder, password); uerr != nil {
		return true, uerr
	}
	Logger.Infof("Unlocked a new agent session")

	return true, op(client)
}

// errorMessage maps domain errors to the stable messages the CLI prints.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrIntegrity):
		return "Wrong password or corrupted shrine"
	case errors.Is(err, kerrors.ErrFormat):
		return "Unsupported shrine file format"
	case errors.Is(err, kerrors.ErrShrineNotFound):
		return "No shrine found" + runHint()
	case errors.Is(err, kerrors.ErrSecretNotFound):
		return "Secret not found"
	case errors.Is(err, kerrors.ErrAlreadyExists):
		return "A shrine already exists" + forceHint()
	case errors.Is(err, kerrors.ErrConcurrentModification):
		return "The shrine was modified concurrently; please retry"
	case errors.Is(err, kerrors.ErrInvalidPath):
		return "Invalid secret path"
	default:
		return err.Error()
	}
}

func runHint() string {
	return "\n" + ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("shrine init") + " to create one"
}

func forceHint() string {
	return "\n" + ui.Info.Sprint("→") + " Use " + ui.Code.Sprint("--force") + " to overwrite it"
}
