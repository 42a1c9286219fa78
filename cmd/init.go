package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shrinedev/shrine/internal/shrine"
	"github.com/shrinedev/shrine/internal/ui"
	"github.com/shrinedev/shrine/internal/utils"
	"github.com/shrinedev/shrine/internal/vcs"
)

var (
	initForce bool
	initGit   bool
)

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing shrine")
	initCmd.Flags().BoolVar(&initGit, "git", false, "create a git repository and record every mutation")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initializes a new shrine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner("Initializing shrine...")
		defer cleanup()

		folder, err := resolveFolder()
		if err != nil {
			return fail(spinner, "Failed to resolve the shrine folder", err)
		}

		password := []byte(passwordFlag)
		if passwordFlag == "" {
			password, err = utils.ReadNewPassphrase("Enter new shrine password: ")
			if err != nil {
				return fail(spinner, "Failed to read the password", err)
			}
		}
		defer shrine.Bytes(password).Wipe()

		repo, err := shrine.Init(folder, password, initForce)
		if err != nil {
			return fail(spinner, errorMessage(err), err)
		}
		defer repo.Close()
		repo.Logger = Logger

		if initGit {
			if err := vcs.InitRepository(folder); err != nil {
				Logger.Warnf("could not create the git repository: %v", err)
			}
			cfg := make(map[string]string)
			vcs.WriteConfig(cfg, vcs.DefaultConfig())
			for key, value := range cfg {
				repo.SetConfig(key, value)
			}
		}

		if err := repo.Save(); err != nil {
			return fail(spinner, errorMessage(err), err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Shrine initialized at " + ui.Path.Sprint(repo.Path()) + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("shrine set <path>") + " to store your first secret"
		return nil
	},
}
