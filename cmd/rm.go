package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shrinedev/shrine/internal/agent"
	"github.com/shrinedev/shrine/internal/ui"
)

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Removes a secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		spinner, cleanup := startSpinner("Removing secret...")
		defer cleanup()

		folder, err := resolveFolder()
		if err != nil {
			return fail(spinner, "Failed to resolve the shrine folder", err)
		}

		handled, err := withAgent(folder, func(c *agent.Client) error {
			return c.Remove(folder, key)
		})
		if !handled {
			repo, oerr := openRepository(folder)
			if oerr != nil {
				return fail(spinner, errorMessage(oerr), oerr)
			}
			defer repo.Close()

			if err = repo.Remove(key); err == nil {
				err = repo.Save()
			}
		}
		if err != nil {
			return fail(spinner, errorMessage(err), err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Removed " + ui.Path.Sprint(key)
		return nil
	},
}
