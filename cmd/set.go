package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shrinedev/shrine/internal/agent"
	"github.com/shrinedev/shrine/internal/shrine"
	"github.com/shrinedev/shrine/internal/ui"
	"github.com/shrinedev/shrine/internal/utils"
)

var setCmd = &cobra.Command{
	Use:   "set <path> [value]",
	Short: "Stores a secret, overwriting any previous value",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		var value []byte
		if len(args) == 2 {
			value = []byte(args[1])
		} else {
			var err error
			value, err = utils.ReadPassphrase("Enter value for " + key + ": ")
			if err != nil {
				return err
			}
		}
		defer shrine.Bytes(value).Wipe()

		spinner, cleanup := startSpinner("Storing secret...")
		defer cleanup()

		folder, err := resolveFolder()
		if err != nil {
			return fail(spinner, "Failed to resolve the shrine folder", err)
		}

		handled, err := withAgent(folder, func(c *agent.Client) error {
			return c.Set(folder, key, value)
		})
		if !handled {
			repo, oerr := openRepository(folder)
			if oerr != nil {
				return fail(spinner, errorMessage(oerr), oerr)
			}
			defer repo.Close()

			if err = repo.Set(key, value); err == nil {
				err = repo.Save()
			}
		}
		if err != nil {
			return fail(spinner, errorMessage(err), err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Stored " + ui.Path.Sprint(key)
		return nil
	},
}
