package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shrinedev/shrine/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Reads and writes shrine configuration options",
	Long: `Configuration options live inside the shrine, encrypted with the
secrets. The git.enabled, git.commit.auto and git.push.auto options control
version control behavior.`,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Prints a configuration option",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, err := resolveFolder()
		if err != nil {
			return err
		}

		repo, err := openRepository(folder)
		if err != nil {
			fmt.Println(ui.Error.Sprint("✗") + " " + errorMessage(err))
			return err
		}
		defer repo.Close()

		value, ok := repo.GetConfig(args[0])
		if !ok {
			err := fmt.Errorf("no such option: %s", args[0])
			fmt.Println(ui.Error.Sprint("✗") + " No such option: " + ui.Highlight.Sprint(args[0]))
			return err
		}

		fmt.Println(value)
		return nil
	},
}

// Setting a configuration option is a mutation like any other: it goes
// through the same persist cycle and triggers the version-control hook,
// gated by the git.* options as they stand after the change.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Sets a configuration option",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner("Updating configuration...")
		defer cleanup()

		folder, err := resolveFolder()
		if err != nil {
			return fail(spinner, "Failed to resolve the shrine folder", err)
		}

		repo, err := openRepository(folder)
		if err != nil {
			return fail(spinner, errorMessage(err), err)
		}
		defer repo.Close()

		repo.SetConfig(args[0], args[1])
		if err := repo.Save(); err != nil {
			return fail(spinner, errorMessage(err), err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Set " + ui.Highlight.Sprint(args[0]) + " = " + args[1]
		return nil
	},
}
