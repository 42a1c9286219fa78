package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shrinedev/shrine/internal/importer"
	"github.com/shrinedev/shrine/internal/ui"
)

var importPrefix string

func init() {
	importCmd.Flags().StringVar(&importPrefix, "prefix", "", "prefix prepended to every imported key")
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Imports secrets from a dotenv-style file",
	Long: `Imports key=value lines from a file. Unescaped '#' starts a comment,
blank and comment-only lines are skipped, and imported values overwrite
existing ones, so re-importing the same file is idempotent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner("Importing secrets...")
		defer cleanup()

		file, err := os.Open(args[0])
		if err != nil {
			return fail(spinner, "Failed to open "+ui.Path.Sprint(args[0]), err)
		}
		defer file.Close()

		entries, err := importer.Parse(file)
		if err != nil {
			return fail(spinner, "Failed to parse "+ui.Path.Sprint(args[0]), err)
		}

		folder, err := resolveFolder()
		if err != nil {
			return fail(spinner, "Failed to resolve the shrine folder", err)
		}

		repo, err := openRepository(folder)
		if err != nil {
			return fail(spinner, errorMessage(err), err)
		}
		defer repo.Close()

		count, err := repo.Import(entries, importPrefix)
		if err == nil {
			err = repo.Save()
		}
		if err != nil {
			return fail(spinner, errorMessage(err), err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " " + fmt.Sprintf("Imported %d secret(s)", count)
		return nil
	},
}
