package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shrinedev/shrine/internal/ui"
)

// dump prints key=value lines compatible with `shrine import`.
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Prints every secret as key=value lines",
	Args:  cobra.NoArgs,
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

		keys, err := repo.List("")
		if err != nil {
			return err
		}

		for _, key := range keys {
			value, gerr := repo.Get(key)
			if gerr != nil {
				return gerr
			}
			fmt.Printf("%s=%s\n", key, string(value))
		}
		return nil
	},
}
