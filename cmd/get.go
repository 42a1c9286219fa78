package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shrinedev/shrine/internal/agent"
	"github.com/shrinedev/shrine/internal/ui"
)

// get prints the raw secret value on stdout, so it never uses a spinner.
var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Prints a secret value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		folder, err := resolveFolder()
		if err != nil {
			return err
		}

		var value []byte
		handled, err := withAgent(folder, func(c *agent.Client) error {
			var gerr error
			value, gerr = c.Get(folder, key)
			return gerr
		})
		if !handled {
			repo, oerr := openRepository(folder)
			if oerr != nil {
				err = oerr
			} else {
				defer repo.Close()
				var secret []byte
				secret, err = repo.Get(key)
				if err == nil {
					value = append([]byte(nil), secret...)
				}
			}
		}
		if err != nil {
			fmt.Println(ui.Error.Sprint("✗") + " " + errorMessage(err))
			return err
		}

		fmt.Println(string(value))
		return nil
	},
}
