package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shrinedev/shrine/internal/agent"
	"github.com/shrinedev/shrine/internal/ui"
)

var lsCmd = &cobra.Command{
	Use:   "ls [pattern]",
	Short: "Lists secret paths matching a regular expression",
	Long: `Lists the secret paths stored in the shrine, sorted, preceded by a
total count. The optional pattern is a regular expression matched against
full paths; without a pattern every path is listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}

		folder, err := resolveFolder()
		if err != nil {
			return err
		}

		var keys []string
		handled, err := withAgent(folder, func(c *agent.Client) error {
			var lerr error
			keys, lerr = c.List(folder, pattern)
			return lerr
		})
		if !handled {
			repo, oerr := openRepository(folder)
			if oerr != nil {
				err = oerr
			} else {
				defer repo.Close()
				keys, err = repo.List(pattern)
			}
		}
		if err != nil {
			fmt.Println(ui.Error.Sprint("✗") + " " + errorMessage(err))
			return err
		}

		var out strings.Builder
		fmt.Fprintf(&out, "total %d\n", len(keys))
		for _, key := range keys {
			out.WriteString(key)
			out.WriteByte('\n')
		}
		fmt.Print(out.String())
		return nil
	},
}
