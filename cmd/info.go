package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shrinedev/shrine/internal/shrine"
	"github.com/shrinedev/shrine/internal/ui"
)

// info only reads the cleartext container header, so no password is needed.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Prints shrine container metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, err := resolveFolder()
		if err != nil {
			return err
		}

		info, err := shrine.Inspect(folder)
		if err != nil {
			fmt.Println(ui.Error.Sprint("✗") + " " + errorMessage(err))
			return err
		}

		fmt.Printf("File:           %s\n", info.Path)
		fmt.Printf("Format version: %d\n", info.Version)
		fmt.Printf("UUID:           %s\n", info.UUID)
		fmt.Printf("KDF:            PBKDF2-HMAC-SHA256, %d iterations\n", info.Iterations)
		fmt.Printf("Encryption:     AES-256-GCM\n")
		fmt.Printf("Payload:        %d bytes\n", info.PayloadSize)
		return nil
	},
}
