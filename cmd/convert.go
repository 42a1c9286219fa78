package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shrinedev/shrine/internal/agent"
	"github.com/shrinedev/shrine/internal/configs"
	"github.com/shrinedev/shrine/internal/shrine"
	"github.com/shrinedev/shrine/internal/ui"
	"github.com/shrinedev/shrine/internal/utils"
)

var convertNewPassword string

func init() {
	convertCmd.Flags().StringVar(&convertNewPassword, "new-password", "", "new shrine password (prompts when omitted)")
}

// convert always takes the cold path: re-keying with a cached key would let
// an expired session change the password.
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Changes the shrine password",
	Long: `Re-keys the shrine: the store is decrypted with the current password,
re-encrypted under a key derived from the new password with a fresh salt, and
written atomically. A crash mid-way leaves the original shrine intact.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner("Re-keying shrine...")
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

		newPassword := []byte(convertNewPassword)
		if convertNewPassword == "" {
			newPassword, err = utils.ReadNewPassphrase("Enter new shrine password: ")
			if err != nil {
				return fail(spinner, "Failed to read the new password", err)
			}
		}
		defer shrine.Bytes(newPassword).Wipe()

		if err := repo.Convert(newPassword); err != nil {
			return fail(spinner, errorMessage(err), err)
		}

		// Any cached agent session now holds a stale key; drop it.
		if runtimeDir, derr := configs.RuntimeDir(); derr == nil {
			client := agent.NewClient(runtimeDir)
			if client.Running() {
				if lerr := client.Lock(folder); lerr != nil {
					Logger.Warnf("could not clear the agent session: %v", lerr)
				}
			}
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Shrine re-keyed with the new password"
		return nil
	},
}
