package cmd

import (
	"os"

	"github.com/spf13/cobra"

	logger "github.com/shrinedev/shrine/internal/logging"
)

var (
	verbose      bool
	debug        bool
	passwordFlag string
	folderFlag   string
	pathFlag     string

	Logger logger.Logger
)

var RootCmd = &cobra.Command{
	Use:   "shrine",
	Short: "Shrine - a local, file-based secrets manager.",
	Long: `Shrine stores named secrets in a single encrypted file, optionally
version-controlled with git, protected by a password.

A background agent can cache the derived key so repeated commands skip the
password prompt until the session expires. When no agent is reachable,
commands prompt for the password directly.

Run 'shrine help <command>' for more details on a specific command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		Logger = logger.Logger{
			Verbose: verbose,
			Debug:   debug,
		}
		Logger.Debugf("Initializing shrine command with verbose=%t, debug=%t", verbose, debug)
	},
}

// Execute runs the root command. Every reported error category exits non-zero.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	RootCmd.PersistentFlags().StringVar(&passwordFlag, "password", "", "shrine password (prompts when omitted)")
	RootCmd.PersistentFlags().StringVarP(&folderFlag, "folder", "f", "", "folder containing the shrine file (default: current directory)")
	RootCmd.PersistentFlags().StringVar(&pathFlag, "path", "", "alias for --folder")
	_ = RootCmd.PersistentFlags().MarkHidden("path")

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(setCmd)
	RootCmd.AddCommand(getCmd)
	RootCmd.AddCommand(lsCmd)
	RootCmd.AddCommand(rmCmd)
	RootCmd.AddCommand(convertCmd)
	RootCmd.AddCommand(importCmd)
	RootCmd.AddCommand(configCmd)
	RootCmd.AddCommand(infoCmd)
	RootCmd.AddCommand(dumpCmd)
	RootCmd.AddCommand(agentCmd)
}

// Helper functions for testing

// ResetGlobalState resets all flag variables to their defaults for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	passwordFlag = ""
	folderFlag = ""
	pathFlag = ""
	initForce = false
	initGit = false
	convertNewPassword = ""
	importPrefix = ""
	agentTTLMinutes = 0
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
