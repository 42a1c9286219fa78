package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shrinedev/shrine/internal/agent"
	"github.com/shrinedev/shrine/internal/configs"
	logger "github.com/shrinedev/shrine/internal/logging"
	"github.com/shrinedev/shrine/internal/ui"
)

var agentTTLMinutes int

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manages the session agent",
	Long: `The agent is a background process that caches derived shrine keys
behind an owner-only unix socket. While a session is live, commands skip the
password prompt; sessions expire at a fixed time set when they are unlocked.`,
}

func init() {
	agentRunCmd.Flags().IntVar(&agentTTLMinutes, "ttl", 0, "session lifetime in minutes (default: user config)")

	agentCmd.AddCommand(agentStartCmd)
	agentCmd.AddCommand(agentRunCmd)
	agentCmd.AddCommand(agentStopCmd)
	agentCmd.AddCommand(agentStatusCmd)
	agentCmd.AddCommand(agentLockCmd)
	agentCmd.AddCommand(agentClearCmd)
}

var agentStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the agent in the background",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner("Starting agent...")
		defer cleanup()

		runtimeDir, err := configs.RuntimeDir()
		if err != nil {
			return fail(spinner, "Failed to resolve the runtime directory", err)
		}

		client := agent.NewClient(runtimeDir)
		if client.Running() {
			spinner.FinalMSG = ui.Success.Sprint("✓") + " Agent is already running"
			return nil
		}

		executable, err := os.Executable()
		if err != nil {
			return fail(spinner, "Failed to locate the shrine binary", err)
		}

		logFile, err := os.OpenFile(agent.LogPath(runtimeDir), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fail(spinner, "Failed to open the agent log", err)
		}
		defer logFile.Close()

		// Detach: new session, output to the log file. Full double-fork
		// daemonization is not needed for a per-user agent.
		run := exec.Command(executable, "agent", "run", "--verbose")
		run.Stdout = logFile
		run.Stderr = logFile
		run.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

		if err := run.Start(); err != nil {
			return fail(spinner, "Failed to start the agent", err)
		}
		if err := run.Process.Release(); err != nil {
			return fail(spinner, "Failed to detach the agent", err)
		}

		for i := 0; i < 20; i++ {
			if client.Running() {
				spinner.FinalMSG = ui.Success.Sprint("✓") + " Agent started"
				return nil
			}
			time.Sleep(100 * time.Millisecond)
		}

		return fail(spinner, "Agent did not come up; see "+ui.Path.Sprint(agent.LogPath(runtimeDir)), nil)
	},
}

var agentRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the agent in the foreground",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := configs.Load()
		if err != nil {
			return err
		}

		ttlMinutes := settings.Agent.TTLMinutes
		if agentTTLMinutes > 0 {
			ttlMinutes = agentTTLMinutes
		}

		runtimeDir, err := configs.RuntimeDir()
		if err != nil {
			return err
		}

		log := logger.Logger{Verbose: verbose, Debug: debug, Timestamps: true}
		server := agent.NewServer(time.Duration(ttlMinutes)*time.Minute, log)
		return server.Serve(runtimeDir)
	},
}

var agentStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stops a running agent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner("Stopping agent...")
		defer cleanup()

		runtimeDir, err := configs.RuntimeDir()
		if err != nil {
			return fail(spinner, "Failed to resolve the runtime directory", err)
		}

		client := agent.NewClient(runtimeDir)
		if !client.Running() {
			spinner.FinalMSG = ui.Success.Sprint("✓") + " Agent is not running"
			return nil
		}

		if err := client.Stop(); err != nil {
			return fail(spinner, "Failed to stop the agent", err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Agent stopped"
		return nil
	},
}

var agentStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints whether the agent is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runtimeDir, err := configs.RuntimeDir()
		if err != nil {
			return err
		}

		client := agent.NewClient(runtimeDir)
		pid, sessions, err := client.Pid()
		if err != nil {
			fmt.Println("Is running: false")
			return nil
		}

		fmt.Println("Is running: true")
		fmt.Printf("PID:        %d\n", pid)
		fmt.Printf("Sessions:   %d\n", sessions)
		return nil
	},
}

var agentLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Clears the session for the current shrine, immediately",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner("Locking shrine session...")
		defer cleanup()

		folder, err := resolveFolder()
		if err != nil {
			return fail(spinner, "Failed to resolve the shrine folder", err)
		}

		runtimeDir, err := configs.RuntimeDir()
		if err != nil {
			return fail(spinner, "Failed to resolve the runtime directory", err)
		}

		client := agent.NewClient(runtimeDir)
		if client.Running() {
			if err := client.Lock(folder); err != nil {
				return fail(spinner, "Failed to lock the session", err)
			}
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Session locked"
		return nil
	},
}

var agentClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clears every cached session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner("Clearing sessions...")
		defer cleanup()

		runtimeDir, err := configs.RuntimeDir()
		if err != nil {
			return fail(spinner, "Failed to resolve the runtime directory", err)
		}

		client := agent.NewClient(runtimeDir)
		if client.Running() {
			if err := client.LockAll(); err != nil {
				return fail(spinner, "Failed to clear sessions", err)
			}
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Sessions cleared"
		return nil
	},
}
