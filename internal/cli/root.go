// Package cli provides the command-line interface for tessera.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tessera-apps/tessera/internal/app"
	"github.com/tessera-apps/tessera/internal/pathutil"
	"github.com/tessera-apps/tessera/internal/version"
)

var (
	// Global flags
	settingsPath string
	verbose      bool
	automation   bool
)

// NewRootCmd creates the root command. Running it with no subcommand is
// the normal desktop launch: hand the arguments to the running instance,
// or become the instance.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tessera [file ...]",
		Short: "Tessera desktop workbench",
		Long: `Tessera ` + version.Version + ` - Built: ` + version.BuildTime + `
Desktop workbench with a single shared instance per user.

Launching tessera while an instance is running hands the arguments to
that instance and returns immediately. The first launch becomes the
instance and serves until it is closed.

Examples:
  tessera                          Open the workbench
  tessera notes.txt                Open a file in the running workbench
  tessera --diff old.txt new.txt   Hand a diff request to the instance
  tessera status                   Show the running instance
  tessera stop                     Ask the running instance to exit`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkbench(args)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "config", "c", "", "Settings file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.Flags().BoolVar(&automation, "automation", false, "Run as an automated test session; a running instance is a fatal conflict")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	// No shell completion for a desktop binary
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// AddCommands attaches the instance-management subcommands.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newStopCmd())
}

// Execute runs the CLI.
func Execute() error {
	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	return rootCmd.Execute()
}

// runWorkbench executes the single-instance bootstrap. It does not
// return on the bootstrap paths; the lifecycle guard terminates the
// process with the outcome's exit code.
func runWorkbench(args []string) error {
	// Arguments cross to another process with a different working
	// directory; resolve them while the launch directory is known.
	wd, err := os.Getwd()
	if err != nil {
		wd = ""
	}

	boot := app.New(app.Options{
		Arguments:    pathutil.AbsolutizeArgs(args, wd),
		SettingsPath: settingsPath,
		Verbose:      verbose,
		TestSession:  automation,
		Prompts:      terminalPrompts{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		boot.Logger().Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		boot.RequestStop("signal")
		cancel()
	}()

	code := boot.Run(ctx)

	// Single exit funnel: the guard has the last word on process exit
	boot.Guard().Shutdown(code)
	return nil // not reached
}
