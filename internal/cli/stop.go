package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessera-apps/tessera/internal/constants"
	"github.com/tessera-apps/tessera/internal/ipc"
)

// newStopCmd creates the 'stop' command.
func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask the running instance to exit",
		Long: `Send an exit request to the running instance and wait for it to go
away. Does nothing when no instance is running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(cmd.OutOrStdout())
		},
	}
}

func runStop(out io.Writer) error {
	endpoint, err := resolveEndpoint()
	if err != nil {
		return fmt.Errorf("failed to resolve endpoint: %w", err)
	}

	client := ipc.NewClient(endpoint)
	ctx, cancel := context.WithTimeout(context.Background(), constants.DialTimeout)
	defer cancel()

	if err := client.Exit(ctx); err != nil {
		if ipc.IsConnRefused(err) {
			fmt.Fprintln(out, "No running instance.")
			return nil
		}
		return fmt.Errorf("failed to send exit request: %w", err)
	}

	fmt.Fprintln(out, "Stop request sent.")

	// The instance acknowledges first and tears down after; wait for the
	// endpoint to go quiet.
	deadline := time.Now().Add(constants.ShutdownGrace)
	for time.Now().Before(deadline) {
		probeCtx, probeCancel := context.WithTimeout(context.Background(), time.Second)
		err := client.Probe(probeCtx)
		probeCancel()
		if err != nil {
			fmt.Fprintln(out, "Instance stopped.")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Fprintln(out, "Instance is still shutting down.")
	return nil
}
