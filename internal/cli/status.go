package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tessera-apps/tessera/internal/config"
	"github.com/tessera-apps/tessera/internal/constants"
	"github.com/tessera-apps/tessera/internal/ipc"
)

// newStatusCmd creates the 'status' command.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running instance",
		Long: `Display the running instance's PID, version, uptime and endpoint.

Reports when no instance is running, or when an endpoint exists but its
instance is not responding.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout())
		},
	}
}

// resolveEndpoint derives the coordination endpoint the same way a
// desktop launch would, honoring the --config override.
func resolveEndpoint() (ipc.Endpoint, error) {
	settings, err := config.Load(settingsPath)
	if err != nil {
		return ipc.Endpoint{}, err
	}
	return ipc.ResolveEndpoint(settings.EffectiveRuntimeDir())
}

func runStatus(out io.Writer) error {
	endpoint, err := resolveEndpoint()
	if err != nil {
		return fmt.Errorf("failed to resolve endpoint: %w", err)
	}

	client := ipc.NewClient(endpoint)
	ctx, cancel := context.WithTimeout(context.Background(), constants.DialTimeout)
	defer cancel()

	status, err := client.Status(ctx)
	if err != nil {
		if ipc.IsConnRefused(err) {
			if _, statErr := os.Lstat(endpoint.Path); statErr == nil {
				fmt.Fprintf(out, "Endpoint %s exists but no instance is responding.\n", endpoint.Path)
				fmt.Fprintln(out, "The next launch will recover it.")
				return nil
			}
			fmt.Fprintln(out, "No running instance.")
			return nil
		}
		return fmt.Errorf("failed to query instance: %w", err)
	}

	fmt.Fprintln(out, "======================================================================")
	fmt.Fprintln(out, "  TESSERA INSTANCE")
	fmt.Fprintln(out, "======================================================================")
	fmt.Fprintf(out, "PID:      %d\n", status.PID)
	fmt.Fprintf(out, "Version:  %s\n", status.Version)
	fmt.Fprintf(out, "Uptime:   %s\n", status.Uptime)
	fmt.Fprintf(out, "Endpoint: %s\n", status.Endpoint)
	fmt.Fprintln(out, "======================================================================")
	return nil
}
