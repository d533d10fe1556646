package cmd

import (
	"github.com/spf13/cobra"

	"github.com/automeet/automeet/cmd/state"
	"github.com/automeet/automeet/internal/api/v1/client"
)

func getCmdStatus(gs *state.GlobalState) *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the daemon status",
		Long: `Show the status of a running daemon.

  Use the global --address flag to specify the URL to the API server.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := client.New(gs.Flags.Address, client.WithLogger(daemonClientLogger(gs)))
			if err != nil {
				return err
			}
			status, err := c.Status(gs.Ctx)
			if err != nil {
				return wrapDaemonUnreachable(err)
			}

			return yamlPrint(gs.Stdout, status)
		},
	}
	return statusCmd
}
