package cmd

import (
	"fmt"

	pkgbrowser "github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/automeet/automeet/cmd/state"
	"github.com/automeet/automeet/internal/api/v1/client"
	"github.com/automeet/automeet/internal/meet"
)

func getCmdOpen(gs *state.GlobalState) *cobra.Command {
	var inTab bool

	exampleText := getExampleText(gs, `
  # Open a meeting by code in the installed Meet app window
  {{.}} open abc-defg-hij

  # Open a full link in an ordinary browser tab instead
  {{.}} open --tab https://meet.google.com/abc-defg-hij`[1:])

	openCmd := &cobra.Command{
		Use:   "open <code or link>",
		Short: "Open a meeting through the daemon",
		Long: `Open a Google Meet meeting.

By default the daemon is asked to open the meeting, which places it in the
installed Meet app window. With --tab the link is opened locally in the
default browser instead, without involving the daemon.

  Use the global --address flag to specify the URL to the API server.`,
		Example: exampleText,
		Args:    exactArgsWithMsg(1, "the meeting code or link to open"),
		RunE: func(_ *cobra.Command, args []string) error {
			target, err := meet.NormalizeTarget(args[0])
			if err != nil {
				return err
			}

			if inTab {
				return pkgbrowser.OpenURL(target)
			}

			c, err := client.New(gs.Flags.Address, client.WithLogger(daemonClientLogger(gs)))
			if err != nil {
				return err
			}
			meeting, err := c.OpenMeeting(gs.Ctx, target)
			if err != nil {
				return wrapDaemonUnreachable(err)
			}

			printToStdout(gs, fmt.Sprintf("opening %s\n", meeting.Target))
			return nil
		},
	}
	openCmd.Flags().BoolVar(&inTab, "tab", false, "open the link in an ordinary browser tab, not the app window")

	return openCmd
}
