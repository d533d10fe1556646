package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/automeet/automeet/cmd/state"
	"github.com/automeet/automeet/internal/api/v1/client"
	"github.com/automeet/automeet/internal/speech"
)

func getCmdSpeak(gs *state.GlobalState) *cobra.Command {
	req := speech.Request{Rate: 1.0, Pitch: 1.0, Volume: 1.0}

	speakCmd := &cobra.Command{
		Use:   "speak <text>...",
		Short: "Speak text through the daemon's TTS engine",
		Long: `Speak text through the text-to-speech engine of a running daemon.

Utterances are queued, so concurrent requests never talk over each other.

  Use the global --address flag to specify the URL to the API server.`,
		Example: getExampleText(gs, `
  {{.}} speak "joining in ten seconds"
  {{.}} speak --rate 1.5 meeting starts now`[1:]),
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			req.Text = strings.Join(args, " ")

			c, err := client.New(gs.Flags.Address, client.WithLogger(daemonClientLogger(gs)))
			if err != nil {
				return err
			}
			if err := c.Speak(gs.Ctx, req); err != nil {
				return wrapDaemonUnreachable(err)
			}
			return nil
		},
	}
	flags := speakCmd.Flags()
	flags.SortFlags = false
	flags.Float64Var(&req.Rate, "rate", req.Rate, "speech rate, 1.0 is the engine default")
	flags.Float64Var(&req.Pitch, "pitch", req.Pitch, "speech pitch, 1.0 is the engine default")
	flags.Float64Var(&req.Volume, "volume", req.Volume, "speech volume between 0.0 and 1.0")

	return speakCmd
}
