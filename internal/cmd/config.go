package cmd

import (
	"github.com/spf13/cobra"

	"github.com/automeet/automeet/cmd/state"
	"github.com/automeet/automeet/internal/api/v1/client"
	"github.com/automeet/automeet/internal/settings"
)

func getCmdConfig(gs *state.GlobalState) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the daemon settings",
		Long: `Show the consolidated settings of a running daemon.

The shown values are the stored preferences with environment variable
overrides already applied, exactly as the daemon uses them.

  Use the global --address flag to specify the URL to the API server.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := client.New(gs.Flags.Address, client.WithLogger(daemonClientLogger(gs)))
			if err != nil {
				return err
			}
			conf, err := c.Settings(gs.Ctx)
			if err != nil {
				return wrapDaemonUnreachable(err)
			}

			return yamlPrint(gs.Stdout, conf)
		},
	}

	configCmd.AddCommand(getCmdConfigSet(gs))

	return configCmd
}

func getCmdConfigSet(gs *state.GlobalState) *cobra.Command {
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change stored preferences",
		Long: `Change preferences in the shared settings store.

Only the flags given on the command line are written; everything else keeps
its stored value. Running daemons and browser pages pick the change up
through the store's notifications, without a restart.`,
		Example: getExampleText(gs, `
  {{.}} config set --auto-join --countdown-duration 15
  {{.}} config set --disable-mic=false`[1:]),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			patch := settings.Preferences{
				DisableMic:              getNullBool(flags, "disable-mic"),
				DisableVideo:            getNullBool(flags, "disable-video"),
				AutoJoin:                getNullBool(flags, "auto-join"),
				CountdownDuration:       getNullInt64(flags, "countdown-duration"),
				TTSAnnouncementInterval: getNullInt64(flags, "announcement-interval"),
			}

			c, err := client.New(gs.Flags.Address, client.WithLogger(daemonClientLogger(gs)))
			if err != nil {
				return err
			}
			updated, err := c.PatchSettings(gs.Ctx, patch)
			if err != nil {
				return wrapDaemonUnreachable(err)
			}

			return yamlPrint(gs.Stdout, updated)
		},
	}

	flags := setCmd.Flags()
	flags.SortFlags = false
	flags.Bool("disable-mic", true, "mute the microphone when joining a meeting")
	flags.Bool("disable-video", true, "turn the camera off when joining a meeting")
	flags.Bool("auto-join", false, "join waiting rooms automatically after a spoken countdown")
	flags.Int64("countdown-duration", settings.DefaultCountdownDuration,
		"auto-join countdown length in seconds")
	flags.Int64("announcement-interval", settings.DefaultAnnounceInterval,
		"seconds between spoken countdown announcements")

	return setCmd
}
