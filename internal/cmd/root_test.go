package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automeet/automeet/internal/cmd/tests"
)

func TestRootCommandHelpDisplaysCommands(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name               string
		wantStdoutContains string
	}{
		{
			name:               "should have run command",
			wantStdoutContains: "  run         Run the companion daemon",
		},
		{
			name:               "should have status command",
			wantStdoutContains: "  status      Show the daemon status",
		},
		{
			name:               "should have open command",
			wantStdoutContains: "  open        Open a meeting through the daemon",
		},
		{
			name:               "should have speak command",
			wantStdoutContains: "  speak       Speak text through the daemon's TTS engine",
		},
		{
			name:               "should have config command",
			wantStdoutContains: "  config      Show or change the daemon settings",
		},
		{
			name:               "should have version command",
			wantStdoutContains: "  version     Show application version",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ts := tests.NewGlobalTestState(t)
			ts.CmdArgs = []string{"automeet", "help"}
			newRootCommand(ts.GlobalState).execute()

			assert.Contains(t, ts.Stdout.String(), tc.wantStdoutContains)
		})
	}
}

func TestRootCommandUnsupportedLogOutput(t *testing.T) {
	t.Parallel()

	ts := tests.NewGlobalTestState(t)
	ts.CmdArgs = []string{"automeet", "--log-output", "nowhere", "version"}
	ts.ExpectedExitCode = -1
	newRootCommand(ts.GlobalState).execute()

	entries := ts.LoggerHook.Drain()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "unsupported log output 'nowhere'")
}
