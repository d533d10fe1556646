package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automeet/automeet/errext/exitcodes"
	"github.com/automeet/automeet/internal/cmd/tests"
)

func TestRunCommandBrowserUnreachable(t *testing.T) {
	t.Parallel()

	ts := tests.NewGlobalTestState(t)
	// Port 1 is never a DevTools endpoint, so the first contact fails fast.
	ts.CmdArgs = []string{"automeet", "run", "--browser-address", "http://127.0.0.1:1"}
	ts.ExpectedExitCode = int(exitcodes.BrowserUnreachable)
	newRootCommand(ts.GlobalState).execute()

	entries := ts.LoggerHook.Drain()
	require.NotEmpty(t, entries)
	assert.Contains(t, entries[len(entries)-1].Message, "could not reach the browser")
}

func TestRunCommandUnknownStoreURL(t *testing.T) {
	t.Parallel()

	ts := tests.NewGlobalTestState(t)
	ts.CmdArgs = []string{"automeet", "run", "--store", "mysql://nope"}
	ts.ExpectedExitCode = int(exitcodes.StoreUnavailable)
	newRootCommand(ts.GlobalState).execute()

	entries := ts.LoggerHook.Drain()
	require.NotEmpty(t, entries)
	assert.Contains(t, entries[len(entries)-1].Message, "unknown store URL")
}

func TestRunCommandRejectsPositionalArgs(t *testing.T) {
	t.Parallel()

	ts := tests.NewGlobalTestState(t)
	ts.CmdArgs = []string{"automeet", "run", "whatever"}
	ts.ExpectedExitCode = -1
	newRootCommand(ts.GlobalState).execute()

	entries := ts.LoggerHook.Drain()
	require.NotEmpty(t, entries)
	assert.Contains(t, entries[len(entries)-1].Message, "unknown command")
}
