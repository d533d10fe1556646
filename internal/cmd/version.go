package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/automeet/automeet/cmd/state"
	"github.com/automeet/automeet/internal/build"
)

// commitInfo returns the short VCS revision baked into the binary, if any.
func commitInfo() (commit string, dirty bool) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, s := range buildInfo.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
			if len(commit) > 10 {
				commit = commit[:10]
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	return commit, dirty
}

// fullVersion returns the maximally full version and build information for
// the currently running automeet executable.
func fullVersion() string {
	goVersionArch := fmt.Sprintf("%s, %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)

	commit, dirty := commitInfo()
	if commit == "" {
		return fmt.Sprintf("%s (%s)", build.Version, goVersionArch)
	}
	if dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (commit/%s, %s)", build.Version, commit, goVersionArch)
}

// versionString is rendered by the root command's --version template.
func versionString() string {
	return fullVersion()
}

func versionDetails() map[string]interface{} {
	v := build.Version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}

	details := map[string]interface{}{
		"version":    v,
		"go_version": runtime.Version(),
		"go_os":      runtime.GOOS,
		"go_arch":    runtime.GOARCH,
	}

	commit, dirty := commitInfo()
	if commit == "" {
		return details
	}
	if dirty {
		commit += "-dirty"
	}
	details["commit"] = commit

	return details
}

type versionCmd struct {
	gs     *state.GlobalState
	isJSON bool
}

func (c *versionCmd) run(cmd *cobra.Command, _ []string) error {
	if !c.isJSON {
		root := cmd.Root()
		root.SetArgs([]string{"--version"})
		_ = root.Execute()
		return nil
	}

	jsonDetails, err := json.Marshal(versionDetails())
	if err != nil {
		return fmt.Errorf("failed to produce JSON version details: %w", err)
	}

	_, err = fmt.Fprintln(c.gs.Stdout, string(jsonDetails))
	return err
}

func getCmdVersion(gs *state.GlobalState) *cobra.Command {
	versionCmd := &versionCmd{gs: gs}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show application version",
		Long:  `Show the application version and exit.`,
		RunE:  versionCmd.run,
	}

	cmd.Flags().BoolVar(&versionCmd.isJSON, "json", false, "if set, output version information will be in JSON format")

	return cmd
}
