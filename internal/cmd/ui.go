package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/automeet/automeet/cmd/state"
)

func getColor(noColor bool, attributes ...color.Attribute) *color.Color {
	if noColor {
		c := color.New()
		c.DisableColor()
		return c
	}
	return color.New(attributes...)
}

func yamlPrint(w io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not marshal YAML: %w", err)
	}
	_, err = fmt.Fprint(w, string(data))
	if err != nil {
		return fmt.Errorf("could not print YAML: %w", err)
	}
	return nil
}

// daemonDescription is what the run command prints on startup, one line per
// wired-up concern.
type daemonDescription struct {
	browser string
	store   string
	speech  string
	api     string
}

func printDaemonDescription(gs *state.GlobalState, desc daemonDescription) {
	noColor := gs.Flags.NoColor || !gs.Stdout.IsTTY
	valueColor := getColor(noColor, color.FgCyan)

	buf := &strings.Builder{}
	fmt.Fprintf(buf, "  browser: %s\n", valueColor.Sprint(desc.browser))
	fmt.Fprintf(buf, "    store: %s\n", valueColor.Sprint(desc.store))
	fmt.Fprintf(buf, "   speech: %s\n", valueColor.Sprint(desc.speech))
	if desc.api != "" {
		fmt.Fprintf(buf, "      api: %s\n", valueColor.Sprint(desc.api))
	}
	buf.WriteRune('\n')

	printToStdout(gs, buf.String())
}
