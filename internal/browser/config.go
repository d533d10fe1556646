package browser

import (
	"fmt"

	"github.com/mstoykov/envconfig"
	"gopkg.in/guregu/null.v3"
)

// DefaultAddress is where a locally running Chrome advertises its DevTools
// endpoint when started with --remote-debugging-port=9222.
const DefaultAddress = "http://localhost:9222"

// Config holds how the daemon reaches the browser: either the DevTools
// address of an already running Chrome, or the path of a binary to launch.
type Config struct {
	// Address is the DevTools endpoint of a running browser. It is ignored
	// when ExecPath is set.
	Address null.String `json:"address" envconfig:"AUTOMEET_BROWSER_ADDRESS"`
	// ExecPath, when set, makes the daemon launch its own browser process
	// instead of attaching to a running one.
	ExecPath null.String `json:"execPath" envconfig:"AUTOMEET_BROWSER_EXEC_PATH"`
	// UserDataDir is the profile directory for a launched browser.
	UserDataDir null.String `json:"userDataDir" envconfig:"AUTOMEET_BROWSER_USER_DATA_DIR"`
	// Headless launches the browser without a visible window.
	Headless null.Bool `json:"headless" envconfig:"AUTOMEET_BROWSER_HEADLESS"`
}

// NewConfig returns the default configuration: attach to a Chrome already
// listening on the standard DevTools port.
func NewConfig() Config {
	return Config{
		Address:  null.NewString(DefaultAddress, false),
		Headless: null.NewBool(false, false),
	}
}

// Apply overlays the valid fields of cfg on top of c and returns the result.
func (c Config) Apply(cfg Config) Config {
	if cfg.Address.Valid {
		c.Address = cfg.Address
	}
	if cfg.ExecPath.Valid {
		c.ExecPath = cfg.ExecPath
	}
	if cfg.UserDataDir.Valid {
		c.UserDataDir = cfg.UserDataDir
	}
	if cfg.Headless.Valid {
		c.Headless = cfg.Headless
	}
	return c
}

// Launches reports whether the configuration asks for a browser process of
// our own rather than an attachment to a running one.
func (c Config) Launches() bool {
	return c.ExecPath.Valid && c.ExecPath.String != ""
}

// Description summarizes the configuration in one line, for startup output.
func (c Config) Description() string {
	if c.Launches() {
		desc := "launch " + c.ExecPath.String
		if c.Headless.Bool {
			desc += " (headless)"
		}
		return desc
	}
	return c.Address.String
}

// GetConsolidatedConfig combines the default configuration, the environment
// and the explicitly given one, in that order of precedence.
func GetConsolidatedConfig(conf Config, env map[string]string) (Config, error) {
	result := NewConfig()

	envConfig := Config{}
	if err := envconfig.Process("", &envConfig, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}); err != nil {
		return result, fmt.Errorf("could not read browser configuration from the environment: %w", err)
	}
	result = result.Apply(envConfig).Apply(conf)

	return result, nil
}
