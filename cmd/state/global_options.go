package state

import "path/filepath"

// GlobalOptions contains global config values that apply for all automeet
// sub-commands.
type GlobalOptions struct {
	ConfigFilePath string
	Quiet          bool
	NoColor        bool
	Address        string
	LogOutput      string
	LogFormat      string
	Verbose        bool
}

// GetDefaultGlobalOptions returns the default global options. The settings
// store file lives under the OS user config directory.
func GetDefaultGlobalOptions(confDir string) GlobalOptions {
	return GlobalOptions{
		Address:        "localhost:6765",
		ConfigFilePath: filepath.Join(confDir, "automeet", defaultConfigFileName),
		LogOutput:      "stderr",
	}
}

func consolidateGlobalFlags(defaultFlags GlobalOptions, env map[string]string) GlobalOptions {
	result := defaultFlags

	if val, ok := env["AUTOMEET_CONFIG"]; ok {
		result.ConfigFilePath = val
	}
	if val, ok := env["AUTOMEET_ADDRESS"]; ok {
		result.Address = val
	}
	if val, ok := env["AUTOMEET_LOG_OUTPUT"]; ok {
		result.LogOutput = val
	}
	if val, ok := env["AUTOMEET_LOG_FORMAT"]; ok {
		result.LogFormat = val
	}
	if env["AUTOMEET_NO_COLOR"] != "" {
		result.NoColor = true
	}
	// Support https://no-color.org/, even an empty value should disable the
	// color output.
	if _, ok := env["NO_COLOR"]; ok {
		result.NoColor = true
	}
	return result
}
