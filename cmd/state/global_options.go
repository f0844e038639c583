package state

// GlobalOptions contains global config values that apply for all abilinker
// sub-commands.
type GlobalOptions struct {
	ConfigFilePath string
	Quiet          bool
	NoColor        bool
	LogOutput      string
	LogFormat      string
	Verbose        bool
}

// GetDefaultGlobalOptions returns the default global flags.
func GetDefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		LogOutput: "stderr",
	}
}

func consolidateGlobalFlags(defaultFlags GlobalOptions, env map[string]string) GlobalOptions {
	result := defaultFlags

	if val, ok := env["ABI_LINKER_CONFIG"]; ok {
		result.ConfigFilePath = val
	}
	if val, ok := env["ABI_LINKER_LOG_OUTPUT"]; ok {
		result.LogOutput = val
	}
	if val, ok := env["ABI_LINKER_LOG_FORMAT"]; ok {
		result.LogFormat = val
	}
	if env["ABI_LINKER_VERBOSE"] != "" {
		result.Verbose = true
	}
	if env["ABI_LINKER_NO_COLOR"] != "" {
		result.NoColor = true
	}
	// Support https://no-color.org/, even an empty value should disable the
	// color output.
	if _, ok := env["NO_COLOR"]; ok {
		result.NoColor = true
	}
	return result
}
