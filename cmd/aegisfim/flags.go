package main

import "flag"

// Run modes.
const (
	ModeInit    = "init"
	ModeCheck   = "check"
	ModeMonitor = "monitor"
)

type cliFlags struct {
	mode         string
	configFile   string
	baselinePath string
	force        bool
}

func parseFlags() cliFlags {
	modeFlag := flag.String("mode", "", "Mode to run the agent: init, check or monitor")
	modeFlagAlias := flag.String("m", "", "Alias for --mode")

	configFile := flag.String("config", "", "Path to the YAML/JSON configuration file. If not set, searches default locations.")
	configFileAlias := flag.String("c", "", "Alias for --config")

	baselinePath := flag.String("baseline", "", "Path to the baseline file (overrides the configured storage path)")
	baselinePathAlias := flag.String("b", "", "Alias for --baseline")

	force := flag.Bool("force", false, "In init mode, replace an existing baseline")

	flag.Parse()

	// Consolidate alias flags
	if *modeFlag == "" && *modeFlagAlias != "" {
		*modeFlag = *modeFlagAlias
	}
	if *configFile == "" && *configFileAlias != "" {
		*configFile = *configFileAlias
	}
	if *baselinePath == "" && *baselinePathAlias != "" {
		*baselinePath = *baselinePathAlias
	}

	return cliFlags{
		mode:         *modeFlag,
		configFile:   *configFile,
		baselinePath: *baselinePath,
		force:        *force,
	}
}
