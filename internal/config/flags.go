package config

import (
	"flag"

	"github.com/Faultbox/platformer2d/pkg/gameplaytag"
)

var (
	flagConfig       = flag.String("config", "", "Path to config file")
	flagDebug        = flag.Bool("debug", false, "Enable state machine diagnostics and debug logging")
	flagInitialState = flag.String("initial-state", "", "Initial state tag, e.g. PlayerState.Idle")
	flagHistory      = flag.Int("history", -1, "State history length")
	flagScenario     = flag.String("scenario", "", "Path to scenario file")
	flagScript       = flag.String("script", "", "Path to a tengo player script")
	flagLogFile      = flag.String("log-file", "", "Write logs to this file as well")
	flagOverlay      = flag.Bool("overlay", false, "Print the debug overlay every frame")
	flagMemory       = flag.Bool("memory", false, "Show memory stats in the debug overlay")
	flagWatch        = flag.Bool("watch", false, "Reload the config file when it changes")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// WatchEnabled reports whether --watch was given.
func WatchEnabled() bool {
	return *flagWatch
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.StateMachine.Debug = true
	}
	if *flagInitialState != "" {
		// an invalid tag leaves the value to Validate
		tag, err := gameplaytag.Parse(*flagInitialState)
		if err != nil {
			tag = gameplaytag.None
		}
		cfg.StateMachine.InitialState = tag
	}
	if *flagHistory >= 0 {
		cfg.StateMachine.HistoryLength = *flagHistory
	}
	if *flagScenario != "" {
		cfg.Simulation.Scenario = *flagScenario
	}
	if *flagScript != "" {
		cfg.Simulation.Script = *flagScript
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagOverlay {
		cfg.Simulation.Overlay = true
	}
	if *flagMemory {
		cfg.Simulation.Memory = true
	}
}
