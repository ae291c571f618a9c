// otpentry - one-time password entry in the terminal
//
//	otpentry enter          Read a code from the keyboard, paste or clipboard
//	otpentry simulate       Replay an SMS autofill burst against a field
//	otpentry clipboard      Check whether the clipboard holds a code
//	otpentry journal        Show recorded fill episodes
//	otpentry config         Show, create or validate the configuration
package main

import (
	"fmt"
	"os"

	"otpentry/internal/config"
	"otpentry/internal/logging"
)

var (
	// Version information (set at build time)
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	switch cmd {
	case "enter":
		cmdEnter()
	case "simulate":
		cmdSimulate()
	case "clipboard":
		cmdClipboard()
	case "journal":
		cmdJournal()
	case "config":
		cmdConfig()
	case "version", "-v", "--version":
		fmt.Printf("otpentry %s (%s, built %s)\n", version, commit, buildTime)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`otpentry - One-time password entry

USAGE:
    otpentry <command> [options]

COMMANDS:
    enter               Enter a code; prints it to stdout when complete
    simulate            Replay an SMS autofill burst and show what the field does
    clipboard           Check the clipboard for a code of the configured length
    journal             List recorded fill episodes
    config <action>     show | init | path | schema | validate
    version             Print version information
    help                Show this help message

KEYS (enter):
    0-9, letters        Fill the focused cell and move right
    Backspace           Clear a cell and move left
    Left/Right/Home/End Move between cells
    Ctrl-V              Check the clipboard for a code
    Enter / Esc         Accept / decline a clipboard suggestion
    Ctrl-U              Clear every cell
    Ctrl-C              Quit without a code

PRIVACY NOTE:
    Codes are never logged. The journal, when enabled, stores a keyed digest of
    each code so repeated codes can be flagged, never the code itself.

ENVIRONMENT:
    OTPENTRY_CONFIG     Configuration file path
    OTPENTRY_DATA_DIR   Data directory (journal, logs)
    OTPENTRY_LENGTH     Field length override`)
}

// loadConfig loads path, or the default location when path is empty.
func loadConfig(path string) *config.Config {
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// setupLogging installs the configured logger as the default. Interactive
// commands pass keepTerminal so log lines do not land on the field display.
func setupLogging(cfg *config.Config, keepTerminal bool) *logging.Logger {
	lc, err := cfg.LoggerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in logging config: %v\n", err)
		os.Exit(1)
	}
	if keepTerminal {
		switch lc.Output {
		case "stdout", "stderr":
			lc.Output = "discard"
		case "both":
			lc.Output = "file"
		}
	}
	logger, err := logging.New(lc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	return logger
}

// crashHandler records panics under the data directory.
func crashHandler(logger *logging.Logger, component string) *logging.CrashHandler {
	return logging.NewCrashHandler(config.CrashDir(), component, version, logger.Logger)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
