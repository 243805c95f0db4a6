// Package cmd provides CLI commands for the docqa binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for upload and select read-only commands.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (upload, show, stats only)",
	}
)

// Global flags, accepted before any command.
var (
	// ConfigFlag points at the YAML config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file",
		Value:   "docqa.yaml",
		EnvVars: []string{"DOCQA_CONFIG"},
	}

	// APIURLFlag overrides the service base URL.
	APIURLFlag = &cli.StringFlag{
		Name:    "api-url",
		Usage:   "Document service base URL (default http://localhost:8000)",
		EnvVars: []string{"DOCQA_API_URL"},
	}

	// LogLevelFlag sets the log level.
	LogLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level: debug, info, warn, error (default warn)",
		EnvVars: []string{"DOCQA_LOG_LEVEL"},
	}

	// VerboseFlag is shorthand for --log-level debug.
	VerboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable debug logging",
	}
)

// GlobalFlags returns the flags shared by every command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		APIURLFlag,
		LogLevelFlag,
		VerboseFlag,
	}
}

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// uploadFlags are shared by upload and watch.
func uploadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Overall timeout per upload (0 = none)",
		},
		&cli.IntFlag{
			Name:  "max-size-mb",
			Usage: "Largest accepted file in MB",
		},
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Notification adapter: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Notification endpoint (webhook URL or redis URL)",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis channel for notifications",
		},
		&cli.StringFlag{
			Name:  "adapter-stream",
			Usage: "Redis stream that also records notifications",
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Notification retry attempts",
		},
		&cli.StringFlag{
			Name:  "reports-backend",
			Usage: "Upload report storage: fs or s3 (empty disables reports)",
		},
		&cli.StringFlag{
			Name:  "reports-path",
			Usage: "Report storage path (fs: directory, s3: bucket/prefix)",
		},
	}
}

// reportFlags select the report store for read commands.
func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "reports-backend",
			Usage: "Upload report storage: fs or s3",
		},
		&cli.StringFlag{
			Name:  "reports-path",
			Usage: "Report storage path (fs: directory, s3: bucket/prefix)",
		},
	}
}
