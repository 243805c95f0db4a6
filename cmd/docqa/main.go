// Package main provides the docqa CLI entrypoint.
//
// Usage:
//
//	docqa [global options] <command> [subcommand] [options]
//
// Exit codes for `upload`:
//   - 0: document stored
//   - 1: the service reported an error or refused the request
//   - 2: transport failure, early end of stream, timeout or interrupt
//   - 3: the file or configuration was rejected locally
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/docqa/cli/cmd"
	"github.com/pithecene-io/docqa/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "docqa",
		Usage:          "Upload PDFs to a document Q&A service and follow their processing",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags:          cmd.GlobalFlags(),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.UploadCommand(),
			cmd.WatchCommand(),
			cmd.DocumentsCommand(),
			cmd.HistoryCommand(),
			cmd.DebugCommand(),
			cmd.VersionCommand("", commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already exited for cli.ExitCoder errors.
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	code, msg := exitStatus(err)
	if msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(code)
}

// exitStatus returns the exit code for err and the message worth printing.
// cli.Exit("", N) carries no message.
func exitStatus(err error) (int, string) {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg == fmt.Sprintf("exit status %d", code) {
			msg = ""
		}
		return code, msg
	}
	return 1, fmt.Sprintf("Error: %v", err)
}
