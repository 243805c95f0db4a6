package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/docqa/cli/render"
	"github.com/pithecene-io/docqa/cli/tui"
	"github.com/pithecene-io/docqa/types"
	"github.com/pithecene-io/docqa/upload"
)

// UploadCommand returns the upload command.
// Exit codes:
//   - 0: document stored
//   - 1: the service reported an error or refused the request
//   - 2: transport failure, early end of stream, timeout or interrupt
//   - 3: the file was rejected locally
func UploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload a PDF and follow its processing progress",
		ArgsUsage: "<file.pdf>",
		Flags: append(append(ReadOnlyFlags(), uploadFlags()...),
			&cli.StringFlag{
				Name:  "capture",
				Usage: "Record the raw response stream to this file for replay",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Suppress progress and result output",
			},
		),
		Action: uploadAction,
	}
}

func uploadAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("upload requires exactly one <file.pdf> argument", upload.ExitCodeInvalidInput)
	}
	path := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	s, err := loadSettings(c)
	if err != nil {
		return cli.Exit(err.Error(), upload.ExitCodeInvalidInput)
	}
	logger, err := s.newLogger()
	if err != nil {
		return cli.Exit(err.Error(), upload.ExitCodeInvalidInput)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signalContext(c)
	defer stop()

	orch, cleanup, err := s.newOrchestrator(ctx, logger)
	if err != nil {
		return cli.Exit(err.Error(), upload.ExitCodeInvalidInput)
	}
	defer cleanup()

	req := upload.Request{
		Path:        path,
		CapturePath: c.String("capture"),
	}
	quiet := c.Bool("quiet")

	var result *upload.Result
	if c.Bool("tui") && !quiet {
		tuiErr := tui.RunUpload(ctx, filepath.Base(path), func(ctx context.Context, obs *tui.ProgramObserver) {
			req.Observer = obs
			result, err = runUpload(ctx, orch, req, s)
		})
		if tuiErr != nil {
			logger.Warn("progress view failed", map[string]any{"error": tuiErr.Error()})
		}
	} else {
		if !quiet && isStderrTTY() {
			req.Observer = newLineObserver(os.Stderr)
		}
		result, err = runUpload(ctx, orch, req, s)
	}
	if err != nil {
		if upload.IsValidationError(err) {
			return cli.Exit(err.Error(), upload.ExitCodeInvalidInput)
		}
		return err
	}

	if !quiet {
		if !c.Bool("tui") {
			fmt.Fprintln(os.Stderr, r.StatusLine(result))
		}
		if err := r.RenderUpload(result); err != nil {
			return err
		}
	}

	return cli.Exit("", upload.ExitCode(result, nil))
}

// runUpload applies the overall timeout around one upload.
func runUpload(ctx context.Context, orch *upload.Orchestrator, req upload.Request, s *settings) (*upload.Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return orch.Upload(ctx, req)
}

// lineObserver prints one line per progress update.
type lineObserver struct {
	w    io.Writer
	last types.ProgressState
}

func newLineObserver(w io.Writer) *lineObserver {
	return &lineObserver{w: w}
}

// OnProgress implements upload.Observer.
func (o *lineObserver) OnProgress(state types.ProgressState) {
	if state == o.last {
		return
	}
	o.last = state
	fmt.Fprintf(o.w, "[%-9s %3d%%] %s\n", state.Stage, state.Percent, state.Message)
}

// OnOutcome implements upload.Observer. The status line is printed by the
// command once side effects finish.
func (o *lineObserver) OnOutcome(*types.UploadOutcome) {}
