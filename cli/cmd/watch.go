package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/docqa/cli/render"
	"github.com/pithecene-io/docqa/upload"
	"github.com/pithecene-io/docqa/watch"
)

// WatchCommand returns the watch command.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Upload PDFs as they appear in a directory",
		ArgsUsage: "<dir>",
		Flags: append(uploadFlags(),
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Maximum uploads in flight",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Minimum spacing between upload starts",
			},
			&cli.DurationFlag{
				Name:  "debounce",
				Usage: "Quiet period before a changed file is uploaded",
			},
			&cli.BoolFlag{
				Name:  "existing",
				Usage: "Also upload PDFs already in the directory",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
		),
		Action: watchAction,
	}
}

func watchAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("watch requires exactly one <dir> argument", upload.ExitCodeInvalidInput)
	}
	dir := c.Args().First()

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

	cfg := watch.Config{
		Concurrency:  s.watch.Concurrency,
		Interval:     s.watch.Interval.Duration,
		Debounce:     s.watch.Debounce.Duration,
		ScanExisting: c.Bool("existing"),
		Logger:       logger,
	}
	if c.IsSet("concurrency") {
		cfg.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("interval") {
		cfg.Interval = c.Duration("interval")
	}
	if c.IsSet("debounce") {
		cfg.Debounce = c.Duration("debounce")
	}

	// Status lines only; watch never renders structured output.
	r := render.NewRendererWithWriter(render.FormatTable, c.Bool("no-color"), os.Stdout)
	uploader := watch.UploaderFunc(func(ctx context.Context, path string) error {
		result, err := runUpload(ctx, orch, upload.Request{Path: path}, s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipped %s: %v\n", path, err)
			return err
		}
		fmt.Fprintln(os.Stdout, r.StatusLine(result))
		if !result.Outcome.IsCompleted() {
			return fmt.Errorf("%s: %s", result.Outcome.Status, result.Outcome.Message)
		}
		return nil
	})

	w, err := watch.New(dir, uploader, cfg)
	if err != nil {
		return cli.Exit(err.Error(), upload.ExitCodeInvalidInput)
	}
	fmt.Fprintf(os.Stderr, "Watching %s for PDFs (Ctrl+C to stop)\n", dir)
	if err := w.Run(ctx); err != nil {
		return err
	}

	stats := w.Stats()
	fmt.Fprintf(os.Stderr, "uploaded=%d failed=%d skipped=%d\n", stats.Uploaded, stats.Failed, stats.Skipped)
	return nil
}
