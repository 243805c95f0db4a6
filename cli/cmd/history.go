package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/docqa/cli/render"
	"github.com/pithecene-io/docqa/cli/tui"
	"github.com/pithecene-io/docqa/lode"
)

// HistoryCommand returns the history command with subcommands.
// History reads upload reports; it never contacts the service.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect stored upload reports",
		Subcommands: []*cli.Command{
			historyListCommand(),
			historyShowCommand(),
			historyStatsCommand(),
		},
	}
}

func historyFilterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "day",
			Usage: "Filter by day (YYYY-MM-DD, UTC)",
		},
		&cli.StringFlag{
			Name:  "outcome",
			Usage: "Filter by outcome: completed, failed",
		},
	}
}

func historyListCommand() *cli.Command {
	flags := append(ReadOnlyFlags(), reportFlags()...)
	flags = append(flags, historyFilterFlags()...)
	flags = append(flags, &cli.IntFlag{
		Name:  "limit",
		Usage: "Maximum number of reports to return (0 = no limit)",
	})
	return &cli.Command{
		Name:   "list",
		Usage:  "List upload reports, newest first",
		Flags:  flags,
		Action: historyListAction,
	}
}

func historyListAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for list commands", 1)
	}

	reports, err := queryReports(c, lode.ReportFilter{
		Day:     c.String("day"),
		Outcome: c.String("outcome"),
		Limit:   c.Int("limit"),
	})
	if err != nil {
		return err
	}

	if len(reports) > listWarningThreshold && c.Int("limit") == 0 && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: returning %d results. Consider using --limit to reduce output.\n\n", len(reports))
	}
	return r.RenderReports(reports)
}

func historyShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show the report of one upload session",
		ArgsUsage: "<session-id>",
		Flags:     append(ReadOnlyFlags(), reportFlags()...),
		Action:    historyShowAction,
	}
}

func historyShowAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("show requires exactly one <session-id> argument", 1)
	}
	sessionID := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	reports, err := queryReports(c, lode.ReportFilter{SessionID: sessionID, Limit: 1})
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		return cli.Exit(fmt.Sprintf("no report for session %s", sessionID), 1)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewReport, &reports[0])
	}
	return r.Render(reports[0])
}

func historyStatsCommand() *cli.Command {
	flags := append(ReadOnlyFlags(), reportFlags()...)
	return &cli.Command{
		Name:   "stats",
		Usage:  "Summarize upload reports",
		Flags:  append(flags, historyFilterFlags()...),
		Action: historyStatsAction,
	}
}

func historyStatsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	reports, err := queryReports(c, lode.ReportFilter{
		Day:     c.String("day"),
		Outcome: c.String("outcome"),
	})
	if err != nil {
		return err
	}

	stats := lode.SummarizeReports(reports)
	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewHistoryStats, &stats)
	}
	return r.Render(stats)
}

// queryReports opens the configured store and runs filter. No match is an
// empty result, not an error.
func queryReports(c *cli.Context, filter lode.ReportFilter) ([]lode.UploadReport, error) {
	s, err := loadSettings(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), 3)
	}
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	store, err := s.requireReportStore(ctx)
	if err != nil {
		return nil, cli.Exit(err.Error(), 3)
	}
	reports, err := lode.QueryReports(ctx, store.Dataset(), filter)
	if errors.Is(err, lode.ErrNoReports) {
		return nil, nil
	}
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("read reports: %v", err), 1)
	}
	return reports, nil
}
