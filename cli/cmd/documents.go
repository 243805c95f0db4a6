package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/docqa/api"
	"github.com/pithecene-io/docqa/cli/render"
	"github.com/pithecene-io/docqa/cli/tui"
	"github.com/pithecene-io/docqa/types"
)

// listWarningThreshold is the number of items above which we warn about using --limit.
const listWarningThreshold = 100

// isStderrTTY returns true if stderr is a TTY.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// DocumentsCommand returns the documents command with subcommands.
func DocumentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "documents",
		Usage: "Manage documents stored by the service",
		Subcommands: []*cli.Command{
			documentsListCommand(),
			documentsShowCommand(),
			documentsDeleteCommand(),
		},
	}
}

func documentsListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List documents, newest first",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "status",
				Usage: "Filter by upload status: processing, ready, error",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of documents to return (0 = no limit)",
			},
		),
		Action: documentsListAction,
	}
}

func documentsListAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for list commands", 1)
	}

	client, err := clientFromContext(c)
	if err != nil {
		return err
	}
	docs, err := client.ListDocuments(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("list documents: %v", err), 1)
	}

	docs = filterDocuments(docs, types.UploadStatus(c.String("status")), c.Int("limit"))

	if len(docs) > listWarningThreshold && c.Int("limit") == 0 && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: returning %d results. Consider using --limit to reduce output.\n\n", len(docs))
	}

	return r.RenderDocuments(docs)
}

func filterDocuments(docs []types.Document, status types.UploadStatus, limit int) []types.Document {
	if status != "" {
		filtered := docs[:0:0]
		for _, d := range docs {
			if d.UploadStatus == status {
				filtered = append(filtered, d)
			}
		}
		docs = filtered
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}

func documentsShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one document",
		ArgsUsage: "<document-id>",
		Flags:     ReadOnlyFlags(),
		Action:    documentsShowAction,
	}
}

func documentsShowAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("show requires exactly one <document-id> argument", 1)
	}
	id := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	client, err := clientFromContext(c)
	if err != nil {
		return err
	}
	docs, err := client.ListDocuments(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("list documents: %v", err), 1)
	}

	for i := range docs {
		if docs[i].ID != id {
			continue
		}
		if c.Bool("tui") {
			return r.RenderTUI(tui.ViewDocument, &docs[i])
		}
		return r.Render(docs[i])
	}
	return cli.Exit(fmt.Sprintf("%v: %s", api.ErrNotFound, id), 1)
}

func documentsDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a document and its chunks",
		ArgsUsage: "<document-id>",
		Action:    documentsDeleteAction,
	}
}

func documentsDeleteAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("delete requires exactly one <document-id> argument", 1)
	}
	id := c.Args().First()

	client, err := clientFromContext(c)
	if err != nil {
		return err
	}
	if err := client.DeleteDocument(c.Context, id); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return cli.Exit(err.Error(), 1)
		}
		return cli.Exit(fmt.Sprintf("delete document: %v", err), 2)
	}
	fmt.Fprintf(os.Stderr, "deleted %s\n", id)
	return nil
}

func clientFromContext(c *cli.Context) (*api.Client, error) {
	s, err := loadSettings(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), 3)
	}
	client, err := s.newClient()
	if err != nil {
		return nil, cli.Exit(err.Error(), 3)
	}
	return client, nil
}
