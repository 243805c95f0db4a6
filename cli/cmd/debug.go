package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/docqa/capture"
	"github.com/pithecene-io/docqa/cli/render"
	"github.com/pithecene-io/docqa/iox"
	"github.com/pithecene-io/docqa/log"
	"github.com/pithecene-io/docqa/metrics"
	"github.com/pithecene-io/docqa/upload"
)

// cancelGrace is how long debug decode waits for the session to wind down
// after cancellation before giving up on a blocked read.
const cancelGrace = 250 * time.Millisecond

// DebugCommand returns the debug command with subcommands.
// Debug commands never contact the service and never notify or report.
func DebugCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Diagnostic tools (replay captures, decode raw streams)",
		Subcommands: []*cli.Command{
			debugReplayCommand(),
			debugDecodeCommand(),
		},
	}
}

func chunkSizeFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "chunk-size",
		Usage: "Re-partition the stream into reads of this many bytes (0 keeps recorded boundaries)",
	}
}

func progressFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "progress",
		Usage: "Print each progress update to stderr",
	}
}

func debugReplayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Decode a recorded response stream",
		ArgsUsage: "<capture>",
		Flags:     append(ReadOnlyFlags(), chunkSizeFlag(), progressFlag()),
		Action:    debugReplayAction,
	}
}

func debugDecodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode raw event-stream text from a file or stdin",
		ArgsUsage: "[file|-]",
		Flags:     append(ReadOnlyFlags(), chunkSizeFlag(), progressFlag()),
		Action:    debugDecodeAction,
	}
}

// ReplayResponse is the output of debug replay and debug decode.
type ReplayResponse struct {
	SessionID       string `json:"session_id"`
	Filename        string `json:"filename"`
	StartedAt       string `json:"started_at,omitempty"`
	Source          string `json:"source"`
	SourceChunks    int    `json:"source_chunks,omitempty"`
	SourceBytes     int64  `json:"source_bytes"`
	ChunkSize       int    `json:"chunk_size"`
	Outcome         string `json:"outcome"`
	Failure         string `json:"failure"`
	Message         string `json:"message"`
	DocumentID      string `json:"document_id"`
	Lines           int64  `json:"lines"`
	Events          int64  `json:"events"`
	Malformed       int64  `json:"malformed"`
	DiscardedBytes  int64  `json:"discarded_bytes"`
	ProgressUpdates int64  `json:"progress_updates"`
	AfterTerminal   int64  `json:"events_after_terminal"`
}

func newReplayResponse(res *upload.Result, source string, chunkSize int) ReplayResponse {
	resp := ReplayResponse{
		SessionID:       res.SessionID,
		Filename:        res.Filename,
		Source:          source,
		SourceBytes:     res.BytesRead,
		ChunkSize:       chunkSize,
		Outcome:         string(res.Outcome.Status),
		Failure:         string(res.Failure),
		Message:         res.Outcome.Message,
		Lines:           res.Decoder.Lines,
		Events:          res.Decoder.Events,
		Malformed:       res.Decoder.Malformed,
		DiscardedBytes:  res.Decoder.DiscardedBytes,
		ProgressUpdates: res.ProgressUpdates,
		AfterTerminal:   res.Metrics.EventsAfterTerminal,
	}
	if doc := res.Outcome.Document; doc != nil {
		resp.DocumentID = doc.ID
	}
	return resp
}

func debugReplayAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("capture path required", upload.ExitCodeInvalidInput)
	}
	path := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", upload.ExitCodeInvalidInput)
	}
	chunkSize := c.Int("chunk-size")
	if chunkSize < 0 {
		return cli.Exit("--chunk-size must be >= 0", upload.ExitCodeInvalidInput)
	}

	ctx, stop := signalContext(c)
	defer stop()

	body, recorded, err := capture.Replay(ctx, path, chunkSize)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load capture: %v", err), upload.ExitCodeInvalidInput)
	}

	res := decodeStream(ctx, body, recorded.Header.SessionID, recorded.Header.Filename, c.Bool("progress"), c.App.ErrWriter)
	resp := newReplayResponse(res, path, chunkSize)
	resp.SourceChunks = len(recorded.Chunks)
	resp.SourceBytes = recorded.Size()
	if recorded.Header.StartedAt > 0 {
		resp.StartedAt = time.UnixMilli(recorded.Header.StartedAt).UTC().Format(time.RFC3339)
	}

	if err := r.Render(resp); err != nil {
		return err
	}
	return cli.Exit("", upload.ExitCode(res, nil))
}

func debugDecodeAction(c *cli.Context) error {
	if c.NArg() > 1 {
		return cli.Exit("at most one input file", upload.ExitCodeInvalidInput)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", upload.ExitCodeInvalidInput)
	}
	chunkSize := c.Int("chunk-size")
	if chunkSize < 0 {
		return cli.Exit("--chunk-size must be >= 0", upload.ExitCodeInvalidInput)
	}

	source := c.Args().First()
	var in io.Reader = c.App.Reader
	if in == nil {
		in = os.Stdin
	}
	if source == "" || source == "-" {
		source = "-"
	} else {
		f, err := os.Open(source)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to open input: %v", err), upload.ExitCodeInvalidInput)
		}
		defer iox.DiscardClose(f)
		in = f
	}

	ctx, stop := signalContext(c)
	defer stop()

	if closer, ok := in.(io.Closer); ok {
		detach := iox.CloseOnDone(ctx, closer)
		defer detach()
	}
	if chunkSize > 0 {
		in = &limitedReads{r: in, n: chunkSize}
	}
	res, err := awaitDecode(ctx, func() *upload.Result {
		return decodeStream(ctx, in, "", filepath.Base(source), c.Bool("progress"), c.App.ErrWriter)
	})
	if err != nil {
		return cli.Exit("decode canceled", upload.ExitCodeTransport)
	}

	if err := r.Render(newReplayResponse(res, source, chunkSize)); err != nil {
		return err
	}
	return cli.Exit("", upload.ExitCode(res, nil))
}

// decodeStream runs a session over body with no side effects.
func decodeStream(ctx context.Context, body io.Reader, sessionID, filename string, showProgress bool, stderr io.Writer) *upload.Result {
	if stderr == nil {
		stderr = os.Stderr
	}
	collector := metrics.NewCollector(sessionID, filename, "", "")
	cfg := upload.SessionConfig{
		SessionID: sessionID,
		Filename:  filename,
		Logger:    log.NewNop(),
		Collector: collector,
	}
	if showProgress {
		cfg.Observer = newLineObserver(stderr)
	}
	res := upload.NewSession(cfg).Run(ctx, body)
	res.Metrics = collector.Snapshot()
	return res
}

// awaitDecode runs decode and returns its result. Once ctx is done it waits
// at most cancelGrace: closing a terminal does not interrupt a read already
// blocked on it.
func awaitDecode(ctx context.Context, decode func() *upload.Result) (*upload.Result, error) {
	done := make(chan *upload.Result, 1)
	go func() { done <- decode() }()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
	}
	select {
	case res := <-done:
		return res, nil
	case <-time.After(cancelGrace):
		return nil, ctx.Err()
	}
}

// limitedReads caps every Read at n bytes.
type limitedReads struct {
	r io.Reader
	n int
}

func (l *limitedReads) Read(p []byte) (int, error) {
	if len(p) > l.n {
		p = p[:l.n]
	}
	return l.r.Read(p)
}
