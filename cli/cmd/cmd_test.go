package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/docqa/capture"
	"github.com/pithecene-io/docqa/cli/config"
	"github.com/pithecene-io/docqa/lode"
	"github.com/pithecene-io/docqa/types"
	"github.com/pithecene-io/docqa/upload"
)

func TestReadOnlyFlags_IncludesTUI(t *testing.T) {
	flags := ReadOnlyFlags()

	hasTUI := false
	for _, f := range flags {
		if f.Names()[0] == "tui" {
			hasTUI = true
			break
		}
	}

	if !hasTUI {
		t.Error("ReadOnlyFlags should include --tui flag for explicit error handling")
	}
}

func TestGlobalFlags(t *testing.T) {
	want := map[string]bool{"config": false, "api-url": false, "log-level": false, "verbose": false}
	for _, f := range GlobalFlags() {
		if _, ok := want[f.Names()[0]]; ok {
			want[f.Names()[0]] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("GlobalFlags missing --%s", name)
		}
	}
}

func TestIsStderrTTY(_ *testing.T) {
	// Actual TTY behavior depends on runtime environment.
	_ = isStderrTTY()
}

// testApp builds an app whose exit handler never terminates the process.
func testApp(commands ...*cli.Command) *cli.App {
	return &cli.App{
		Name:           "docqa",
		Flags:          GlobalFlags(),
		Commands:       commands,
		Writer:         io.Discard,
		ErrWriter:      io.Discard,
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// settingsCapture returns a command that captures the merged settings.
func settingsCapture(out **settings) *cli.Command {
	return &cli.Command{
		Name:  "show-settings",
		Flags: uploadFlags(),
		Action: func(c *cli.Context) error {
			s, err := loadSettings(c)
			*out = s
			return err
		},
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docqa.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSettings_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	var s *settings
	if err := testApp(settingsCapture(&s)).Run([]string{"docqa", "show-settings"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if s.apiURL != DefaultAPIURL {
		t.Errorf("apiURL = %q, want %q", s.apiURL, DefaultAPIURL)
	}
	if s.logLevel != DefaultLogLevel {
		t.Errorf("logLevel = %q, want %q", s.logLevel, DefaultLogLevel)
	}
	if s.reports.Backend != "" {
		t.Errorf("reports.Backend = %q, want empty", s.reports.Backend)
	}
}

func TestLoadSettings_FlagsOverrideConfig(t *testing.T) {
	path := writeConfig(t, `
api_url: http://config:8000
timeout: 10s
max_file_size_mb: 20
log_level: info
adapter:
  type: webhook
  url: http://hooks.local/docqa
  retries: 5
reports:
  backend: fs
  path: /var/reports
`)

	var s *settings
	args := []string{
		"docqa", "--config", path, "--api-url", "http://flag:9000", "--verbose",
		"show-settings", "--timeout", "3s", "--adapter-retries", "0", "--reports-path", "/tmp/reports",
	}
	if err := testApp(settingsCapture(&s)).Run(args); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if s.apiURL != "http://flag:9000" {
		t.Errorf("apiURL = %q, want flag value", s.apiURL)
	}
	if s.logLevel != "debug" {
		t.Errorf("logLevel = %q, want debug (--verbose)", s.logLevel)
	}
	if s.timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", s.timeout)
	}
	if s.maxFileSizeMB != 20 {
		t.Errorf("maxFileSizeMB = %d, want 20 from config", s.maxFileSizeMB)
	}
	if s.adapter.Type != "webhook" || s.adapter.URL != "http://hooks.local/docqa" {
		t.Errorf("adapter = %+v, want config values", s.adapter)
	}
	if s.adapter.Retries == nil || *s.adapter.Retries != 0 {
		t.Errorf("adapter.Retries = %v, want explicit 0", s.adapter.Retries)
	}
	if s.reports.Backend != "fs" || s.reports.Path != "/tmp/reports" {
		t.Errorf("reports = %+v, want fs at /tmp/reports", s.reports)
	}
}

func TestLoadSettings_ExplicitMissingConfig(t *testing.T) {
	var s *settings
	missing := filepath.Join(t.TempDir(), "absent.yaml")
	err := testApp(settingsCapture(&s)).Run([]string{"docqa", "--config", missing, "show-settings"})
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func adapterCfg(typ, url string) config.AdapterConfig {
	return config.AdapterConfig{Type: typ, URL: url}
}

func TestNewAdapter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     settings
		wantNil bool
		wantErr bool
	}{
		{name: "none", wantNil: true},
		{name: "url without type", cfg: settings{adapter: adapterCfg("", "http://x")}, wantErr: true},
		{name: "unknown type", cfg: settings{adapter: adapterCfg("kafka", "x")}, wantErr: true},
		{name: "webhook without url", cfg: settings{adapter: adapterCfg("webhook", "")}, wantErr: true},
		{name: "webhook", cfg: settings{adapter: adapterCfg("webhook", "http://hooks.local")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := tt.cfg.newAdapter()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if a != nil {
					t.Errorf("adapter = %v, want nil interface on error", a)
				}
				return
			}
			if err != nil {
				t.Fatalf("newAdapter() error = %v", err)
			}
			if tt.wantNil != (a == nil) {
				t.Errorf("adapter nil = %v, want %v", a == nil, tt.wantNil)
			}
			if a != nil {
				_ = a.Close()
			}
		})
	}
}

func TestNewReportStore(t *testing.T) {
	s := settings{}
	store, err := s.newReportStore(t.Context())
	if err != nil || store != nil {
		t.Errorf("disabled reports = (%v, %v), want (nil, nil)", store, err)
	}
	if _, err := s.requireReportStore(t.Context()); err == nil {
		t.Error("requireReportStore should fail without a backend")
	}

	s.reports.Backend = lode.BackendFS
	if _, err := s.newReportStore(t.Context()); err == nil {
		t.Error("fs backend without path should fail")
	}

	s.reports.Path = t.TempDir()
	store, err = s.newReportStore(t.Context())
	if err != nil {
		t.Fatalf("newReportStore(fs) error = %v", err)
	}
	if store.Backend() != lode.BackendFS {
		t.Errorf("Backend() = %q, want %q", store.Backend(), lode.BackendFS)
	}

	s.reports.Backend = "ftp"
	if _, err := s.newReportStore(t.Context()); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestFilterDocuments(t *testing.T) {
	docs := []types.Document{
		{ID: "a", UploadStatus: types.UploadStatusReady},
		{ID: "b", UploadStatus: types.UploadStatusProcessing},
		{ID: "c", UploadStatus: types.UploadStatusReady},
		{ID: "d", UploadStatus: types.UploadStatusError},
	}

	if got := filterDocuments(docs, "", 0); len(got) != 4 {
		t.Errorf("no filter = %d docs, want 4", len(got))
	}
	ready := filterDocuments(docs, types.UploadStatusReady, 0)
	if len(ready) != 2 || ready[0].ID != "a" || ready[1].ID != "c" {
		t.Errorf("ready = %+v, want a and c", ready)
	}
	if got := filterDocuments(docs, types.UploadStatusReady, 1); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("ready limit 1 = %+v, want a", got)
	}
	if got := filterDocuments(docs, "", 3); len(got) != 3 {
		t.Errorf("limit 3 = %d docs, want 3", len(got))
	}
	if docs[1].ID != "b" {
		t.Error("filterDocuments must not modify its input")
	}
}

func TestLineObserver(t *testing.T) {
	var buf bytes.Buffer
	o := newLineObserver(&buf)

	o.OnProgress(types.ProgressState{Stage: types.StageParsing, Percent: 10, Message: "Parsing PDF"})
	o.OnProgress(types.ProgressState{Stage: types.StageParsing, Percent: 10, Message: "Parsing PDF"})
	o.OnProgress(types.ProgressState{Stage: types.StageEmbedding, Percent: 70, Message: "Embedding"})
	o.OnOutcome(types.Failed("x"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (duplicates suppressed): %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], " 10%] Parsing PDF") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], " 70%] Embedding") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestLimitedReads(t *testing.T) {
	r := &limitedReads{r: strings.NewReader("abcdefg"), n: 3}
	buf := make([]byte, 16)
	var sizes []int
	for {
		n, err := r.Read(buf)
		if n > 0 {
			sizes = append(sizes, n)
		}
		if err != nil {
			break
		}
	}
	if len(sizes) != 3 || sizes[0] != 3 || sizes[1] != 3 || sizes[2] != 1 {
		t.Errorf("read sizes = %v, want [3 3 1]", sizes)
	}
}

const rawStream = "event: progress\r\n" +
	"data: {\"stage\":\"parsing\",\"percent\":20,\"message\":\"Parsing\"}\r\n\r\n" +
	"event: complete\r\n" +
	"data: {\"document_id\":\"doc-9\",\"filename\":\"a.pdf\",\"file_size\":10,\"page_count\":1}\r\n\r\n" +
	"event: progress\r\n" +
	"data: {\"stage\":\"done\",\"percent\":100}\r\n\r\n"

func TestDecodeStream(t *testing.T) {
	var progress bytes.Buffer
	res := decodeStream(context.Background(), strings.NewReader(rawStream), "s-1", "a.pdf", true, &progress)

	if !res.Outcome.IsCompleted() {
		t.Fatalf("outcome = %+v, want completed", res.Outcome)
	}
	resp := newReplayResponse(res, "-", 0)
	if resp.DocumentID != "doc-9" {
		t.Errorf("DocumentID = %q, want doc-9", resp.DocumentID)
	}
	if resp.Events != 3 {
		t.Errorf("Events = %d, want 3", resp.Events)
	}
	if resp.AfterTerminal != 1 {
		t.Errorf("AfterTerminal = %d, want 1", resp.AfterTerminal)
	}
	if resp.SessionID != "s-1" {
		t.Errorf("SessionID = %q, want s-1", resp.SessionID)
	}
	if !strings.Contains(progress.String(), "Parsing") {
		t.Errorf("progress output = %q, want the parsing update", progress.String())
	}
}

func TestDebugDecode_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	complete := filepath.Join(dir, "complete.sse")
	truncated := filepath.Join(dir, "truncated.sse")
	if err := os.WriteFile(complete, []byte(rawStream), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(truncated, []byte(rawStream[:40]), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		args []string
		want int
	}{
		{[]string{"docqa", "debug", "decode", "--format", "json", complete}, upload.ExitCodeCompleted},
		{[]string{"docqa", "debug", "decode", "--format", "json", "--chunk-size", "1", complete}, upload.ExitCodeCompleted},
		{[]string{"docqa", "debug", "decode", "--format", "json", truncated}, upload.ExitCodeTransport},
		{[]string{"docqa", "debug", "decode", "--chunk-size", "-1", complete}, upload.ExitCodeInvalidInput},
		{[]string{"docqa", "debug", "decode", "--tui", complete}, upload.ExitCodeInvalidInput},
		{[]string{"docqa", "debug", "decode", filepath.Join(dir, "absent")}, upload.ExitCodeInvalidInput},
	}
	for _, tt := range tests {
		err := testApp(DebugCommand()).Run(tt.args)
		if got := exitCode(err); got != tt.want {
			t.Errorf("%v: exit code = %d (%v), want %d", tt.args[2:], got, err, tt.want)
		}
	}
}

func TestDebugDecode_CanceledStdin(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	app := testApp(DebugCommand())
	app.Reader = pr

	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(20*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() {
		done <- app.RunContext(ctx, []string{"docqa", "debug", "decode", "--format", "json", "-"})
	}()

	select {
	case err := <-done:
		if got := exitCode(err); got != upload.ExitCodeTransport {
			t.Errorf("exit code = %d (%v), want %d", got, err, upload.ExitCodeTransport)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("debug decode did not return after cancellation")
	}
}

func TestAwaitDecode_BlockedReadAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	release := make(chan struct{})
	defer close(release)

	res, err := awaitDecode(ctx, func() *upload.Result {
		<-release
		return &upload.Result{}
	})
	if !errors.Is(err, context.Canceled) || res != nil {
		t.Errorf("awaitDecode() = (%v, %v), want context.Canceled", res, err)
	}
}

func TestAwaitDecode_ResultAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	res, err := awaitDecode(ctx, func() *upload.Result {
		return &upload.Result{SessionID: "s1"}
	})
	if err != nil || res == nil || res.SessionID != "s1" {
		t.Errorf("awaitDecode() = (%v, %v), want result", res, err)
	}
}

func TestDebugReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.capture")
	w, err := capture.Create(path, capture.HeaderRecord{
		SessionID: "s-replay",
		Filename:  "a.pdf",
	})
	if err != nil {
		t.Fatalf("capture.Create() error = %v", err)
	}
	for _, chunk := range []string{rawStream[:25], rawStream[25:90], rawStream[90:]} {
		if err := w.WriteChunk([]byte(chunk)); err != nil {
			t.Fatalf("WriteChunk() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	err = testApp(DebugCommand()).Run([]string{"docqa", "debug", "replay", "--format", "json", path})
	if got := exitCode(err); got != upload.ExitCodeCompleted {
		t.Errorf("replay exit code = %d (%v), want 0", got, err)
	}

	err = testApp(DebugCommand()).Run([]string{"docqa", "debug", "replay", filepath.Join(t.TempDir(), "absent")})
	if got := exitCode(err); got != upload.ExitCodeInvalidInput {
		t.Errorf("missing capture exit code = %d, want %d", got, upload.ExitCodeInvalidInput)
	}
}

func TestDocumentsCommands(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/documents":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"documents":[
				{"id":"doc-1","filename":"a.pdf","file_size":10,"page_count":1,"upload_status":"ready","created_at":"2026-03-01T12:00:00Z"},
				{"id":"doc-2","filename":"b.pdf","file_size":20,"page_count":2,"upload_status":"processing","created_at":"2026-03-01T11:00:00Z"}]}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/documents/doc-1":
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, `{"message":"deleted"}`)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"Document not found"}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()
	t.Chdir(t.TempDir())

	tests := []struct {
		args []string
		want int
	}{
		{[]string{"list", "--format", "json"}, 0},
		{[]string{"list", "--format", "json", "--status", "ready"}, 0},
		{[]string{"list", "--tui"}, 1},
		{[]string{"show", "--format", "json", "doc-2"}, 0},
		{[]string{"show", "--format", "json", "doc-9"}, 1},
		{[]string{"delete", "doc-1"}, 0},
		{[]string{"delete", "doc-9"}, 1},
	}
	for _, tt := range tests {
		args := append([]string{"docqa", "--api-url", srv.URL, "documents"}, tt.args...)
		err := testApp(DocumentsCommand()).Run(args)
		if got := exitCode(err); got != tt.want {
			t.Errorf("documents %v: exit code = %d (%v), want %d", tt.args, got, err, tt.want)
		}
	}
}

func TestHistoryCommands(t *testing.T) {
	dir := t.TempDir()
	store, err := lode.NewFSReportStore(dir)
	if err != nil {
		t.Fatalf("NewFSReportStore() error = %v", err)
	}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reports := []lode.UploadReport{
		{SessionID: "s-1", Filename: "a.pdf", Outcome: "completed", DocumentID: "doc-1", PageCount: 3, CompletedAt: at},
		{SessionID: "s-2", Filename: "b.pdf", Outcome: "failed", Failure: "server", Message: "bad pdf", CompletedAt: at.Add(time.Minute)},
	}
	for _, r := range reports {
		if err := store.WriteReport(t.Context(), r); err != nil {
			t.Fatalf("WriteReport() error = %v", err)
		}
	}
	t.Chdir(t.TempDir())

	storeArgs := []string{"--reports-backend", "fs", "--reports-path", dir, "--format", "json"}
	tests := []struct {
		args []string
		want int
	}{
		{[]string{"list"}, 0},
		{[]string{"list", "--outcome", "failed", "--limit", "1"}, 0},
		{[]string{"show", "s-1"}, 0},
		{[]string{"show", "s-9"}, 1},
		{[]string{"stats", "--day", "2026-03-01"}, 0},
	}
	for _, tt := range tests {
		args := append([]string{"docqa", "history", tt.args[0]}, storeArgs...)
		args = append(args, tt.args[1:]...)
		err := testApp(HistoryCommand()).Run(args)
		if got := exitCode(err); got != tt.want {
			t.Errorf("history %v: exit code = %d (%v), want %d", tt.args, got, err, tt.want)
		}
	}

	err = testApp(HistoryCommand()).Run([]string{"docqa", "history", "list", "--format", "json"})
	if got := exitCode(err); got != 3 {
		t.Errorf("history without store: exit code = %d, want 3", got)
	}
}
