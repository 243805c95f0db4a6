// Package watch uploads PDFs as they appear in a directory.
//
// File system events are debounced per path so a file that is still being
// written is uploaded once, after it settles. Uploads run concurrently up to
// a limit, and their start rate is bounded by a token bucket.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pithecene-io/docqa/log"
)

// Defaults.
const (
	DefaultConcurrency = 2
	DefaultDebounce    = 500 * time.Millisecond
)

// Uploader uploads one file. Errors are logged and counted; they never stop
// the watcher.
type Uploader interface {
	Upload(ctx context.Context, path string) error
}

// UploaderFunc adapts a function to Uploader.
type UploaderFunc func(ctx context.Context, path string) error

// Upload implements Uploader.
func (f UploaderFunc) Upload(ctx context.Context, path string) error {
	return f(ctx, path)
}

// Config configures a Watcher.
type Config struct {
	// Concurrency is the maximum number of uploads in flight (default 2).
	Concurrency int
	// Interval is the minimum spacing between upload starts. Zero is unlimited.
	Interval time.Duration
	// Debounce is how long a path must be quiet before it is uploaded
	// (default 500ms).
	Debounce time.Duration
	// ScanExisting uploads PDFs already in the directory at start.
	ScanExisting bool
	// Logger receives watcher logs. Nil discards.
	Logger *log.Logger
}

// Stats counts watcher activity.
type Stats struct {
	Queued   int64 `json:"queued"`
	Uploaded int64 `json:"uploaded"`
	Failed   int64 `json:"failed"`
	Skipped  int64 `json:"skipped"`
}

// fileKey identifies one version of a file.
type fileKey struct {
	size    int64
	modTime time.Time
}

// Watcher uploads new and changed PDFs in one directory.
type Watcher struct {
	dir      string
	uploader Uploader
	config   Config
	logger   *log.Logger
	limiter  *rate.Limiter

	ready     chan struct{}
	readyOnce sync.Once

	mu       sync.Mutex
	timers   map[string]*time.Timer
	inflight map[string]bool
	uploaded map[string]fileKey

	queued, ok, failed, skipped atomic.Int64
}

// New creates a watcher for dir.
func New(dir string, uploader Uploader, cfg Config) (*Watcher, error) {
	if uploader == nil {
		return nil, errors.New("watch requires an uploader")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("watch directory: %s is not a directory", dir)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}

	return &Watcher{
		dir:      dir,
		uploader: uploader,
		config:   cfg,
		logger:   logger,
		limiter:  rate.NewLimiter(limit, 1),
		ready:    make(chan struct{}),
		timers:   make(map[string]*time.Timer),
		inflight: make(map[string]bool),
		uploaded: make(map[string]fileKey),
	}, nil
}

// Run watches dir and uploads PDFs until ctx is done.
func Run(ctx context.Context, dir string, uploader Uploader, cfg Config) error {
	w, err := New(dir, uploader, cfg)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// Ready is closed once the directory is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Queued:   w.queued.Load(),
		Uploaded: w.ok.Load(),
		Failed:   w.failed.Load(),
		Skipped:  w.skipped.Load(),
	}
}

// Run watches the directory until ctx is done, then waits for in-flight
// uploads. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	queue := make(chan string, 64)
	var uploads errgroup.Group
	uploads.SetLimit(w.config.Concurrency)

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		w.dispatch(ctx, queue, &uploads)
	}()

	w.logger.Info("watching directory", map[string]any{
		"dir":         w.dir,
		"concurrency": w.config.Concurrency,
		"debounce":    w.config.Debounce.String(),
	})
	w.readyOnce.Do(func() { close(w.ready) })

	if w.config.ScanExisting {
		w.scan(ctx, queue)
	}

	w.loop(ctx, fsw, queue)

	w.stopTimers()
	<-dispatchDone
	_ = uploads.Wait()

	w.logger.Info("watcher stopped", map[string]any{
		"uploaded": w.ok.Load(),
		"failed":   w.failed.Load(),
	})
	return nil
}

// loop turns file system events into debounced queue entries.
func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, queue chan<- string) {
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !IsCandidate(ev.Name) {
				continue
			}
			w.schedule(ctx, ev.Name, queue)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", map[string]any{"error": err.Error()})
		}
	}
}

// scan queues PDFs already present in the directory.
func (w *Watcher) scan(ctx context.Context, queue chan<- string) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("scan directory failed", map[string]any{"error": err.Error()})
		return
	}
	for _, e := range entries {
		if e.Type().IsRegular() && IsCandidate(e.Name()) {
			w.enqueue(ctx, filepath.Join(w.dir, e.Name()), queue)
		}
	}
}

// schedule (re)starts the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string, queue chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.config.Debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.enqueue(ctx, path, queue)
	})
}

func (w *Watcher) enqueue(ctx context.Context, path string, queue chan<- string) {
	select {
	case queue <- path:
		w.queued.Add(1)
	case <-ctx.Done():
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// dispatch starts an upload for each queued path, rate limited and bounded
// by the group's limit.
func (w *Watcher) dispatch(ctx context.Context, queue <-chan string, uploads *errgroup.Group) {
	for {
		var path string
		select {
		case <-ctx.Done():
			return
		case path = <-queue:
		}

		key, ok := w.claim(path)
		if !ok {
			w.skipped.Add(1)
			continue
		}
		if err := w.limiter.Wait(ctx); err != nil {
			w.release(path, key, false)
			return
		}
		uploads.Go(func() error {
			w.upload(ctx, path, key)
			return nil
		})
	}
}

// claim marks path in flight unless it is already uploading or this version
// was already uploaded.
func (w *Watcher) claim(path string) (fileKey, bool) {
	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		return fileKey{}, false
	}
	key := fileKey{size: st.Size(), modTime: st.ModTime()}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inflight[path] {
		return key, false
	}
	if prev, ok := w.uploaded[path]; ok && prev.size == key.size && prev.modTime.Equal(key.modTime) {
		return key, false
	}
	w.inflight[path] = true
	return key, true
}

func (w *Watcher) release(path string, key fileKey, uploaded bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inflight, path)
	if uploaded {
		w.uploaded[path] = key
	}
}

func (w *Watcher) upload(ctx context.Context, path string, key fileKey) {
	w.logger.Info("uploading new file", map[string]any{"path": path})

	err := w.uploader.Upload(ctx, path)
	// A failed version is not retried until the file changes.
	w.release(path, key, true)
	if err != nil {
		w.failed.Add(1)
		w.logger.Warn("watched upload failed", map[string]any{
			"path":  path,
			"error": err.Error(),
		})
		return
	}
	w.ok.Add(1)
}

// IsCandidate reports whether name looks like an uploadable PDF.
// Hidden files are skipped; editors and downloaders write to them first.
func IsCandidate(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".pdf")
}
