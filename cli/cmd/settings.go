package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/docqa/adapter"
	"github.com/pithecene-io/docqa/adapter/redis"
	"github.com/pithecene-io/docqa/adapter/webhook"
	"github.com/pithecene-io/docqa/api"
	"github.com/pithecene-io/docqa/cli/config"
	"github.com/pithecene-io/docqa/lode"
	"github.com/pithecene-io/docqa/log"
	"github.com/pithecene-io/docqa/upload"
)

// Defaults applied when neither a flag nor the config file sets a value.
const (
	DefaultAPIURL   = "http://localhost:8000"
	DefaultLogLevel = "warn"
	defaultRetries  = 3
)

// settings is the merged view of config file and flags.
// Flags always win over the config file.
type settings struct {
	apiURL        string
	headers       map[string]string
	timeout       time.Duration
	maxFileSizeMB int
	logLevel      string
	reports       config.ReportsConfig
	adapter       config.AdapterConfig
	watch         config.WatchConfig
}

// loadSettings reads the config file (optional unless --config is set) and
// applies flag overrides.
func loadSettings(c *cli.Context) (*settings, error) {
	cfg, err := config.LoadOptional(c.String("config"), c.IsSet("config"))
	if err != nil {
		return nil, err
	}

	s := &settings{
		apiURL:        cfg.APIURL,
		headers:       cfg.Headers,
		timeout:       cfg.Timeout.Duration,
		maxFileSizeMB: cfg.MaxFileSizeMB,
		logLevel:      cfg.LogLevel,
		reports:       cfg.Reports,
		adapter:       cfg.Adapter,
		watch:         cfg.Watch,
	}

	if v := c.String("api-url"); v != "" {
		s.apiURL = v
	}
	if s.apiURL == "" {
		s.apiURL = DefaultAPIURL
	}

	if v := c.String("log-level"); v != "" {
		s.logLevel = v
	}
	if c.Bool("verbose") {
		s.logLevel = "debug"
	}
	if s.logLevel == "" {
		s.logLevel = DefaultLogLevel
	}

	if c.IsSet("timeout") {
		s.timeout = c.Duration("timeout")
	}
	if c.IsSet("max-size-mb") {
		s.maxFileSizeMB = c.Int("max-size-mb")
	}

	if v := c.String("adapter"); v != "" {
		s.adapter.Type = v
	}
	if v := c.String("adapter-url"); v != "" {
		s.adapter.URL = v
	}
	if v := c.String("adapter-channel"); v != "" {
		s.adapter.Channel = v
	}
	if v := c.String("adapter-stream"); v != "" {
		s.adapter.Stream = v
	}
	if c.IsSet("adapter-retries") {
		retries := c.Int("adapter-retries")
		s.adapter.Retries = &retries
	}

	if v := c.String("reports-backend"); v != "" {
		s.reports.Backend = v
	}
	if v := c.String("reports-path"); v != "" {
		s.reports.Path = v
	}

	return s, nil
}

func (s *settings) newLogger() (*log.Logger, error) {
	level, err := log.ParseLevel(s.logLevel)
	if err != nil {
		return nil, err
	}
	return log.NewLogger(level), nil
}

func (s *settings) newClient() (*api.Client, error) {
	return api.New(api.Config{
		BaseURL: s.apiURL,
		Headers: s.headers,
		Timeout: s.timeout,
	})
}

// newAdapter builds the configured notification adapter, or nil when none
// is configured.
func (s *settings) newAdapter() (adapter.Adapter, error) {
	retries := defaultRetries
	if s.adapter.Retries != nil {
		retries = *s.adapter.Retries
	}

	switch s.adapter.Type {
	case "":
		if s.adapter.URL != "" {
			return nil, errors.New("adapter url set without adapter type")
		}
		return nil, nil
	case "webhook":
		a, err := webhook.New(webhook.Config{
			URL:     s.adapter.URL,
			Headers: s.adapter.Headers,
			Timeout: s.adapter.Timeout.Duration,
			Retries: retries,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case "redis":
		a, err := redis.New(redis.Config{
			URL:     s.adapter.URL,
			Channel: s.adapter.Channel,
			Stream:  s.adapter.Stream,
			Timeout: s.adapter.Timeout.Duration,
			Retries: retries,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown adapter type: %s (must be webhook or redis)", s.adapter.Type)
	}
}

// newReportStore builds the configured report store, or nil when reports
// are disabled.
func (s *settings) newReportStore(ctx context.Context) (*lode.ReportStore, error) {
	switch s.reports.Backend {
	case "":
		return nil, nil
	case lode.BackendFS:
		if s.reports.Path == "" {
			return nil, fmt.Errorf("reports backend fs requires a path")
		}
		return lode.NewFSReportStore(s.reports.Path)
	case lode.BackendS3:
		bucket, prefix := lode.ParseS3Path(s.reports.Path)
		return lode.NewS3ReportStore(ctx, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       s.reports.Region,
			Endpoint:     s.reports.Endpoint,
			UsePathStyle: s.reports.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown reports backend: %s (must be fs or s3)", s.reports.Backend)
	}
}

// requireReportStore is newReportStore for commands that read reports.
func (s *settings) requireReportStore(ctx context.Context) (*lode.ReportStore, error) {
	store, err := s.newReportStore(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("no report store configured (set reports.backend or --reports-backend)")
	}
	return store, nil
}

// newOrchestrator wires the client, adapter and report store. The returned
// cleanup closes the adapter.
func (s *settings) newOrchestrator(ctx context.Context, logger *log.Logger) (*upload.Orchestrator, func(), error) {
	client, err := s.newClient()
	if err != nil {
		return nil, nil, err
	}
	ad, err := s.newAdapter()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid adapter config: %w", err)
	}
	cleanup := func() {
		if ad != nil {
			if err := ad.Close(); err != nil {
				logger.Warn("adapter close failed", map[string]any{"error": err.Error()})
			}
		}
	}

	store, err := s.newReportStore(ctx)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("invalid reports config: %w", err)
	}

	cfg := upload.OrchestratorConfig{
		Transport:     client,
		APIURL:        client.BaseURL(),
		Logger:        logger,
		MaxFileSizeMB: s.maxFileSizeMB,
		Adapter:       ad,
		AdapterName:   s.adapter.Type,
	}
	if store != nil {
		cfg.Reports = store
		cfg.ReportBackend = store.Backend()
	}

	o, err := upload.NewOrchestrator(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return o, cleanup, nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}
