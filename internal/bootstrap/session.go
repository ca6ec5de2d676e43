package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hrdesk/hrdesk-client/config"
	"github.com/hrdesk/hrdesk-client/internal/adapters/filestore"
	"github.com/hrdesk/hrdesk-client/internal/adapters/memstore"
	"github.com/hrdesk/hrdesk-client/internal/adapters/redisstore"
	"github.com/hrdesk/hrdesk-client/internal/adapters/restapi"
	"github.com/hrdesk/hrdesk-client/internal/notify"
	"github.com/hrdesk/hrdesk-client/internal/observability/statsd"
	"github.com/hrdesk/hrdesk-client/internal/ports"
	"github.com/hrdesk/hrdesk-client/internal/service"
	"github.com/hrdesk/hrdesk-client/internal/tokenstore"
	"github.com/hrdesk/hrdesk-client/internal/transport"
)

// Session bundles the wired session core and its teardown.
type Session struct {
	Manager *service.Manager
	Events  *notify.Collector

	closers []func() error
}

// Close releases resources held by the session wiring.
func (s *Session) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BuildSession wires the full session core: state repository, token store,
// authorizing HTTP transport, REST client and the manager itself.
func BuildSession(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (*Session, error) {
	s := &Session{}

	repo, err := buildStateRepository(ctx, cfg, s)
	if err != nil {
		return nil, err
	}

	metricsSink, err := buildMetrics(cfg, logger, s)
	if err != nil {
		return nil, err
	}

	tokens := tokenstore.New()

	// The manager does not exist yet when the transport is built; the
	// refresh hook closes over the variable instead.
	var mgr *service.Manager

	rt := transport.New(transport.Options{
		Tokens: tokens,
		Logger: logger,
		Refresh: func(ctx context.Context) (string, error) {
			return mgr.RefreshAccessToken(ctx)
		},
	})

	api := restapi.New(restapi.Options{
		BaseURL: cfg.API.BaseURL,
		HTTPClient: &http.Client{
			Transport: rt,
			Timeout:   cfg.API.Timeout,
		},
		Logger: logger,
	})

	events := &notify.Collector{}
	sink := notify.Fanout(notify.LogSink{Logger: logger}, events)

	mgr = service.NewManager(service.ManagerOptions{
		API:      api,
		Repo:     repo,
		Tokens:   tokens,
		Notifier: sink,
		Logger:   logger,
		Metrics:  metricsSink,
		Timings: service.Timings{
			StatusCheckInterval:     cfg.Session.StatusCheckInterval,
			InactivityCheckInterval: cfg.Session.InactivityCheckInterval,
			WarningCheckInterval:    cfg.Session.WarningCheckInterval,
			InactivityTimeout:       cfg.Session.InactivityTimeout,
			RefreshThreshold:        cfg.Session.RefreshThreshold,
			WarningThresholds:       cfg.Session.WarningThresholds,
		},
	})

	s.Manager = mgr
	s.Events = events
	return s, nil
}

func buildStateRepository(ctx context.Context, cfg config.AppConfig, s *Session) (ports.StateRepository, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}

		s.closers = append(s.closers, client.Close)
		key := cfg.Redis.KeyPrefix + ":session"
		return redisstore.NewWithKey(client, key, 0), nil

	case config.StorageBackendMemory:
		return memstore.New(), nil

	default:
		path := cfg.Storage.Path
		if path == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("resolve user config dir: %w", err)
			}
			path = filepath.Join(dir, "hrdesk", "session.json")
		}
		return filestore.New(path), nil
	}
}

func buildMetrics(cfg config.AppConfig, logger *slog.Logger, s *Session) (statsd.Sink, error) {
	if !cfg.Observability.Metrics.IsEnabled() {
		return nil, nil
	}

	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  cfg.Observability.Metrics.StatsdPrefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init statsd: %w", err)
	}

	s.closers = append(s.closers, client.Close)
	return client, nil
}
