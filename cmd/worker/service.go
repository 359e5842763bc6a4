package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/kudibooks-backend/internal/tasks"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

type taskRunner interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger      *logger.Logger
	DB          pinger
	Redis       pinger
	PubSub      pinger
	Worker      taskRunner
	MetricsAddr string
	Gatherer    prometheus.Gatherer
}

type Service struct {
	logg        *logger.Logger
	db          pinger
	redis       pinger
	pubsub      pinger
	worker      taskRunner
	metricsAddr string
	gatherer    prometheus.Gatherer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Worker == nil {
		return nil, errors.New("task worker is required")
	}
	return &Service{
		logg:        params.Logger,
		db:          params.DB,
		redis:       params.Redis,
		pubsub:      params.PubSub,
		worker:      params.Worker,
		metricsAddr: params.MetricsAddr,
		gatherer:    params.Gatherer,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// pingDependency skips optional dependencies that were not configured.
func pingDependency(ctx context.Context, logg *logger.Logger, name string, p pinger) error {
	if p == nil {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// Run blocks until ctx is canceled or the task loop fails.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	var server *http.Server
	if s.metricsAddr != "" && s.gatherer != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
		server = &http.Server{Addr: s.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logg.Error(ctx, "worker metrics server stopped", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	err := s.worker.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logg.Error(ctx, "task worker stopped unexpectedly", err)
		return err
	}
	s.logg.Info(ctx, "worker context canceled")
	return nil
}

var _ taskRunner = (*tasks.Worker)(nil)
