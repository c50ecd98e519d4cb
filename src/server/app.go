package server

import (
	"context"
	"net/http"

	"errortrail/src/auth"
	"errortrail/src/capture"
	"errortrail/src/controller"
	"errortrail/src/executors"
	"errortrail/src/metrics"
	"errortrail/src/registry"
	"errortrail/src/repository"
	"errortrail/src/stream"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
)

// App bundles the wired components of a running errortrail server.
type App struct {
	Config     *Config
	Repo       *repository.ExceptionRepository
	Dispatcher *capture.Dispatcher
	Metrics    *metrics.Metrics
	Hub        *stream.Hub
	Sweeper    *executors.Sweeper
	Handler    http.Handler
}

// NewApp wires the components around repo using the environment
// configuration. routes may be nil.
func NewApp(repo *repository.ExceptionRepository, reg *registry.Registry, routes func(d *capture.Dispatcher) func(chi.Router)) *App {
	config := GetConfig()
	retention := capture.GetConfig().Retention

	m := metrics.New()
	hub := stream.NewHub()
	d := capture.NewDispatcher(repo, reg, retention, capture.WithMetrics(m), capture.WithNotifier(hub))

	deps := Dependencies{
		Config:     config,
		Auth:       auth.GetConfig(),
		Dispatcher: d,
		Errors:     controller.NewErrorsController(repo, controller.GetConfig().DefaultLimit),
		Metrics:    m,
		Hub:        hub,
	}
	if routes != nil {
		deps.Routes = routes(d)
	}

	return &App{
		Config:     config,
		Repo:       repo,
		Dispatcher: d,
		Metrics:    m,
		Hub:        hub,
		Sweeper:    executors.NewSweeper(repo, retention, executors.GetConfig().LoopPeriod, m),
		Handler:    NewRouter(deps),
	}
}

// Run serves until a shutdown signal, running the retention sweeper alongside
// when one is configured.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.Sweeper.Enabled() {
		go func() {
			if err := a.Sweeper.StartLoop(ctx); err != nil {
				logger.WithError(err).Error("sweeper exited")
			}
		}()
	}

	return StartServer(a.Config.Port, a.Handler)
}
