package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"errortrail/src/auth"
	"errortrail/src/capture"
	"errortrail/src/controller"
	"errortrail/src/handler"
	"errortrail/src/metrics"
	"errortrail/src/stream"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
)

// Dependencies is everything the router needs. Hub and Metrics are optional.
type Dependencies struct {
	Config     *Config
	Auth       auth.Config
	Dispatcher *capture.Dispatcher
	Errors     *controller.ErrorsController
	Metrics    *metrics.Metrics
	Hub        *stream.Hub

	// Routes mounts the application's own routes behind the capture middleware.
	Routes func(r chi.Router)
}

func NewRouter(deps Dependencies) chi.Router {
	config := deps.Config
	if config == nil {
		config = GetConfig()
	}

	// Router with middleware
	r := chi.NewRouter()
	// === Global Middleware ===
	r.Use(RequestID)
	r.Use(capture.Middleware(deps.Dispatcher))

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})

	if config.MetricsEnabled && deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	if config.ErrorsRouteEnabled {
		base := config.Route()
		r.Route(base, func(er chi.Router) {
			er.Use(auth.BasicAuth(deps.Auth))
			er.Use(accessLog)

			er.Get("/", handler.ListErrorsHandler(deps.Errors, config.ErrorsMaxLimit))
			if config.ErrorsUIEnabled {
				er.Get("/ui", handler.ListErrorsPageHandler(deps.Errors, base, config.ErrorsMaxLimit))
				er.Get("/ui/{id}", handler.GetErrorPageHandler(deps.Errors, base))
			}
			if config.ErrorsStreamEnable && deps.Hub != nil {
				er.Handle("/stream", deps.Hub)
			}
			er.Get("/{id}", handler.GetErrorHandler(deps.Errors))
		})
		logger.WithField("route", base).Info("error routes enabled")
	}

	if deps.Routes != nil {
		deps.Routes(r)
	}

	return r
}

// accessLog records who read the error routes.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fields := logger.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": GetRequestID(r.Context()),
		}
		if operator, ok := auth.GetOperatorFromContext(r.Context()); ok {
			fields["operator"] = operator
		}
		logger.WithFields(fields).Debug("error route access")
		next.ServeHTTP(w, r)
	})
}

// StartServer serves handler on port until SIGINT or SIGTERM, then shuts down gracefully.
func StartServer(port string, handler http.Handler) error {
	// Graceful server
	// Server setup
	addr := ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		logger.WithError(err).Error("Server crashed")
		return err
	case <-stop:
	}

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
		return err
	}
	return nil
}
