package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"datasync/internal/controllers"
	"datasync/internal/models"
	"datasync/internal/providers"
	"datasync/internal/scheduler/interfaces"
	"datasync/internal/services"
	"datasync/internal/structures"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	WebServer *http.Server
	conf      *structures.Config
	logger    providers.Logger
	pipeline  services.PipelineServiceInterface
	scheduler interfaces.SchedulerInterface
}

func NewApp(healthController *controllers.HealthController, pipeline services.PipelineServiceInterface, scheduler interfaces.SchedulerInterface, conf *structures.Config, logger providers.Logger, router providers.RouterProviderInterface, metrics providers.MetricsProviderInterface) *App {
	// Inner mux: API routes
	apiMux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		apiMux.Handle(route.Url, route.Handler)
	}

	// Wrap API routes with metrics middleware
	instrumentedAPI := providers.MetricsMiddleware(metrics, apiMux)

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)

	return &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		conf:      conf,
		logger:    logger,
		pipeline:  pipeline,
		scheduler: scheduler,
	}
}

// RunOnce runs the pipeline a single time. Per-category failures do not stop
// the run; they are joined into the returned error.
func (a *App) RunOnce(ctx context.Context) (*models.RunReport, error) {
	a.logger.Infof(providers.TypeApp, "Starting %s single run", a.conf.AppName)
	report := a.pipeline.Run(ctx)

	var errs []error
	for _, f := range report.Failures() {
		errs = append(errs, fmt.Errorf("%s: %s", f.Name, f.Error))
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return report, errors.Join(errs...)
}

// RunCategory fetches, cleans and saves a single category. Storage errors are
// returned as is.
func (a *App) RunCategory(ctx context.Context, category models.Category) (int, error) {
	a.logger.Infof(providers.TypeApp, "Starting %s run for %s", a.conf.AppName, category)
	return a.pipeline.FetchAndSave(ctx, category)
}

// Serve starts the scheduler and the HTTP server and blocks until ctx is
// cancelled or the server fails.
func (a *App) Serve(ctx context.Context) error {
	a.logger.Infof(providers.TypeApp, "Starting %s", a.conf.AppName)
	a.scheduler.Init(ctx)

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Infof(providers.TypeApp, "Listening HTTP clients on %s", a.WebServer.Addr)
		if err := a.WebServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		runErr = fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The server goes first so no POST /run can reach a stopping scheduler.
	shutdownErr := a.WebServer.Shutdown(shutdownCtx)
	a.scheduler.Stop()

	if shutdownErr != nil {
		return errors.Join(runErr, shutdownErr)
	}
	if runErr != nil {
		return runErr
	}
	a.logger.Infof(providers.TypeApp, "gracefully stopped")
	return nil
}
