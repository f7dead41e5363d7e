package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/totegamma/passgate/internal/config"
	"github.com/totegamma/passgate/internal/infra/providers"
	"github.com/totegamma/passgate/internal/infra/repository"
	"github.com/totegamma/passgate/internal/observability"
	"github.com/totegamma/passgate/internal/present/rest"
	authmw "github.com/totegamma/passgate/internal/present/rest/middleware"
	"github.com/totegamma/passgate/internal/service"
	"github.com/totegamma/passgate/internal/usecase"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: conf.Server.SlogLevel(),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.Server.EnableTrace {
		shutdown, err := observability.SetupTraceProvider(ctx, conf.Server.TraceEndpoint, "passgate", version)
		if err != nil {
			slog.Error("failed to setup tracing", slog.String("error", err.Error()))
		} else {
			defer shutdown(context.Background())
		}
	}

	db, err := providers.NewDatabase(conf.Server)
	if err != nil {
		slog.Error("failed to setup database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	hub := service.NewHub()
	go hub.Run(ctx, time.Duration(conf.Notify.HeartbeatSeconds)*time.Second)

	relay, release := providers.NewRelay(ctx, conf.Server, conf.Notify, hub)
	defer release()
	notifier := service.NewNotificationService(hub, relay)

	if conf.Gate.Token == "" {
		slog.Warn("LPR_TOKEN is not set; gate calls fail until a token is stored in settings")
	}

	passRepo := repository.NewPassRepository(db)
	eventRepo := repository.NewEventRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	gate := usecase.NewGateConfigUsecase(
		settingsRepo,
		conf.Gate.Defaults(),
		conf.Gate.Token,
		time.Duration(conf.Gate.ConfigCacheSeconds)*time.Second,
	)
	eventLog := usecase.NewEventLog(eventRepo)
	decision := usecase.NewDecisionUsecase(passRepo, eventLog, gate)
	event := usecase.NewEventUsecase(eventLog, passRepo, gate, notifier)
	pass := usecase.NewPassUsecase(passRepo, gate, notifier)

	auth := authmw.NewAuthMiddleware(service.NewAuthService(conf.Server.JwtSecret), gate)
	handler := rest.NewHandler(decision, event, eventLog, pass, gate, hub, auth)

	e := echo.New()
	e.HideBanner = true
	e.Use(otelecho.Middleware("passgate"))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handler.RegisterRoutes(e)

	go func() {
		slog.Info("listening", slog.String("addr", conf.Server.Listen), slog.String("version", version))
		err := e.Start(conf.Server.Listen)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = e.Shutdown(shutdownCtx)
	if err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	eventLog.Flush()
}
