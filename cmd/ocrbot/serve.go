package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/DanielPopoola/ocrbot/internal/application/services"
	"github.com/DanielPopoola/ocrbot/internal/config"
	"github.com/DanielPopoola/ocrbot/internal/infrastructure/ocr"
	"github.com/DanielPopoola/ocrbot/internal/infrastructure/persistence"
	"github.com/DanielPopoola/ocrbot/internal/infrastructure/telegram"
	"github.com/DanielPopoola/ocrbot/internal/interfaces/rest"
	"github.com/DanielPopoola/ocrbot/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/ocrbot/internal/metrics"
	"github.com/DanielPopoola/ocrbot/internal/worker"
)

func getServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Short:   "Start the bot and its HTTP server",
		Example: "BOT_TOKEN=123:abc ocrbot serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if err := cfg.ValidateBot(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := cfg.Logger.NewLogger()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("starting ocrbot",
		"version", version,
		"port", cfg.Server.Port,
		"mode", cfg.Bot.Mode,
		"storage", cfg.Storage.Driver,
		"ocr_engine", cfg.OCR.Engine,
	)

	stores, err := persistence.Open(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		return err
	}
	defer stores.Close()

	listener, err := net.Listen("tcp", "0.0.0.0:"+cfg.Server.Port)
	if err != nil {
		logger.Error("failed to bind port", "port", cfg.Server.Port, "error", err)
		return err
	}

	engine, err := ocr.NewEngine(cfg.OCR, logger)
	if err != nil {
		listener.Close()
		return err
	}
	if err := engine.Available(ctx); err != nil {
		logger.Warn("ocr engine not available, images will fail until it is", "engine", engine.Name(), "error", err)
	}

	client := telegram.NewClient(cfg.Bot, logger)
	if me, err := client.GetMe(ctx); err != nil {
		logger.Warn("could not reach telegram", "error", err)
	} else {
		logger.Info("authorized as bot", "username", me.Username, "id", me.ID)
	}
	messenger := telegram.NewRetryMessenger(client, cfg.Bot.SendAttempts, cfg.Bot.SendRetryDelay, logger)

	languages := services.NewLanguagePrefs()
	pipeline := services.NewPipelineService(engine, stores.Records, messenger, cfg.OCR.Language, logger)
	broadcasts := services.NewBroadcastService(stores.Audience, messenger, cfg.Bot.BroadcastRate, cfg.Bot.Concurrency, logger)
	commands := services.NewCommandService(stores.Audience, stores.Records, messenger, broadcasts, languages, cfg.IsAdmin, logger)
	dispatcher := services.NewDispatcher(pipeline, commands, stores.Audience, languages, messenger, cfg.Bot.Concurrency, logger)
	queryService := services.NewQueryService(stores.Records)

	deps := handlers.Deps{
		Engine:        engine,
		Records:       stores.Records,
		QueryService:  queryService,
		Pipeline:      pipeline,
		MaxImageBytes: cfg.Bot.MaxImageBytes,
		Logger:        logger,
	}
	if cfg.Bot.Mode == "webhook" {
		deps.Translator = client
		deps.Submitter = dispatcher
		deps.WebhookSecret = cfg.Bot.WebhookSecret
	}
	h := handlers.NewHandlers(deps)

	doc, err := rest.LoadSpec()
	if err != nil {
		listener.Close()
		return err
	}
	router, err := handlers.NewRouter(h, doc, metrics.Handler(), cfg.Server.RequestTimeout, logger)
	if err != nil {
		listener.Close()
		return err
	}

	server := &http.Server{
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	pollerDone := make(chan struct{})
	switch cfg.Bot.Mode {
	case "polling":
		if err := client.DeleteWebhook(ctx); err != nil {
			logger.Warn("failed to delete webhook before polling", "error", err)
		}
		poller := worker.NewPoller(client, dispatcher, cfg.Worker, logger)
		go func() {
			defer close(pollerDone)
			poller.Start(workerCtx)
		}()
	case "webhook":
		close(pollerDone)
		if cfg.Bot.WebhookURL != "" {
			url := strings.TrimRight(cfg.Bot.WebhookURL, "/") + "/webhook/" + cfg.Bot.WebhookSecret
			if err := client.SetWebhook(ctx, url, cfg.Bot.WebhookSecret); err != nil {
				logger.Error("failed to register webhook", "error", err)
			} else {
				logger.Info("webhook registered", "url", cfg.Bot.WebhookURL+"/webhook/<secret>")
			}
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var result *multierror.Error
	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		result = multierror.Append(result, err)
	}

	cancelWorkers()
	<-pollerDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		result = multierror.Append(result, fmt.Errorf("shutdown http server: %w", err))
	}

	h.Wait()
	dispatcher.Wait()

	logger.Info("server exited")
	return result.ErrorOrNil()
}
