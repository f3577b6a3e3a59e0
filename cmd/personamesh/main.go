// PersonaMesh - multi-agent persona coordination server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"

	"github.com/hupe1980/personamesh/bus"
	amqpbus "github.com/hupe1980/personamesh/bus/amqp"
	"github.com/hupe1980/personamesh/config"
	"github.com/hupe1980/personamesh/engine"
	"github.com/hupe1980/personamesh/logging"
	"github.com/hupe1980/personamesh/model"
	anthropicmodel "github.com/hupe1980/personamesh/model/anthropic"
	openaimodel "github.com/hupe1980/personamesh/model/openai"
	"github.com/hupe1980/personamesh/persona"
	"github.com/hupe1980/personamesh/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg)
	slog.Info("Starting personamesh", "port", cfg.Port, "provider", cfg.Provider)

	completer := buildCompleter(cfg)

	var messageBus bus.Bus = bus.NopBus{}
	if cfg.AMQPURL != "" {
		adapter, err := amqpbus.Connect(func(o *amqpbus.Options) {
			o.URL = cfg.AMQPURL
			o.Logger = logger
		})
		if err != nil {
			slog.Error("Failed to initialize message bus", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := adapter.Close(); closeErr != nil {
				slog.Error("Failed to close message bus", "error", closeErr)
			}
		}()
		messageBus = adapter
		slog.Info("Message bus initialized", "healthy", adapter.Healthy())
	} else {
		slog.Info("AMQP_URL not set, running without a broker")
	}

	e := engine.New(func(o *engine.Options) {
		o.Config = cfg.Engine
		o.Personas = persona.NewInMemoryDirectory()
		o.Completer = completer
		o.Bus = messageBus
		o.Logger = logger
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.NewRouter(e),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")
	e.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func buildLogger(cfg *config.Config) logging.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slogger := slog.New(handler)
	slog.SetDefault(slogger)
	return logging.NewSlogAdapter(slogger)
}

func buildCompleter(cfg *config.Config) model.Completer {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openaimodel.New(func(o *openaimodel.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		})
	case config.ProviderAnthropic:
		return anthropicmodel.New(func(o *anthropicmodel.Options) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
		})
	default:
		return model.NewMockCompleter()
	}
}
