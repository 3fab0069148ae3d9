package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/adapters"
	"github.com/satriahrh/radiocaption/adapters/ffmpeg"
	"github.com/satriahrh/radiocaption/adapters/mongo"
	"github.com/satriahrh/radiocaption/adapters/stt"
	"github.com/satriahrh/radiocaption/domain/repositories"
	"github.com/satriahrh/radiocaption/internal/api"
	"github.com/satriahrh/radiocaption/internal/config"
	"github.com/satriahrh/radiocaption/internal/metrics"
	"github.com/satriahrh/radiocaption/internal/websocket"
	"github.com/satriahrh/radiocaption/usecase"
)

const shutdownTimeout = 10 * time.Second

type streamFlags struct {
	url      string
	language string
	provider string
	storage  string
	http     bool
}

func newStreamCmd(root *rootFlags) *cobra.Command {
	var flags streamFlags

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Caption the live stream until it ends or is interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("url") {
				cfg.Stream.URL = flags.url
			}
			if cmd.Flags().Changed("language") {
				cfg.Stream.Language = flags.language
			}
			if cmd.Flags().Changed("provider") {
				cfg.STT.Provider = flags.provider
			}
			if cmd.Flags().Changed("storage") {
				cfg.Storage.Driver = flags.storage
			}
			if cmd.Flags().Changed("http") {
				cfg.HTTP.Enabled = flags.http
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runStream(cmd, cfg, root.logger)
		},
	}

	cmd.Flags().StringVar(&flags.url, "url", "", "Stream URL to caption")
	cmd.Flags().StringVar(&flags.language, "language", "", "Recognition language code, e.g. fr-FR")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "Speech provider (aws, google, yandex, mock)")
	cmd.Flags().StringVar(&flags.storage, "storage", "", "Session storage (memory, mongo)")
	cmd.Flags().BoolVar(&flags.http, "http", config.Default().HTTP.Enabled,
		"Serve the HTTP API, metrics and caption websocket (overrides http.enabled; --http=false disables)")

	return cmd
}

func runStream(cmd *cobra.Command, cfg *config.Config, logger *zap.Logger) error {
	ctx := cmd.Context()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	recognizer, closeRecognizer, err := newSpeechToText(ctx, cfg.STT, logger)
	if err != nil {
		return err
	}
	defer closeRecognizer()

	repo, closeRepo, err := newCaptionRepository(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	hub := websocket.NewHub(m.WebSocketClients, logger)
	go hub.Run(ctx)

	service := usecase.NewCaptionService(
		ffmpeg.NewDecoder(cfg.Stream.FFmpegPath, logger),
		recognizer,
		repo,
		hub,
		m,
		cmd.OutOrStdout(),
		usecase.CaptionConfig{
			StreamURL:  cfg.Stream.URL,
			Language:   cfg.Stream.Language,
			SampleRate: cfg.Stream.SampleRate,
			Channels:   cfg.Stream.Channels,
			Provider:   cfg.STT.Provider,
			Relay:      cfg.Relay,
		},
		logger,
	)

	if cfg.HTTP.Enabled {
		stopHTTP := startHTTP(cfg.HTTP, hub, repo, service, reg, logger)
		defer stopHTTP()
	}

	logger.Info("Starting real-time transcription",
		zap.String("streamURL", cfg.Stream.URL),
		zap.String("provider", cfg.STT.Provider))

	session, err := service.Run(ctx)
	if ctx.Err() != nil {
		logger.Info("Interruption detected, shutting down")
	}
	if err != nil {
		return err
	}

	logger.Info("Transcription completed",
		zap.String("sessionID", session.ID),
		zap.String("reason", session.EndReason),
		zap.Duration("duration", session.Duration()))
	return nil
}

func newSpeechToText(ctx context.Context, cfg config.STTConfig, logger *zap.Logger) (repositories.SpeechToText, func(), error) {
	noop := func() {}

	switch cfg.Provider {
	case config.ProviderAWS:
		client, err := stt.NewAWSSpeechToText(ctx, cfg.Region, cfg.Endpoint, logger)
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil
	case config.ProviderGoogle:
		return stt.NewGoogleSpeechToText(logger), noop, nil
	case config.ProviderYandex:
		client, err := stt.NewYandexSpeechToText(stt.YandexConfig{
			IamToken: cfg.Yandex.IamToken,
			FolderID: cfg.Yandex.FolderID,
			Endpoint: cfg.Yandex.Endpoint,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return client, func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close speech connection", zap.Error(err))
			}
		}, nil
	case config.ProviderMock:
		return stt.NewMockSpeechToText(logger), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown speech provider %q", cfg.Provider)
}

func newCaptionRepository(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (repositories.CaptionRepository, func(), error) {
	if cfg.Driver != config.StorageMongo {
		return adapters.NewMemoryCaptionRepository(), func() {}, nil
	}

	client, err := mongo.NewClient(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	}, logger)
	if err != nil {
		return nil, func() {}, err
	}
	closeClient := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			logger.Warn("Failed to close MongoDB client", zap.Error(err))
		}
	}

	repo := mongo.NewCaptionRepository(client.Database, logger)
	if err := repo.EnsureIndexes(ctx); err != nil {
		closeClient()
		return nil, func() {}, err
	}
	return repo, closeClient, nil
}

func startHTTP(
	cfg config.HTTPConfig,
	hub *websocket.Hub,
	repo repositories.CaptionRepository,
	live websocket.StatusSource,
	reg *prometheus.Registry,
	logger *zap.Logger,
) func() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, hub, repo, live, reg, logger)

	ticker := websocket.NewStatusTicker(live, hub, cfg.StatusInterval, logger)
	ticker.Start()

	go func() {
		if err := e.Start(cfg.ListenAddress()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	logger.Info("HTTP server started", zap.String("address", cfg.ListenAddress()))

	return func() {
		ticker.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
		logger.Info("HTTP server exited")
	}
}
