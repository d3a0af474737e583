package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/freezerinv/internal/annotation"
	"github.com/vbonduro/freezerinv/internal/annotation/frames"
	"github.com/vbonduro/freezerinv/internal/annotation/gcprest"
	"github.com/vbonduro/freezerinv/internal/annotation/gcpsdk"
	"github.com/vbonduro/freezerinv/internal/annotation/tesseract"
	"github.com/vbonduro/freezerinv/internal/config"
	"github.com/vbonduro/freezerinv/internal/db"
	"github.com/vbonduro/freezerinv/internal/ledger"
	"github.com/vbonduro/freezerinv/internal/logging"
	"github.com/vbonduro/freezerinv/internal/mediastore/local"
	"github.com/vbonduro/freezerinv/internal/service"
	"github.com/vbonduro/freezerinv/internal/session"
	"github.com/vbonduro/freezerinv/internal/store"
	"github.com/vbonduro/freezerinv/internal/synth"
	"github.com/vbonduro/freezerinv/internal/synth/claude"
	"github.com/vbonduro/freezerinv/internal/synth/gemini"
	"github.com/vbonduro/freezerinv/internal/synth/ollama"
	"github.com/vbonduro/freezerinv/internal/web"
	"github.com/vbonduro/freezerinv/internal/web/templates"
)

func main() {
	if err := config.LoadEnvFile(config.EnvFileName); err != nil {
		log.Fatalf("failed to load %s: %v", config.EnvFileName, err)
	}
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(cfg, logger); err != nil {
		logger.Error("shutdown with error", "error", err)
		return
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	validator, err := ledger.NewCoordinateValidator(cfg.CoordinatePattern)
	if err != nil {
		return err
	}

	annotator, closer, err := newAnnotator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("failed to close annotation backend", "error", err)
			}
		}()
	}

	synthesizer, err := newSynthesizer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	svc := service.NewInventoryService(annotator, store.NewCallStore(database), service.Options{
		InventoryName: cfg.InventoryName,
		Timeouts:      service.Timeouts{Image: cfg.ImageTimeout, Video: cfg.VideoTimeout},
		Validator:     validator,
		Synthesizer:   synthesizer,
	}, logger)

	sessions := session.NewManager(cfg.SessionTTL, logger)
	server := web.NewServer(svc, sessions, templates.FS, web.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		WriteTimeout:   cfg.VideoTimeout + cfg.ImageTimeout + time.Minute,
	}, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx, cfg.ListenAddr)
	})
	g.Go(func() error {
		return sessions.Run(ctx, cfg.SessionSweep)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newAnnotator picks the OCR backend. "auto" prefers the cloud SDK when
// credentials are configured, then the REST API with a key, then local
// Tesseract.
func newAnnotator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (annotation.Annotator, io.Closer, error) {
	backend := cfg.AnnotationBackend
	if backend == "auto" {
		switch {
		case cfg.GCPCredentialsFile != "":
			backend = "gcp-sdk"
		case cfg.GCPAPIKey != "":
			backend = "gcp-rest"
		default:
			backend = "tesseract"
		}
	}

	switch backend {
	case "gcp-sdk":
		client, err := gcpsdk.New(ctx, cfg.GCPCredentialsFile, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using Google Cloud SDK annotation backend")
		return client, client, nil
	case "gcp-rest":
		if cfg.GCPAPIKey == "" {
			return nil, nil, errors.New("GCP_API_KEY is required when ANNOTATION_BACKEND=gcp-rest")
		}
		logger.Info("using Google Cloud REST annotation backend", "poll_interval", cfg.PollInterval)
		return gcprest.New(cfg.GCPAPIKey, gcprest.Options{
			VisionURL:    cfg.VisionURL,
			VideoURL:     cfg.VideoURL,
			PollInterval: cfg.PollInterval,
			Logger:       logger,
		}), nil, nil
	case "tesseract":
		engine, err := tesseract.New(tesseract.Options{
			Languages:  strings.Split(cfg.TesseractLanguages, "+"),
			Preprocess: cfg.TesseractPrep,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("local OCR unavailable, configure GCP_API_KEY or GCP_CREDENTIALS_FILE: %w", err)
		}
		staging, err := local.NewLocalMediaStore(cfg.MediaPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize media staging: %w", err)
		}
		logger.Info("using Tesseract annotation backend", "languages", cfg.TesseractLanguages, "frame_stride", cfg.FrameStride)
		return &annotation.Mux{
			Image: engine,
			Video: frames.NewSampler(frames.NewFFmpeg(cfg.FFmpegPath, staging, logger), engine, cfg.FrameStride, logger),
		}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown ANNOTATION_BACKEND %q", backend)
	}
}

// newSynthesizer returns nil when synthesis is off or not configured; a
// missing key never stops the inventory from working.
func newSynthesizer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (synth.Synthesizer, error) {
	switch cfg.SynthBackend {
	case "", "none":
		return nil, nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY not set, description synthesis disabled")
			return nil, nil
		}
		s, err := gemini.New(ctx, cfg.GeminiAPIKey, gemini.Options{Model: cfg.GeminiModel})
		if err != nil {
			return nil, err
		}
		logger.Info("using Gemini description synthesis")
		return s, nil
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			logger.Warn("CLAUDE_API_KEY not set, description synthesis disabled")
			return nil, nil
		}
		logger.Info("using Claude description synthesis")
		return claude.New(cfg.ClaudeAPIKey, claude.Options{Model: cfg.ClaudeModel}), nil
	case "ollama":
		logger.Info("using Ollama description synthesis", "model", cfg.OllamaModel)
		return ollama.New(cfg.OllamaHost, cfg.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unknown SYNTH_BACKEND %q", cfg.SynthBackend)
	}
}
