package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/langquence/correct-tray/internal/app"
	"github.com/langquence/correct-tray/internal/archive"
	"github.com/langquence/correct-tray/internal/audio"
	"github.com/langquence/correct-tray/internal/config"
	"github.com/langquence/correct-tray/internal/correct"
	"github.com/langquence/correct-tray/internal/hotkey"
	"github.com/langquence/correct-tray/internal/inject"
	"github.com/langquence/correct-tray/internal/logging"
	"github.com/langquence/correct-tray/internal/permissions"
	"github.com/langquence/correct-tray/internal/tray"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Load config from XDG/Library/AppData
	cfg, err := config.Load()
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	// macOS asks once; capture is refused until the user grants access
	if err := permissions.Microphone(); err != nil {
		log.Warn().Err(err).Msg("Microphone permission not granted yet")
		permissions.RequestMicrophone()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize audio input
	backend, err := audio.NewBackend(cfg.Audio)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audio")
	}
	defer backend.Close()

	recorder := audio.NewRecorder(audio.RecorderConfig{
		Negotiator:     audio.NewNegotiator(backend, cfg.Audio, permissions.Microphone, log),
		VolumeLogEvery: cfg.Audio.VolumeLogEvery,
		Logger:         log,
	})

	client, err := correct.New(cfg.API, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize correction client")
	}

	// Initialize hotkey manager
	hkManager, err := hotkey.New(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize hotkeys")
	}
	defer hkManager.Close()

	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(nil, cfg, Version, Commit, log) // App reference set below

	// Create app with tray as status updater
	application := app.New(app.Config{
		Recorder:          recorder,
		Corrector:         client,
		Archiver:          archive.New(cfg.Archive.Dir, log),
		Injector:          inject.New(log),
		Devices:           backend,
		Config:            cfg,
		Logger:            log,
		StatusUpdater:     trayUI,
		RequestPermission: permissions.RequestMicrophone,
	})

	// Set app reference in tray
	trayUI.SetApp(application)

	// Register global hotkey; the tray menu still works without it
	if err := hkManager.Register(cfg.PlatformHotkey(), application.OnHotkey); err != nil {
		log.Error().Err(err).Str("hotkey", cfg.PlatformHotkey()).Msg("Failed to register hotkey")
	}

	log.Info().
		Str("version", Version).
		Str("backend", backend.Name()).
		Str("endpoint", client.Endpoint()).
		Msg("correct-tray starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Tray error")
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}
