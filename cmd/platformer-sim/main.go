// Package main runs a scripted scenario against a headless platformer
// character and prints the recorded state transitions.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Faultbox/platformer2d/internal/config"
	"github.com/Faultbox/platformer2d/internal/debug"
	"github.com/Faultbox/platformer2d/internal/game"
	"github.com/Faultbox/platformer2d/internal/logger"
	"github.com/Faultbox/platformer2d/internal/scenario"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(cfg *config.Config) error {
	// Initialize logger
	opts := logger.Options{Level: cfg.Logging.Level, Console: os.Stderr}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	var overlay *debug.Overlay
	if cfg.Simulation.Overlay {
		overlay = debug.NewOverlay(0)
		overlay.ShowMemory = cfg.Simulation.Memory
		opts.Extra = append(opts.Extra, overlay.Core(zapcore.DebugLevel))
	}
	logger.SetGlobal(logger.New(opts))

	logger.Info("=== Platformer2D state machine simulator ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if cfg.Simulation.Scenario == "" {
		return errors.New("no scenario given, use -scenario or simulation.scenario")
	}
	sc, err := scenario.Load(cfg.Simulation.Scenario)
	if err != nil {
		return err
	}

	var gameOpts []game.Option
	if overlay != nil {
		gameOpts = append(gameOpts, game.WithOverlay(overlay, os.Stdout))
	}
	g, err := game.New(cfg, logger.Named("game"), gameOpts...)
	if err != nil {
		return err
	}
	defer g.Close()

	if config.WatchEnabled() {
		stop, err := watchConfig(g)
		if err != nil {
			return err
		}
		defer stop()
	}

	if _, err := g.Spawn("hero"); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	trace, err := g.Run(ctx, sc)
	if trace != nil {
		if _, werr := trace.WriteTo(os.Stdout); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}

	if err := sc.Verify(trace.Final, trace.History); err != nil {
		return err
	}
	logger.Info("scenario passed", zap.String("scenario", sc.Name))
	return nil
}

// watchConfig forwards config file changes to g until the returned stop
// function is called. Flag overrides are not reapplied on reload.
func watchConfig(g *game.Game) (func(), error) {
	path := config.ResolvedPath()
	if path == "" {
		logger.Warn("no config file to watch")
		return func() {}, nil
	}

	w, err := config.NewWatcher(path)
	if err != nil {
		return nil, fmt.Errorf("failed to watch config: %w", err)
	}
	logger.Info("watching config", zap.String("path", w.Path()))

	go func() {
		for {
			select {
			case cfg, ok := <-w.Updates:
				if !ok {
					return
				}
				g.Reload(cfg)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("config reload failed", zap.Error(err))
			}
		}
	}()

	return func() { _ = w.Close() }, nil
}
