// Package overlay assembles the overlay from its parts: system snapshots and
// module collection feed the renderer, and the rendered frames drive the
// layer-shell surface.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"waysky/internal/collector"
	"waysky/internal/config"
	"waysky/internal/model"
	"waysky/internal/render"
	"waysky/internal/scripting"
	"waysky/internal/surface"
	"waysky/internal/wayland"
)

const shutdownTimeout = 5 * time.Second

type Overlay struct {
	cfg      config.Config
	logger   *slog.Logger
	monitor  *collector.Monitor
	pipeline *collector.Pipeline
	renderer *render.Renderer
	surf     *surface.Surface
	stats    *FrameStats

	hookEngine scripting.Engine
	hookHandle scripting.Handle
	hookFn     string

	frameCtx context.Context
}

func New(cfg config.Config, logger *slog.Logger) (*Overlay, error) {
	modules, err := cfg.BuildModules()
	if err != nil {
		return nil, err
	}

	registry := scripting.NewRegistry(
		scripting.NewLuaEngine(cfg.ScriptTimeout()),
		scripting.NewJSEngine(cfg.ScriptTimeout()),
	)

	pipeline, err := collector.NewPipeline(logger, modules, registry, cfg.ExecTimeout())
	if err != nil {
		return nil, err
	}

	renderer, err := render.New(cfg.General.FontSize, cfg.General.FGColor, cfg.General.BGColor)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}

	o := &Overlay{
		cfg:      cfg,
		logger:   logger,
		monitor:  collector.NewMonitor(logger),
		pipeline: pipeline,
		renderer: renderer,
		stats:    NewFrameStats(),
	}

	if hook := cfg.General.OnDraw; hook != nil {
		engine, err := registry.Get(hook.Backend)
		if err != nil {
			return nil, fmt.Errorf("on_draw: %w", err)
		}
		path := cfg.ResolveScriptPath(hook.File)
		handle, err := engine.Load(scripting.Source{Name: filepath.Base(path), Path: path})
		if err != nil {
			return nil, fmt.Errorf("on_draw: load %s: %w", path, err)
		}
		o.hookEngine = engine
		o.hookHandle = handle
		o.hookFn = hook.Function
		if o.hookFn == "" {
			o.hookFn = "on_draw"
		}
	}

	anchor, marginX, marginY := anchorFor(cfg.Window)
	surf, err := surface.New(logger, surface.Options{
		Width:          cfg.Window.Width,
		Height:         cfg.Window.Height,
		Anchor:         anchor,
		Layer:          layerFor(cfg.Window.Layer),
		MarginX:        marginX,
		MarginY:        marginY,
		UpdateInterval: cfg.UpdateInterval(),
	}, o.produceFrame)
	if err != nil {
		return nil, fmt.Errorf("surface: %w", err)
	}
	o.surf = surf

	return o, nil
}

// Run drives the overlay until ctx is canceled, a shutdown signal arrives,
// or the surface fails. A second signal or an overrun grace period forces
// immediate exit.
func (o *Overlay) Run(ctx context.Context) error {
	o.logger.Info("starting waysky",
		"anchor", o.cfg.Window.Anchor,
		"layer", o.cfg.Window.Layer,
		"modules", len(o.cfg.Modules),
		"update_interval", o.cfg.UpdateInterval())

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- o.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
		// Loop terminated by itself (surface closed, connection lost, parent ctx canceled).
	case sig := <-sigCh:
		o.logger.Info("shutdown signal received, starting graceful shutdown", "signal", sig.String(), "timeout", shutdownTimeout)
		cancelRun()

		graceTimer := time.NewTimer(shutdownTimeout)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
			// graceful stop completed in time
		case sig2 := <-sigCh:
			o.logger.Warn("second signal received, forcing immediate shutdown", "signal", sig2.String())
			runErr = context.Canceled
		case <-graceTimer.C:
			o.logger.Warn("graceful shutdown timeout reached, forcing shutdown", "timeout", shutdownTimeout)
			runErr = context.DeadlineExceeded
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	o.logger.Info("waysky stopped")
	return nil
}

func (o *Overlay) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// produceFrame runs on this goroutine, inside surf.Run's loop.
		o.frameCtx = gctx
		return o.surf.Run(gctx)
	})
	g.Go(func() error {
		return o.runStatsLoop(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// produceFrame is the per-frame pipeline: snapshot, collect, run the draw
// hook, render. It runs on the surface loop goroutine.
func (o *Overlay) produceFrame(width, height int, scroll float64) *surface.Frame {
	start := time.Now()
	ctx := o.frameCtx
	if ctx == nil {
		ctx = context.Background()
	}

	snap := o.monitor.Snapshot(ctx)
	lines := o.pipeline.Collect(ctx, snap)
	lines = o.applyHook(ctx, lines, snap)

	frame := &surface.Frame{
		Pix:           o.renderer.Render(lines, width, height, scroll),
		ContentHeight: o.renderer.ContentHeight(lines),
	}
	o.stats.MarkFrame(time.Since(start))
	return frame
}

// applyHook runs the configured on_draw callback over the collected lines.
// Hook failures keep the pre-hook lines so one bad script cannot blank the
// overlay.
func (o *Overlay) applyHook(ctx context.Context, lines []model.StyledLine, snap *model.Snapshot) []model.StyledLine {
	if o.hookEngine == nil {
		return lines
	}
	out, err := o.hookEngine.InvokeHook(ctx, o.hookHandle, o.hookFn, lines, snap)
	if err != nil {
		o.logger.Warn("on_draw hook failed", "backend", o.hookEngine.Name(), "error", err)
		return lines
	}
	return out
}

func anchorFor(w config.Window) (anchor uint32, marginX, marginY int32) {
	switch w.Anchor {
	case "top-left":
		return wayland.AnchorTop | wayland.AnchorLeft, w.X, w.Y
	case "bottom-left":
		return wayland.AnchorBottom | wayland.AnchorLeft, w.X, w.Y
	case "bottom-right":
		return wayland.AnchorBottom | wayland.AnchorRight, w.X, w.Y
	default:
		return wayland.AnchorTop | wayland.AnchorRight, w.X, w.Y
	}
}

func layerFor(name string) uint32 {
	switch name {
	case "background":
		return wayland.LayerBackground
	case "top":
		return wayland.LayerTop
	case "overlay":
		return wayland.LayerOverlay
	default:
		return wayland.LayerBottom
	}
}

func BuildLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	if cfg.General.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, hOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, hOpts))
}
