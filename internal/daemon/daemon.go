// Package daemon assembles the engine: it owns the run loop, routes backend
// events to the drag, resize and lifecycle coordinators, serves IPC, applies
// config reloads, and repairs state drift in the background.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/rivenirvana/MosaicWM-sub002/internal/config"
	"github.com/rivenirvana/MosaicWM-sub002/internal/dragmode"
	"github.com/rivenirvana/MosaicWM-sub002/internal/ipc"
	"github.com/rivenirvana/MosaicWM-sub002/internal/lifecycle"
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/resize"
	"github.com/rivenirvana/MosaicWM-sub002/internal/sched"
)

// Daemon wires the backend to the coordinators and runs them.
type Daemon struct {
	cfg     *config.Config
	backend platform.Backend
	logger  *slog.Logger

	loop   *sched.Loop
	engine *lifecycle.Coordinator
	drag   *dragmode.Mode
	resize *resize.Tracker

	reloadChan chan *config.Config

	reconcileInterval time.Duration
}

// New creates a daemon around the backend. Nothing runs until Run.
func New(cfg *config.Config, backend platform.Backend, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	loop := sched.NewLoop()
	engine := lifecycle.New(backend, loop, cfg, logger)
	return &Daemon{
		cfg:               cfg,
		backend:           backend,
		logger:            logger,
		loop:              loop,
		engine:            engine,
		drag:              dragmode.New(engine, logger),
		resize:            resize.New(engine, logger),
		reloadChan:        make(chan *config.Config, 1),
		reconcileInterval: 10 * time.Second,
	}
}

// Engine exposes the coordinator, e.g. for the config watcher.
func (d *Daemon) Engine() *lifecycle.Coordinator { return d.engine }

// ApplyConfig hands a freshly loaded configuration to the engine. Safe from
// any goroutine.
func (d *Daemon) ApplyConfig(cfg *config.Config) {
	select {
	case d.reloadChan <- cfg:
	default:
	}
}

// Run starts the loop, the IPC server and the reconciler, adopts the windows
// that already exist, then routes backend events until the context ends.
func (d *Daemon) Run(ctx context.Context) error {
	go d.loop.Run()
	defer d.loop.Stop()

	srv, err := ipc.NewServer(d.engine, d.logger, d.reloadChan)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()

	d.loop.Post(d.adoptExisting)

	rec := NewReconciler(ReconcilerConfig{
		Interval: d.reconcileInterval,
		Logger:   d.logger,
	}, d.engine, d.backend)
	go rec.Run(ctx)

	d.logger.Info("daemon running")
	events := d.backend.Events()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping")
			return nil
		case cfg := <-d.reloadChan:
			d.loop.Post(func() {
				d.engine.SetConfig(cfg)
				d.logger.Info("configuration applied")
			})
		case ev := <-events:
			d.loop.Post(func() { d.route(ev) })
		}
	}
}

// route hands each event to the first coordinator that claims it. Grab
// events and the grabbed window's geometry belong to the drag and resize
// coordinators; everything else is the lifecycle machine's.
func (d *Daemon) route(ev platform.Event) {
	switch ev.Kind {
	case platform.EventGrabBegin:
		if d.drag.HandleGrabBegin(ev.Window, ev.Op) {
			return
		}
		d.resize.HandleGrabBegin(ev.Window, ev.Op)
	case platform.EventGrabEnd:
		if d.drag.HandleGrabEnd(ev.Window, ev.Op) {
			return
		}
		d.resize.HandleGrabEnd(ev.Window, ev.Op)
	case platform.EventGeometryChanged:
		if d.drag.HandleGeometry(ev.Window, ev.Bounds) {
			return
		}
		if d.resize.HandleGeometry(ev.Window, ev.Bounds) {
			return
		}
		d.engine.HandleEvent(ev)
	default:
		d.engine.HandleEvent(ev)
	}
}

// adoptExisting folds the windows that were already open when the daemon
// started into the state machine, as if they had just been created.
func (d *Daemon) adoptExisting() {
	count, err := d.backend.DesktopCount()
	if err != nil {
		d.logger.Warn("desktop count query failed, skipping adoption", "error", err)
		return
	}
	displays, err := d.backend.Displays()
	if err != nil {
		d.logger.Warn("display query failed, skipping adoption", "error", err)
		return
	}
	adopted := 0
	for desktop := 0; desktop < count; desktop++ {
		for _, disp := range displays {
			windows, err := d.backend.ListWindows(desktop, disp.ID)
			if err != nil {
				continue
			}
			for _, w := range windows {
				if _, known := d.engine.Store().Get(w.ID); known {
					continue
				}
				d.engine.HandleEvent(platform.Event{
					Kind:    platform.EventWindowCreated,
					Window:  w.ID,
					Bounds:  w.Bounds,
					Desktop: w.Desktop,
					States:  w.States,
				})
				adopted++
			}
		}
	}
	if adopted > 0 {
		d.logger.Info("adopted existing windows", "count", adopted)
	}
}
