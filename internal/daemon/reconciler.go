package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/rivenirvana/MosaicWM-sub002/internal/lifecycle"
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically checks for state drift between the engine's
// window table and the window system, and corrects it. Events can be lost
// (daemon restarts, a stalled consumer); the reconciler is the backstop.
type Reconciler struct {
	interval time.Duration
	engine   *lifecycle.Coordinator
	backend  platform.Backend
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, engine *lifecycle.Coordinator, backend platform.Backend) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		interval: interval,
		engine:   engine,
		backend:  backend,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.engine.Loop().Call(r.reconcile)
		}
	}
}

// reconcile performs a single pass on the engine loop.
func (r *Reconciler) reconcile() {
	// Recover from panics to prevent crashing the daemon.
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	actual, ok := r.listActual()
	if !ok {
		return
	}

	// States without a window: the destroy event was lost.
	var orphaned []platform.WindowID
	for _, st := range r.engine.Store().All() {
		if _, exists := actual[st.ID]; !exists {
			orphaned = append(orphaned, st.ID)
		}
	}
	for _, id := range orphaned {
		r.logger.Info("reconciler: orphaned state detected", "window", id)
		r.engine.HandleEvent(platform.Event{Kind: platform.EventWindowDestroyed, Window: id})
	}

	// Windows without a state: the create event was lost.
	for id, w := range actual {
		if _, known := r.engine.Store().Get(id); known {
			continue
		}
		r.logger.Info("reconciler: unmanaged window adopted", "window", id)
		r.engine.HandleEvent(platform.Event{
			Kind:    platform.EventWindowCreated,
			Window:  id,
			Bounds:  w.Bounds,
			Desktop: w.Desktop,
			States:  w.States,
		})
	}

	// Desktop drift: the window system moved a window behind our back.
	for id, w := range actual {
		st, known := r.engine.Store().Get(id)
		if !known || st.Desktop == w.Desktop {
			continue
		}
		r.logger.Info("reconciler: desktop drift repaired", "window", id, "recorded", st.Desktop, "actual", w.Desktop)
		r.engine.HandleEvent(platform.Event{Kind: platform.EventDesktopChanged, Window: id, Desktop: w.Desktop})
	}
}

// listActual snapshots every window the backend knows about.
func (r *Reconciler) listActual() (map[platform.WindowID]platform.Window, bool) {
	count, err := r.backend.DesktopCount()
	if err != nil {
		r.logger.Warn("reconciler: desktop count query failed", "error", err)
		return nil, false
	}
	displays, err := r.backend.Displays()
	if err != nil {
		r.logger.Warn("reconciler: display query failed", "error", err)
		return nil, false
	}
	actual := make(map[platform.WindowID]platform.Window)
	for desktop := 0; desktop < count; desktop++ {
		for _, disp := range displays {
			windows, err := r.backend.ListWindows(desktop, disp.ID)
			if err != nil {
				continue
			}
			for _, w := range windows {
				actual[w.ID] = w
			}
		}
	}
	return actual, true
}
