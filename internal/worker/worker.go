// Package worker assembles the eight periodic tasks, the two netlink
// endpoints, and the shared state region into the single long-lived
// process spec.md §4.1 calls the "worker": the process that actually
// owns and mutates the shared region, as opposed to the parent, which
// only spawns and monitors. Each worker restores the last persisted
// snapshot itself on start.
package worker

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/nmxmxh/asi-supervisor/internal/config"
	"github.com/nmxmxh/asi-supervisor/internal/fault"
	"github.com/nmxmxh/asi-supervisor/internal/model"
	"github.com/nmxmxh/asi-supervisor/internal/netlink"
	"github.com/nmxmxh/asi-supervisor/internal/persist"
	"github.com/nmxmxh/asi-supervisor/internal/ratelimit"
	"github.com/nmxmxh/asi-supervisor/internal/sched"
	"github.com/nmxmxh/asi-supervisor/internal/shared"
	"github.com/nmxmxh/asi-supervisor/internal/tasks"
)

const (
	snapshotPrimary   = "asi.snapshot.primary"
	snapshotSecondary = "asi.snapshot.secondary"

	// actionRateLimit/actionRateWindow bound how many approved actions of
	// a single role ICM-TX will emit per window (§4.7); no numeric value
	// is named in spec.md, so this is chosen generously relative to the
	// 50 ms action pipeline period: at most one every 25 ms per role,
	// well above what a single driver-facing control can legitimately
	// request.
	actionRateLimit  = 40
	actionRateWindow = time.Second

	notificationRateLimit  = 50
	notificationRateWindow = time.Second
)

// Worker holds everything needed to run the eight tasks once.
type Worker struct {
	Config config.Config
	Log    *zap.Logger
}

// New constructs a Worker over cfg, logging through log.
func New(cfg config.Config, log *zap.Logger) *Worker {
	return &Worker{Config: cfg, Log: log}
}

func snapshotPaths(cfg config.Config) (primary, secondary string) {
	return filepath.Join(cfg.StorageDir, snapshotPrimary), filepath.Join(cfg.StorageDir, snapshotSecondary)
}

// Run builds the shared region, connects both endpoints, restores a
// prior snapshot if one validates, starts all eight tasks, and blocks
// until ctx is canceled — at which point it shuts every task down and
// writes one final snapshot before returning (§4.1 shutdown(shared)).
func (w *Worker) Run(ctx context.Context) error {
	log := w.Log
	faults := fault.NewManager(fault.NewEventQueue(config.EventQueueCapacity), log, nil)
	state := shared.New(faults)
	configureRateLimiters(state)

	vam := netlink.NewEndpoint(w.Config.VAMAddr)
	cm := netlink.NewEndpoint(w.Config.CMAddr)
	if err := vam.Connect(ctx); err != nil {
		log.Warn("VAM endpoint not connected at startup, continuing degraded", zap.Error(err))
	}
	if err := cm.Connect(ctx); err != nil {
		log.Warn("CM endpoint not connected at startup, continuing degraded", zap.Error(err))
	}

	w.restore(state)

	state.Flags.SetInitComplete()
	state.Flags.SetStartupTestsComplete()

	taskList := []sched.Task{
		&tasks.CCU{State: state},
		&tasks.FM{State: state},
		&tasks.STM{State: state},
		&tasks.ICMRX{State: state, VAM: vam, CM: cm},
		&tasks.ICMTX{State: state, VAM: vam, CM: cm},
		&tasks.ARA{State: state},
		&tasks.CRV{State: state},
		&tasks.SD{State: state, VAM: vam, CM: cm},
	}

	overrun := func(task string, elapsed, budget time.Duration) {
		state.TaskCounters(task).Overruns.Add(1)
		state.Faults.Raise(fault.EventOverrun, state.Snapshot())
		log.Warn("task overrun", zap.String("task", task), zap.Duration("elapsed", elapsed), zap.Duration("budget", budget))
	}
	onErr := func(task string, err error) {
		state.TaskCounters(task).Restarts.Add(1)
		log.Error("task returned error", zap.String("task", task), zap.Error(err))
	}

	scheduler := sched.New(log, taskList, overrun, onErr)
	if err := scheduler.StartTasks(ctx); err != nil {
		return err
	}

	stopPersist := make(chan struct{})
	go w.persistLoop(state, stopPersist)

	<-ctx.Done()
	close(stopPersist)

	if err := scheduler.Shutdown(); err != nil {
		log.Error("scheduler shutdown returned error", zap.Error(err))
	}
	w.snapshotNow(state)

	vam.Close()
	cm.Close()
	return nil
}

// restore loads whichever of the two redundant snapshot files validates,
// preferring the primary (§6 recovery rule, SPEC_FULL.md §C), and
// restores shared state from it. A missing or invalid snapshot is not
// an error: the worker starts from Initial with a zero cycle count, the
// same as a cold first boot.
func (w *Worker) restore(state *shared.State) {
	primary, secondary := snapshotPaths(w.Config)
	payload, err := persist.LoadPreferChild(primary, secondary)
	if err != nil {
		w.Log.Info("no valid snapshot found, starting fresh", zap.Error(err))
		return
	}
	if err := state.RestoreState(payload); err != nil {
		w.Log.Warn("snapshot payload malformed, starting fresh", zap.Error(err))
		return
	}
	w.Log.Info("restored shared state from snapshot", zap.Uint64("cycle", state.Cycle.Load()))
}

func (w *Worker) snapshotNow(state *shared.State) {
	primary, secondary := snapshotPaths(w.Config)
	payload := state.MarshalState()
	if err := persist.WriteFile(primary, payload); err != nil {
		w.Log.Error("snapshot write failed", zap.String("path", primary), zap.Error(err))
	}
	if err := persist.WriteFile(secondary, payload); err != nil {
		w.Log.Error("snapshot write failed", zap.String("path", secondary), zap.Error(err))
	}
}

// persistLoop writes both redundant snapshot files every
// config.StorageWriteInterval until stop is closed (§6 "write cadence
// of 2s").
func (w *Worker) persistLoop(state *shared.State, stop <-chan struct{}) {
	ticker := time.NewTicker(config.StorageWriteInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.snapshotNow(state)
		}
	}
}

// configureRateLimiters installs one token bucket per action role plus
// the notification and safe-state-status outbound roles (§4.7).
func configureRateLimiters(state *shared.State) {
	for _, e := range model.MessageDictionary {
		if e.Kind == model.KindAction && e.MessageID != model.UnassignedMessageID {
			state.RateLimiters.Configure(e.Role, ratelimit.Rule{
				AllowedMessages: actionRateLimit,
				Window:          actionRateWindow,
			})
		}
	}
	state.RateLimiters.Configure(model.RoleNotificationOut, ratelimit.Rule{
		AllowedMessages: notificationRateLimit,
		Window:          notificationRateWindow,
	})
	state.RateLimiters.Configure(model.RoleSafeStateStatus, ratelimit.Rule{
		AllowedMessages: notificationRateLimit,
		Window:          notificationRateWindow,
	})
}
