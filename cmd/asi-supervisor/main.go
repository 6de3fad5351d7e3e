package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nmxmxh/asi-supervisor/internal/config"
	"github.com/nmxmxh/asi-supervisor/internal/worker"
)

// asiWorkerEnv is the internal re-exec sentinel (SPEC_FULL.md §C): never
// a user-facing flag, just how the parent tells a freshly spawned copy
// of this same binary to run the worker side instead of the supervisor
// side.
const asiWorkerEnv = "ASI_WORKER"

func main() {
	storageDir := flag.String("storage-dir", ".", "directory holding the redundant shared-state snapshot files")
	vamAddr := flag.String("vam-addr", "127.0.0.1:8080", "VAM endpoint address")
	cmAddr := flag.String("cm-addr", "127.0.0.1:9090", "CM endpoint address")
	flag.Parse()

	cfg := config.Default()
	cfg.StorageDir = *storageDir
	cfg.VAMAddr = *vamAddr
	cfg.CMAddr = *cmAddr

	if os.Getenv(asiWorkerEnv) == "1" {
		os.Exit(runWorker(cfg))
	}
	os.Exit(runSupervisor(cfg))
}

// runWorker is the worker side (§4.1): it owns the live shared region
// for as long as this process lives, shutting down cleanly when the
// parent forwards SIGINT/SIGTERM.
func runWorker(cfg config.Config) int {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "asi-supervisor: logger init:", err)
		return 1
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("worker received shutdown signal")
		cancel()
	}()

	w := worker.New(cfg, log)
	if err := w.Run(ctx); err != nil {
		log.Error("worker exited with error", zap.Error(err))
		return 1
	}
	return 0
}

// runSupervisor is the parent side: it re-execs this same binary as the
// worker, restarting it on abnormal exit up to config.MaxChildRestartRetries
// times within config.MonitoringInterval, and forwards SIGINT/SIGTERM so
// a clean shutdown always runs shutdown(shared) in the worker rather than
// an abrupt kill (SPEC_FULL.md §D.1).
func runSupervisor(cfg config.Config) int {
	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "asi-supervisor: logger init:", err)
		return 1
	}
	defer log.Sync()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var restarts int
	windowStart := time.Now()

	for {
		exitCode, sig, err := spawnWorker(cfg, sigCh)
		if sig {
			log.Info("supervisor forwarded shutdown signal to worker; exiting")
			return exitCode
		}
		if err != nil {
			log.Error("failed to spawn worker", zap.Error(err))
			return 1
		}
		if exitCode == 0 {
			return 0
		}

		if time.Since(windowStart) > config.MonitoringInterval {
			restarts = 0
			windowStart = time.Now()
		}
		restarts++
		log.Warn("worker exited abnormally, restarting",
			zap.Int("exit_code", exitCode), zap.Int("restart", restarts))

		if restarts > config.MaxChildRestartRetries {
			log.Error("worker restart limit exceeded, giving up",
				zap.Int("limit", config.MaxChildRestartRetries))
			return 1
		}
	}
}

// spawnWorker re-execs the current binary as one worker child, waiting
// for it to exit or for a forwarded signal. sig reports whether the
// supervisor itself received SIGINT/SIGTERM during this child's
// lifetime, in which case exitCode is the child's own exit code from a
// clean, forwarded shutdown.
func spawnWorker(cfg config.Config, sigCh <-chan os.Signal) (exitCode int, sig bool, err error) {
	self, err := os.Executable()
	if err != nil {
		return 0, false, fmt.Errorf("asi-supervisor: resolve self: %w", err)
	}

	cmd := exec.Command(self,
		"--storage-dir", cfg.StorageDir,
		"--vam-addr", cfg.VAMAddr,
		"--cm-addr", cfg.CMAddr,
	)
	cmd.Env = append(os.Environ(), asiWorkerEnv+"=1")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return 0, false, fmt.Errorf("asi-supervisor: start worker: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-sigCh:
		_ = cmd.Process.Signal(syscall.SIGTERM)
		waitErr := <-done
		return exitStatus(waitErr), true, nil
	case waitErr := <-done:
		return exitStatus(waitErr), false, nil
	}
}

func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 1
}
