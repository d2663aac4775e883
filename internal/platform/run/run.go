// Package run drives a service process: it serves until SIGINT or SIGTERM,
// then shuts the server down and waits for background workers.
package run

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const defaultShutdownTimeout = 10 * time.Second

type Runner struct {
	Logger          *zap.Logger
	ShutdownTimeout time.Duration

	wg sync.WaitGroup
}

func New(log *zap.Logger) *Runner {
	return &Runner{Logger: log, ShutdownTimeout: defaultShutdownTimeout}
}

// Go starts a background worker. fn must return once ctx is done; the
// runner waits for it during shutdown.
func (r *Runner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.Logger.Error("background worker stopped", zap.String("worker", name), zap.Error(err))
			return
		}
		r.Logger.Info("background worker stopped", zap.String("worker", name))
	}()
}

// WithSignals runs start until it fails or a termination signal arrives and
// returns the process exit code.
func (r *Runner) WithSignals(start, shutdown func(ctx context.Context) error) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return r.run(ctx, start, shutdown)
}

func (r *Runner) run(ctx context.Context, start, shutdown func(ctx context.Context) error) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- start(ctx)
	}()

	code := 0
	select {
	case <-ctx.Done():
		r.Logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.Logger.Error("service exited with error", zap.Error(err))
			code = 1
		}
	}
	cancel()
	r.graceful(shutdown)
	return code
}

func (r *Runner) graceful(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.ShutdownTimeout)
	defer cancel()
	if shutdown != nil {
		if err := shutdown(ctx); err != nil {
			r.Logger.Warn("shutdown failed", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		r.Logger.Warn("background workers did not stop in time")
	}
}

func Exit(code int) {
	os.Exit(code)
}
