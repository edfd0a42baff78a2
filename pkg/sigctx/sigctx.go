// Package sigctx ties the process lifetime to termination signals.
package sigctx

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

var signals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
}

// NotifyContext returns a context canceled by the first termination signal.
// The received signal is logged so a shutdown in the service logs has a cause.
func NotifyContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			slog.Info("termination signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
