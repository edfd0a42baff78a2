package sigctx_test

import (
	"syscall"
	"testing"
	"time"

	"github.com/niksmo/catalog-audit/pkg/sigctx"
	"github.com/stretchr/testify/require"
)

func TestNotifyContext(t *testing.T) {
	t.Run("Signal", func(t *testing.T) {
		ctx, cancel := sigctx.NotifyContext()
		defer cancel()

		require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("context was not canceled by SIGTERM")
		}
	})

	t.Run("Cancel", func(t *testing.T) {
		ctx, cancel := sigctx.NotifyContext()
		cancel()
		require.Error(t, ctx.Err())
	})
}
