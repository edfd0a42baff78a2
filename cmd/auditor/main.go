package main

import (
	"context"
	"time"

	"github.com/niksmo/catalog-audit/config"
	"github.com/niksmo/catalog-audit/internal/app"
	"github.com/niksmo/catalog-audit/pkg/sigctx"
)

const closeTimeout = 10 * time.Second

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	auditor := app.New(sigCtx, cfg)

	auditor.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	auditor.Close(ctx)
}
