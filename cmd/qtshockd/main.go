package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/qtshock/qtshockd/cmd/qtshockd/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.NewRootCommand(ctx).Execute(); err != nil {
		stop()
		os.Exit(1)
	}
}
