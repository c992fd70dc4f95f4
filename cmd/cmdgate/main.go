package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cmdgate/internal/transports/cli"
	"cmdgate/pkg/logger"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := cli.New(buildVersion())
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.New("").Error("command failed", "err", err)
		os.Exit(1)
	}
}

func buildVersion() string {
	v := version
	if commit != "" {
		v += " (" + commit + ")"
	}
	if date != "" {
		v += " " + date
	}
	return v
}
