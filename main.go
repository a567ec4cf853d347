package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/danthegoodman1/fixturegen/cli"
	"github.com/danthegoodman1/fixturegen/gologger"
)

var logger = gologger.NewLogger()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	if err := cli.RootCmd().ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("fixture run failed")
		stop()
		os.Exit(cli.ExitCode(err))
	}
}
