package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/masahif/shoptadoru/internal/cmd"
)

// Version information set by build flags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cmd.SetVersionInfo(Version, BuildTime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx, os.Args[1:])
	stop()

	// Execute has already printed the localized error line
	os.Exit(cmd.ExitCode(err))
}
