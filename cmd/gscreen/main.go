// Command gscreen runs the particle picker over a folder of micrographs for
// every candidate value of every parameter under test, and draws the picks
// of each parameter's candidates on one copy of the micrograph's preview.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gscreen/internal/config"
	"gscreen/internal/screen"
	"gscreen/internal/version"
)

func main() {
	cfg, err := config.Parse("gscreen", os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(screen.ExitOK)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "gscreen: %v\n", err)
		os.Exit(screen.ExitConfig)
	}
	if cfg.ShowVersion {
		fmt.Println(version.String("gscreen"))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = screen.Run(ctx, cfg, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gscreen: %v\n", err)
	}
	stop()
	os.Exit(screen.ExitCode(err))
}
