// Package main is the entry point for the aibootstrap CLI.
//
// aibootstrap turns a fresh Debian 12+ installation into an NVIDIA/CUDA
// workstation: repository components, driver, CUDA toolkit from the vendor
// repository, environment exports and the uv Python package manager.
//
// Commands: run, plan, verify, status, diag, version.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aibootstrap/cmd/aibootstrap/commands"
	"aibootstrap/cmd/aibootstrap/handlers"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Root().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(handlers.ExitCode(err))
	}
}
