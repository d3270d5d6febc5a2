// Command simctl drives simulation handles from a script, standard input
// or an interactive console.
//
//	simctl [flags] [script]
//	simctl -i
//
// Every flag can also be set through SIMCTL_<FLAG> environment variables
// or a YAML file passed with --config.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	simbridge "github.com/wippyai/sim-bridge"
	"github.com/wippyai/sim-bridge/bridge"
	"github.com/wippyai/sim-bridge/config"
	"github.com/wippyai/sim-bridge/engine"
)

func main() {
	fs := pflag.NewFlagSet("simctl", pflag.ExitOnError)
	interactive := fs.BoolP("interactive", "i", false, "Interactive mode with TUI")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: simctl [flags] [script]")
		fmt.Fprintln(os.Stderr, "       simctl -i  (interactive mode)")
		fs.PrintDefaults()
	}

	cfg, args, err := config.Load(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, args, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, args []string, interactive bool) error {
	ctx := context.Background()

	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()
	bridge.SetLogger(logger)
	engine.SetLogger(logger)

	sim, err := simbridge.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer sim.Close(ctx)

	con := newConsole(sim.Bridge, cfg.Seed)

	if interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal on stdin")
		}
		return runInteractive(ctx, con)
	}

	var in io.Reader = os.Stdin
	switch len(args) {
	case 0:
	case 1:
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	default:
		return fmt.Errorf("expected at most one script, got %d", len(args))
	}

	if len(args) == 0 && term.IsTerminal(int(os.Stdin.Fd())) {
		return prompt(ctx, con)
	}
	return con.Run(ctx, in, os.Stdout)
}
