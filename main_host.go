//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"ember/app"
	"ember/config"
	"ember/hal"
)

func main() {
	var (
		path     string
		headless bool
		hz       int
		tickHz   int
		ticks    uint64
		ledLog   bool
	)
	flag.StringVar(&path, "config", "", "TOML configuration file (default: built-in).")
	flag.BoolVar(&headless, "headless", false, "Run without a window.")
	flag.IntVar(&hz, "hz", 60, "Runner loop rate in headless mode.")
	flag.IntVar(&tickHz, "tick-hz", 0, "Kernel tick rate (overrides the configuration).")
	flag.Uint64Var(&ticks, "ticks", 0, "Stop after N kernel ticks (overrides the configuration).")
	flag.BoolVar(&ledLog, "led-log", false, "Log LED changes.")
	flag.Parse()

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["headless"] {
		cfg.Host.Headless = headless
	}
	if set["tick-hz"] {
		cfg.Kernel.TickHz = tickHz
	}
	if set["ticks"] {
		cfg.Host.StopAfter = ticks
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	host := hal.HostConfig{TickHz: cfg.Kernel.TickHz, LogLED: ledLog}
	if cfg.Host.Headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err := hal.RunHeadless(ctx, app.NewApp(cfg), hal.HeadlessConfig{Host: host, Hz: hz})
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := hal.RunWindow(app.NewApp(cfg), host); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
