//go:build tinygo && baremetal

package main

import (
	"ember/app"
	"ember/config"
	"ember/hal"
)

func main() {
	cfg := config.Default()
	// The board has no display: the monitor writes its table to the UART.
	cfg.Monitor.Log = true
	app.Run(hal.New(cfg.Kernel.TickHz), cfg)
}
