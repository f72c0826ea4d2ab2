// Package config holds the boot configuration of Ember: kernel sizing, the
// tick rate, and which services and demo tasks to start.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Kernel  Kernel  `toml:"kernel"`
	Logger  Logger  `toml:"logger"`
	Monitor Monitor `toml:"monitor"`
	Tasks   Tasks   `toml:"tasks"`
	Host    Host    `toml:"host"`
}

// Kernel sizes the scheduler.
type Kernel struct {
	TickHz     int    `toml:"tick_hz"`
	Priorities int    `toml:"priorities"`
	TimeSlice  uint32 `toml:"time_slice"`
	MaxThreads int    `toml:"max_threads"`
}

// Logger configures the logger thread.
type Logger struct {
	Priority uint8 `toml:"priority"`
}

// Monitor configures the thread table shown on the display.
type Monitor struct {
	Enabled     bool   `toml:"enabled"`
	Priority    uint8  `toml:"priority"`
	PeriodTicks uint64 `toml:"period_ticks"`
	// Log also writes each table to the log.
	Log bool `toml:"log"`
}

// Task enables one demo task.
type Task struct {
	Enabled     bool   `toml:"enabled"`
	Priority    uint8  `toml:"priority"`
	PeriodTicks uint64 `toml:"period_ticks"`
}

type Tasks struct {
	Blinky   Task `toml:"blinky"`
	PingPong Task `toml:"pingpong"`
	Inherit  Task `toml:"inherit"`
	SigDemo  Task `toml:"sigdemo"`
}

// Host configures the desktop runner.
type Host struct {
	Headless bool `toml:"headless"`
	// StopAfter ends a headless run after this many ticks (0 = run forever).
	StopAfter uint64 `toml:"stop_after"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Kernel: Kernel{
			TickHz:     1000,
			Priorities: 16,
			TimeSlice:  10,
			MaxThreads: 32,
		},
		Logger: Logger{Priority: 1},
		Monitor: Monitor{
			Enabled:     true,
			Priority:    2,
			PeriodTicks: 500,
		},
		Tasks: Tasks{
			Blinky:   Task{Enabled: true, PeriodTicks: 500},
			PingPong: Task{Enabled: true, Priority: 4, PeriodTicks: 100},
			Inherit:  Task{Enabled: true, Priority: 6, PeriodTicks: 1000},
			SigDemo:  Task{Enabled: true, Priority: 5, PeriodTicks: 250},
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	k := c.Kernel
	if k.TickHz < 1 || k.TickHz > 100000 {
		return fmt.Errorf("%w: tick_hz %d not in 1..100000", ErrInvalid, k.TickHz)
	}
	if k.Priorities < 8 || k.Priorities > 256 {
		return fmt.Errorf("%w: priorities %d not in 8..256", ErrInvalid, k.Priorities)
	}
	if k.TimeSlice == 0 {
		return fmt.Errorf("%w: time_slice must be > 0", ErrInvalid)
	}
	if k.MaxThreads < 8 {
		return fmt.Errorf("%w: max_threads %d, need at least 8", ErrInvalid, k.MaxThreads)
	}

	if err := c.checkPriority("logger", c.Logger.Priority); err != nil {
		return err
	}
	if c.Monitor.Enabled {
		if err := c.checkPriority("monitor", c.Monitor.Priority); err != nil {
			return err
		}
		if c.Monitor.PeriodTicks == 0 {
			return fmt.Errorf("%w: monitor.period_ticks must be > 0", ErrInvalid)
		}
	}

	tasks := []struct {
		name string
		t    Task
		// blinky runs in timer callbacks only and has no thread.
		thread bool
	}{
		{"blinky", c.Tasks.Blinky, false},
		{"pingpong", c.Tasks.PingPong, true},
		{"inherit", c.Tasks.Inherit, true},
		{"sigdemo", c.Tasks.SigDemo, true},
	}
	for _, tt := range tasks {
		if !tt.t.Enabled {
			continue
		}
		if tt.t.PeriodTicks == 0 {
			return fmt.Errorf("%w: tasks.%s.period_ticks must be > 0", ErrInvalid, tt.name)
		}
		if !tt.thread {
			continue
		}
		if err := c.checkPriority("tasks."+tt.name, tt.t.Priority); err != nil {
			return err
		}
	}
	// inherit uses its priority and the two levels below it.
	if c.Tasks.Inherit.Enabled && c.Tasks.Inherit.Priority < 3 {
		return fmt.Errorf("%w: tasks.inherit.priority %d, need at least 3", ErrInvalid, c.Tasks.Inherit.Priority)
	}
	return nil
}

func (c *Config) checkPriority(name string, p uint8) error {
	if p == 0 || int(p) >= c.Kernel.Priorities {
		return fmt.Errorf("%w: %s.priority %d not in 1..%d", ErrInvalid, name, p, c.Kernel.Priorities-1)
	}
	return nil
}
