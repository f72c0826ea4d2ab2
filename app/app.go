// Package app assembles Ember on a HAL: it builds the kernel from the
// configuration, starts the services and demo tasks, and feeds the HAL's
// tick stream to the kernel.
package app

import (
	"errors"
	"fmt"

	"ember/config"
	"ember/emberos/kernel"
	"ember/emberos/services/logger"
	"ember/emberos/services/monitor"
	"ember/emberos/tasks/blinky"
	"ember/emberos/tasks/inherit"
	"ember/emberos/tasks/pingpong"
	"ember/emberos/tasks/sigdemo"
	"ember/hal"
	"ember/internal/buildinfo"
)

// ErrFault is returned by Step once the kernel has faulted.
var ErrFault = errors.New("app: kernel fault")

// System is a configured Ember instance: the kernel plus the services and
// demo tasks the configuration enables.
type System struct {
	h   hal.HAL
	cfg config.Config
	k   *kernel.Kernel
	log *logger.Service

	Monitor  *monitor.Service
	Blinky   *blinky.Blinky
	PingPong *pingpong.PingPong
	Inherit  *inherit.Demo
	SigDemo  *sigdemo.Demo
}

// kernelLog forwards kernel messages to the logger service, which exists
// only once the kernel does.
type kernelLog struct{ s *System }

func (l kernelLog) WriteLineString(line string) {
	if l.s.log != nil {
		l.s.log.WriteLineString(line)
	}
}

// New builds the system described by cfg. Nothing runs until Start.
func New(h hal.HAL, cfg config.Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &System{h: h, cfg: cfg}

	k, err := kernel.New(kernel.Config{
		Priorities: cfg.Kernel.Priorities,
		TimeSlice:  cfg.Kernel.TimeSlice,
		MaxThreads: cfg.Kernel.MaxThreads,
		Logger:     kernelLog{s: s},
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	s.k = k

	s.log = logger.New(k, h.Logger())
	if _, err := s.log.Start(kernel.Priority(cfg.Logger.Priority)); err != nil {
		return nil, err
	}
	s.log.WriteLineString("ember " + buildinfo.Long())

	if m := cfg.Monitor; m.Enabled {
		mc := monitor.Config{Period: m.PeriodTicks, Display: h.Display()}
		if m.Log {
			mc.Log = s.log
		}
		s.Monitor = monitor.New(k, mc)
		if _, err := s.Monitor.Start(kernel.Priority(m.Priority)); err != nil {
			return nil, err
		}
	}

	t := cfg.Tasks
	if t.Blinky.Enabled {
		s.Blinky = blinky.New(k, h.LED())
		if err := s.Blinky.Start(t.Blinky.PeriodTicks); err != nil {
			return nil, fmt.Errorf("blinky: %w", err)
		}
	}
	if t.PingPong.Enabled {
		s.PingPong = pingpong.New(k, s.log, t.PingPong.PeriodTicks)
		if err := s.PingPong.Start(kernel.Priority(t.PingPong.Priority)); err != nil {
			return nil, err
		}
	}
	if t.Inherit.Enabled {
		s.Inherit = inherit.New(k, inherit.Config{
			Period:   t.Inherit.PeriodTicks,
			Protocol: kernel.ProtocolInherit,
			Log:      s.log,
		})
		if err := s.Inherit.Start(kernel.Priority(t.Inherit.Priority)); err != nil {
			return nil, err
		}
	}
	if t.SigDemo.Enabled {
		s.SigDemo = sigdemo.New(k, s.log, t.SigDemo.PeriodTicks)
		if err := s.SigDemo.Start(kernel.Priority(t.SigDemo.Priority)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Kernel returns the system's kernel.
func (s *System) Kernel() *kernel.Kernel { return s.k }

// Start installs the fault handler, starts the kernel and the tick pump.
func (s *System) Start() error {
	installFaultHandler(s.h)
	if err := s.k.Start(); err != nil {
		return err
	}
	if ht := s.h.Time(); ht != nil {
		if ch := ht.Ticks(); ch != nil {
			go s.pump(ch)
		}
	}
	return nil
}

// pump raises one kernel tick per HAL tick, including the ones the HAL
// dropped while the pump was behind.
func (s *System) pump(ch <-chan uint64) {
	var last uint64
	for seq := range ch {
		if last == 0 {
			last = seq - 1
		}
		for ; last < seq; last++ {
			s.k.RaiseTick()
		}
	}
}

// Step is the runner hook. It reports a fault, or hal.ErrStop once the
// configured number of ticks has elapsed.
func (s *System) Step() error {
	if kernel.InFaultMode() {
		return ErrFault
	}
	if n := s.cfg.Host.StopAfter; n > 0 && s.k.Ticks() >= n {
		return hal.ErrStop
	}
	return nil
}

// NewApp adapts New and Start to the host runners.
func NewApp(cfg config.Config) hal.NewApp {
	return func(h hal.HAL) (func() error, error) {
		s, err := New(h, cfg)
		if err != nil {
			return nil, err
		}
		if err := s.Start(); err != nil {
			return nil, err
		}
		return s.Step, nil
	}
}

// Run starts the system and blocks forever (TinyGo entrypoint).
func Run(h hal.HAL, cfg config.Config) {
	s, err := New(h, cfg)
	if err != nil {
		h.Logger().WriteLineString("ember: " + err.Error())
		select {}
	}
	if err := s.Start(); err != nil {
		h.Logger().WriteLineString("ember: " + err.Error())
	}
	select {}
}
