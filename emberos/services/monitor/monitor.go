// Package monitor periodically renders the kernel's thread table on the
// display and, optionally, to the log.
package monitor

import (
	"bytes"
	"fmt"
	"io"

	"ember/emberos/kernel"
	"ember/hal"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

const (
	maxRows   = 24
	stackSize = 4096
)

// Config selects the refresh period and where the table goes.
type Config struct {
	// Period is the refresh interval in ticks.
	Period uint64
	// Display receives the table when it has a framebuffer.
	Display hal.Display
	// Log receives the table one row per line when set.
	Log hal.Logger
}

// Service is the monitor thread.
type Service struct {
	k   *kernel.Kernel
	cfg Config
	fb  hal.Framebuffer
	d   *fbDisplay

	infos [maxRows]kernel.ThreadInfo
	text  bytes.Buffer
	stack [stackSize]byte
}

// New returns a monitor for k. The display is used only when it has an
// RGB565 framebuffer with a buffer.
func New(k *kernel.Kernel, cfg Config) *Service {
	s := &Service{k: k, cfg: cfg}
	if cfg.Display != nil {
		if fb := cfg.Display.Framebuffer(); fb != nil && fb.Format() == hal.PixelFormatRGB565 && fb.Buffer() != nil {
			s.fb = fb
			s.d = &fbDisplay{fb: fb}
		}
	}
	return s
}

// Start creates the monitor thread at priority p.
func (s *Service) Start(p kernel.Priority) (kernel.Thread, error) {
	if s.cfg.Period == 0 {
		return kernel.Thread{}, fmt.Errorf("monitor: %w: zero period", kernel.ErrInvalidConfig)
	}
	th, err := s.k.NewThread(kernel.ThreadConfig{
		Name:     "monitor",
		Priority: p,
		Stack:    s.stack[:],
		Entry:    s.run,
	})
	if err != nil {
		return kernel.Thread{}, fmt.Errorf("monitor: %w", err)
	}
	return th, th.Start()
}

func (s *Service) run(kernel.Thread) {
	next := s.k.Ticks()
	for {
		next += s.cfg.Period
		if err := s.k.SleepUntil(next); err != nil {
			continue
		}
		s.Render()
	}
}

// Render draws the current thread table. It must not be called from
// interrupt context.
func (s *Service) Render() {
	rows := s.k.Snapshot(s.infos[:0])

	if s.cfg.Log != nil {
		s.text.Reset()
		Format(&s.text, s.k.Ticks(), s.k.Switches(), rows, "\n")
		for _, line := range bytes.Split(bytes.TrimRight(s.text.Bytes(), "\n"), []byte("\n")) {
			s.cfg.Log.WriteLineBytes(line)
		}
	}

	if s.d == nil {
		return
	}
	s.text.Reset()
	Format(&s.text, s.k.Ticks(), s.k.Switches(), rows, "\r\n")

	s.fb.ClearRGB(0, 0, 0)
	term := tinyterm.NewTerminal(s.d)
	term.Configure(&tinyterm.Config{
		Font:       &proggy.TinySZ8pt7b,
		FontHeight: 10,
		FontOffset: 6,
	})
	_, _ = term.Write(s.text.Bytes())
	_ = s.d.Display()
}

// Format writes a thread table with lines ending in eol.
func Format(w io.Writer, ticks, switches uint64, rows []kernel.ThreadInfo, eol string) {
	fmt.Fprintf(w, "ember  tick %d  switches %d%s", ticks, switches, eol)
	fmt.Fprintf(w, "%3s %-10s %3s %3s %-10s %-9s %8s %s%s", "ID", "NAME", "PRI", "EFF", "STATE", "WAIT", "TICKS", "SIG", eol)
	for _, r := range rows {
		fmt.Fprintf(w, "%3d %-10.10s %3d %3d %-10s %-9s %8d %08x%s",
			r.ID, r.Name, r.Priority, r.Effective, r.State, r.Reason, r.RunTicks, uint32(r.Pending), eol)
	}
}
