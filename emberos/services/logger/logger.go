// Package logger moves log lines from threads and interrupt handlers to a
// slow output device. Producers only copy into a ring; a low priority thread
// drains it.
package logger

import (
	"fmt"
	"sync/atomic"

	"ember/emberos/kernel"
	"ember/hal"
)

const stackSize = 2048

// Service is a hal.Logger backed by a kernel thread.
type Service struct {
	k     *kernel.Kernel
	out   hal.Logger
	ring  Ring
	ready *kernel.Semaphore

	dropped atomic.Uint32
	buf     [MaxLineBytes]byte
	stack   [stackSize]byte
}

// New returns a logger writing to out. Lines are queued until Start is
// called and the kernel runs.
func New(k *kernel.Kernel, out hal.Logger) *Service {
	return &Service{k: k, out: out, ready: kernel.NewSemaphore(k, 0)}
}

// Start creates the logger thread at priority p.
func (s *Service) Start(p kernel.Priority) (kernel.Thread, error) {
	th, err := s.k.NewThread(kernel.ThreadConfig{
		Name:     "logger",
		Priority: p,
		Stack:    s.stack[:],
		Entry:    s.run,
	})
	if err != nil {
		return kernel.Thread{}, fmt.Errorf("logger: %w", err)
	}
	return th, th.Start()
}

// WriteLineString queues s. It may be called from threads, interrupt
// handlers and, before the kernel starts, the boot goroutine. Other
// goroutines must go through Kernel.RaiseInterrupt.
func (s *Service) WriteLineString(str string) {
	var tmp [MaxLineBytes]byte
	n := copy(tmp[:], str)
	s.WriteLineBytes(tmp[:n])
}

// WriteLineBytes queues a copy of b.
func (s *Service) WriteLineBytes(b []byte) {
	if !s.ring.TryPut(b) {
		s.dropped.Add(1)
		return
	}
	_ = s.ready.Post()
}

// Printf queues a formatted line prefixed with the current tick.
func (s *Service) Printf(format string, args ...any) {
	s.WriteLineString(fmt.Sprintf("[%8d] ", s.k.Ticks()) + fmt.Sprintf(format, args...))
}

// Pending returns the number of queued lines.
func (s *Service) Pending() int { return s.ring.Len() }

// Dropped returns the number of lines lost to a full ring since the last
// drop report.
func (s *Service) Dropped() uint32 { return s.dropped.Load() }

func (s *Service) run(kernel.Thread) {
	for {
		if err := s.ready.Wait(kernel.Forever); err != nil {
			continue
		}
		n, ok := s.ring.TryGet(s.buf[:])
		if !ok {
			continue
		}
		if s.out == nil {
			continue
		}
		s.out.WriteLineBytes(s.buf[:n])
		if d := s.dropped.Swap(0); d > 0 {
			s.out.WriteLineString(fmt.Sprintf("logger: dropped %d lines", d))
		}
	}
}
