package relay

import (
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Signal is the relay's cancellation state. Set is safe to call from
// any goroutine (typically a signal handler); the relay polls Signaled
// once per loop iteration. The pipe end returned by Fd is registered in
// the readiness wait so a Set wakes a blocked relay immediately.
type Signal struct {
	fired atomic.Bool
	r     int
	w     int
}

func NewSignal() (*Signal, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, err
	}
	unix.SetNonblock(p[0], true)
	unix.SetNonblock(p[1], true)
	return &Signal{r: p[0], w: p[1]}, nil
}

// Set marks the signal fired. Idempotent; only the first call writes
// the wakeup byte.
func (s *Signal) Set() {
	if s.fired.Swap(true) {
		return
	}
	unix.Write(s.w, []byte{1})
}

func (s *Signal) Signaled() bool { return s.fired.Load() }

// Fd returns the readable end used to wake the readiness wait.
func (s *Signal) Fd() int { return s.r }

func (s *Signal) Close() error {
	unix.Close(s.r)
	unix.Close(s.w)
	return nil
}
