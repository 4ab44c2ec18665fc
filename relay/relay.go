// Package relay copies bytes between a tun/tap device and the process's
// standard streams, one poll-driven loop, one thread, no blocking calls
// outside the readiness wait.
package relay

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"tuncat/pkg/framing"
	"tuncat/tun"
)

const DefaultBufferLen = 65536

// Poll timeout per attempt of the final best-effort flush.
const flushTimeoutMs = 250

var (
	ErrWait        = errors.New("readiness wait failed")
	ErrDeviceRead  = errors.New("device read failed")
	ErrDeviceWrite = errors.New("device write failed")
	ErrStdinRead   = errors.New("stdin read failed")
	ErrStdoutWrite = errors.New("stdout write failed")
	ErrFraming     = errors.New("framing error")
)

// Device is the slice of tun.Device the relay needs.
type Device interface {
	Fd() int
	Framing() tun.Framing
}

// Relay owns both transfer buffers and all three descriptors for the
// duration of Run. It is not safe for concurrent use.
type Relay struct {
	dev      Device
	stdinFd  int
	stdoutFd int
	sig      *Signal

	toOut *Buffer // device -> stdout
	toDev *Buffer // stdin -> device

	framed    bool
	stdinOpen bool
}

func New(dev Device, stdinFd, stdoutFd, bufferLen int, sig *Signal) (*Relay, error) {
	if dev == nil || sig == nil {
		return nil, fmt.Errorf("device and signal are required: %w", unix.EINVAL)
	}
	if bufferLen <= 0 {
		return nil, fmt.Errorf("buffer size %d: %w", bufferLen, unix.EINVAL)
	}

	return &Relay{
		dev:       dev,
		stdinFd:   stdinFd,
		stdoutFd:  stdoutFd,
		sig:       sig,
		toOut:     NewBuffer(bufferLen),
		toDev:     NewBuffer(bufferLen),
		framed:    dev.Framing() == tun.Framed,
		stdinOpen: true,
	}, nil
}

// Run relays until stdin reaches end-of-stream, the signal fires, or an
// unrecoverable I/O error occurs. Buffered device->stdout bytes get a
// best-effort flush on every exit path. The device descriptor is left
// open; closing it is the caller's job.
func (r *Relay) Run() error {
	if err := unix.SetNonblock(r.stdinFd, true); err != nil {
		return fmt.Errorf("%w: stdin non-blocking: %w", ErrWait, err)
	}
	if err := unix.SetNonblock(r.stdoutFd, true); err != nil {
		return fmt.Errorf("%w: stdout non-blocking: %w", ErrWait, err)
	}
	defer r.flush()

	for {
		if r.sig.Signaled() {
			log.Info("received interrupt, exiting")
			return nil
		}
		if !r.stdinOpen && r.toDev.Empty() {
			log.Debug("stdin drained, exiting")
			return nil
		}

		fds := make([]unix.PollFd, 0, 4)
		fds = append(fds, unix.PollFd{Fd: int32(r.sig.Fd()), Events: unix.POLLIN})

		// Only ask for device data when the outbound buffer is empty:
		// a device read into a partially full buffer could truncate a
		// packet, which silently corrupts the stream.
		devIdx := -1
		var devEvents int16
		if r.toOut.Empty() {
			devEvents |= unix.POLLIN
		}
		if !r.toDev.Empty() {
			devEvents |= unix.POLLOUT
		}
		if devEvents != 0 {
			devIdx = len(fds)
			fds = append(fds, unix.PollFd{Fd: int32(r.dev.Fd()), Events: devEvents})
		}

		stdinIdx := -1
		if r.stdinOpen && r.toDev.Room() > 0 {
			stdinIdx = len(fds)
			fds = append(fds, unix.PollFd{Fd: int32(r.stdinFd), Events: unix.POLLIN})
		}

		// Never poll stdout with nothing to write, it is almost always
		// writable and would spin the loop.
		stdoutIdx := -1
		if !r.toOut.Empty() {
			stdoutIdx = len(fds)
			fds = append(fds, unix.PollFd{Fd: int32(r.stdoutFd), Events: unix.POLLOUT})
		}

		if _, err := unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("%w: %w", ErrWait, err)
		}

		if devIdx >= 0 {
			re := fds[devIdx].Revents
			if re&(unix.POLLIN|unix.POLLERR) != 0 && r.toOut.Empty() {
				if err := r.readDevice(); err != nil {
					return err
				}
			}
			if re&unix.POLLOUT != 0 && !r.toDev.Empty() {
				if err := r.writeDevice(); err != nil {
					return err
				}
			}
		}
		if stdinIdx >= 0 && fds[stdinIdx].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			if err := r.readStdin(); err != nil {
				return err
			}
		}
		if stdoutIdx >= 0 && fds[stdoutIdx].Revents&(unix.POLLOUT|unix.POLLERR) != 0 {
			if err := r.writeStdout(); err != nil {
				return err
			}
		}
	}
}

func (r *Relay) readDevice() error {
	n, err := r.toOut.ReadFrom(r.dev.Fd())
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrDeviceRead, err)
	}
	// A zero-byte read is not end-of-stream for a tun/tap descriptor.
	if n == 0 {
		return nil
	}

	if r.framed {
		if n < framing.PreambleLen {
			return fmt.Errorf("%w: device returned %d-byte unit, need at least %d",
				ErrFraming, n, framing.PreambleLen)
		}
		if log.IsLevelEnabled(log.DebugLevel) {
			var p framing.Preamble
			if err := p.Parse(r.toOut.Bytes()); err == nil {
				log.Debugf("device -> stdout: %d bytes, proto %#04x", n, p.Proto)
			}
		}
	} else {
		log.Debugf("device -> stdout: %d bytes", n)
	}
	return nil
}

func (r *Relay) writeDevice() error {
	n, err := r.toDev.WriteTo(r.dev.Fd())
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrDeviceWrite, err)
	}
	log.Debugf("stdin -> device: %d bytes, %d buffered", n, r.toDev.Len())
	return nil
}

func (r *Relay) readStdin() error {
	n, err := r.toDev.ReadFrom(r.stdinFd)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrStdinRead, err)
	}
	if n == 0 {
		// End-of-stream on stdin: nothing further to relay inbound.
		r.stdinOpen = false
		log.Debug("stdin end-of-stream")
	}
	return nil
}

func (r *Relay) writeStdout() error {
	_, err := r.toOut.WriteTo(r.stdoutFd)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrStdoutWrite, err)
	}
	return nil
}

// flush makes a bounded attempt to push remaining device->stdout bytes
// before the relay returns. Failures here are not reported; the loop
// outcome is already decided.
func (r *Relay) flush() {
	for !r.toOut.Empty() {
		pfd := []unix.PollFd{{Fd: int32(r.stdoutFd), Events: unix.POLLOUT}}
		n, err := unix.Poll(pfd, flushTimeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil || n == 0 {
			log.Warnf("dropping %d unflushed bytes on exit", r.toOut.Len())
			return
		}
		if _, err := r.toOut.WriteTo(r.stdoutFd); err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			log.Warnf("final flush failed: %v", err)
			return
		}
	}
}
