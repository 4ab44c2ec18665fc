// Package tun creates and configures Linux tun/tap devices.
package tun

import "errors"

type Mode int

const (
	// Tun exchanges raw IP packets (L3) with the process.
	Tun Mode = iota
	// Tap exchanges ethernet frames (L2) with the process.
	Tap
)

func (m Mode) String() string {
	if m == Tap {
		return "tap"
	}
	return "tun"
}

type Framing int

const (
	// Raw delivers bare packets (IFF_NO_PI).
	Raw Framing = iota
	// Framed prepends the 4-byte flags+protocol preamble to every packet.
	Framed
)

func (f Framing) String() string {
	if f == Framed {
		return "framed"
	}
	return "raw"
}

// Config describes the device to create or attach to.
type Config struct {
	// Name of the interface. Empty lets the kernel pick one.
	Name    string
	Mode    Mode
	Framing Framing
	// Persist keeps the kernel interface alive after the descriptor closes.
	Persist bool
	// Owner and Group reassign device ownership. Negative values leave
	// ownership unchanged.
	Owner int
	Group int
}

var (
	ErrInvalidName       = errors.New("invalid interface name")
	ErrDeviceUnavailable = errors.New("tun/tap device unavailable")
	ErrNonblockSetup     = errors.New("unable to make device non-blocking")
	ErrPersistenceSetup  = errors.New("unable to set device persistence")
	ErrOwnershipSetup    = errors.New("unable to set device ownership")
)
