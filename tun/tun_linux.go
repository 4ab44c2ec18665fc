//go:build linux

package tun

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const clonePath = "/dev/net/tun"

// Device is an open tun/tap descriptor. The descriptor is non-blocking
// for the lifetime of the device; mode and framing are fixed at creation.
type Device struct {
	fd         int
	name       string
	mode       Mode
	framing    Framing
	persistent bool
}

// New opens the clone device and creates (or attaches to) the configured
// interface. On any failure after the descriptor is open, the descriptor
// is closed before returning, so a failed call leaks nothing.
func New(cfg Config) (*Device, error) {
	if cfg.Name != "" && len(cfg.Name) >= unix.IFNAMSIZ {
		return nil, fmt.Errorf("%w: %q exceeds %d bytes: %w",
			ErrInvalidName, cfg.Name, unix.IFNAMSIZ-1, unix.ENAMETOOLONG)
	}

	fd, err := unix.Open(clonePath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrDeviceUnavailable, clonePath, err)
	}

	ifr, err := unix.NewIfreq(cfg.Name)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidName, cfg.Name, err)
	}
	ifr.SetUint16(ifreqFlags(cfg.Mode, cfg.Framing))

	if err := unix.IoctlIfreq(fd, unix.TUNSETIFF, ifr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: TUNSETIFF: %w", ErrDeviceUnavailable, err)
	}

	dev := &Device{
		fd: fd,
		// The kernel fills in the generated name when cfg.Name was empty.
		name:    ifr.Name(),
		mode:    cfg.Mode,
		framing: cfg.Framing,
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		dev.Close()
		return nil, fmt.Errorf("%w: %w", ErrNonblockSetup, err)
	}
	if cfg.Persist {
		if err := dev.SetPersistent(true); err != nil {
			dev.Close()
			return nil, err
		}
	}
	if cfg.Owner >= 0 {
		if err := dev.SetOwner(cfg.Owner); err != nil {
			dev.Close()
			return nil, err
		}
	}
	if cfg.Group >= 0 {
		if err := dev.SetGroup(cfg.Group); err != nil {
			dev.Close()
			return nil, err
		}
	}

	return dev, nil
}

func ifreqFlags(mode Mode, framing Framing) uint16 {
	var flags uint16
	switch mode {
	case Tap:
		flags = unix.IFF_TAP
	default:
		flags = unix.IFF_TUN
	}
	if framing == Raw {
		flags |= unix.IFF_NO_PI
	}
	return flags
}

// Name returns the resolved interface name.
func (d *Device) Name() string { return d.name }

func (d *Device) Mode() Mode { return d.mode }

func (d *Device) Framing() Framing { return d.framing }

func (d *Device) Persistent() bool { return d.persistent }

// Fd returns the device descriptor for readiness polling.
func (d *Device) Fd() int { return d.fd }

// SetPersistent marks or unmarks the interface to survive descriptor
// closure. Only meaningful before the relay starts.
func (d *Device) SetPersistent(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := unix.IoctlSetInt(d.fd, unix.TUNSETPERSIST, v); err != nil {
		return fmt.Errorf("%w: TUNSETPERSIST: %w", ErrPersistenceSetup, err)
	}
	d.persistent = on
	return nil
}

func (d *Device) SetOwner(uid int) error {
	if err := unix.IoctlSetInt(d.fd, unix.TUNSETOWNER, uid); err != nil {
		return fmt.Errorf("%w: TUNSETOWNER %d: %w", ErrOwnershipSetup, uid, err)
	}
	return nil
}

func (d *Device) SetGroup(gid int) error {
	if err := unix.IoctlSetInt(d.fd, unix.TUNSETGROUP, gid); err != nil {
		return fmt.Errorf("%w: TUNSETGROUP %d: %w", ErrOwnershipSetup, gid, err)
	}
	return nil
}

// Close releases the descriptor. The kernel tears the interface down
// unless it was marked persistent. Safe to call more than once.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
