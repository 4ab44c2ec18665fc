//go:build !linux

package tun

import (
	"fmt"
	"runtime"
)

// Device is only implemented on Linux.
type Device struct{}

func New(cfg Config) (*Device, error) {
	return nil, fmt.Errorf("%w: no tun/tap support for %s", ErrDeviceUnavailable, runtime.GOOS)
}

func (d *Device) Name() string             { return "" }
func (d *Device) Mode() Mode               { return Tun }
func (d *Device) Framing() Framing         { return Raw }
func (d *Device) Persistent() bool         { return false }
func (d *Device) Fd() int                  { return -1 }
func (d *Device) SetPersistent(bool) error { return ErrDeviceUnavailable }
func (d *Device) SetOwner(int) error       { return ErrDeviceUnavailable }
func (d *Device) SetGroup(int) error       { return ErrDeviceUnavailable }
func (d *Device) Close() error             { return nil }
