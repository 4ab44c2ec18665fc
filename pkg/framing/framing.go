// Package framing decodes the optional tun/tap packet-info preamble.
//
// When a device is created without IFF_NO_PI, the kernel prepends a
// fixed 4-byte header to every packet read from the descriptor and
// expects the same header on every packet written to it:
//
//	[flags (2 bytes, host order)][proto (2 bytes, network order)]
package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const PreambleLen = 4

// Set in the flags field when the packet was truncated because the
// read buffer was smaller than the packet.
const FlagTruncated uint16 = 0x0001

var ErrShortPreamble = errors.New("short framing preamble")

type Preamble struct {
	Flags uint16
	Proto uint16
}

func (p *Preamble) Parse(b []byte) error {
	if p == nil {
		return errors.New("preamble cannot be nil")
	}
	if len(b) < PreambleLen {
		return fmt.Errorf("%w: %d bytes, need %d", ErrShortPreamble, len(b), PreambleLen)
	}

	p.Flags = binary.NativeEndian.Uint16(b[0:2])
	p.Proto = binary.BigEndian.Uint16(b[2:4])
	return nil
}

func (p *Preamble) Encode(b []byte) ([]byte, error) {
	if p == nil {
		return nil, errors.New("preamble cannot be nil")
	}
	if cap(b) < PreambleLen {
		return nil, errors.New("slice capacity too small to encode preamble")
	}

	b = b[:PreambleLen]
	binary.NativeEndian.PutUint16(b[0:2], p.Flags)
	binary.BigEndian.PutUint16(b[2:4], p.Proto)
	return b, nil
}

func (p *Preamble) Truncated() bool {
	return p.Flags&FlagTruncated != 0
}

func (p *Preamble) String() string {
	if p == nil {
		return "<nil>"
	}

	return fmt.Sprintf("preamble: {flags: %#04x, proto: %#04x}", p.Flags, p.Proto)
}
