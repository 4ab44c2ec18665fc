package relay

import "golang.org/x/sys/unix"

// Buffer stages in-flight bytes between one source and one sink.
// Invariant: 0 <= r <= w <= len(buf). Owned by the relay loop only.
type Buffer struct {
	buf []byte
	r   int
	w   int
}

func NewBuffer(size int) *Buffer {
	return &Buffer{buf: make([]byte, size)}
}

func (b *Buffer) Len() int { return b.w - b.r }

func (b *Buffer) Cap() int { return len(b.buf) }

func (b *Buffer) Empty() bool { return b.r == b.w }

func (b *Buffer) Room() int { return len(b.buf) - b.w + b.r }

// Bytes returns the unread region. Valid until the next ReadFrom/WriteTo.
func (b *Buffer) Bytes() []byte { return b.buf[b.r:b.w] }

// ReadFrom reads once from fd into the free tail of the buffer,
// compacting first if needed. Returns the raw unix error (EAGAIN and
// EINTR included) so the caller decides what counts as failure.
func (b *Buffer) ReadFrom(fd int) (int, error) {
	if b.r == b.w {
		b.r, b.w = 0, 0
	} else if b.w == len(b.buf) && b.r > 0 {
		b.w = copy(b.buf, b.buf[b.r:b.w])
		b.r = 0
	}
	if b.w == len(b.buf) {
		return 0, nil
	}

	n, err := unix.Read(fd, b.buf[b.w:])
	if n < 0 {
		n = 0
	}
	if err != nil {
		return 0, err
	}
	b.w += n
	return n, nil
}

// WriteTo writes the unread region to fd once, keeping whatever the
// sink did not accept. A short write never loses or reorders bytes.
func (b *Buffer) WriteTo(fd int) (int, error) {
	if b.r == b.w {
		return 0, nil
	}

	n, err := unix.Write(fd, b.buf[b.r:b.w])
	if n < 0 {
		n = 0
	}
	b.r += n
	if b.r == b.w {
		b.r, b.w = 0, 0
	}
	return n, err
}
