package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"

	"tuncat/pkg/ident"
)

func TestExitCodeUsesWrappedErrno(t *testing.T) {
	err := fmt.Errorf("TUNSETIFF: %w", unix.EPERM)
	assert.Equal(t, int(unix.EPERM), exitCode(err))

	assert.Equal(t, 1, exitCode(errors.New("no errno here")))
}

func TestIdentErrMapping(t *testing.T) {
	err := identErr(fmt.Errorf("user: %w", ident.ErrOutOfRange))
	assert.ErrorIs(t, err, unix.ERANGE)

	err = identErr(fmt.Errorf("user: %w", ident.ErrNotFound))
	assert.ErrorIs(t, err, unix.EINVAL)
}
