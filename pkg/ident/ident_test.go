package ident

import (
	"os/user"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericTokens(t *testing.T) {
	uid, err := User("1000")
	require.NoError(t, err)
	assert.Equal(t, 1000, uid)

	gid, err := Group("0")
	require.NoError(t, err)
	assert.Equal(t, 0, gid)
}

func TestNegativeIDOutOfRange(t *testing.T) {
	_, err := User("-5")
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Group("-1")
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestOversizedIDOutOfRange(t *testing.T) {
	_, err := User("99999999999999999999")
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Group("4294967296")
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestUnknownNameNotFound(t *testing.T) {
	_, err := User("tuncat-no-such-user")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Group("tuncat-no-such-group")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupCurrentUserByName(t *testing.T) {
	u, err := user.Current()
	if err != nil {
		t.Skipf("no current user: %v", err)
	}
	want, err := strconv.Atoi(u.Uid)
	if err != nil {
		t.Skipf("non-numeric uid %q", u.Uid)
	}

	got, err := User(u.Username)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
