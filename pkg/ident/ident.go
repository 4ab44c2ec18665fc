// Package ident resolves user and group tokens to numeric ids. A token
// that parses as a base-10 integer is used directly after a range
// check; anything else goes through system account lookup.
package ident

import (
	"errors"
	"fmt"
	"math"
	"os/user"
	"strconv"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrOutOfRange = errors.New("id out of range")
)

func User(token string) (int, error) {
	if id, numeric, err := parseNumeric(token); numeric {
		return id, err
	}

	u, err := user.Lookup(token)
	if err != nil {
		return -1, fmt.Errorf("user %q: %w", token, ErrNotFound)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return -1, fmt.Errorf("user %q: non-numeric uid %q", token, u.Uid)
	}
	return uid, nil
}

func Group(token string) (int, error) {
	if id, numeric, err := parseNumeric(token); numeric {
		return id, err
	}

	g, err := user.LookupGroup(token)
	if err != nil {
		return -1, fmt.Errorf("group %q: %w", token, ErrNotFound)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return -1, fmt.Errorf("group %q: non-numeric gid %q", token, g.Gid)
	}
	return gid, nil
}

// parseNumeric reports whether the token is numeric at all; only
// numeric tokens can fail with a range error, everything else falls
// through to name lookup.
func parseNumeric(token string) (int, bool, error) {
	v, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
			return -1, true, fmt.Errorf("%q: %w", token, ErrOutOfRange)
		}
		return 0, false, nil
	}
	if v < 0 || v > math.MaxUint32 {
		return -1, true, fmt.Errorf("%d: %w", v, ErrOutOfRange)
	}
	return int(v), true, nil
}
