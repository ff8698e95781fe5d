// Package ids holds opaque integer identifiers scripts use as keys.
package ids

import "strconv"

// Ident identifies an entity. Ordered by its underlying value.
type Ident int64

// Tick is a game time stamp in milliseconds.
type Tick uint32

const ZeroIdent Ident = 0

func (id Ident) Underlying() int64 {
	return int64(id)
}

func (id Ident) String() string {
	return "#" + strconv.FormatInt(int64(id), 10)
}

func (t Tick) Underlying() uint32 {
	return uint32(t)
}

func (t Tick) String() string {
	return strconv.FormatUint(uint64(t), 10) + "ms"
}

func ParseIdent(s string) (Ident, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return Ident(n), err
}

func ParseTick(s string) (Tick, error) {
	if len(s) > 2 && s[len(s)-2:] == "ms" {
		s = s[:len(s)-2]
	}
	n, err := strconv.ParseUint(s, 10, 32)
	return Tick(n), err
}
