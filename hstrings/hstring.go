// Package hstrings implements hashed strings: text identified by a
// 64-bit content hash, resolvable back to text through a Pool.
package hstrings

import (
	"strings"

	"github.com/cespare/xxhash"
)

type HString struct {
	hash uint64
	text string
}

var Empty HString

func Hash(s string) uint64 {
	if s == "" {
		return 0
	}
	return xxhash.Sum64String(s)
}

// Of builds an HString without registering it anywhere.
func Of(s string) HString {
	return HString{hash: Hash(s), text: s}
}

func (h HString) Hash() uint64 {
	return h.hash
}

func (h HString) String() string {
	return h.text
}

func (h HString) IsEmpty() bool {
	return h.hash == 0
}

// Compare orders by hash, then by text for the rare collision.
func Compare(a, b HString) int {
	switch {
	case a.hash < b.hash:
		return -1
	case a.hash > b.hash:
		return 1
	}
	return strings.Compare(a.text, b.text)
}
