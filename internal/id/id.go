// Package id generates identifiers for journal entries and recordings.
// Stub mapping IDs use github.com/google/uuid; the sortable IDs here are
// for high-volume entries where creation order matters.
package id

import (
	"crypto/rand"
	"sync"
	"time"
)

// sortableEncoding is Crockford's Base32 (excludes I, L, O, U).
const sortableEncoding = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	mu      sync.Mutex
	lastMs  int64
	counter uint16
)

// Sortable generates a 20-character time-sortable identifier:
// 10 characters of millisecond timestamp followed by 10 characters of
// randomness. Two IDs generated in the same process sort by creation time.
func Sortable() string {
	mu.Lock()
	defer mu.Unlock()

	now := time.Now().UnixMilli()
	if now == lastMs {
		counter++
		if counter == 0 {
			for now == lastMs {
				time.Sleep(time.Millisecond)
				now = time.Now().UnixMilli()
			}
		}
	} else {
		lastMs = now
		counter = 0
	}

	return encode(now, counter)
}

func encode(ms int64, ctr uint16) string {
	out := make([]byte, 20)

	for i := 9; i >= 0; i-- {
		out[i] = sortableEncoding[ms&0x1F]
		ms >>= 5
	}

	rnd := make([]byte, 7)
	_, _ = rand.Read(rnd)
	rnd[0] ^= byte(ctr >> 8)
	rnd[1] ^= byte(ctr)

	// 7 random bytes give 56 bits; consume 5 bits per character.
	var acc uint64
	for _, b := range rnd {
		acc = acc<<8 | uint64(b)
	}
	for i := 19; i >= 10; i-- {
		out[i] = sortableEncoding[acc&0x1F]
		acc >>= 5
	}

	return string(out)
}
