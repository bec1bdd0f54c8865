package hash

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

type Hash struct {
	data []byte
}

func NewHash(data []byte) Hash {
	return Hash{data: data}
}

// Of hashes parts joined by a separator that cannot appear in normal text,
// so ("ab", "c") and ("a", "bc") differ.
func Of(parts ...string) Hash {
	return NewHash([]byte(strings.Join(parts, "\x1f")))
}

func (h Hash) ComputeHash() string {
	hash := sha256.Sum256(h.data)
	return fmt.Sprintf("%x", hash)
}
