package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// JoinKey joins key segments with ':'.
func JoinKey(parts ...any) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(':')
		}
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// HashKey returns a 32 character hex digest of s.
func HashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

// PrefixPattern returns a glob matching every key that starts with prefix.
func PrefixPattern(prefix string) string {
	return prefix + "*"
}
