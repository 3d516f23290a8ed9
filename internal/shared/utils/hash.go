package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// ShortHashLength is the length of fingerprints shown to users
const ShortHashLength = 12

// Hash returns the hex SHA-256 of data
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns a short, stable hash of data
func Fingerprint(data []byte) string {
	return Hash(data)[:ShortHashLength]
}

// HashFields hashes fields in sorted order, so order does not matter
func HashFields(fields ...string) string {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	return Hash([]byte(strings.Join(sorted, "|")))
}
