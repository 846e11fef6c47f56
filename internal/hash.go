// Package internal holds small helpers shared by the root package and its
// tests that must not become public API.
package internal

import "crypto/sha256"

// HashToken maps a raw refresh-token string to its stored representation.
// The session store only ever sees these digests.
func HashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}
