// Package token implements the credential codec: issuance and verification
// of the two signed, time-bound JWT kinds (access and refresh).
//
// # Architecture boundaries
//
// This package owns signing and claim validation only. It knows nothing about
// Redis, accounts, or rotation; whether a structurally valid refresh token is
// still spendable is the session store's question, not the codec's.
//
// # What this package must NOT do
//
//   - Perform I/O of any kind.
//   - Read secrets from the environment; they arrive via Config.
//   - Import the root package or any sibling package.
package token
