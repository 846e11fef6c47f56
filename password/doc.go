// Package password derives and verifies argon2id password hashes in the PHC
// string format, with constant-time comparison on the verify path.
package password
