// Package session implements the per-account refresh-token store on Redis.
//
// # Design
//
// Each account maps to one sorted set; members are SHA-256 hashes of raw
// refresh tokens, scores are expiry timestamps. Rotation is a Lua
// compare-and-swap: remove-if-present-else-fail, then add the successor.
// That single script is what makes refresh exactly-once under concurrency;
// no process-level locking is involved.
//
// Expired members are pruned lazily inside mutating operations rather than by
// a background sweeper, so the set never grows beyond the account's live
// sessions plus entries awaiting their next touch.
package session
