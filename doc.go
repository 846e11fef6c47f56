// Package authkit implements the authentication and session lifecycle for
// services that issue paired short-lived access tokens and long-lived,
// single-use refresh tokens.
//
// The library is split into four cooperating pieces:
//
//   - token.Codec signs and verifies the two credential kinds with
//     independent secrets and lifetimes.
//   - session.Store tracks the currently valid refresh tokens of each
//     account in Redis and rotates them atomically.
//   - [Manager] orchestrates signup, login, refresh (rotate-on-use), logout,
//     and stateless access-token authentication.
//   - middleware guards HTTP routes and attaches the authenticated
//     [Identity] to the request context.
//
// Account persistence stays with the caller: implement [AccountProvider]
// against your own database and hand it to the [Builder]. Passwords are
// hashed with argon2id by the password subpackage.
//
// A complete HTTP service built on the library lives in examples/http-api.
package authkit
