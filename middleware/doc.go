// Package middleware provides net/http guards over an authkit Manager.
//
// Authenticate gates a handler chain on a valid bearer access token and
// stores the verified identity in the request context. RequireAdmin layers an
// authorization check on top. Both write JSON error envelopes directly and
// stop the chain on failure, so wrapped handlers only ever observe
// authenticated requests.
package middleware
