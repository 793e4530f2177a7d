// Package authcore is a session/token lifecycle engine: it issues paired
// JWT access tokens and single-use refresh tokens, rotates refresh tokens
// atomically with theft detection, tracks sessions per subject across
// devices, and enforces role checks on access tokens.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the capability interfaces ([FamilyStore], [RoleSource]), and sentinel
// errors. Token encoding lives in token/, the Redis credential store in
// family/, and the authoritative role directory in rbac/.
//
// # Security contract
//
//   - A refresh token is redeemable at most once. Redemption is an atomic
//     compare-and-swap inside the store; under races exactly one caller wins.
//   - Presenting an already-rotated refresh token destroys the entire
//     session family, forcing full re-authentication.
//   - Authorize never touches the store: the access token's signature is the
//     sole trust anchor, and a role change only takes effect on the
//     subject's next refresh. That staleness window is bounded by AccessTTL.
package authcore
