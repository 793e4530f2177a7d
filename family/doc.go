// Package family persists session-family records: the single durable entity
// behind refresh-token rotation. A family holds exactly one redeemable token
// id at a time; redeeming it is an atomic compare-and-swap inside Redis, and
// presenting any other id destroys the family outright.
//
// The store never retries on its own. A timed-out call surfaces as
// ErrStoreUnavailable and is guaranteed not to have half-rotated the record,
// because the swap happens entirely inside one Redis script.
package family
