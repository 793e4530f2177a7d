// Package token implements the stateless codec for signed access and refresh
// tokens. Both token kinds share one claims layout and one signing key; the
// "typ" claim keeps them from being substituted for each other.
//
// The codec performs no I/O and holds no mutable state, so a single Codec can
// be shared by any number of goroutines.
package token
