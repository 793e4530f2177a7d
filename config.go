package authcore

import (
	"errors"
	"time"
)

// Config holds all engine settings. Instances are treated as immutable after
// [Builder.Build]; the builder clones what it is given.
type Config struct {
	JWT     JWTConfig
	Session SessionConfig
}

// JWTConfig configures the token codec and both token lifetimes.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// SessionConfig configures the credential store adapter.
type SessionConfig struct {
	RedisPrefix string
	// StoreTimeout bounds every store round-trip. A timed-out refresh is a
	// failure, never an implicit success; the store's script atomicity
	// guarantees no half-applied rotation is left behind.
	StoreTimeout time.Duration
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
			SigningMethod: "ed25519",
		},
		Session: SessionConfig{
			RedisPrefix:  "ac",
			StoreTimeout: 5 * time.Second,
		},
	}
}

// Validate checks configuration invariants that do not require signing keys;
// key material is validated by the token codec at build time.
func (c Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("AccessTTL must be positive")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("RefreshTTL must be positive")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("RefreshTTL must not be shorter than AccessTTL")
	}
	if c.Session.StoreTimeout < 0 {
		return errors.New("StoreTimeout must not be negative")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
