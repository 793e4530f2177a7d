package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()

	codec, err := NewCodec(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-secret"),
		Issuer:        "authcore-test",
	})
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return codec
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	claims := AccessClaims("user-1", []string{"admin", "user"}, "fam-1")
	tok, err := codec.Encode(claims, time.Minute)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.ContainsAny(tok, " +/=") {
		t.Fatalf("token is not URL-safe: %q", tok)
	}

	decoded, err := codec.Decode(tok)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Subject != "user-1" {
		t.Fatalf("subject = %q, want user-1", decoded.Subject)
	}
	if decoded.FamilyID != "fam-1" {
		t.Fatalf("family id = %q, want fam-1", decoded.FamilyID)
	}
	if decoded.Type != TypeAccess {
		t.Fatalf("type = %q, want %q", decoded.Type, TypeAccess)
	}
	if len(decoded.Roles) != 2 || decoded.Roles[0] != "admin" || decoded.Roles[1] != "user" {
		t.Fatalf("roles = %v, want [admin user]", decoded.Roles)
	}
	if decoded.ExpiresAt == nil || !decoded.ExpiresAt.After(time.Now()) {
		t.Fatal("expected expiry in the future")
	}
}

// iat/exp only have one-second precision, so uniqueness must come from the
// jti claim: two access tokens minted in the same second may never collide.
func TestAccessTokensCarryUniqueID(t *testing.T) {
	codec := newTestCodec(t)

	first, err := codec.Encode(AccessClaims("user-1", []string{"user"}, "fam-1"), time.Minute)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	second, err := codec.Encode(AccessClaims("user-1", []string{"user"}, "fam-1"), time.Minute)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if first == second {
		t.Fatal("back-to-back access tokens must differ")
	}

	decoded, err := codec.Decode(first)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.ID == "" {
		t.Fatal("access token must carry a jti")
	}
}

func TestRefreshClaimsCarryTokenID(t *testing.T) {
	codec := newTestCodec(t)

	tok, err := codec.Encode(RefreshClaims("user-1", "fam-1", "tok-1"), time.Hour)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := codec.Decode(tok)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Type != TypeRefresh {
		t.Fatalf("type = %q, want %q", decoded.Type, TypeRefresh)
	}
	if decoded.ID != "tok-1" {
		t.Fatalf("token id = %q, want tok-1", decoded.ID)
	}
	if len(decoded.Roles) != 0 {
		t.Fatalf("refresh token must not carry roles, got %v", decoded.Roles)
	}
}

func TestDecodeExpired(t *testing.T) {
	codec := newTestCodec(t)

	tok, err := codec.Encode(AccessClaims("user-1", nil, "fam-1"), time.Millisecond)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	_, err = codec.Decode(tok)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Fatal("expired error must match ErrInvalid")
	}
}

func TestDecodeWrongKey(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewCodec(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("different-secret"),
		Issuer:        "authcore-test",
	})
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	tok, err := codec.Encode(AccessClaims("user-1", nil, "fam-1"), time.Minute)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	_, err = other.Decode(tok)
	if !errors.Is(err, ErrSignature) {
		t.Fatalf("expected ErrSignature, got %v", err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Fatal("signature error must match ErrInvalid")
	}
}

// Pins the exact expiry boundary with zero leeway: a token whose exp equals
// the current second is already rejected, one second of remaining life is
// still accepted.
func TestDecodeExpiryBoundary(t *testing.T) {
	codec := newTestCodec(t)

	sign := func(exp time.Time) string {
		claims := AccessClaims("user-1", nil, "fam-1")
		claims.Issuer = "authcore-test"
		claims.IssuedAt = jwt.NewNumericDate(exp.Add(-time.Minute))
		claims.ExpiresAt = jwt.NewNumericDate(exp)
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		if err != nil {
			t.Fatalf("sign failed: %v", err)
		}
		return signed
	}

	if _, err := codec.Decode(sign(time.Now())); !errors.Is(err, ErrExpired) {
		t.Fatalf("token expiring this second must be rejected, got %v", err)
	}
	if _, err := codec.Decode(sign(time.Now().Add(2 * time.Second))); err != nil {
		t.Fatalf("token with remaining life must decode: %v", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	codec := newTestCodec(t)

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := codec.Decode(tok); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Decode(%q): expected ErrMalformed, got %v", tok, err)
		}
	}
}

func TestEncodeRejectsBadInput(t *testing.T) {
	codec := newTestCodec(t)

	if _, err := codec.Encode(AccessClaims("user-1", nil, "fam-1"), 0); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}

	claims := AccessClaims("user-1", nil, "fam-1")
	claims.Type = "other"
	if _, err := codec.Encode(claims, time.Minute); err == nil {
		t.Fatal("expected error for unknown token type")
	}
}

func TestNewCodecValidation(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	cases := []struct {
		name string
		cfg  Config
	}{
		{"unsupported method", Config{SigningMethod: "rs256"}},
		{"hs256 without key", Config{SigningMethod: MethodHS256}},
		{"ed25519 without private key", Config{SigningMethod: MethodEd25519, PublicKey: pub}},
		{"ed25519 without public key", Config{SigningMethod: MethodEd25519, PrivateKey: priv}},
		{"ed25519 garbage private key", Config{
			SigningMethod: MethodEd25519,
			PrivateKey:    []byte("not-a-key"),
			PublicKey:     pub,
		}},
		{"excessive leeway", Config{
			SigningMethod: MethodHS256,
			PrivateKey:    []byte("k"),
			Leeway:        5 * time.Minute,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewCodec(tc.cfg); err == nil {
				t.Fatal("expected configuration error")
			}
		})
	}
}

func TestEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	codec, err := NewCodec(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "authcore-test",
	})
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	tok, err := codec.Encode(AccessClaims("user-1", []string{"user"}, "fam-1"), time.Minute)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := codec.Decode(tok)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Subject != "user-1" || decoded.Type != TypeAccess {
		t.Fatalf("unexpected claims: %+v", decoded)
	}
}
