package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the JWT signing algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs tokens with EdDSA over Curve25519.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs tokens with HMAC-SHA256 using a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

const (
	// TypeAccess marks a short-lived token used to authorize requests.
	TypeAccess = "access"
	// TypeRefresh marks a long-lived single-use token redeemed for a new pair.
	TypeRefresh = "refresh"
)

// ErrInvalid is the umbrella error matched by every decode failure.
// The specific sentinels below all satisfy errors.Is(err, ErrInvalid).
var ErrInvalid = errors.New("invalid token")

var (
	// ErrMalformed covers tokens that cannot be parsed at all.
	ErrMalformed = fmt.Errorf("%w: malformed", ErrInvalid)
	// ErrSignature covers tokens whose signature does not verify.
	ErrSignature = fmt.Errorf("%w: bad signature", ErrInvalid)
	// ErrExpired covers structurally valid tokens past their expiry.
	ErrExpired = fmt.Errorf("%w: expired", ErrInvalid)
)

// Claims is the payload carried by both access and refresh tokens.
// Subject and the token id (jti) live in the embedded RegisteredClaims;
// Type distinguishes the two token kinds and must always be set.
type Claims struct {
	Roles    []string `json:"roles,omitempty"`
	FamilyID string   `json:"fid,omitempty"`
	Type     string   `json:"typ"`
	jwt.RegisteredClaims
}

// AccessClaims builds the claims for an access token carrying a role
// snapshot. Each token gets a fresh jti; iat/exp only have one-second
// precision, so without it two mints in the same second would be
// byte-identical. Timing fields are stamped by Encode.
func AccessClaims(subjectID string, roles []string, familyID string) Claims {
	return Claims{
		Roles:    roles,
		FamilyID: familyID,
		Type:     TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subjectID,
			ID:      uuid.NewString(),
		},
	}
}

// RefreshClaims builds the claims for a single-use refresh token. tokenID
// becomes the jti claim compared against the family's current token id.
func RefreshClaims(subjectID, familyID, tokenID string) Claims {
	return Claims{
		FamilyID: familyID,
		Type:     TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subjectID,
			ID:      tokenID,
		},
	}
}

// Config holds the signing material and validation policy for a Codec.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// Codec is a stateless encoder/decoder for signed, expiring tokens.
// It is safe for concurrent use.
type Codec struct {
	config Config
}

// NewCodec validates the configuration and returns a ready Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("ed25519 requires private key")
		}
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key")
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Codec{config: cfg}, nil
}

// Encode signs claims with an absolute expiry of now+ttl. The issuer and
// timing fields are stamped here; everything else is taken from claims as-is.
func (c *Codec) Encode(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("invalid token ttl")
	}
	if claims.Type != TypeAccess && claims.Type != TypeRefresh {
		return "", errors.New("invalid token type")
	}

	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if c.config.Issuer != "" {
		claims.Issuer = c.config.Issuer
	}

	tok := jwt.NewWithClaims(c.getMethod(), claims)

	signKey, err := c.getSignKey()
	if err != nil {
		return "", err
	}

	return tok.SignedString(signKey)
}

// Decode verifies the signature and expiry and returns the claims.
// Failures are classified as ErrExpired, ErrSignature, or ErrMalformed,
// all of which match ErrInvalid.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.getMethod().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.getMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.getVerifyKey()
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrMalformed
	}
	if claims.Type != TypeAccess && claims.Type != TypeRefresh {
		return nil, ErrMalformed
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignature
	default:
		return ErrMalformed
	}
}

func (c *Codec) getMethod() jwt.SigningMethod {
	switch c.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (c *Codec) getSignKey() (interface{}, error) {
	switch c.config.SigningMethod {
	case MethodHS256:
		return c.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(c.config.PrivateKey)
	}
}

func (c *Codec) getVerifyKey() (interface{}, error) {
	switch c.config.SigningMethod {
	case MethodHS256:
		return c.config.PrivateKey, nil
	default:
		return parseEdPublicKey(c.config.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
