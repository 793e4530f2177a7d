package authcore

import (
	"errors"

	"github.com/ostraca/authcore/family"
	"github.com/ostraca/authcore/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine] from explicit dependencies. There are no
// ambient singletons: the signing key, store client, and role source all
// arrive through the builder and are fixed at Build time.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	roles    RoleSource
	families FamilyStore

	built bool
}

// New returns a Builder preloaded with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the stock family store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRoleSource sets the authoritative role snapshot provider.
func (b *Builder) WithRoleSource(src RoleSource) *Builder {
	b.roles = src
	return b
}

// WithFamilyStore overrides the stock Redis family store with a custom
// implementation. When set, WithRedis is not required.
func (b *Builder) WithFamilyStore(store FamilyStore) *Builder {
	b.families = store
	return b
}

// Build validates the configuration, wires the token codec and family
// store, and returns a ready Engine. A builder can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.roles == nil {
		return nil, errors.New("role source required")
	}

	families := b.families
	if families == nil {
		if b.redis == nil {
			return nil, errors.New("redis client required")
		}
		families = family.NewRedisStore(b.redis, cfg.Session.RedisPrefix)
	}

	codec, err := token.NewCodec(token.Config{
		SigningMethod: token.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	b.built = true

	return &Engine{
		config:   cfg,
		codec:    codec,
		families: families,
		roles:    b.roles,
	}, nil
}
