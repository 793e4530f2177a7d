package authcore

import (
	"context"
	"time"

	"github.com/ostraca/authcore/family"
)

// TokenPair is the result of a successful issue or refresh: a short-lived
// access token and the single-use refresh token that replaces it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is returned by [Engine.Authorize]: the authenticated subject
// and the role snapshot embedded in its access token.
type AuthResult struct {
	SubjectID string
	Roles     []string
}

// FamilyStore is the credential-store capability the engine depends on.
// [family.RedisStore] is the stock implementation; any store providing an
// atomic Rotate may substitute for it.
type FamilyStore interface {
	Save(ctx context.Context, rec *family.Record, ttl time.Duration) error
	Rotate(ctx context.Context, familyID, providedTokenID, nextTokenID string, ttl time.Duration) (*family.Record, error)
	Revoke(ctx context.Context, familyID string) error
	RevokeAllForSubject(ctx context.Context, subjectID string) error
	FamilyIDs(ctx context.Context, subjectID string) ([]string, error)
}

// RoleSource yields a subject's current roles. It is consulted at issuance
// and at every refresh so each new token carries a fresh snapshot; a role
// change therefore reaches a subject no later than its next refresh.
type RoleSource interface {
	RolesOf(ctx context.Context, subjectID string) ([]string, error)
}
