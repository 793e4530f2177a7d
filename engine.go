package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ostraca/authcore/family"
	"github.com/ostraca/authcore/token"
)

// Engine orchestrates the session/token lifecycle: issuance of paired
// access and refresh tokens, atomic refresh rotation with theft detection,
// and revocation. All methods are safe for concurrent use after Build.
type Engine struct {
	config   Config
	codec    *token.Codec
	families FamilyStore
	roles    RoleSource
}

// Issue creates a new session family for subjectID and mints its first
// access/refresh pair. The role snapshot is read from the RoleSource at
// this moment and embedded into the access token.
func (e *Engine) Issue(ctx context.Context, subjectID string) (*TokenPair, error) {
	if e == nil || e.families == nil {
		return nil, ErrEngineNotReady
	}
	if subjectID == "" {
		return nil, ErrSubjectRequired
	}

	roles, err := e.roles.RolesOf(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	familyID := uuid.NewString()
	tokenID := uuid.NewString()

	rec := &family.Record{
		FamilyID:       familyID,
		SubjectID:      subjectID,
		CurrentTokenID: tokenID,
		ExpiresAt:      time.Now().Add(e.config.JWT.RefreshTTL).Unix(),
	}

	sctx, cancel := e.storeContext(ctx)
	defer cancel()
	if err := e.families.Save(sctx, rec, e.config.JWT.RefreshTTL); err != nil {
		return nil, e.storeError(err)
	}

	return e.mintPair(subjectID, roles, familyID, tokenID)
}

// Refresh redeems a refresh token for a new pair. The match-and-rotate step
// is a single atomic store operation: of N concurrent redemptions of the
// same token exactly one succeeds, and the losers destroy the family.
// Presenting an already-rotated token, whether replayed by an attacker or
// retried by a client after a dropped response, always ends the whole family.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.families == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.codec.Decode(refreshToken)
	if err != nil || claims.Type != token.TypeRefresh || claims.Subject == "" || claims.FamilyID == "" || claims.ID == "" {
		return nil, ErrRefreshInvalid
	}

	// The role snapshot is read before the rotation. A failure here must
	// leave the family untouched: once Rotate has run, the client never
	// receives the new token id, and its retry with the old one would trip
	// theft detection.
	roles, err := e.roles.RolesOf(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	nextTokenID := uuid.NewString()

	sctx, cancel := e.storeContext(ctx)
	defer cancel()
	rec, err := e.families.Rotate(sctx, claims.FamilyID, claims.ID, nextTokenID, e.config.JWT.RefreshTTL)
	if err != nil {
		switch {
		case errors.Is(err, family.ErrTokenMismatch):
			return nil, ErrRefreshReuse
		case errors.Is(err, family.ErrNotFound), errors.Is(err, family.ErrExpired):
			return nil, ErrFamilyNotFound
		default:
			return nil, e.storeError(err)
		}
	}

	return e.mintPair(rec.SubjectID, roles, rec.FamilyID, nextTokenID)
}

// Logout revokes the session family named by a refresh token. Revoking a
// family that is already gone is not an error.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.families == nil {
		return ErrEngineNotReady
	}

	claims, err := e.codec.Decode(refreshToken)
	if err != nil || claims.Type != token.TypeRefresh || claims.FamilyID == "" {
		return ErrRefreshInvalid
	}

	return e.Revoke(ctx, claims.FamilyID)
}

// Revoke deletes a family record unconditionally. Idempotent.
func (e *Engine) Revoke(ctx context.Context, familyID string) error {
	if e == nil || e.families == nil {
		return ErrEngineNotReady
	}

	sctx, cancel := e.storeContext(ctx)
	defer cancel()
	if err := e.families.Revoke(sctx, familyID); err != nil {
		return e.storeError(err)
	}
	return nil
}

// RevokeAll logs the subject out of every device: all family records for
// subjectID are deleted, so every outstanding refresh token fails its next
// redemption. Outstanding access tokens remain valid until they expire.
func (e *Engine) RevokeAll(ctx context.Context, subjectID string) error {
	if e == nil || e.families == nil {
		return ErrEngineNotReady
	}
	if subjectID == "" {
		return ErrSubjectRequired
	}

	sctx, cancel := e.storeContext(ctx)
	defer cancel()
	if err := e.families.RevokeAllForSubject(sctx, subjectID); err != nil {
		return e.storeError(err)
	}
	return nil
}

// ActiveFamilies lists the live session family ids for a subject, one per
// logged-in device.
func (e *Engine) ActiveFamilies(ctx context.Context, subjectID string) ([]string, error) {
	if e == nil || e.families == nil {
		return nil, ErrEngineNotReady
	}
	if subjectID == "" {
		return nil, ErrSubjectRequired
	}

	sctx, cancel := e.storeContext(ctx)
	defer cancel()
	ids, err := e.families.FamilyIDs(sctx, subjectID)
	if err != nil {
		return nil, e.storeError(err)
	}
	return ids, nil
}

// Authorize validates an access token and checks its embedded role snapshot
// against requiredRole. It is a pure function of the token: no store access
// on the hot path, so a role revoked after issuance stays effective until
// the token expires (bounded by AccessTTL). An empty requiredRole only
// authenticates.
func (e *Engine) Authorize(accessToken, requiredRole string) (*AuthResult, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.codec.Decode(accessToken)
	if err != nil || claims.Type != token.TypeAccess || claims.Subject == "" {
		return nil, ErrUnauthorized
	}

	if requiredRole != "" && !hasRole(claims.Roles, requiredRole) {
		return nil, ErrPermissionDenied
	}

	return &AuthResult{
		SubjectID: claims.Subject,
		Roles:     claims.Roles,
	}, nil
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

func (e *Engine) mintPair(subjectID string, roles []string, familyID, tokenID string) (*TokenPair, error) {
	access, err := e.codec.Encode(token.AccessClaims(subjectID, roles, familyID), e.config.JWT.AccessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := e.codec.Encode(token.RefreshClaims(subjectID, familyID, tokenID), e.config.JWT.RefreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (e *Engine) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.Session.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.config.Session.StoreTimeout)
}

func (e *Engine) storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, family.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}
