package authcore

import (
	"context"
	"errors"
	"testing"

	"github.com/ostraca/authcore/rbac"
)

// A role granted after issuance reaches the subject on the next refresh,
// not before: access tokens carry a snapshot, never a live lookup.
func TestRoleGrantVisibleAfterRefresh(t *testing.T) {
	engine, dir, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	pair, err := engine.Issue(ctx, "alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := dir.AssignByName("alice", "admin"); err != nil {
		t.Fatalf("AssignByName failed: %v", err)
	}

	if _, err := engine.Authorize(pair.AccessToken, "admin"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("stale token must not see the new role, got %v", err)
	}

	refreshed, err := engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := engine.Authorize(refreshed.AccessToken, "admin"); err != nil {
		t.Fatalf("refreshed token must carry the new role: %v", err)
	}
}

func TestRoleRevocationVisibleAfterRefresh(t *testing.T) {
	engine, dir, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	pair, err := engine.Issue(ctx, "alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := dir.UnassignByName("alice", "user"); err != nil {
		t.Fatalf("UnassignByName failed: %v", err)
	}

	// The already-issued token keeps the role until it expires or rotates.
	if _, err := engine.Authorize(pair.AccessToken, "user"); err != nil {
		t.Fatalf("stale token must keep its snapshot: %v", err)
	}

	refreshed, err := engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := engine.Authorize(refreshed.AccessToken, "user"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("refreshed token must drop the role, got %v", err)
	}
}

func TestDeleteAssignedRoleRejectedWhileTokenLive(t *testing.T) {
	engine, dir, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	pair, err := engine.Issue(ctx, "alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	var userRole rbac.Role
	for _, role := range dir.ListRoles() {
		if role.Name == "user" {
			userRole = role
		}
	}
	if userRole.ID == "" {
		t.Fatal("user role missing from directory")
	}

	if err := dir.DeleteRole(userRole.ID); !errors.Is(err, rbac.ErrRoleAssigned) {
		t.Fatalf("expected ErrRoleAssigned, got %v", err)
	}

	// The live token is unaffected either way.
	if _, err := engine.Authorize(pair.AccessToken, "user"); err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}

	if err := dir.UnassignByName("alice", "user"); err != nil {
		t.Fatalf("UnassignByName failed: %v", err)
	}
	if err := dir.DeleteRole(userRole.ID); err != nil {
		t.Fatalf("DeleteRole failed: %v", err)
	}

	// Snapshot semantics again: the deleted role name still authorizes the
	// stale token until its next rotation.
	if _, err := engine.Authorize(pair.AccessToken, "user"); err != nil {
		t.Fatalf("stale token must keep its snapshot: %v", err)
	}
	refreshed, err := engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := engine.Authorize(refreshed.AccessToken, "user"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("refreshed token must drop the deleted role, got %v", err)
	}
}
