package rbac

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrRoleNotFound is returned when a role id or name is unknown.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleExists is returned when a role name is already taken.
	ErrRoleExists = errors.New("role already exists")
	// ErrRoleAssigned is returned when deleting a role that still has live
	// assignments. Callers must unassign explicitly first; deletion never
	// cascades.
	ErrRoleAssigned = errors.New("role has live assignments")
	// ErrAlreadyAssigned is returned when assigning a role a subject holds.
	ErrAlreadyAssigned = errors.New("role already assigned")
	// ErrNotAssigned is returned when unassigning a role a subject lacks.
	ErrNotAssigned = errors.New("role not assigned")
)

// Role is a named capability label. Names are unique within a Directory;
// a subject may hold any number of roles.
type Role struct {
	ID          string
	Name        string
	Description string
}

// Directory is the authoritative in-memory role and assignment store.
// All methods are safe for concurrent use.
//
// Tokens embed a role snapshot at issuance, so a change recorded here only
// reaches a subject's access token on its next refresh.
type Directory struct {
	mu          sync.RWMutex
	rolesByID   map[string]Role
	idByName    map[string]string
	assignments map[string]map[string]struct{} // subject id -> role id set
}

// NewDirectory returns an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		rolesByID:   make(map[string]Role),
		idByName:    make(map[string]string),
		assignments: make(map[string]map[string]struct{}),
	}
}

// CreateRole registers a new role under a unique name.
func (d *Directory) CreateRole(name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("role name empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.idByName[name]; exists {
		return Role{}, ErrRoleExists
	}

	role := Role{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
	}
	d.rolesByID[role.ID] = role
	d.idByName[name] = role.ID

	return role, nil
}

// UpdateRole renames a role or changes its description. The new name must
// stay unique. Already-issued tokens keep the old name until they expire.
func (d *Directory) UpdateRole(id, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("role name empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	role, ok := d.rolesByID[id]
	if !ok {
		return Role{}, ErrRoleNotFound
	}
	if other, exists := d.idByName[name]; exists && other != id {
		return Role{}, ErrRoleExists
	}

	delete(d.idByName, role.Name)
	role.Name = name
	role.Description = description
	d.rolesByID[id] = role
	d.idByName[name] = id

	return role, nil
}

// DeleteRole removes an unassigned role. Roles with live assignments are
// rejected with ErrRoleAssigned.
func (d *Directory) DeleteRole(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	role, ok := d.rolesByID[id]
	if !ok {
		return ErrRoleNotFound
	}

	for _, held := range d.assignments {
		if _, assigned := held[id]; assigned {
			return ErrRoleAssigned
		}
	}

	delete(d.rolesByID, id)
	delete(d.idByName, role.Name)
	return nil
}

// Assign grants a role to a subject.
func (d *Directory) Assign(subjectID, roleID string) error {
	if subjectID == "" {
		return errors.New("subject id empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.rolesByID[roleID]; !ok {
		return ErrRoleNotFound
	}

	held, ok := d.assignments[subjectID]
	if !ok {
		held = make(map[string]struct{})
		d.assignments[subjectID] = held
	}
	if _, assigned := held[roleID]; assigned {
		return ErrAlreadyAssigned
	}

	held[roleID] = struct{}{}
	return nil
}

// AssignByName grants a role to a subject by role name.
func (d *Directory) AssignByName(subjectID, roleName string) error {
	d.mu.RLock()
	id, ok := d.idByName[roleName]
	d.mu.RUnlock()
	if !ok {
		return ErrRoleNotFound
	}
	return d.Assign(subjectID, id)
}

// UnassignByName removes a role from a subject by role name.
func (d *Directory) UnassignByName(subjectID, roleName string) error {
	d.mu.RLock()
	id, ok := d.idByName[roleName]
	d.mu.RUnlock()
	if !ok {
		return ErrRoleNotFound
	}
	return d.Unassign(subjectID, id)
}

// Unassign removes a role from a subject.
func (d *Directory) Unassign(subjectID, roleID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.rolesByID[roleID]; !ok {
		return ErrRoleNotFound
	}

	held, ok := d.assignments[subjectID]
	if !ok {
		return ErrNotAssigned
	}
	if _, assigned := held[roleID]; !assigned {
		return ErrNotAssigned
	}

	delete(held, roleID)
	if len(held) == 0 {
		delete(d.assignments, subjectID)
	}
	return nil
}

// RolesOf returns the subject's current role names, sorted. The context
// parameter keeps the signature aligned with store-backed implementations.
func (d *Directory) RolesOf(_ context.Context, subjectID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	held, ok := d.assignments[subjectID]
	if !ok {
		return []string{}, nil
	}

	names := make([]string, 0, len(held))
	for id := range held {
		names = append(names, d.rolesByID[id].Name)
	}
	sort.Strings(names)
	return names, nil
}

// GetRole looks up a role by id.
func (d *Directory) GetRole(id string) (Role, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	role, ok := d.rolesByID[id]
	return role, ok
}

// ListRoles returns all roles sorted by name.
func (d *Directory) ListRoles() []Role {
	d.mu.RLock()
	defer d.mu.RUnlock()

	roles := make([]Role, 0, len(d.rolesByID))
	for _, role := range d.rolesByID {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles
}
