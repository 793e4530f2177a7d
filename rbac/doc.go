// Package rbac holds the authoritative role and assignment directory
// consulted at token issuance and refresh. The engine only reads role
// snapshots from it; administrative mutation (create, update, delete,
// assign, unassign) belongs to the surrounding service.
package rbac
