package auth

import (
	"github.com/google/uuid"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/database/models"
)

type Resource string

const (
	ResourceClient   Resource = "client"
	ResourceDocument Resource = "document"
	ResourceTask     Resource = "task"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// rule lists the roles allowed to perform an action. A nil roles set means
// any authenticated member of the organization. ownerOverride grants the
// action to the record's owner even when their role is not listed.
type rule struct {
	roles         []models.Role
	ownerOverride bool
}

var managersOnly = []models.Role{models.RoleAdmin, models.RoleManager}

var policy = map[Resource]map[Action]rule{
	ResourceClient: {
		ActionRead:   {},
		ActionCreate: {roles: managersOnly},
		ActionUpdate: {roles: managersOnly},
		ActionDelete: {roles: managersOnly},
	},
	ResourceDocument: {
		ActionRead:   {},
		ActionCreate: {},
		ActionUpdate: {roles: managersOnly, ownerOverride: true},
		ActionDelete: {roles: managersOnly, ownerOverride: true},
	},
	ResourceTask: {
		ActionRead:   {},
		ActionCreate: {},
		ActionUpdate: {},
		ActionDelete: {roles: managersOnly},
	},
}

// Can reports whether the role may perform the action on the resource.
// Unknown resource/action pairs are denied.
func Can(role models.Role, resource Resource, action Action) bool {
	r, ok := policy[resource][action]
	if !ok {
		return false
	}
	if r.roles == nil {
		return true
	}
	for _, allowed := range r.roles {
		if role == allowed {
			return true
		}
	}
	return false
}

// CanAsOwner is Can with the owner escape hatch: actorID matching ownerID
// satisfies rules flagged with ownerOverride.
func CanAsOwner(role models.Role, resource Resource, action Action, actorID, ownerID uuid.UUID) bool {
	if Can(role, resource, action) {
		return true
	}
	r, ok := policy[resource][action]
	if !ok {
		return false
	}
	return r.ownerOverride && actorID == ownerID
}
