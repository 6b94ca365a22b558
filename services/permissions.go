package services

import (
	"case_track_go/models"
)

// Transition identifies a role-gated state machine operation.
type Transition string

const (
	TransitionCreateCaseFile     Transition = "create_case_file"
	TransitionUpdateCaseFile     Transition = "update_case_file"
	TransitionCloseCaseFile      Transition = "close_case_file"
	TransitionReopenCaseFile     Transition = "reopen_case_file"
	TransitionSoftDeleteCaseFile Transition = "soft_delete_case_file"
	TransitionAppendMovement     Transition = "append_movement"
	TransitionUpdateMovement     Transition = "update_movement"
	TransitionSoftDeleteMovement Transition = "soft_delete_movement"
)

// transitionRoles is the full role x transition matrix. Permission checks are
// table lookups, not scattered conditionals, so the matrix can be tested
// exhaustively.
var transitionRoles = map[Transition]map[string]bool{
	TransitionCreateCaseFile: {
		models.RoleAdmin:      true,
		models.RoleSupervisor: true,
		models.RoleOperator:   true,
	},
	TransitionUpdateCaseFile: {
		models.RoleAdmin:      true,
		models.RoleSupervisor: true,
	},
	TransitionCloseCaseFile: {
		models.RoleSupervisor: true,
	},
	TransitionReopenCaseFile: {
		models.RoleSupervisor: true,
	},
	TransitionSoftDeleteCaseFile: {
		models.RoleAdmin:      true,
		models.RoleSupervisor: true,
	},
	TransitionAppendMovement: {
		models.RoleAdmin:      true,
		models.RoleSupervisor: true,
		models.RoleOperator:   true,
	},
	TransitionUpdateMovement: {
		models.RoleAdmin:      true,
		models.RoleSupervisor: true,
	},
	TransitionSoftDeleteMovement: {
		models.RoleAdmin:      true,
		models.RoleSupervisor: true,
	},
}

// CanPerform reports whether the role may attempt the given transition.
// Unknown roles and unknown transitions are always denied.
func CanPerform(role string, transition Transition) bool {
	roles, ok := transitionRoles[transition]
	if !ok {
		return false
	}
	return roles[role]
}

// CanViewDeleted reports whether the role may see retired case files and
// soft-deleted movements. Deleting and exhuming are different privileges:
// admins may delete, only supervisors may look at what was deleted.
func CanViewDeleted(role string) bool {
	return role == models.RoleSupervisor
}

// CanEditDeletedMovement reports whether the role may edit a movement that is
// itself soft-deleted (the override privilege).
func CanEditDeletedMovement(role string) bool {
	return role == models.RoleSupervisor
}

// CanViewUserActivity reports whether the requester may read another user's
// activity report. Admins and supervisors see anyone; users see themselves.
func CanViewUserActivity(requesterRole string, requesterID, targetID uint) bool {
	if requesterRole == models.RoleAdmin || requesterRole == models.RoleSupervisor {
		return true
	}
	return requesterID == targetID
}
