// Package policy holds the institution-scoping predicate applied to every
// read and write of the attendance core.
package policy

import (
	"slices"

	"github.com/Freeeeeet/attendance_tracker/internal/apperr"
	"github.com/Freeeeeet/attendance_tracker/internal/model"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionAppeal Action = "appeal"
)

type Resource string

const (
	ResourceAttendance  Resource = "attendance"
	ResourceAppeal      Resource = "appeal"
	ResourceClass       Resource = "class"
	ResourceCourse      Resource = "course"
	ResourceSemester    Resource = "semester"
	ResourceUser        Resource = "user"
	ResourceInstitution Resource = "institution"
)

// Target describes the row being touched. Only the fields relevant to the
// resource need to be set.
type Target struct {
	Resource      Resource
	InstitutionID int64
	// StudentID owns attendance records and appeals.
	StudentID int64
	// LecturerIDs are the lecturers responsible for a class or course.
	LecturerIDs []int64
	// OwnerID and OwnerRole describe a user row.
	OwnerID   int64
	OwnerRole model.Role
}

// Authorize returns nil when actor may perform action on target, and a
// Forbidden error carrying the denial reason otherwise.
func Authorize(actor model.Actor, action Action, target Target) error {
	switch actor.Role {
	case model.RolePlatformManager:
		if action == ActionRead {
			return nil
		}
		return deny(apperr.ReasonReadOnly, "platform managers have read-only access")

	case model.RoleSystem:
		if actor.InstitutionID != target.InstitutionID {
			return deny(apperr.ReasonOtherInstitution, "target belongs to another institution")
		}
		switch target.Resource {
		case ResourceAttendance, ResourceClass:
			if action == ActionAppeal {
				break
			}
			return nil
		}
		return deny(apperr.ReasonForbidden, "system actor cannot %s %s", action, target.Resource)

	case model.RoleAdmin:
		if actor.InstitutionID != target.InstitutionID {
			return deny(apperr.ReasonOtherInstitution, "target belongs to another institution")
		}
		if action == ActionAppeal {
			return deny(apperr.ReasonForbidden, "only students file appeals")
		}
		if action == ActionWrite && target.Resource == ResourceUser &&
			target.OwnerRole == model.RoleAdmin && target.OwnerID != actor.UserID {
			return deny(apperr.ReasonAdminTarget, "admins cannot modify other admins")
		}
		return nil

	case model.RoleLecturer:
		if actor.InstitutionID != target.InstitutionID {
			return deny(apperr.ReasonOtherInstitution, "target belongs to another institution")
		}
		switch target.Resource {
		case ResourceAttendance, ResourceClass:
			if action != ActionAppeal && slices.Contains(target.LecturerIDs, actor.UserID) {
				return nil
			}
			return deny(apperr.ReasonNotLecturer, "lecturer is not assigned to this class")
		case ResourceCourse:
			if action == ActionRead && slices.Contains(target.LecturerIDs, actor.UserID) {
				return nil
			}
			return deny(apperr.ReasonNotLecturer, "lecturer is not assigned to this course")
		case ResourceUser:
			if action == ActionRead && target.OwnerID == actor.UserID {
				return nil
			}
		case ResourceSemester:
			if action == ActionRead {
				return nil
			}
		}
		return deny(apperr.ReasonForbidden, "lecturer cannot %s %s", action, target.Resource)

	case model.RoleStudent:
		if actor.InstitutionID != target.InstitutionID {
			return deny(apperr.ReasonOtherInstitution, "target belongs to another institution")
		}
		switch target.Resource {
		case ResourceAttendance, ResourceAppeal:
			if target.StudentID != actor.UserID {
				return deny(apperr.ReasonNotOwner, "record belongs to another student")
			}
			if action == ActionRead || action == ActionAppeal {
				return nil
			}
		case ResourceUser:
			if action == ActionRead && target.OwnerID == actor.UserID {
				return nil
			}
		case ResourceSemester:
			if action == ActionRead {
				return nil
			}
		}
		return deny(apperr.ReasonForbidden, "student cannot %s %s", action, target.Resource)
	}

	return deny(apperr.ReasonForbidden, "unknown role %q", actor.Role)
}

// Allowed is the boolean form of Authorize.
func Allowed(actor model.Actor, action Action, target Target) bool {
	return Authorize(actor, action, target) == nil
}

func deny(reason, format string, args ...any) error {
	return apperr.Forbidden(reason, format, args...)
}
