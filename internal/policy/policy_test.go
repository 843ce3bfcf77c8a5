package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Freeeeeet/attendance_tracker/internal/apperr"
	"github.com/Freeeeeet/attendance_tracker/internal/model"
)

func TestAuthorize(t *testing.T) {
	const instA, instB = 1, 2

	student := model.Actor{UserID: 10, Role: model.RoleStudent, InstitutionID: instA}
	lecturer := model.Actor{UserID: 20, Role: model.RoleLecturer, InstitutionID: instA}
	admin := model.Actor{UserID: 30, Role: model.RoleAdmin, InstitutionID: instA}
	manager := model.Actor{UserID: 40, Role: model.RolePlatformManager}
	system := model.SystemActor(instA)

	ownRecord := Target{Resource: ResourceAttendance, InstitutionID: instA, StudentID: 10, LecturerIDs: []int64{20}}
	otherRecord := Target{Resource: ResourceAttendance, InstitutionID: instA, StudentID: 11, LecturerIDs: []int64{21}}
	foreignClass := Target{Resource: ResourceClass, InstitutionID: instB, LecturerIDs: []int64{20}}
	course := Target{Resource: ResourceCourse, InstitutionID: instA, LecturerIDs: []int64{20}}
	otherAdmin := Target{Resource: ResourceUser, InstitutionID: instA, OwnerID: 31, OwnerRole: model.RoleAdmin}
	self := Target{Resource: ResourceUser, InstitutionID: instA, OwnerID: 30, OwnerRole: model.RoleAdmin}

	tests := []struct {
		name   string
		actor  model.Actor
		action Action
		target Target
		reason string // empty means allowed
	}{
		{"student reads own record", student, ActionRead, ownRecord, ""},
		{"student appeals own record", student, ActionAppeal, ownRecord, ""},
		{"student cannot mark", student, ActionWrite, ownRecord, apperr.ReasonForbidden},
		{"student cannot read others", student, ActionRead, otherRecord, apperr.ReasonNotOwner},
		{"student other institution", student, ActionRead, Target{Resource: ResourceAttendance, InstitutionID: instB, StudentID: 10}, apperr.ReasonOtherInstitution},

		{"lecturer marks own class", lecturer, ActionWrite, ownRecord, ""},
		{"lecturer cannot mark other class", lecturer, ActionWrite, otherRecord, apperr.ReasonNotLecturer},
		{"lecturer cross institution", lecturer, ActionRead, foreignClass, apperr.ReasonOtherInstitution},
		{"lecturer reads assigned course", lecturer, ActionRead, course, ""},
		{"lecturer cannot touch appeals", lecturer, ActionRead, Target{Resource: ResourceAppeal, InstitutionID: instA, StudentID: 10}, apperr.ReasonForbidden},

		{"admin marks any record", admin, ActionWrite, otherRecord, ""},
		{"admin cross institution", admin, ActionRead, foreignClass, apperr.ReasonOtherInstitution},
		{"admin cannot modify other admin", admin, ActionWrite, otherAdmin, apperr.ReasonAdminTarget},
		{"admin reads other admin", admin, ActionRead, otherAdmin, ""},
		{"admin modifies self", admin, ActionWrite, self, ""},
		{"admin cannot file appeals", admin, ActionAppeal, ownRecord, apperr.ReasonForbidden},

		{"student reads semesters", student, ActionRead, Target{Resource: ResourceSemester, InstitutionID: instA}, ""},
		{"student cannot read institution report", student, ActionRead, Target{Resource: ResourceInstitution, InstitutionID: instA}, apperr.ReasonForbidden},
		{"lecturer cannot create semesters", lecturer, ActionWrite, Target{Resource: ResourceSemester, InstitutionID: instA}, apperr.ReasonForbidden},

		{"manager reads anything", manager, ActionRead, foreignClass, ""},
		{"manager cannot write", manager, ActionWrite, ownRecord, apperr.ReasonReadOnly},

		{"system writes attendance", system, ActionWrite, otherRecord, ""},
		{"system other institution", system, ActionWrite, foreignClass, apperr.ReasonOtherInstitution},
		{"system cannot touch users", system, ActionWrite, self, apperr.ReasonForbidden},

		{"unknown role", model.Actor{Role: "guest", InstitutionID: instA}, ActionRead, ownRecord, apperr.ReasonForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, tt.action, tt.target)
			if tt.reason == "" {
				assert.NoError(t, err)
				assert.True(t, Allowed(tt.actor, tt.action, tt.target))
				return
			}
			assert.True(t, apperr.Is(err, apperr.KindForbidden), "got %v", err)
			assert.Equal(t, tt.reason, apperr.ReasonOf(err))
		})
	}
}
