package model

import "time"

type Role string

const (
	RoleStudent         Role = "student"
	RoleLecturer        Role = "lecturer"
	RoleAdmin           Role = "admin"
	RolePlatformManager Role = "platform_manager"
	// RoleSystem is never persisted; it identifies in-process producers such as
	// the recognition pipeline and the scheduler.
	RoleSystem Role = "system"
)

// Valid reports whether r may be stored on a user row.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleLecturer, RoleAdmin, RolePlatformManager:
		return true
	default:
		return false
	}
}

type User struct {
	ID            int64     `json:"id"`
	InstitutionID int64     `json:"institution_id"` // 0 for platform managers
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          Role      `json:"role"`
	TelegramID    *int64    `json:"telegram_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func (u *User) IsStudent() bool  { return u.Role == RoleStudent }
func (u *User) IsLecturer() bool { return u.Role == RoleLecturer }
func (u *User) IsAdmin() bool    { return u.Role == RoleAdmin }

// Actor returns the authorization context for requests made by u.
func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, Role: u.Role, InstitutionID: u.InstitutionID}
}

// Actor is the caller identity every core operation is evaluated against.
type Actor struct {
	UserID        int64 `json:"user_id"`
	Role          Role  `json:"role"`
	InstitutionID int64 `json:"institution_id"`
}

// SystemActor is used by trusted in-process producers scoped to one institution.
func SystemActor(institutionID int64) Actor {
	return Actor{Role: RoleSystem, InstitutionID: institutionID}
}
