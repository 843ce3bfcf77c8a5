package model

import "time"

type AppealStatus string

const (
	AppealStatusPending  AppealStatus = "pending"
	AppealStatusApproved AppealStatus = "approved"
	AppealStatusRejected AppealStatus = "rejected"
)

func (s AppealStatus) Valid() bool {
	switch s {
	case AppealStatusPending, AppealStatusApproved, AppealStatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal is true once an admin has decided the appeal.
func (s AppealStatus) IsTerminal() bool {
	return s == AppealStatusApproved || s == AppealStatusRejected
}

type Appeal struct {
	ID           int64        `json:"id"`
	AttendanceID int64        `json:"attendance_id"`
	StudentID    int64        `json:"student_id"`
	Reason       string       `json:"reason"`
	Status       AppealStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	DecidedBy    *int64       `json:"decided_by"`
	DecidedAt    *time.Time   `json:"decided_at"`

	// Filled by joined reads.
	InstitutionID int64     `json:"institution_id"`
	ClassID       int64     `json:"class_id"`
	ClassStart    time.Time `json:"class_start"`
}

func (a *Appeal) IsPending() bool {
	return a.Status == AppealStatusPending
}
