package handlers

import (
	"errors"
	"fmt"

	"github.com/Freeeeeet/attendance_tracker/internal/apperr"
)

var errUsage = errors.New("usage")

// usageError carries the help line for a malformed command.
type usageError struct {
	usage string
	cause error
}

func (e *usageError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.usage, e.cause)
	}
	return e.usage
}

func (e *usageError) Is(target error) bool { return target == errUsage }

func usage(line string, cause error) error {
	return &usageError{usage: line, cause: cause}
}

var reasonTexts = map[string]string{
	apperr.ReasonUnauthorized:     "❌ You can only appeal your own attendance.",
	apperr.ReasonIneligibleStatus: "❌ Only absent or late marks can be appealed.",
	apperr.ReasonDuplicate:        "❌ This already exists.",
	apperr.ReasonWindowClosed:     "⏰ The appeal window for this class has closed.",
	apperr.ReasonImmutable:        "❌ This can no longer be changed.",
	apperr.ReasonInvalidStatus:    "❌ Unknown status. Use present, absent, late, excused or unmarked.",
	apperr.ReasonReadOnly:         "❌ Your account has read-only access.",
	apperr.ReasonOtherInstitution: "❌ This belongs to another institution.",
	apperr.ReasonNotOwner:         "❌ This belongs to another student.",
	apperr.ReasonNotLecturer:      "❌ You do not teach this class.",
	apperr.ReasonAdminTarget:      "❌ Admins cannot change other admins.",
}

// ErrorText maps a service error to the reply shown in chat.
func ErrorText(err error) string {
	var ue *usageError
	if errors.As(err, &ue) {
		return "ℹ️ Usage: " + ue.usage
	}

	if text, ok := reasonTexts[apperr.ReasonOf(err)]; ok {
		return text
	}

	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return "❌ Not found."
	case apperr.KindForbidden:
		return "❌ You do not have access to this."
	case apperr.KindConflict:
		return "❌ This conflicts with existing data."
	case apperr.KindInvalidInput:
		var e *apperr.Error
		if errors.As(err, &e) && e.Message != "" {
			return "❌ " + e.Message
		}
		return "❌ Invalid input."
	case apperr.KindIneligible:
		return "❌ Not allowed in the current state."
	case apperr.KindTransient:
		return "⚠️ Service is busy. Please try again."
	default:
		return "❌ Something went wrong. Please try again later."
	}
}

func notLinkedText(telegramID int64) string {
	return fmt.Sprintf(
		"👋 Your Telegram account is not linked yet.\n\n"+
			"Ask your institution admin to link Telegram ID %d to your profile.",
		telegramID,
	)
}
