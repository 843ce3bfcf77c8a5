package service

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/Freeeeeet/attendance_tracker/internal/apperr"
	"github.com/Freeeeeet/attendance_tracker/internal/model"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	notBlankTag         = "notblank"
	attendanceStatusTag = "attendance_status"
	storedRoleTag       = "stored_role"
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	locale := en.New()
	uni := ut.New(locale, locale)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// report json names, not Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation(attendanceStatusTag, func(fl validator.FieldLevel) bool {
		return model.AttendanceStatus(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation(storedRoleTag, func(fl validator.FieldLevel) bool {
		return model.Role(fl.Field().String()).Valid()
	})

	messages := map[string]string{
		notBlankTag:         "{0} cannot be blank",
		attendanceStatusTag: "{0} is not a known attendance status",
		storedRoleTag:       "{0} is not a known role",
	}
	for tag, text := range messages {
		_ = validate.RegisterTranslation(tag, translator,
			func(t ut.Translator) error { return t.Add(tag, text, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T(fe.Tag(), fe.Field())
				return msg
			},
		)
	}
}

// validateInput runs struct validation and folds field errors into a single
// InvalidInput error with stable field order.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Invalid("%v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Translate(translator))
	}
	sort.Strings(msgs)
	return apperr.Invalid("%s", strings.Join(msgs, "; "))
}
