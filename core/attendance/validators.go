package attendance

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahudhurio/core"
)

var (
	statusTag  = "attstatus"
	statusText = "invalid attendance status"

	notFutureTag  = "notfuture"
	notFutureText = "date cannot be in the future"

	invalidStudentText = "invalid student selected"

	// NowFunc is mockable.
	NowFunc = time.Now
)

// InitValidators registers the attendance validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	_ = validate.RegisterValidation(notFutureTag, notFutureValidation)
	core.RegisterCustomTranslation(validate, translator, notFutureTag, notFutureText)
}

// Custom Validators

func statusValidation(fl validator.FieldLevel) bool {
	if status, ok := fl.Field().Interface().(Status); ok {
		return status.Valid()
	}
	return false
}

// notFutureValidation checks that a YYYY-MM-DD date is not after the server's current date.
func notFutureValidation(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if _, err := time.Parse(core.DateLayout, str); err != nil {
		return false
	}
	// same layout: lexical order is chronological order
	return str <= NowFunc().Format(core.DateLayout)
}
