package student

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahudhurio/core"
)

var (
	beforeTodayTag  = "beforetoday"
	beforeTodayText = "date must be before today"
)

// InitValidators registers the student validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(beforeTodayTag, beforeTodayValidation)
	core.RegisterCustomTranslation(validate, translator, beforeTodayTag, beforeTodayText)
}

func beforeTodayValidation(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if _, err := time.Parse(core.DateLayout, str); err != nil {
		return false
	}
	return str < core.Today()
}
