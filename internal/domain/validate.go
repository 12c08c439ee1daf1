package domain

import (
	"github.com/go-playground/validator/v10"
)

// validate is the shared validator for request payloads.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s != "" && s == Slugify(s)
	})
}
