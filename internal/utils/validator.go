package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	alphaNumUnderscore = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	gistID             = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
)

type SitekitValidator struct {
	v *validator.Validate
}

func NewValidator() *SitekitValidator {
	v := validator.New()
	_ = v.RegisterValidation("alphanumunderscore", validateAlphaNumUnderscore)
	_ = v.RegisterValidation("gistid", validateGistID)
	return &SitekitValidator{v}
}

func (cv *SitekitValidator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// IsGistID reports whether s looks like a gist identifier.
func (cv *SitekitValidator) IsGistID(s string) bool {
	return cv.v.Var(s, "required,gistid") == nil
}

func ValidationMessages(err *error) string {
	errs, ok := (*err).(validator.ValidationErrors)
	if !ok {
		return (*err).Error()
	}
	messages := make([]string, len(errs))
	for i, e := range errs {
		switch e.Tag() {
		case "required":
			messages[i] = e.Field() + " should not be empty"
		case "url":
			messages[i] = e.Field() + " should be an absolute URL"
		case "min", "gt":
			messages[i] = e.Field() + " is too small"
		case "max":
			messages[i] = e.Field() + " is too large"
		case "alphanumunderscore":
			messages[i] = e.Field() + " should only contain alphanumeric characters and underscores"
		case "gistid":
			messages[i] = e.Field() + " is not a gist identifier"
		default:
			messages[i] = "Invalid " + e.Field()
		}
	}

	return strings.Join(messages, " ; ")
}

func validateAlphaNumUnderscore(fl validator.FieldLevel) bool {
	return alphaNumUnderscore.MatchString(fl.Field().String())
}

func validateGistID(fl validator.FieldLevel) bool {
	return gistID.MatchString(fl.Field().String())
}
