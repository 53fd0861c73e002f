package console

import (
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/gwerrors"
	"github.com/go-playground/validator/v10"
)

var userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
var phonePattern = regexp.MustCompile(`^01[0-9]-\d{3,4}-\d{4}$`)

type patternRule struct {
	tag     string
	pattern *regexp.Regexp
}

var patternRules = []patternRule{
	{tag: "userid", pattern: userIDPattern},
	{tag: "phone", pattern: phonePattern},
}

func newValidator(rules ...patternRule) (*validator.Validate, error) {
	v := validator.New()
	// report the JSON names so that the UI can match the fields of its forms
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	for _, rule := range rules {
		pattern := rule.pattern
		err := v.RegisterValidation(rule.tag, func(fl validator.FieldLevel) bool {
			return pattern.MatchString(fl.Field().String())
		})
		if err != nil {
			return nil, fmt.Errorf("cannot register the %q validation: %w", rule.tag, err)
		}
	}
	return v, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "email":
		return "must be a valid email address"
	case "userid":
		return "may only contain letters, digits and underscores"
	case "phone":
		return "must have the format 010-1234-5678"
	default:
		return "is invalid"
	}
}

// validate checks a request body before it is forwarded, the failures are reported in
// the same shape as the validation errors of the user-account API.
func (s *Server) validate(body any) error {
	err := s.validator.Struct(body)
	if err == nil {
		return nil
	}
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := gwerrors.NewFieldErrors()
	for _, fe := range validationErrs {
		if _, exists := fields.Get(fe.Field()); exists {
			continue
		}
		fields.Set(fe.Field(), fieldMessage(fe))
	}
	return &gwerrors.APIError{
		Kind:    gwerrors.ErrValidation,
		Status:  http.StatusBadRequest,
		Message: "please check the highlighted fields",
		Fields:  fields,
	}
}
