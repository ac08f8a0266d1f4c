package mutation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"groundops/internal/platform/apperror"
)

var half = decimal.RequireFromString("0.5")

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// issues collects field problems for one input, in the order they were found.
type issues []apperror.FieldIssue

func (is *issues) add(field, reason string) {
	*is = append(*is, apperror.FieldIssue{Field: field, Reason: reason})
}

func (is *issues) has(field string) bool {
	for _, i := range *is {
		if i.Field == field {
			return true
		}
	}
	return false
}

func (is issues) err(message string) error {
	if len(is) == 0 {
		return nil
	}
	return apperror.Invalid(message, is...)
}

// structIssues runs the tag rules and converts failures to field issues.
func structIssues(v *validator.Validate, input any) issues {
	var out issues
	err := v.Struct(input)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.add("", err.Error())
		return out
	}
	for _, fe := range verrs {
		out.add(fe.Field(), reasonFor(fe))
	}
	return out
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be a valid date in YYYY-MM-DD format"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

// validDuration accepts positive multiples of half a day.
func validDuration(d decimal.Decimal) bool {
	if d.LessThan(half) {
		return false
	}
	return d.Mod(half).IsZero()
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}
