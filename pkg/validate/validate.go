// Package validate wraps go-playground/validator with the service's custom
// rules and maps failures onto apperr.ErrValidation.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/paymint/paymint/pkg/apperr"
)

// Letters (Turkish included), digits, whitespace and . , -
var descriptionPattern = regexp.MustCompile(`^[a-zA-Z0-9\sğüşıöçĞÜŞİÖÇ.,-]+$`)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("paydesc", func(fl validator.FieldLevel) bool {
			return descriptionPattern.MatchString(fl.Field().String())
		})
	})
	return v
}

// Struct validates s and reports the first failing field as a validation error.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("%v", err)
	}
	return apperr.Validation("%s", message(verrs[0]))
}

func message(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "http_url", "url":
		return fmt.Sprintf("%s must be an absolute http(s) url", field)
	case "paydesc":
		return fmt.Sprintf("%s contains invalid characters", field)
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
