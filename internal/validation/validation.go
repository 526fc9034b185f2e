// Package validation wraps go-playground/validator and reports every failing
// field as an apperr.Violation keyed by its JSON name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/memohai/roastery/internal/apperr"
)

var (
	instance *validator.Validate
	once     sync.Once
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})
		instance = v
	})
	return instance
}

// Struct validates s and returns one violation per failing field, in declaration order.
func Struct(s any) []apperr.Violation {
	err := get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperr.Violation{{Field: "", Message: err.Error()}}
	}
	out := make([]apperr.Violation, 0, len(verrs))
	seen := make(map[string]struct{}, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		out = append(out, apperr.Violation{Field: field, Message: message(fe)})
	}
	return out
}

// Var validates a single value against tag, labelling any violation with field.
func Var(field string, value any, tag string) *apperr.Violation {
	err := get().Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &apperr.Violation{Field: field, Message: message(verrs[0])}
	}
	return &apperr.Violation{Field: field, Message: err.Error()}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "url", "http_url":
		return "must be a valid URL"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
