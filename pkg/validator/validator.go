package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	playground "github.com/go-playground/validator/v10"
	"github.com/vedran77/careteam/internal/domain"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

var (
	once     sync.Once
	validate *playground.Validate
)

func instance() *playground.Validate {
	once.Do(func() {
		validate = playground.New(playground.WithRequiredStructEnabled())
		// report fields by their JSON / form names
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
	return validate
}

// Struct runs the `validate` tags on s and returns one message per field.
func Struct(s any) ValidationErrors {
	errs := make(ValidationErrors)

	err := instance().Struct(s)
	if err == nil {
		return errs
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add("_", err.Error())
		return errs
	}
	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe playground.FieldError) string {
	label := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "uuid", "uuid4":
		return label + " must be a valid id"
	case "url", "http_url":
		return label + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return label + " is invalid"
	}
}

func humanize(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ValidateMessageType adds an error when t is not a known message type.
func ValidateMessageType(errs ValidationErrors, field, t string) domain.MessageType {
	mt, err := domain.ParseMessageType(t)
	if err != nil {
		errs.Add(field, "Message type must be one of: message, update, alert, announcement")
	}
	return mt
}

// ValidateReactionType adds an error when t is empty or longer than 32 characters.
func ValidateReactionType(errs ValidationErrors, field, t string) string {
	rt, err := domain.NormalizeReactionType(t)
	if err != nil {
		errs.Add(field, "Reaction type must be 1-32 characters")
	}
	return rt
}
