package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var timeOfDayLayouts = []string{"15:04:05", "15:04"}

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
	ValidateField(field string, value interface{}, rules ...string) error
}

type playground struct {
	v *validator.Validate
}

func New() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// timeofday accepts HH:MM and HH:MM:SS.
	_ = v.RegisterValidation("timeofday", func(fl validator.FieldLevel) bool {
		for _, layout := range timeOfDayLayouts {
			if _, err := time.Parse(layout, fl.Field().String()); err == nil {
				return true
			}
		}
		return false
	})
	return &playground{v: v}
}

func (p *playground) Validate(obj interface{}) error {
	return describe(p.v.Struct(obj), "")
}

func (p *playground) ValidateField(field string, value interface{}, rules ...string) error {
	return describe(p.v.Var(value, strings.Join(rules, ",")), field)
}

// describe turns the first validation failure into a readable error.
func describe(err error, field string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	name := field
	if name == "" {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", name)
	case "email":
		return fmt.Errorf("%s must be a valid email", name)
	case "min":
		return fmt.Errorf("%s must be at least %s characters long", name, fe.Param())
	case "max":
		return fmt.Errorf("%s must not exceed %s characters", name, fe.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", name, fe.Param())
	case "datetime":
		return fmt.Errorf("%s must be a date in YYYY-MM-DD format", name)
	case "timeofday":
		return fmt.Errorf("%s must be a time in HH:MM or HH:MM:SS format", name)
	default:
		return fmt.Errorf("%s failed %s validation", name, fe.Tag())
	}
}
