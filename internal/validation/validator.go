package validation

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const MinProjectYear = 1900

// Categories is the fixed set of project categories.
var Categories = []string{"空间设计", "专项游学", "展览策划"}

type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

func New() *Validator {
	return NewWithClock(time.Now)
}

// NewWithClock builds a validator whose "projectyear" upper bound follows now.
func NewWithClock(now func() time.Time) *Validator {
	v := validator.New()
	val := &Validator{v: v, now: now}

	// Report JSON names so error messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return IsCategory(value)
	})

	v.RegisterValidation("projectyear", func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.Int, reflect.Int32, reflect.Int64:
			return val.ValidYear(int(fl.Field().Int()))
		default:
			return false
		}
	})

	return val
}

func (v *Validator) Struct(s interface{}) error {
	return v.v.Struct(s)
}

func (v *Validator) ValidationErrors(err error) validator.ValidationErrors {
	if err == nil {
		return nil
	}
	if ve, ok := err.(validator.ValidationErrors); ok {
		return ve
	}
	return nil
}

func (v *Validator) CurrentYear() int {
	return v.now().Year()
}

func (v *Validator) ValidYear(year int) bool {
	return year >= MinProjectYear && year <= v.CurrentYear()
}

func IsCategory(value string) bool {
	for _, c := range Categories {
		if c == value {
			return true
		}
	}
	return false
}
