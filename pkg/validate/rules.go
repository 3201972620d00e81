package validate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// label turns a field key like "confirm_password" into "confirm password".
func label(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

// Messages overrides rule messages for one endpoint, keyed "field.rule"
// ("email.unique", "confirm_password.same"). Keys it does not name keep the
// generic wording. Integer reports under "integer", "min" and "max".
type Messages map[string]string

func (m Messages) pick(field, rule, def string) string {
	if s, ok := m[field+"."+rule]; ok {
		return s
	}
	return def
}

// Required rejects absent, null, and blank values.
func Required(field string) validation.Rule { return Messages(nil).Required(field) }

// String rejects values that were supplied but are not strings.
func String(field string) validation.Rule { return Messages(nil).String(field) }

// Min requires at least n characters.
func Min(field string, n int) validation.Rule { return Messages(nil).Min(field, n) }

// Max allows at most n characters.
func Max(field string, n int) validation.Rule { return Messages(nil).Max(field, n) }

// Email requires a syntactically valid address.
func Email(field string) validation.Rule { return Messages(nil).Email(field) }

// Same requires the value to equal other's current value.
func Same(field, otherField string, other Text) validation.Rule {
	return Messages(nil).Same(field, otherField, other)
}

// Integer requires a base-10 integer between minVal and maxVal inclusive.
// maxVal <= 0 disables the upper bound.
func Integer(field string, minVal, maxVal int) validation.Rule {
	return Messages(nil).Integer(field, minVal, maxVal)
}

// Unique reports a taken value when taken returns true. Lookups run only
// for non-empty strings, so pair it after the shape rules.
func Unique(field string, taken func(string) (bool, error)) validation.Rule {
	return Messages(nil).Unique(field, taken)
}

// TakenMessage is the message Unique produces, for callers that detect the
// conflict at write time instead.
func TakenMessage(field string) string { return Messages(nil).Taken(field) }

func (m Messages) Required(field string) validation.Rule {
	return validation.Required.Error(m.pick(field, "required",
		fmt.Sprintf("The %s field is required.", label(field))))
}

func (m Messages) String(field string) validation.Rule {
	msg := m.pick(field, "string", fmt.Sprintf("The %s field must be a string.", label(field)))
	return validation.By(func(value interface{}) error {
		v, isNil := validation.Indirect(value)
		if isNil || v == nil {
			return nil
		}
		if _, ok := v.(string); !ok {
			return errors.New(msg)
		}
		return nil
	})
}

func (m Messages) Min(field string, n int) validation.Rule {
	return validation.RuneLength(n, 0).Error(m.pick(field, "min",
		fmt.Sprintf("The %s field must be at least %d characters.", label(field), n)))
}

func (m Messages) Max(field string, n int) validation.Rule {
	return validation.RuneLength(0, n).Error(m.pick(field, "max",
		fmt.Sprintf("The %s field must not be greater than %d characters.", label(field), n)))
}

func (m Messages) Email(field string) validation.Rule {
	return is.Email.Error(m.pick(field, "email",
		fmt.Sprintf("The %s field must be a valid email address.", label(field))))
}

func (m Messages) Same(field, otherField string, other Text) validation.Rule {
	msg := m.pick(field, "same",
		fmt.Sprintf("The %s field must match %s.", label(field), label(otherField)))
	return validation.By(func(value interface{}) error {
		v, isNil := validation.Indirect(value)
		if isNil || v == nil {
			return nil
		}
		s, ok := v.(string)
		if !ok || s != other.String() || !other.IsString() {
			return errors.New(msg)
		}
		return nil
	})
}

func (m Messages) Integer(field string, minVal, maxVal int) validation.Rule {
	name := label(field)
	notInt := errors.New(m.pick(field, "integer", fmt.Sprintf("The %s field must be an integer.", name)))
	tooSmall := errors.New(m.pick(field, "min", fmt.Sprintf("The %s field must be at least %d.", name, minVal)))
	tooBig := errors.New(m.pick(field, "max", fmt.Sprintf("The %s field must not be greater than %d.", name, maxVal)))

	return validation.By(func(value interface{}) error {
		v, isNil := validation.Indirect(value)
		if isNil || v == nil {
			return nil
		}

		var n int
		switch x := v.(type) {
		case string:
			if strings.TrimSpace(x) == "" {
				return nil
			}
			parsed, err := strconv.Atoi(strings.TrimSpace(x))
			if err != nil {
				return notInt
			}
			n = parsed
		case float64:
			if x != float64(int(x)) {
				return notInt
			}
			n = int(x)
		default:
			return notInt
		}

		if n < minVal {
			return tooSmall
		}
		if maxVal > 0 && n > maxVal {
			return tooBig
		}
		return nil
	})
}

func (m Messages) Unique(field string, taken func(string) (bool, error)) validation.Rule {
	msg := m.Taken(field)
	return validation.By(func(value interface{}) error {
		v, isNil := validation.Indirect(value)
		if isNil || v == nil {
			return nil
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return nil
		}

		exists, err := taken(s)
		if err != nil {
			return validation.NewInternalError(err)
		}
		if exists {
			return errors.New(msg)
		}
		return nil
	})
}

// Taken is the "field.unique" message.
func (m Messages) Taken(field string) string {
	return m.pick(field, "unique", fmt.Sprintf("The %s has already been taken.", label(field)))
}
