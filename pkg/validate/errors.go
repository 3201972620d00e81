package validate

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Errors maps a field name to its messages, in the order they were added.
// It is the shape written under "errors" or "validation" in responses.
type Errors map[string][]string

// Add appends msg to field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Has reports whether field has at least one message.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// Empty reports whether no field has a message.
func (e Errors) Empty() bool {
	return len(e) == 0
}

// Merge copies every message in other into e.
func (e Errors) Merge(other Errors) {
	for field, msgs := range other {
		for _, m := range msgs {
			e.Add(field, m)
		}
	}
}

// Error joins the messages deterministically, sorted by field.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f)
		b.WriteString(": ")
		b.WriteString(strings.Join(e[f], " "))
	}
	return b.String()
}

// From converts err into Errors. ozzo validation.Errors are split per field,
// an Errors value is returned as is, and anything else gives ok=false.
func From(err error) (Errors, bool) {
	if err == nil {
		return nil, false
	}

	var own Errors
	if errors.As(err, &own) {
		return own, true
	}

	var ve validation.Errors
	if !errors.As(err, &ve) {
		return nil, false
	}

	out := make(Errors, len(ve))
	for field, fe := range ve {
		if fe == nil {
			continue
		}
		out.Add(field, fe.Error())
	}
	return out, true
}

// Cause unwraps an ozzo internal error, such as a failed Unique lookup, to
// the error that caused it. Other errors are returned unchanged.
func Cause(err error) error {
	var ie validation.InternalError
	if errors.As(err, &ie) && ie.InternalError() != nil {
		return ie.InternalError()
	}
	return err
}
