package http

import (
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/validate"
)

const msgMalformedBody = "The request body must be valid JSON."

var textType = reflect.TypeOf(validate.Text{})

// bind fills dst, a pointer to a struct of validate.Text fields, from the
// request body. JSON is decoded directly; form bodies are matched by json
// tag. A malformed body is answered with the endpoint's invalid shape and
// bind returns false.
func (e *errorWriter) bind(w http.ResponseWriter, r *http.Request, shape invalidShape, dst any) bool {
	if httpx.IsJSON(r) {
		if err := httpx.DecodeJSON(r, dst); err != nil {
			fields := validate.Errors{}
			fields.Add("body", msgMalformedBody)
			e.invalid(w, shape, fields)
			return false
		}
		return true
	}

	r.Body = http.MaxBytesReader(w, r.Body, httpx.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		fields := validate.Errors{}
		fields.Add("body", msgMalformedBody)
		e.invalid(w, shape, fields)
		return false
	}
	bindValues(r.PostForm, dst, false)
	return true
}

// bindValues copies values into the Text fields of dst by json tag. With
// onlyMissing set, fields already present are left alone.
func bindValues(values url.Values, dst any, onlyMissing bool) {
	v := reflect.ValueOf(dst).Elem()
	t := v.Type()

	for i := range t.NumField() {
		f := t.Field(i)
		if f.Type != textType {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}

		field := v.Field(i)
		if onlyMissing && field.Interface().(validate.Text).Present() {
			continue
		}
		if txt := validate.TextFromQuery(values, name); txt.Present() {
			field.Set(reflect.ValueOf(txt))
		}
	}
}
