package accountsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string

	// Fields holds per-field validation messages, read from either the
	// "errors" or "validation" key depending on the endpoint.
	Fields map[string][]string

	// Detail is the internal cause some 500 responses carry as a string
	// under "errors".
	Detail string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "accounts: %d %s", e.StatusCode, e.Message)

	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " [%s: %s]", k, strings.Join(e.Fields[k], " "))
		}
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, " (%s)", e.Detail)
	}
	return b.String()
}

// IsValidation reports a 400 or 422 with field messages.
func (e *APIError) IsValidation() bool {
	return (e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity) && len(e.Fields) > 0
}

func (e *APIError) IsUnauthenticated() bool { return e.StatusCode == http.StatusUnauthorized }
func (e *APIError) IsForbidden() bool       { return e.StatusCode == http.StatusForbidden }
func (e *APIError) IsNotFound() bool        { return e.StatusCode == http.StatusNotFound }

type errorBody struct {
	Message    string              `json:"message"`
	Errors     json.RawMessage     `json:"errors"`
	Validation map[string][]string `json:"validation"`
}

// parseErrorResponse builds an APIError from a response body. Bodies that
// are not JSON still produce an error carrying the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}

	apiErr.Message = eb.Message
	apiErr.Fields = eb.Validation

	if len(eb.Errors) > 0 {
		var fields map[string][]string
		var detail string
		switch {
		case json.Unmarshal(eb.Errors, &fields) == nil:
			apiErr.Fields = fields
		case json.Unmarshal(eb.Errors, &detail) == nil:
			apiErr.Detail = detail
		}
	}

	return apiErr
}
