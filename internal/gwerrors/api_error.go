package gwerrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// FieldErrors maps request field names to validation messages, in the order
// the user-account API reported them.
type FieldErrors struct {
	*orderedmap.OrderedMap[string, string]
}

func NewFieldErrors() FieldErrors {
	return FieldErrors{orderedmap.New[string, string]()}
}

func (f FieldErrors) Len() int {
	if f.OrderedMap == nil {
		return 0
	}
	return f.OrderedMap.Len()
}

func (f FieldErrors) Get(field string) (string, bool) {
	if f.OrderedMap == nil {
		return "", false
	}
	return f.OrderedMap.Get(field)
}

func (f FieldErrors) MarshalJSON() ([]byte, error) {
	if f.OrderedMap == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(f.OrderedMap)
}

// APIError is a classified non-2xx answer from the user-account API
type APIError struct {
	// Kind is one of the sentinel errors of this package
	Kind    error
	Status  int
	Message string
	Fields  FieldErrors
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// AsAPIError returns the APIError in the chain of err, if any
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

type errorBody struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Classify turns a non-2xx status and its body into an APIError. A 2xx status returns nil.
func Classify(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	apiErr := &APIError{Status: status, Kind: kindForStatus(status)}
	parsed := errorBody{}
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		apiErr.Message = parsed.Message
		if apiErr.Message == "" {
			apiErr.Message = parsed.Error
		}
		if apiErr.Kind == ErrValidation {
			apiErr.Fields = parseFieldErrors(parsed.Errors)
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status == http.StatusUnauthorized:
		return ErrUnauthenticated
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return ErrServerFault
	default:
		return ErrUnexpectedStatus
	}
}

// parseFieldErrors accepts either {"field": "message"} or [{"field": .., "message": ..}]
func parseFieldErrors(raw json.RawMessage) FieldErrors {
	fields := NewFieldErrors()
	if len(raw) == 0 {
		return fields
	}
	asMap := orderedmap.New[string, string]()
	if err := json.Unmarshal(raw, asMap); err == nil {
		fields.OrderedMap = asMap
		return fields
	}
	asList := []fieldError{}
	if err := json.Unmarshal(raw, &asList); err == nil {
		for _, item := range asList {
			if item.Field != "" {
				fields.Set(item.Field, item.Message)
			}
		}
	}
	return fields
}
