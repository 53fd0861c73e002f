package gwerrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySuccess(t *testing.T) {
	assert.NoError(t, Classify(http.StatusOK, nil))
	assert.NoError(t, Classify(http.StatusNoContent, nil))
}

func TestClassifyKinds(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:          ErrValidation,
		http.StatusConflict:            ErrValidation,
		http.StatusUnprocessableEntity: ErrValidation,
		http.StatusUnauthorized:        ErrUnauthenticated,
		http.StatusForbidden:           ErrForbidden,
		http.StatusNotFound:            ErrNotFound,
		http.StatusInternalServerError: ErrServerFault,
		http.StatusBadGateway:          ErrServerFault,
		http.StatusTooManyRequests:     ErrUnexpectedStatus,
	}
	for status, kind := range cases {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			err := Classify(status, nil)

			assert.ErrorIs(t, err, kind)
			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, status, apiErr.Status)
			assert.Equal(t, http.StatusText(status), apiErr.Message)
		})
	}
}

func TestClassifyKeepsServerMessage(t *testing.T) {
	err := Classify(http.StatusForbidden, []byte(`{"message":"you can only edit your own account"}`))

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "you can only edit your own account", apiErr.Message)
	assert.Contains(t, err.Error(), "you can only edit your own account")
}

func TestClassifyFieldErrorsObject(t *testing.T) {
	body := []byte(`{"message":"invalid input","errors":{"phone":"bad phone","email":"bad email","name":"required"}}`)

	err := Classify(http.StatusBadRequest, body)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 3, apiErr.Fields.Len())
	keys := []string{}
	for pair := apiErr.Fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"phone", "email", "name"}, keys)
	msg, ok := apiErr.Fields.Get("email")
	assert.True(t, ok)
	assert.Equal(t, "bad email", msg)
}

func TestClassifyFieldErrorsList(t *testing.T) {
	body := []byte(`{"errors":[{"field":"userId","message":"already taken"}]}`)

	err := Classify(http.StatusConflict, body)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	msg, ok := apiErr.Fields.Get("userId")
	assert.True(t, ok)
	assert.Equal(t, "already taken", msg)
}

func TestClassifyIgnoresFieldsOutsideValidation(t *testing.T) {
	err := Classify(http.StatusForbidden, []byte(`{"errors":{"name":"x"}}`))

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 0, apiErr.Fields.Len())
}

func TestFieldErrorsJSON(t *testing.T) {
	empty, err := json.Marshal(FieldErrors{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(empty))

	fields := NewFieldErrors()
	fields.Set("name", "required")
	output, err := json.Marshal(fields)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"required"}`, string(output))
}

func TestWrappedAPIErrorKeepsKind(t *testing.T) {
	err := fmt.Errorf("deleting user: %w", Classify(http.StatusNotFound, nil))

	assert.True(t, errors.Is(err, ErrNotFound))
	_, ok := AsAPIError(err)
	assert.True(t, ok)
}
