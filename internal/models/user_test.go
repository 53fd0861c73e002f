package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUserWithLocalTimestamps(t *testing.T) {
	body := `{"userIndex":7,"userId":"alice","name":"Alice","createdAt":"2024-05-01T10:20:30.123456","updatedAt":"2024-05-02T08:00:00"}`

	var user User
	err := json.Unmarshal([]byte(body), &user)

	require.NoError(t, err)
	assert.Equal(t, "alice", user.UserID)
	assert.Equal(t, "2024-05-01T10:20:30.123456", user.CreatedAt)
	assert.Equal(t, "2024-05-02T08:00:00", user.UpdatedAt)
}

func TestDecodeUserWithZonedTimestamps(t *testing.T) {
	body := `{"userId":"bob","name":"Bob","createdAt":"2024-05-01T10:20:30Z"}`

	var user User
	err := json.Unmarshal([]byte(body), &user)

	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T10:20:30Z", user.CreatedAt)
	assert.Empty(t, user.UpdatedAt)
	encoded, err := json.Marshal(user)
	require.NoError(t, err)
	assert.JSONEq(t, `{"userIndex":0,"userId":"bob","name":"Bob","createdAt":"2024-05-01T10:20:30Z"}`, string(encoded))
}
