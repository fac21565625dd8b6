package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-service/internal/api/dto"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

func strPtr(s string) *string { return &s }

func TestValidatePayloadCreate(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, validatePayload(v, dto.CreateUserRequest{UPN: "jdoe", FirstName: "Jane", LastName: "Doe"}))
	assert.NoError(t, validatePayload(v, dto.CreateUserRequest{UPN: "jdoe", FirstName: "Jane", LastName: "Doe", Email: strPtr("")}))
	assert.NoError(t, validatePayload(v, dto.CreateUserRequest{UPN: "jdoe", FirstName: "Jane", LastName: "Doe", Email: strPtr("jane@doe.com")}))

	err := validatePayload(v, dto.CreateUserRequest{LastName: "Doe"})
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidationFailed, de.Code)
	assert.Equal(t, map[string]any{"upn": "required", "firstName": "required"}, de.Details)
}

func TestValidatePayloadUpdate(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, validatePayload(v, dto.UpdateUserRequest{}))
	assert.NoError(t, validatePayload(v, dto.UpdateUserRequest{Email: strPtr("")}))

	err := validatePayload(v, dto.UpdateUserRequest{FirstName: strPtr(""), Email: strPtr("nope")})
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Contains(t, de.Details, "firstName")
	assert.Contains(t, de.Details, "email")
}

func TestDecodeKey(t *testing.T) {
	key, err := decodeKey("upn", "jdoe%40example.com")
	require.NoError(t, err)
	assert.Equal(t, "jdoe@example.com", key)

	key, err = decodeKey("upn", "jane%20doe")
	require.NoError(t, err)
	assert.Equal(t, "jane doe", key)

	key, err = decodeKey("upn", "plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", key)

	_, err = decodeKey("upn", "bad%zz")
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidationFailed, de.Code)
	assert.Equal(t, "invalid upn", de.Message)
	assert.Equal(t, "bad%zz", de.Details["upn"])
}
