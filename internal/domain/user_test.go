package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestUserMetadataIsValid(t *testing.T) {
	require.NoError(t, UserMetadata.Validate())
	assert.Equal(t, "upn", UserMetadata.KeyName)
	assert.Equal(t, []string{"lastName", "firstName"}, UserMetadata.SortBy)
	assert.Equal(t, "jdoe", UserMetadata.Key(User{UPN: "jdoe"}))
}

func TestUserPatchApply(t *testing.T) {
	u := User{UPN: "jdoe", FirstName: "Jane", LastName: "Doe", Email: ptr("jane@example.com")}

	UserPatch{FirstName: ptr("J.")}.Apply(&u)
	assert.Equal(t, "J.", u.FirstName)
	assert.Equal(t, "Doe", u.LastName)
	require.NotNil(t, u.Email)
	assert.Equal(t, "jane@example.com", *u.Email)

	UserPatch{Email: ptr("")}.Apply(&u)
	assert.Nil(t, u.Email)

	newEmail := "j@example.com"
	UserPatch{Email: &newEmail}.Apply(&u)
	newEmail = "mutated"
	assert.Equal(t, "j@example.com", *u.Email)
	assert.Equal(t, "jdoe", u.UPN)
}
