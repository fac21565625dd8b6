package domain

import (
	"time"

	"github.com/spec-kit/user-service/internal/resource"
)

// User is the domain model for a directory user keyed by UPN.
type User struct {
	ID          string
	UPN         string
	FirstName   string
	LastName    string
	Email       *string
	CreatedDate time.Time
	UpdatedDate time.Time
}

// UserPatch lists replaceable attributes; nil means unchanged. The UPN is
// deliberately absent.
type UserPatch struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// Apply merges the supplied fields into u. An empty email clears it.
func (p UserPatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		if *p.Email == "" {
			u.Email = nil
		} else {
			email := *p.Email
			u.Email = &email
		}
	}
}

// UserMetadata describes the user resource.
var UserMetadata = &resource.Metadata[User]{
	Descriptor: resource.Descriptor{
		Name:        "user",
		NamePlural:  "users",
		Label:       "User",
		LabelPlural: "Users",
		Description: "Represents a user within the system",
		KeyName:     "upn",
		SortBy:      []string{"lastName", "firstName"},
	},
	Key: func(u User) string { return u.UPN },
	Fields: map[string]resource.Field[User]{
		"id": {
			Column: "id::text", Kind: resource.KindString,
			Value: resource.StringValue(func(u User) string { return u.ID }),
		},
		"upn": {
			Column: "upn", Kind: resource.KindString,
			Value: resource.StringValue(func(u User) string { return u.UPN }),
		},
		"firstName": {
			Column: "first_name", Kind: resource.KindString,
			Value: resource.StringValue(func(u User) string { return u.FirstName }),
		},
		"lastName": {
			Column: "last_name", Kind: resource.KindString,
			Value: resource.StringValue(func(u User) string { return u.LastName }),
		},
		"email": {
			Column: "email", Kind: resource.KindString,
			Value: resource.OptionalStringValue(func(u User) *string { return u.Email }),
		},
		"createdDate": {
			Column: "created_date", Kind: resource.KindTime,
			Value: resource.TimeValue(func(u User) time.Time { return u.CreatedDate }),
		},
		"updatedDate": {
			Column: "updated_date", Kind: resource.KindTime,
			Value: resource.TimeValue(func(u User) time.Time { return u.UpdatedDate }),
		},
	},
}
