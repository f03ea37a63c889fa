// Package directory reads the user store: therapist listings and requester
// contact profiles.
package directory

import (
	"context"
	"errors"
	"strings"
)

// RolePsychologist is the role held by bookable therapists.
const RolePsychologist = "psychologist"

// Unknown replaces any profile field that could not be resolved.
const Unknown = "Unknown"

// ErrUserNotFound is returned by GetByID when no user has the id.
var ErrUserNotFound = errors.New("directory: user not found")

// User is a row of the user store.
type User struct {
	ID     string
	Name   string
	Email  string
	Mobile string
	Role   string
}

// Therapist is the public projection of a psychologist.
type Therapist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Profile is the requester contact card attached to crisis alerts.
type Profile struct {
	ID     string
	Name   string
	Email  string
	Mobile string
}

// UserDirectory looks up users.
type UserDirectory interface {
	FindByRole(ctx context.Context, role string) ([]User, error)
	GetByID(ctx context.Context, id string) (User, error)
}

// Therapists lists psychologists. It always queries the directory.
func Therapists(ctx context.Context, dir UserDirectory) ([]Therapist, error) {
	users, err := dir.FindByRole(ctx, RolePsychologist)
	if err != nil {
		return nil, err
	}
	out := make([]Therapist, 0, len(users))
	for _, u := range users {
		out = append(out, Therapist{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return out, nil
}

// ProfileFor builds a contact profile, substituting Unknown for blank fields.
func ProfileFor(id string, u User) Profile {
	return Profile{
		ID:     orUnknown(firstNonEmpty(u.ID, id)),
		Name:   orUnknown(u.Name),
		Email:  orUnknown(u.Email),
		Mobile: orUnknown(u.Mobile),
	}
}

// UnknownProfile is the profile used when the lookup fails entirely.
func UnknownProfile(id string) Profile {
	return ProfileFor(id, User{})
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return Unknown
	}
	return strings.TrimSpace(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
