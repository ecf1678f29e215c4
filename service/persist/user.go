package persist

import (
	"context"
	"fmt"
)

// User represents a registered user of the platform. Users are created once at
// registration and only the identity-verification fields are ever backfilled.
type User struct {
	ID            DBID         `json:"id"`
	Name          NullString   `json:"name"`
	AadhaarNumber NullString   `json:"aadhaar_number"`
	PhoneNumber   NullString   `json:"phone_number"`
	Email         NullString   `json:"email"`
	OwnerID       NullString   `json:"owner_id"`
	CreationTime  CreationTime `json:"created_at"`
}

// CreateUserInput is the input used to create a user row
type CreateUserInput struct {
	ID            DBID
	Name          string
	AadhaarNumber string
	PhoneNumber   string
	Email         string
	OwnerID       string
}

// UserRepository represents a repository for interacting with persisted users
type UserRepository interface {
	Create(context.Context, CreateUserInput) (User, error)
	GetByID(context.Context, DBID) (User, error)
	GetByAadhaar(context.Context, string) (User, error)
	Exists(context.Context, DBID) (bool, error)
}

// ErrUserNotFound is returned when a user could not be found by ID or aadhaar number
type ErrUserNotFound struct {
	ID            DBID
	AadhaarNumber string
}

// ErrAadhaarAlreadyRegistered is returned when the unique aadhaar constraint is
// violated on user creation
type ErrAadhaarAlreadyRegistered struct {
	AadhaarNumber string
}

func (e ErrUserNotFound) Error() string {
	if e.AadhaarNumber != "" {
		return "user not found by aadhaar number"
	}
	return fmt.Sprintf("user not found by ID: %s", e.ID)
}

func (e ErrAadhaarAlreadyRegistered) Error() string {
	return "a user with this aadhaar number already exists"
}
