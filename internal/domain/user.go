package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for User
var (
	ErrUserIDEmpty         = errors.New("user ID cannot be empty")
	ErrEmailEmpty          = errors.New("email cannot be empty")
	ErrEmailInvalid        = errors.New("invalid email format")
	ErrPasswordTooShort    = errors.New("password must be at least 12 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrPasswordEmpty       = errors.New("password cannot be empty")
	ErrHashedPasswordEmpty = errors.New("hashed password cannot be empty")
)

// Password length bounds. The upper bound is bcrypt's input limit.
const (
	MinPasswordLength = 12
	MaxPasswordLength = 72
)

// User represents a registered user of the Parlo application.
// It carries authentication details and the subscription plan the
// user's daily quotas are derived from.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Password       string    `json:"-"` // Plaintext password, used temporarily during registration/updates
	HashedPassword string    `json:"-"` // Never expose password hash in JSON
	PlanType       string    `json:"plan_type"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a new User with the given email and password, on the free
// plan. It generates a new UUID for the user ID and sets the creation/update
// timestamps. Returns an error if validation fails.
//
// The plaintext password rides on the Password field only until the user
// store hashes it at the persistence edge; it is never stored.
func NewUser(email, password string) (*User, error) {
	user := &User{
		ID:        uuid.New(),
		Email:     email,
		Password:  password,
		PlanType:  PlanFree,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
// Returns an error if any field fails validation.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrUserIDEmpty
	}

	if u.Email == "" {
		return ErrEmailEmpty
	}

	if !validEmailFormat(u.Email) {
		return ErrEmailInvalid
	}

	if u.Password != "" {
		// A plaintext password is present during registration and updates;
		// enforce the length bounds before it reaches the hasher.
		if len(u.Password) < MinPasswordLength {
			return ErrPasswordTooShort
		}
		if len(u.Password) > MaxPasswordLength {
			return ErrPasswordTooLong
		}
	} else if u.HashedPassword == "" {
		// Users loaded from storage carry only the hash.
		return ErrPasswordEmpty
	}

	return nil
}

// ChangePlan switches the user to the named plan and bumps the update
// timestamp. The plan name is not resolved here; unknown names fall back to
// the free plan's limits when the snapshot is assembled.
func (u *User) ChangePlan(planType string) {
	u.PlanType = planType
	u.UpdatedAt = time.Now().UTC()
}

// TODO: adopt RFC 5322 validation instead of this structural check.
//
// validEmailFormat reports whether the email has the shape local@domain
// with at least one dot inside the domain part.
func validEmailFormat(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}

	domain := email[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
