// Package auth implements the toy login/refresh flow: a fixed in-memory
// user table and HS256 bearer tokens. It gates the mutating endpoints
// only; catalog reads are open.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown user, a wrong
// password, or a disabled account. Callers get one undifferentiated
// failure so responses don't leak which part was wrong.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// User is one entry of the fixed user table.
type User struct {
	Username     string
	FullName     string
	Email        string
	PasswordHash []byte
	Disabled     bool
}

// UserStore holds the in-memory user table.
type UserStore struct {
	users map[string]User
}

type seedUser struct {
	username, fullName, email, password string
}

// The demo accounts the original service ships with.
var seedUsers = []seedUser{
	{username: "testuser", fullName: "Test User", email: "test@example.com", password: "testpassword"},
	{username: "cesar", fullName: "Cesar Sousa", email: "cesar@email.com", password: "103020"},
}

// NewUserStore builds the user table, hashing the seed passwords.
func NewUserStore() (*UserStore, error) {
	users := make(map[string]User, len(seedUsers))
	for _, s := range seedUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", s.username, err)
		}
		users[s.username] = User{
			Username:     s.username,
			FullName:     s.fullName,
			Email:        s.email,
			PasswordHash: hash,
		}
	}
	return &UserStore{users: users}, nil
}

// Lookup returns the user with the given username.
func (s *UserStore) Lookup(username string) (User, bool) {
	u, ok := s.users[username]
	return u, ok
}

// Authenticate verifies a username/password pair against the table.
func (s *UserStore) Authenticate(username, password string) (User, error) {
	u, ok := s.users[username]
	if !ok || u.Disabled {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
