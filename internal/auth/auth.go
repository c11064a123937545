// Package auth validates dashboard credentials against the statically
// configured user list and tracks logged-in sessions.
package auth

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/crypto/bcrypt"
)

// ErrAuth is returned for any failed login. It deliberately does not say
// whether the username or the password was wrong.
var ErrAuth = eris.New("invalid username or password")

// Role is the access level attached to a user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is one entry of the credential store.
type User struct {
	Username     string
	PasswordHash string // bcrypt
	Role         Role
}

// Session is the explicit logged-in context handed to other components.
type Session struct {
	Username   string
	Role       Role
	LoggedInAt time.Time
}

// IsAdmin reports whether the session carries the admin role.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Store holds the credential list loaded at startup. It is read-only
// after construction.
type Store struct {
	users map[string]User
}

// NewStore builds a store from configured users. Usernames are matched
// case-insensitively. Users with an unknown role default to RoleUser.
func NewStore(users []User) *Store {
	m := make(map[string]User, len(users))
	for _, u := range users {
		if u.Role != RoleAdmin {
			u.Role = RoleUser
		}
		m[strings.ToLower(u.Username)] = u
	}
	return &Store{users: m}
}

// Empty reports whether no users are configured. Callers may choose to
// run open when the store is empty (local single-user mode).
func (s *Store) Empty() bool {
	return len(s.users) == 0
}

// Authenticate checks a username/password pair. On success it returns a
// session with the user's role; on any failure it returns ErrAuth.
func (s *Store) Authenticate(username, password string) (Session, error) {
	u, ok := s.users[strings.ToLower(username)]
	if !ok {
		// Burn a comparison anyway so the miss is not observably faster.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000000000000000000000000000000000"), []byte(password))
		return Session{}, ErrAuth
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrAuth
	}
	return Session{
		Username:   u.Username,
		Role:       u.Role,
		LoggedInAt: time.Now(),
	}, nil
}

// HashPassword produces a bcrypt hash suitable for the credential store.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", eris.Wrap(err, "hash password")
	}
	return string(b), nil
}
