// Package users stores the login accounts of the attendance web API.
package users

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/jsonstore"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserExists      = errors.New("user already exists")
	ErrInvalidRole     = errors.New("invalid role")
)

var hashCost = bcrypt.DefaultCost

// User is an account as stored in users.json, keyed by username.
type User struct {
	Username string `json:"-"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == constants.RoleAdmin
}

// Account is a plain-text account used to seed the store.
type Account struct {
	Username string
	Password string
	Role     string
	Name     string
}

// Store keeps the accounts in one JSON document. It is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	path  string
	users map[string]*User
}

// Open loads the accounts, seeding them on first run.
func Open(path string, seed []Account) (*Store, error) {
	s := &Store{path: path}
	var seedErr error
	_, err := jsonstore.LoadOrSeed(path, &s.users, func() {
		s.users = make(map[string]*User, len(seed))
		for _, a := range seed {
			hash, err := hashPassword(a.Password)
			if err != nil {
				seedErr = err
				return
			}
			s.users[a.Username] = &User{Password: hash, Role: a.Role, Name: a.Name}
		}
	})
	if seedErr != nil {
		return nil, fmt.Errorf("seed users: %w", seedErr)
	}
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if s.users == nil {
		s.users = make(map[string]*User)
	}
	for name, u := range s.users {
		if u == nil {
			delete(s.users, name)
			continue
		}
		u.Username = name
	}
	return s, nil
}

func (s *Store) save() error {
	if err := jsonstore.Save(s.path, s.users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

// Authenticate checks the credentials and returns the account without its hash.
// Accounts still carrying a legacy SHA-256 hash are rehashed with bcrypt.
func (s *Store) Authenticate(username, password string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return User{}, ErrInvalidUsername
	}

	if isLegacyHash(u.Password) {
		sum := sha256.Sum256([]byte(password))
		if subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(strings.ToLower(u.Password))) != 1 {
			return User{}, ErrInvalidPassword
		}
		if hash, err := hashPassword(password); err == nil {
			prev := u.Password
			u.Password = hash
			if err := s.save(); err != nil {
				u.Password = prev
			}
		}
		return public(u), nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return User{}, ErrInvalidPassword
	}
	return public(u), nil
}

// Add creates a new account.
func (s *Store) Add(username, password, role, name string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, ErrInvalidUsername
	}
	if password == "" {
		return User{}, ErrInvalidPassword
	}
	if role != constants.RoleAdmin && role != constants.RoleTeacher {
		return User{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if _, ok := s.users[username]; ok {
		return User{}, fmt.Errorf("add %s: %w", username, ErrUserExists)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}
	u := &User{Username: username, Password: hash, Role: role, Name: name}
	s.users[username] = u
	if err := s.save(); err != nil {
		delete(s.users, username)
		return User{}, err
	}
	return public(u), nil
}

// Get returns an account without its hash.
func (s *Store) Get(username string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return User{}, false
	}
	return public(u), true
}

// List returns all accounts sorted by username, without hashes.
func (s *Store) List() []User {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]User, 0, len(s.users))
	for _, u := range s.users {
		list = append(list, public(u))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Username < list[j].Username })
	return list
}

func public(u *User) User {
	c := *u
	c.Password = ""
	return c
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// isLegacyHash reports whether h is a hex SHA-256 digest.
func isLegacyHash(h string) bool {
	if len(h) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(h)
	return err == nil
}
