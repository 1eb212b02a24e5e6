package security

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aq2208/bookstore-api/configs"
	"golang.org/x/crypto/bcrypt"
)

var ErrBadCredentials = errors.New("bad credentials")

const RoleUser = "USER"

type User struct {
	Username string
	Roles    []string
	hash     []byte
}

// UserStore is an in-memory user registry seeded from config.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]User

	// missHash is compared against on unknown usernames so both paths cost one bcrypt run
	missHash []byte
	compare  func(hash, password []byte) error
}

// NewUserStore hashes plain-text passwords once at startup. With no users
// configured it falls back to a single user/password account.
func NewUserStore(seed []configs.User) (*UserStore, error) {
	if len(seed) == 0 {
		seed = []configs.User{{Username: "user", Password: "password", Roles: []string{RoleUser}}}
	}
	missHash, err := bcrypt.GenerateFromPassword([]byte("no-such-user"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("miss hash: %w", err)
	}
	s := &UserStore{
		users:    make(map[string]User, len(seed)),
		missHash: missHash,
		compare:  bcrypt.CompareHashAndPassword,
	}
	for _, u := range seed {
		if err := s.Add(u); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *UserStore) Add(u configs.User) error {
	hash := []byte(u.PasswordHash)
	if len(hash) == 0 {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %q: %w", u.Username, err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return fmt.Errorf("user %q: password_hash is not a bcrypt hash: %w", u.Username, err)
	}

	roles := slices.Clone(u.Roles)
	if len(roles) == 0 {
		roles = []string{RoleUser}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = User{Username: u.Username, Roles: roles, hash: hash}
	return nil
}

func (s *UserStore) Lookup(username string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	return u, ok
}

// Authenticate returns ErrBadCredentials for unknown users and wrong passwords alike.
func (s *UserStore) Authenticate(username, password string) (User, error) {
	u, ok := s.Lookup(username)
	if !ok {
		_ = s.compare(s.missHash, []byte(password))
		return User{}, ErrBadCredentials
	}
	if err := s.compare(u.hash, []byte(password)); err != nil {
		return User{}, ErrBadCredentials
	}
	return u, nil
}
