package transport

import (
	"fmt"
	"sync"

	"github.com/Aukciszek/backend/protoerr"
)

// UserStore is a minimal in-memory admin user table: enough to back
// POST /api/auth/login and issue the JWTs every admin-gated operation
// requires, without pulling in a database dependency the spec's
// Non-goals don't call for.
type UserStore struct {
	mu    sync.Mutex
	users map[string]userRecord
}

type userRecord struct {
	passwordHash string
	isAdmin      bool
}

// NewUserStore returns an empty user table.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]userRecord)}
}

// AddUser registers a user with a freshly hashed password.
func (u *UserStore) AddUser(username, password string, isAdmin bool) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users[username] = userRecord{passwordHash: hash, isAdmin: isAdmin}
	return nil
}

// Authenticate verifies username/password and reports whether the user
// holds the admin role.
func (u *UserStore) Authenticate(username, password string) (isAdmin bool, err error) {
	u.mu.Lock()
	rec, ok := u.users[username]
	u.mu.Unlock()
	if !ok || !verifyPassword(password, rec.passwordHash) {
		return false, fmt.Errorf("%w: invalid authentication credentials", protoerr.ErrUnauthorized)
	}
	return rec.isAdmin, nil
}
