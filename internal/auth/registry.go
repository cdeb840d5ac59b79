// Package auth is the user registry: it stores accounts, hashes and checks
// passwords, and issues access tokens.  The booking core only ever receives
// the username it resolves to.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/railway-reservation/internal/model"
	"github.com/iliyamo/railway-reservation/internal/utils"
)

// Store persists user accounts.  Create returns ErrUsernameTaken for an
// existing username; GetByUsername returns ErrInvalidCredentials for a
// missing one.
type Store interface {
	Create(ctx context.Context, u model.User) error
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]model.User)}
}

func (s *MemoryStore) Create(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return model.ErrUsernameTaken
	}
	s.users[u.Username] = u
	return nil
}

func (s *MemoryStore) GetByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return model.User{}, model.ErrInvalidCredentials
	}
	return u, nil
}

// Registry registers and authenticates users.
type Registry struct {
	store        Store
	secret       string
	accessTTLMin int
	bcryptCost   int
	now          func() time.Time
}

// NewRegistry returns a Registry that signs tokens with secret.
func NewRegistry(store Store, secret string, accessTTLMin, bcryptCost int) *Registry {
	return &Registry{
		store:        store,
		secret:       secret,
		accessTTLMin: accessTTLMin,
		bcryptCost:   bcryptCost,
		now:          time.Now,
	}
}

// Session is what a successful register or login hands back.
type Session struct {
	User   model.User
	Access utils.AccessToken
}

const maxUsernameLen = 64

// Register creates an account with the given role and signs the user in.
func (r *Registry) Register(ctx context.Context, username, password string, role model.Role) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUsernameLen || strings.ContainsAny(username, " \t\r\n") {
		return Session{}, model.InvalidInputError("username must be 1-64 characters without spaces")
	}
	if len(password) < utils.MinPasswordLen {
		return Session{}, model.InvalidInputError("password must be at least 6 characters")
	}
	if role != model.RoleAdmin && role != model.RoleTraveler {
		return Session{}, model.InvalidInputError("role must be ADMIN or TRAVELER")
	}
	hash, err := utils.HashPassword(password, r.bcryptCost)
	if err != nil {
		return Session{}, err
	}
	u := model.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    r.now().UTC(),
	}
	if err := r.store.Create(ctx, u); err != nil {
		return Session{}, err
	}
	log.WithFields(log.Fields{"user": username, "role": role}).Info("auth: user registered")
	return r.issue(u)
}

// Authenticate checks the password and signs the user in.  Unknown users and
// wrong passwords both yield ErrInvalidCredentials.
func (r *Registry) Authenticate(ctx context.Context, username, password string) (Session, error) {
	u, err := r.store.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, model.ErrInvalidCredentials
	}
	return r.issue(u)
}

// EnsureUser registers username unless it already exists.  It is used to
// seed demo accounts and is safe to call on every start.
func (r *Registry) EnsureUser(ctx context.Context, username, password string, role model.Role) error {
	_, err := r.Register(ctx, username, password, role)
	if err == nil || errors.Is(err, model.ErrUsernameTaken) {
		return nil
	}
	return err
}

func (r *Registry) issue(u model.User) (Session, error) {
	tok, err := utils.NewAccessToken(r.secret, u.Username, string(u.Role), r.accessTTLMin)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Access: tok}, nil
}
