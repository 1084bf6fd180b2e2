// Package auth holds the authenticated session: the bearer token, the
// logged-in user, and the owner-key transitions the rest of the client
// reacts to on login and logout.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/domain"
	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/internal/api"
	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/internal/identity"
)

// Backend is the auth slice of the API client.
type Backend interface {
	Login(ctx context.Context, creds api.LoginRequest) (*api.LoginResponse, error)
	Register(ctx context.Context, reg api.RegisterRequest) error
	UpdateUser(ctx context.Context, upd api.UpdateUserRequest) error
	DeleteUser(ctx context.Context, userID int64) error
}

// OwnerSwitcher receives the clear-then-refetch owner transition.
// Implemented by the cart store.
type OwnerSwitcher interface {
	SwitchOwner(ctx context.Context, owner domain.OwnerKey) error
}

var (
	ErrNotLoggedIn  = errors.New("auth: not logged in")
	ErrTokenExpired = errors.New("auth: token expired")
)

type Manager struct {
	mu       sync.Mutex
	backend  Backend
	resolver *identity.Resolver
	carts    OwnerSwitcher
	token    string
	user     domain.User
	logger   *zap.Logger
}

func NewManager(backend Backend, resolver *identity.Resolver, carts OwnerSwitcher, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		backend:  backend,
		resolver: resolver,
		carts:    carts,
		logger:   logger,
	}
}

// Token implements api.TokenSource. Empty while logged out.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// CurrentUser returns the logged-in user, if any.
func (m *Manager) CurrentUser() (domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user, m.token != ""
}

// Login authenticates, stores the access token, and switches the cart
// to the user's owner key. The anonymous cart is cleared from local
// state, not merged into the user cart.
func (m *Manager) Login(ctx context.Context, email, password string) (domain.User, error) {
	resp, err := m.backend.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return domain.User{}, err
	}

	m.mu.Lock()
	m.token = resp.AccessToken
	m.user = resp.User
	m.mu.Unlock()

	owner := m.resolver.Login(resp.User.Email)
	if err := m.carts.SwitchOwner(ctx, owner); err != nil {
		// Login itself succeeded; the user cart shows up on the next
		// fetch.
		m.logger.Warn("cart switch after login failed", zap.String("user", resp.User.Email), zap.Error(err))
	}
	return resp.User, nil
}

// Logout drops the token and falls back to the anonymous session id,
// reusing the persisted one when present.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.user = domain.User{}
	m.mu.Unlock()

	owner, err := m.resolver.Logout(ctx)
	if err != nil {
		return fmt.Errorf("resolve anonymous session: %w", err)
	}
	if err := m.carts.SwitchOwner(ctx, owner); err != nil {
		m.logger.Warn("cart switch after logout failed", zap.Error(err))
	}
	return nil
}

func (m *Manager) Register(ctx context.Context, name, email, password string) error {
	return m.backend.Register(ctx, api.RegisterRequest{Name: name, Email: email, Password: password})
}

// UpdateProfile edits the logged-in user's profile. Empty fields are
// left unchanged. The local user copy is updated on success; the token
// keeps its original email claim until the next login, which matches
// the backend's behavior.
func (m *Manager) UpdateProfile(ctx context.Context, name, email, password string) error {
	m.mu.Lock()
	loggedIn := m.token != ""
	m.mu.Unlock()
	if !loggedIn {
		return ErrNotLoggedIn
	}

	if err := m.backend.UpdateUser(ctx, api.UpdateUserRequest{Name: name, Email: email, Password: password}); err != nil {
		return err
	}

	m.mu.Lock()
	if name != "" {
		m.user.Name = name
	}
	if email != "" {
		m.user.Email = strings.ToLower(email)
	}
	m.mu.Unlock()
	return nil
}

// DeleteAccount removes the logged-in user's account, then runs the
// logout transition back to the anonymous session.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	m.mu.Lock()
	user := m.user
	loggedIn := m.token != ""
	m.mu.Unlock()
	if !loggedIn {
		return ErrNotLoggedIn
	}

	if err := m.backend.DeleteUser(ctx, user.ID); err != nil {
		return err
	}
	return m.Logout(ctx)
}

// Restore re-establishes a login from a persisted access token, the
// way the browser client restores from its storage slot on load. The
// claims are decoded without signature verification: the token is only
// forwarded to the backend, which is the party that verifies it.
func (m *Manager) Restore(ctx context.Context, token string) (domain.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return domain.User{}, fmt.Errorf("decode access token: %w", err)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
		return domain.User{}, ErrTokenExpired
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return domain.User{}, errors.New("auth: token has no email claim")
	}
	role, _ := claims["role"].(string)

	user := domain.User{Email: email, Role: role}
	m.mu.Lock()
	m.token = token
	m.user = user
	m.mu.Unlock()

	owner := m.resolver.Login(email)
	if err := m.carts.SwitchOwner(ctx, owner); err != nil {
		m.logger.Warn("cart switch after restore failed", zap.String("user", email), zap.Error(err))
	}
	return user, nil
}
