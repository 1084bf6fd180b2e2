// Package identity resolves the owner key under which cart contents
// are scoped: an authenticated user id when a session exists, else a
// persisted anonymous session id generated on first use.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/domain"
)

type Resolver struct {
	mu     sync.Mutex
	store  Store
	userID string // set while authenticated
	logger *zap.Logger
}

func NewResolver(store Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the active owner key. While logged out it loads the
// persisted anonymous session id, generating and persisting a fresh
// one if none exists yet.
func (r *Resolver) Resolve(ctx context.Context) (domain.OwnerKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.userID != "" {
		return domain.UserOwner(r.userID), nil
	}
	id, err := r.anonymousSessionLocked(ctx)
	if err != nil {
		return domain.OwnerKey{}, err
	}
	return domain.SessionOwner(id), nil
}

// Login switches the owner key to the authenticated user id. The
// caller is expected to follow with a cart owner switch.
func (r *Resolver) Login(userID string) domain.OwnerKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userID = userID
	return domain.UserOwner(userID)
}

// Logout falls back to the anonymous session id, reusing the persisted
// one when present and generating a new one otherwise.
func (r *Resolver) Logout(ctx context.Context) (domain.OwnerKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.userID = ""
	id, err := r.anonymousSessionLocked(ctx)
	if err != nil {
		return domain.OwnerKey{}, err
	}
	return domain.SessionOwner(id), nil
}

func (r *Resolver) anonymousSessionLocked(ctx context.Context) (string, error) {
	id, err := r.store.Load(ctx)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNoSession) {
		return "", fmt.Errorf("load session: %w", err)
	}

	id = uuid.NewString()
	if err := r.store.Save(ctx, id); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}
	r.logger.Debug("generated anonymous session", zap.String("session_id", id))
	return id, nil
}
