// Package cart holds the client-side cart state for the active owner
// key and reconciles every mutation with the backend. Mutations are
// not serialized against each other; concurrent updates to the same
// product resolve last-writer-wins, which is acceptable for a
// single-user client.
package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/domain"
)

// Backend is the slice of the API client the store depends on.
type Backend interface {
	FetchCart(ctx context.Context, owner domain.OwnerKey) ([]domain.CartLineItem, error)
	AddCartItem(ctx context.Context, owner domain.OwnerKey, productID int64, quantity int) error
	RemoveCartItem(ctx context.Context, owner domain.OwnerKey, productID int64) error
	UpdateCartQuantity(ctx context.Context, owner domain.OwnerKey, productID int64, quantity int) error
	ClearCart(ctx context.Context, owner domain.OwnerKey) error
}

var (
	ErrNoOwner         = errors.New("no owner key set")
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrNoPendingUndo   = errors.New("no pending undo")
)

// defaultUndoWindow matches the alert auto-dismiss interval the undo
// affordance is shown in.
const defaultUndoWindow = 3500 * time.Millisecond

const resyncTimeout = 5 * time.Second

// UndoFunc re-adds a removed item as a compensating action.
type UndoFunc func(ctx context.Context) error

// PendingUndo describes the single most recent removal that can still
// be compensated. At most one is live at a time.
type PendingUndo struct {
	ProductID int64
	Name      string
	Quantity  int
	Owner     domain.OwnerKey
	ExpiresAt time.Time
}

type Store struct {
	mu      sync.RWMutex
	backend Backend
	owner   domain.OwnerKey
	items   []domain.CartLineItem
	pending *PendingUndo

	sfg        singleflight.Group
	logger     *zap.Logger
	undoWindow time.Duration
	now        func() time.Time
}

type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithUndoWindow(d time.Duration) Option {
	return func(s *Store) { s.undoWindow = d }
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		logger:     zap.NewNop(),
		undoWindow: defaultUndoWindow,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Owner returns the owner key the store currently serves.
func (s *Store) Owner() domain.OwnerKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// Items returns a copy of the current line items.
func (s *Store) Items() []domain.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneItems(s.items)
}

// SwitchOwner transitions the store to a new owner key. The stale
// local view is cleared synchronously before the new owner's cart is
// fetched, so the old owner's items are never displayed under the new
// key (login/logout must not leak anonymous items into a user cart or
// vice versa).
func (s *Store) SwitchOwner(ctx context.Context, newOwner domain.OwnerKey) error {
	s.mu.Lock()
	s.owner = newOwner
	s.items = nil
	s.pending = nil
	s.mu.Unlock()

	if newOwner.IsZero() {
		return nil
	}
	return s.Fetch(ctx)
}

// Fetch replaces local state wholesale with the backend's cart for
// the current owner. On failure the prior local state is untouched.
// Concurrent fetches for the same owner are collapsed.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.RLock()
	owner := s.owner
	s.mu.RUnlock()
	if owner.IsZero() {
		return ErrNoOwner
	}

	v, err, _ := s.sfg.Do(owner.Value(), func() (interface{}, error) {
		return s.backend.FetchCart(ctx, owner)
	})
	if err != nil {
		s.logger.Warn("cart fetch failed", zap.String("owner", owner.Value()), zap.Error(err))
		return err
	}
	items := v.([]domain.CartLineItem)

	s.mu.Lock()
	defer s.mu.Unlock()
	// The owner may have switched while the fetch was in flight; a
	// stale response must not repopulate the new owner's view.
	if s.owner != owner {
		return nil
	}
	s.items = items
	return nil
}

// Add requests the backend add quantity of the product under the
// current owner, then resynchronizes. Stock and product existence are
// validated server-side.
func (s *Store) Add(ctx context.Context, productID int64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	s.mu.RLock()
	owner := s.owner
	s.mu.RUnlock()
	if owner.IsZero() {
		return ErrNoOwner
	}

	if err := s.backend.AddCartItem(ctx, owner, productID, quantity); err != nil {
		return err
	}
	// The add itself succeeded; a failed resync (already logged by
	// Fetch) only leaves the local view stale until the next fetch.
	_ = s.Fetch(ctx)
	return nil
}

// Remove deletes the product's line item. It is a no-op when the
// product is not present locally. On success it resynchronizes and
// returns a compensating action that re-adds the removed quantity
// under the owner key captured at removal time.
func (s *Store) Remove(ctx context.Context, productID int64) (UndoFunc, error) {
	s.mu.RLock()
	owner := s.owner
	var removed *domain.CartLineItem
	for i := range s.items {
		if s.items[i].ProductID == productID {
			item := s.items[i]
			removed = &item
			break
		}
	}
	s.mu.RUnlock()

	if owner.IsZero() {
		return nil, ErrNoOwner
	}
	if removed == nil {
		return nil, nil
	}

	if err := s.backend.RemoveCartItem(ctx, owner, productID); err != nil {
		return nil, err
	}
	_ = s.Fetch(ctx)

	pending := &PendingUndo{
		ProductID: removed.ProductID,
		Name:      removed.Name,
		Quantity:  removed.Quantity,
		Owner:     owner,
		ExpiresAt: s.now().Add(s.undoWindow),
	}
	s.mu.Lock()
	s.pending = pending // supersedes any previous slot
	s.mu.Unlock()

	undo := func(ctx context.Context) error {
		s.mu.Lock()
		if s.pending == pending {
			s.pending = nil
		}
		s.mu.Unlock()

		// A plain re-add: if the product vanished or stock ran out in
		// the meantime this surfaces as a normal add failure.
		if err := s.backend.AddCartItem(ctx, pending.Owner, pending.ProductID, pending.Quantity); err != nil {
			return err
		}
		_ = s.Fetch(ctx)
		return nil
	}
	return undo, nil
}

// PendingUndo returns the live undo slot, or nil when none exists or
// the display window has passed.
func (s *Store) PendingUndo() *PendingUndo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil || s.now().After(s.pending.ExpiresAt) {
		return nil
	}
	p := *s.pending
	return &p
}

// Undo invokes the live undo slot.
func (s *Store) Undo(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	if pending == nil || s.now().After(pending.ExpiresAt) {
		s.mu.Unlock()
		return ErrNoPendingUndo
	}
	s.pending = nil
	s.mu.Unlock()

	if err := s.backend.AddCartItem(ctx, pending.Owner, pending.ProductID, pending.Quantity); err != nil {
		return err
	}
	_ = s.Fetch(ctx)
	return nil
}

// Update sets the product's quantity optimistically: the local line
// item is mutated and marked syncing before the round trip resolves.
// On failure the snapshot taken before the mutation is restored
// verbatim. On success a best-effort background resync runs; its
// failure is logged and swallowed because the authoritative mutation
// already succeeded.
func (s *Store) Update(ctx context.Context, productID int64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	owner := s.owner
	if owner.IsZero() {
		s.mu.Unlock()
		return ErrNoOwner
	}
	idx := -1
	for i := range s.items {
		if s.items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	prev := domain.CloneItems(s.items)
	s.items[idx].Quantity = quantity
	s.items[idx].Syncing = true
	s.mu.Unlock()

	if err := s.backend.UpdateCartQuantity(ctx, owner, productID, quantity); err != nil {
		s.mu.Lock()
		if s.owner == owner {
			s.items = prev
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.owner == owner {
		for i := range s.items {
			if s.items[i].ProductID == productID {
				s.items[i].Quantity = quantity
				s.items[i].Syncing = false
			}
		}
	}
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
		defer cancel()
		_ = s.Fetch(ctx)
	}()
	return nil
}

// Clear deletes every line item for the current owner. Local state
// becomes empty only after the backend confirms.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.RLock()
	owner := s.owner
	s.mu.RUnlock()
	if owner.IsZero() {
		return ErrNoOwner
	}

	if err := s.backend.ClearCart(ctx, owner); err != nil {
		return err
	}

	s.mu.Lock()
	if s.owner == owner {
		s.items = []domain.CartLineItem{}
	}
	s.mu.Unlock()
	return nil
}
