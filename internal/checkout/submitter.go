// Package checkout turns the live cart into a frozen order snapshot
// and performs the single all-or-nothing order submission.
package checkout

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/domain"
)

// OrderBackend is the slice of the API client the submitter needs.
type OrderBackend interface {
	CreateOrder(ctx context.Context, form domain.CheckoutForm, items []domain.OrderItem) error
}

// Cart is the read/clear surface of the cart store consumed at submit
// time.
type Cart interface {
	Items() []domain.CartLineItem
	Clear(ctx context.Context) error
}

var (
	ErrEmptyCart            = errors.New("checkout: no items in order")
	ErrMissingEmail         = errors.New("checkout: contact email is required")
	ErrMissingPayment       = errors.New("checkout: payment method is required")
	ErrMissingTransactionID = errors.New("checkout: transaction id is required for payment")
)

type Submitter struct {
	mu      sync.Mutex
	backend OrderBackend
	cart    Cart
	form    domain.CheckoutForm
	status  domain.CheckoutStatus
	logger  *zap.Logger
}

func NewSubmitter(backend OrderBackend, cart Cart, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{
		backend: backend,
		cart:    cart,
		form:    domain.DefaultCheckoutForm(),
		status:  domain.CheckoutIdle,
		logger:  logger,
	}
}

func (s *Submitter) Status() domain.CheckoutStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Submitter) Form() domain.CheckoutForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// SetForm merges the given fields into the checkout form state.
func (s *Submitter) SetForm(form domain.CheckoutForm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = form
}

// Snapshot converts the cart's current line items into an immutable
// order-item copy, decoupled from subsequent cart mutations.
func Snapshot(items []domain.CartLineItem) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.Name,
			Quantity:    item.Quantity,
			Price:       item.Price,
			ImageURL:    item.ImageURL,
		})
	}
	return out
}

// Submit runs Idle -> Validating -> Submitting -> Succeeded/Failed.
// Gating is local field presence only; no network call happens for a
// rejected submission. On success the cart is cleared and the form
// reset; a failed clear after a placed order is a benign inconsistency
// resolved by the next fetch. On failure cart and form are untouched
// so the user can resubmit.
func (s *Submitter) Submit(ctx context.Context) error {
	s.mu.Lock()
	form := s.form
	s.status = domain.CheckoutValidating
	s.mu.Unlock()

	snapshot := Snapshot(s.cart.Items())

	if err := validate(form, snapshot); err != nil {
		// Rejected before any network call; no submission attempt was
		// made, so the machine returns to idle rather than failed.
		s.setStatus(domain.CheckoutIdle)
		return err
	}

	s.setStatus(domain.CheckoutSubmitting)
	if err := s.backend.CreateOrder(ctx, form, snapshot); err != nil {
		s.setStatus(domain.CheckoutFailed)
		return err
	}

	s.setStatus(domain.CheckoutSucceeded)
	if err := s.cart.Clear(ctx); err != nil {
		s.logger.Warn("cart clear after order failed", zap.Error(err))
	}
	s.mu.Lock()
	s.form = domain.DefaultCheckoutForm()
	s.mu.Unlock()
	return nil
}

func (s *Submitter) setStatus(status domain.CheckoutStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func validate(form domain.CheckoutForm, items []domain.OrderItem) error {
	if len(items) == 0 {
		return ErrEmptyCart
	}
	if form.UserEmail == "" {
		return ErrMissingEmail
	}
	if form.PaymentMethod == "" {
		return ErrMissingPayment
	}
	if form.PaymentMethod.RequiresTransactionID() && form.TransactionID == "" {
		return ErrMissingTransactionID
	}
	return nil
}
