package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/domain"
)

type mockOrderBackend struct {
	mu       sync.Mutex
	err      error
	calls    int
	lastForm domain.CheckoutForm
	lastItem []domain.OrderItem
}

func (m *mockOrderBackend) CreateOrder(_ context.Context, form domain.CheckoutForm, items []domain.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.lastForm = form
	m.lastItem = items
	return nil
}

type fakeCart struct {
	mu       sync.Mutex
	items    []domain.CartLineItem
	clearErr error
	cleared  bool
}

func (c *fakeCart) Items() []domain.CartLineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.CloneItems(c.items)
}

func (c *fakeCart) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clearErr != nil {
		return c.clearErr
	}
	c.cleared = true
	c.items = nil
	return nil
}

func validForm() domain.CheckoutForm {
	return domain.CheckoutForm{
		UserEmail:     "alice@example.com",
		State:         "Punjab",
		City:          "Lahore",
		Address:       "12 Mall Road",
		PhoneNumber:   "03001234567",
		PaymentMethod: domain.PaymentCard,
		TransactionID: "txn-778",
	}
}

func cartWith(items ...domain.CartLineItem) *fakeCart {
	return &fakeCart{items: items}
}

func TestSubmit_EmptyCartRejectedBeforeNetwork(t *testing.T) {
	backend := &mockOrderBackend{}
	s := NewSubmitter(backend, cartWith(), nil)
	s.SetForm(validForm())

	err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, 0, backend.calls, "no request may be dispatched for an empty cart")
	assert.Equal(t, domain.CheckoutIdle, s.Status())
}

func TestSubmit_GatingChecks(t *testing.T) {
	item := domain.CartLineItem{ProductID: 1, Name: "Headphones", Quantity: 1, Price: 59.99}

	tests := []struct {
		name    string
		mutate  func(*domain.CheckoutForm)
		wantErr error
	}{
		{"missing email", func(f *domain.CheckoutForm) { f.UserEmail = "" }, ErrMissingEmail},
		{"missing payment method", func(f *domain.CheckoutForm) { f.PaymentMethod = "" }, ErrMissingPayment},
		{"card without transaction id", func(f *domain.CheckoutForm) { f.TransactionID = "" }, ErrMissingTransactionID},
		{"paypal without transaction id", func(f *domain.CheckoutForm) {
			f.PaymentMethod = domain.PaymentPaypal
			f.TransactionID = ""
		}, ErrMissingTransactionID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockOrderBackend{}
			s := NewSubmitter(backend, cartWith(item), nil)
			form := validForm()
			tt.mutate(&form)
			s.SetForm(form)

			assert.ErrorIs(t, s.Submit(context.Background()), tt.wantErr)
			assert.Equal(t, 0, backend.calls)
		})
	}
}

func TestSubmit_SnapshotImmutable(t *testing.T) {
	backend := &mockOrderBackend{}
	cart := cartWith(domain.CartLineItem{ProductID: 1, Name: "Headphones", Quantity: 2, Price: 59.99})
	s := NewSubmitter(backend, cart, nil)
	s.SetForm(validForm())

	require.NoError(t, s.Submit(context.Background()))

	// Mutating the live cart after submission must not affect the
	// payload that was sent.
	cart.mu.Lock()
	cart.items = append(cart.items, domain.CartLineItem{ProductID: 2, Name: "Speaker", Quantity: 1})
	cart.mu.Unlock()

	require.Len(t, backend.lastItem, 1)
	assert.Equal(t, int64(1), backend.lastItem[0].ProductID)
	assert.Equal(t, 2, backend.lastItem[0].Quantity)
}

func TestSubmit_SuccessClearsCartAndResetsForm(t *testing.T) {
	backend := &mockOrderBackend{}
	cart := cartWith(domain.CartLineItem{ProductID: 1, Name: "Headphones", Quantity: 2, Price: 59.99})
	s := NewSubmitter(backend, cart, nil)
	s.SetForm(validForm())

	require.NoError(t, s.Submit(context.Background()))

	assert.Equal(t, domain.CheckoutSucceeded, s.Status())
	assert.True(t, cart.cleared)
	assert.Equal(t, domain.DefaultCheckoutForm(), s.Form())
}

func TestSubmit_FailureLeavesCartAndForm(t *testing.T) {
	backend := &mockOrderBackend{err: errors.New("backend unavailable")}
	cart := cartWith(domain.CartLineItem{ProductID: 1, Name: "Headphones", Quantity: 2, Price: 59.99})
	s := NewSubmitter(backend, cart, nil)
	form := validForm()
	s.SetForm(form)

	require.Error(t, s.Submit(context.Background()))

	assert.Equal(t, domain.CheckoutFailed, s.Status())
	assert.False(t, cart.cleared, "cart must stay intact for a retry")
	assert.Equal(t, form, s.Form(), "form must stay intact for a retry")
	assert.Len(t, cart.Items(), 1)
}

func TestSubmit_ClearFailureIsBenign(t *testing.T) {
	backend := &mockOrderBackend{}
	cart := cartWith(domain.CartLineItem{ProductID: 1, Name: "Headphones", Quantity: 2, Price: 59.99})
	cart.clearErr = errors.New("clear failed")
	s := NewSubmitter(backend, cart, nil)
	s.SetForm(validForm())

	// The order was placed; a failed local clear is resolved by the
	// next fetch, not surfaced as a submission failure.
	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, domain.CheckoutSucceeded, s.Status())
	assert.Equal(t, 1, backend.calls)
}

func TestSnapshot_CopiesFields(t *testing.T) {
	items := []domain.CartLineItem{
		{ProductID: 1, Name: "Headphones", Quantity: 2, Price: 59.99, ImageURL: "img"},
	}
	snap := Snapshot(items)

	require.Len(t, snap, 1)
	assert.Equal(t, domain.OrderItem{
		ProductID:   1,
		ProductName: "Headphones",
		Quantity:    2,
		Price:       59.99,
		ImageURL:    "img",
	}, snap[0])

	items[0].Quantity = 9
	assert.Equal(t, 2, snap[0].Quantity)
}
