package api_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/domain"
	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/internal/api"
	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/internal/auth"
	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/internal/cart"
	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/internal/checkout"
	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/internal/identity"
	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/internal/stubserver"
)

// storefront wires the full client stack against an in-process backend,
// the way cmd/storefront assembles it.
type storefront struct {
	backend  *stubserver.Server
	client   *api.Client
	carts    *cart.Store
	checkout *checkout.Submitter
	manager  *auth.Manager
	resolver *identity.Resolver
}

func newStorefront(t *testing.T) *storefront {
	t.Helper()
	backend := stubserver.New("flow-secret", nil)
	srv := httptest.NewServer(backend.Router())
	t.Cleanup(srv.Close)

	sf := &storefront{backend: backend}
	sf.client = api.NewClient(srv.URL,
		api.WithTokenSource(api.TokenSourceFunc(func() string {
			if sf.manager == nil {
				return ""
			}
			return sf.manager.Token()
		})))
	sf.resolver = identity.NewResolver(identity.NewMemoryStore(), nil)
	sf.carts = cart.NewStore(sf.client, cart.WithUndoWindow(200*time.Millisecond))
	sf.checkout = checkout.NewSubmitter(sf.client, sf.carts, nil)
	sf.manager = auth.NewManager(sf.client, sf.resolver, sf.carts, nil)
	return sf
}

func (sf *storefront) startAnonymous(t *testing.T, ctx context.Context) domain.OwnerKey {
	t.Helper()
	owner, err := sf.resolver.Resolve(ctx)
	require.NoError(t, err)
	require.NoError(t, sf.carts.SwitchOwner(ctx, owner))
	return owner
}

func TestFlow_AnonymousBrowseAndShop(t *testing.T) {
	sf := newStorefront(t)
	ctx := context.Background()
	id := sf.backend.SeedProduct(domain.Product{Name: "Headphones", Price: 59.99, Stock: 10})
	sf.startAnonymous(t, ctx)

	require.NoError(t, sf.carts.Add(ctx, id, 2))
	items := sf.carts.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 8, sf.backend.ProductStock(id))

	require.NoError(t, sf.carts.Update(ctx, id, 5))
	require.NoError(t, sf.carts.Fetch(ctx))
	items = sf.carts.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 5, sf.backend.ProductStock(id))
}

func TestFlow_RemoveAndUndoAgainstBackend(t *testing.T) {
	sf := newStorefront(t)
	ctx := context.Background()
	id := sf.backend.SeedProduct(domain.Product{Name: "Headphones", Price: 59.99, Stock: 10})
	sf.startAnonymous(t, ctx)

	require.NoError(t, sf.carts.Add(ctx, id, 3))
	undo, err := sf.carts.Remove(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, undo)
	assert.Empty(t, sf.carts.Items())
	assert.Equal(t, 10, sf.backend.ProductStock(id), "removal released the reservation")

	require.NoError(t, undo(ctx))
	require.NoError(t, sf.carts.Fetch(ctx))
	items := sf.carts.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity, "undo restores the removed quantity exactly")
	assert.Equal(t, 7, sf.backend.ProductStock(id))
}

func TestFlow_CheckoutClearsCart(t *testing.T) {
	sf := newStorefront(t)
	ctx := context.Background()
	id := sf.backend.SeedProduct(domain.Product{Name: "Headphones", Price: 59.99, Stock: 10})
	sf.startAnonymous(t, ctx)

	require.NoError(t, sf.carts.Add(ctx, id, 2))
	sf.checkout.SetForm(domain.CheckoutForm{
		UserEmail:     "guest@example.com",
		PaymentMethod: domain.PaymentCard,
		TransactionID: "txn-42",
	})
	require.NoError(t, sf.checkout.Submit(ctx))

	assert.Equal(t, domain.CheckoutSucceeded, sf.checkout.Status())
	assert.Empty(t, sf.carts.Items())

	orders := sf.backend.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, "guest@example.com", orders[0].UserEmail)
	assert.InDelta(t, 119.98, orders[0].TotalAmount, 0.001)
}

func TestFlow_LoginSwitchesToUserCart(t *testing.T) {
	sf := newStorefront(t)
	ctx := context.Background()
	id := sf.backend.SeedProduct(domain.Product{Name: "Headphones", Price: 59.99, Stock: 10})
	sf.backend.SeedUser("Alice", "alice@example.com", "password1", "user")
	sf.startAnonymous(t, ctx)

	// The anonymous cart stays behind on login; no merge.
	require.NoError(t, sf.carts.Add(ctx, id, 2))

	user, err := sf.manager.Login(ctx, "alice@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Empty(t, sf.carts.Items())
	assert.True(t, sf.carts.Owner().Authenticated())

	require.NoError(t, sf.carts.Add(ctx, id, 1))
	items := sf.carts.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)

	// Logout returns to the anonymous session and its untouched cart.
	require.NoError(t, sf.manager.Logout(ctx))
	assert.False(t, sf.carts.Owner().Authenticated())
	items = sf.carts.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestFlow_StockRejectionRollsBackOptimisticUpdate(t *testing.T) {
	sf := newStorefront(t)
	ctx := context.Background()
	id := sf.backend.SeedProduct(domain.Product{Name: "Headphones", Price: 59.99, Stock: 5})
	sf.startAnonymous(t, ctx)

	require.NoError(t, sf.carts.Add(ctx, id, 2))

	// 2 in cart, 3 left in stock; asking for 9 total must be refused
	// and the local view restored.
	err := sf.carts.Update(ctx, id, 9)
	require.Error(t, err)
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Not enough stock", apiErr.Detail)

	items := sf.carts.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.False(t, items[0].Syncing)
}
