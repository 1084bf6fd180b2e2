package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/domain"
)

const defaultTimeout = 10 * time.Second

// TokenSource supplies the bearer token for authenticated requests.
// An empty token means the caller is anonymous.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource, mostly for tests and one-shot
// CLI invocations.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// TokenSourceFunc adapts a function to a TokenSource.
type TokenSourceFunc func() string

func (f TokenSourceFunc) Token() string { return f() }

// Client is the typed HTTP client for the Shopease backend. All
// storefront components go through it; it owns the timeout policy and
// the circuit breaker guarding the backend host.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	tokens  TokenSource
	logger  *zap.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient substitutes the underlying HTTP client. The supplied
// client's transport is wrapped with otelhttp and the default timeout
// applied when it sets none, so instrumentation survives the swap.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		cp := *h
		if cp.Timeout == 0 {
			cp.Timeout = defaultTimeout
		}
		base := cp.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		cp.Transport = otelhttp.NewTransport(base)
		c.http = &cp
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	// Transport failures trip the breaker; HTTP-level rejections do
	// not (a 400 from stock validation is backend health, not outage).
	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name: "shopease-backend",
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// do executes a request through the breaker and decodes failures. On
// success the caller owns resp.Body.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.http.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("backend request %s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

// doJSON executes a request and decodes a JSON success body into out.
// Pass nil when only the status matters.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// ownerQuery carries the anonymous session id to the backend. An
// authenticated owner is identified by the bearer token instead, but
// the parameter is still sent empty to match the observed clients.
func ownerQuery(owner domain.OwnerKey) url.Values {
	return url.Values{"session_id": []string{owner.SessionID}}
}

// ---- Cart ----

// FetchCart returns the authoritative line items for the owner.
func (c *Client) FetchCart(ctx context.Context, owner domain.OwnerKey) ([]domain.CartLineItem, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/cart/getcart", ownerQuery(owner), nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		CartItems []domain.CartLineItem `json:"cart_items"`
	}
	if err := c.doJSON(req, &payload); err != nil {
		return nil, err
	}
	return payload.CartItems, nil
}

type addCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (c *Client) AddCartItem(ctx context.Context, owner domain.OwnerKey, productID int64, quantity int) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/cart/addcart", ownerQuery(owner),
		addCartRequest{ProductID: productID, Quantity: quantity})
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, owner domain.OwnerKey, productID int64) error {
	path := "/cart/removecart/" + strconv.FormatInt(productID, 10)
	req, err := c.newRequest(ctx, http.MethodDelete, path, ownerQuery(owner), nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

// UpdateCartQuantity sets an absolute quantity. The backend takes it
// as a query parameter, not a body.
func (c *Client) UpdateCartQuantity(ctx context.Context, owner domain.OwnerKey, productID int64, quantity int) error {
	path := "/cart/updatecart/" + strconv.FormatInt(productID, 10)
	query := ownerQuery(owner)
	query.Set("quantity", strconv.Itoa(quantity))
	req, err := c.newRequest(ctx, http.MethodPut, path, query, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

func (c *Client) ClearCart(ctx context.Context, owner domain.OwnerKey) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/cart/clearcart", ownerQuery(owner), nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

// ---- Orders ----

type createOrderRequest struct {
	domain.CheckoutForm
	Items []domain.OrderItem `json:"items"`
}

func (c *Client) CreateOrder(ctx context.Context, form domain.CheckoutForm, items []domain.OrderItem) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/order/create", nil,
		createOrderRequest{CheckoutForm: form, Items: items})
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

func (c *Client) Orders(ctx context.Context, email string) ([]domain.Order, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/order/orders/"+url.PathEscape(email), nil, nil)
	if err != nil {
		return nil, err
	}
	var orders []domain.Order
	if err := c.doJSON(req, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ---- Auth ----

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        domain.User `json:"user"`
}

func (c *Client) Login(ctx context.Context, creds LoginRequest) (*LoginResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/users/login", nil, creds)
	if err != nil {
		return nil, err
	}
	var out LoginResponse
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Register(ctx context.Context, reg RegisterRequest) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/users/register", nil, reg)
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

// UpdateUserRequest carries the editable profile fields. Empty fields
// are left unchanged by the backend.
type UpdateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUser edits the authenticated user's profile. The backend
// identifies the user from the bearer token.
func (c *Client) UpdateUser(ctx context.Context, upd UpdateUserRequest) error {
	req, err := c.newRequest(ctx, http.MethodPut, "/users/update", nil, upd)
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

// DeleteUser removes the account with the given id.
func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	path := "/users/delete/" + strconv.FormatInt(userID, 10)
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

// ---- Catalog ----

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/products/allproducts", nil, nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Products []domain.Product `json:"products"`
	}
	if err := c.doJSON(req, &payload); err != nil {
		return nil, err
	}
	return payload.Products, nil
}

// ProductsBySubcategory lists the products of one subcategory.
func (c *Client) ProductsBySubcategory(ctx context.Context, subcategoryID int64) ([]domain.Product, error) {
	path := "/products/getproductsbyid/" + strconv.FormatInt(subcategoryID, 10)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Products []domain.Product `json:"products"`
	}
	if err := c.doJSON(req, &payload); err != nil {
		return nil, err
	}
	return payload.Products, nil
}

// ProductByID returns the product page payload: the product plus its
// related items.
func (c *Client) ProductByID(ctx context.Context, productID int64) (*domain.ProductDetail, error) {
	path := "/products/getproductbyid/" + strconv.FormatInt(productID, 10)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	var detail domain.ProductDetail
	if err := c.doJSON(req, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Categories returns all categories with their subcategories nested.
func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/categories/all", nil, nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Categories []domain.Category `json:"categories"`
		Count      int               `json:"count"`
	}
	if err := c.doJSON(req, &payload); err != nil {
		return nil, err
	}
	return payload.Categories, nil
}
