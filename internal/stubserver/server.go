// Package stubserver is an in-process implementation of the Shopease
// REST contract, mirroring the production backend's routes, error
// details, and stock bookkeeping. Tests run the SDK against it, and
// cmd/stubserver serves it as a local dev backend.
package stubserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/domain"
)

type cartEntry struct {
	ID        int64
	ProductID int64
	Quantity  int
}

type account struct {
	User     domain.User
	Password string
}

type Server struct {
	mu         sync.Mutex
	products   map[int64]*domain.Product
	categories []domain.Category
	carts      map[string][]cartEntry // keyed by owner (email or session id)
	accounts   map[string]*account    // keyed by email
	orders     []domain.Order
	nextID     int64

	secret []byte
	logger *zap.Logger
	router chi.Router
}

func New(secret string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		products: make(map[int64]*domain.Product),
		carts:    make(map[string][]cartEntry),
		accounts: make(map[string]*account),
		nextID:   1,
		secret:   []byte(secret),
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/getcart", s.getCart)
		r.Post("/addcart", s.addToCart)
		r.Delete("/removecart/{product_id}", s.removeFromCart)
		r.Put("/updatecart/{product_id}", s.updateCart)
		r.Delete("/clearcart", s.clearCart)
	})
	r.Route("/users", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Put("/update", s.updateUser)
		r.Delete("/delete/{user_id}", s.deleteUser)
	})
	r.Route("/order", func(r chi.Router) {
		r.Post("/create", s.createOrder)
		r.Get("/orders/{email}", s.ordersByEmail)
	})
	r.Route("/products", func(r chi.Router) {
		r.Get("/allproducts", s.allProducts)
		r.Get("/getproductbyid/{product_id}", s.productByID)
		r.Get("/getproductsbyid/{sub_category_id}", s.productsBySubcategory)
	})
	r.Get("/categories/all", s.allCategories)

	s.router = r
	return s
}

func (s *Server) Router() http.Handler { return s.router }

// ---- seeding (test and dev setup) ----

func (s *Server) SeedProduct(p domain.Product) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.nextID
		s.nextID++
	}
	s.products[p.ID] = &p
	return p.ID
}

func (s *Server) SeedCategory(c domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, c)
}

func (s *Server) SeedUser(name, email, password, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[strings.ToLower(email)] = &account{
		User:     domain.User{ID: s.nextID, Name: name, Email: strings.ToLower(email), Role: role},
		Password: password,
	}
	s.nextID++
}

// ProductStock reports the remaining stock, for assertions.
func (s *Server) ProductStock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		return p.Stock
	}
	return 0
}

// Orders returns the orders placed so far.
func (s *Server) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// ---- owner resolution ----

// ownerOf mirrors the backend's precedence: a valid bearer token wins,
// then the session_id query parameter, else the request is rejected.
func (s *Server) ownerOf(r *http.Request) (string, bool) {
	if email := s.bearerEmail(r); email != "" {
		return email, true
	}
	if sid := r.URL.Query().Get("session_id"); sid != "" {
		return sid, true
	}
	return "", false
}

func (s *Server) bearerEmail(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}

// ---- cart handlers ----

type addCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.ownerOf(r)
	if !ok {
		respondDetail(w, http.StatusBadRequest, "Login or session_id required for cart")
		return
	}
	var req addCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[req.ProductID]
	if !exists {
		respondDetail(w, http.StatusNotFound, "Product not found")
		return
	}
	if product.Stock < req.Quantity {
		respondDetail(w, http.StatusBadRequest, "Not enough stock available")
		return
	}

	entries := s.carts[owner]
	found := false
	for i := range entries {
		if entries[i].ProductID == req.ProductID {
			entries[i].Quantity += req.Quantity
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, cartEntry{ID: s.nextID, ProductID: req.ProductID, Quantity: req.Quantity})
		s.nextID++
	}
	s.carts[owner] = entries
	product.Stock -= req.Quantity

	respondJSON(w, http.StatusOK, map[string]string{"message": "Product added to cart"})
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.ownerOf(r)
	if !ok {
		respondDetail(w, http.StatusBadRequest, "Login or session_id required for cart")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.CartLineItem, 0)
	for _, entry := range s.carts[owner] {
		product, exists := s.products[entry.ProductID]
		if !exists {
			continue
		}
		items = append(items, domain.CartLineItem{
			CartEntryID: entry.ID,
			ProductID:   product.ID,
			Name:        product.Name,
			Price:       product.Price,
			Quantity:    entry.Quantity,
			Stock:       product.Stock,
			ImageURL:    product.ImageURL,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"cart_items": items, "count": len(items)})
}

func (s *Server) removeFromCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.ownerOf(r)
	if !ok {
		respondDetail(w, http.StatusBadRequest, "Login or session_id required for cart")
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid product id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.carts[owner]
	idx := -1
	for i := range entries {
		if entries[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		respondDetail(w, http.StatusNotFound, "Item not found in cart")
		return
	}

	// Removal releases the reserved stock.
	if product, exists := s.products[productID]; exists {
		product.Stock += entries[idx].Quantity
	}
	s.carts[owner] = append(entries[:idx], entries[idx+1:]...)

	respondJSON(w, http.StatusOK, map[string]string{"message": "Item removed from cart"})
}

func (s *Server) updateCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.ownerOf(r)
	if !ok {
		respondDetail(w, http.StatusBadRequest, "Login or session_id required for cart")
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid product id")
		return
	}
	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid quantity")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.carts[owner]
	idx := -1
	for i := range entries {
		if entries[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		respondDetail(w, http.StatusNotFound, "Item not found in cart")
		return
	}

	diff := quantity - entries[idx].Quantity
	product := s.products[productID]
	if diff > 0 {
		if product == nil || product.Stock < diff {
			respondDetail(w, http.StatusBadRequest, "Not enough stock")
			return
		}
		product.Stock -= diff
	} else if diff < 0 && product != nil {
		product.Stock += -diff
	}
	entries[idx].Quantity = quantity
	s.carts[owner] = entries

	respondJSON(w, http.StatusOK, map[string]string{"message": "Cart updated"})
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.ownerOf(r)
	if !ok {
		respondDetail(w, http.StatusBadRequest, "Login or session_id required for cart")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, owner)

	respondJSON(w, http.StatusOK, map[string]string{"message": "Cart cleared"})
}

// ---- auth handlers ----

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	email := strings.ToLower(req.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[email]; exists {
		respondDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	s.accounts[email] = &account{
		User:     domain.User{ID: s.nextID, Name: req.Name, Email: email, Role: "user"},
		Password: req.Password,
	}
	s.nextID++

	respondJSON(w, http.StatusOK, map[string]string{"message": "User registered successfully"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	acct, exists := s.accounts[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if !exists || acct.Password != req.Password {
		respondDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": acct.User.Email,
		"role":  acct.User.Role,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, "token signing failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": signed,
		"token_type":   "bearer",
		"user":         acct.User,
	})
}

type updateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	email := s.bearerEmail(r)
	if email == "" {
		respondDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" && req.Email == "" && req.Password == "" {
		respondDetail(w, http.StatusBadRequest, "No fields to update")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, exists := s.accounts[email]
	if !exists {
		respondDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if req.Name != "" {
		acct.User.Name = req.Name
	}
	if req.Password != "" {
		acct.Password = req.Password
	}
	if req.Email != "" {
		newEmail := strings.ToLower(req.Email)
		if newEmail != email {
			delete(s.accounts, email)
			acct.User.Email = newEmail
			s.accounts[newEmail] = acct
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "User updated successfully"})
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid user id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for email, acct := range s.accounts {
		if acct.User.ID == userID {
			delete(s.accounts, email)
			respondJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
			return
		}
	}
	respondDetail(w, http.StatusNotFound, "User not found")
}

// ---- order handlers ----

type createOrderRequest struct {
	domain.CheckoutForm
	Items []domain.OrderItem `json:"items"`
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserEmail == "" {
		respondDetail(w, http.StatusBadRequest, "user_email is required")
		return
	}
	if len(req.Items) == 0 {
		respondDetail(w, http.StatusBadRequest, "order has no items")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order := domain.Order{
		ID:        s.nextID,
		UserEmail: req.UserEmail,
		Status:    "pending",
		OrderDate: time.Now(),
		Items:     req.Items,
	}
	for _, item := range req.Items {
		order.TotalAmount += item.Price * float64(item.Quantity)
	}
	s.nextID++
	s.orders = append(s.orders, order)

	respondJSON(w, http.StatusOK, map[string]any{"message": "Order created", "order_id": order.ID})
}

func (s *Server) ordersByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Order, 0)
	for _, order := range s.orders {
		if strings.EqualFold(order.UserEmail, email) {
			out = append(out, order)
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// ---- catalog handlers ----

func (s *Server) allProducts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (s *Server) productByID(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid product id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists {
		respondDetail(w, http.StatusNotFound, "Product not found")
		return
	}

	// Up to four siblings from the same subcategory.
	related := make([]domain.Product, 0, 4)
	for _, p := range s.products {
		if p.ID != productID && p.SubcategoryID == product.SubcategoryID {
			related = append(related, *p)
			if len(related) == 4 {
				break
			}
		}
	}
	respondJSON(w, http.StatusOK, domain.ProductDetail{Product: *product, Related: related})
}

func (s *Server) productsBySubcategory(w http.ResponseWriter, r *http.Request) {
	subID, err := strconv.ParseInt(chi.URLParam(r, "sub_category_id"), 10, 64)
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid subcategory id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Product, 0)
	for _, p := range s.products {
		if p.SubcategoryID == subID {
			out = append(out, *p)
		}
	}
	if len(out) == 0 {
		respondDetail(w, http.StatusNotFound, "Products not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (s *Server) allCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]any{"categories": s.categories, "count": len(s.categories)})
}

// ---- response helpers ----

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}
