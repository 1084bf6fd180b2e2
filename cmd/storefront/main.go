// Command storefront is a one-shot CLI over the Shopease client SDK:
// browse the catalog, mutate the cart, and place orders against a
// running backend (real or stub).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/domain"
	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/internal/api"
	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/internal/auth"
	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/internal/cart"
	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/internal/catalog"
	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/internal/checkout"
	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/internal/identity"
)

type Config struct {
	BaseURL     string
	ProfileDir  string
	HTTPTimeout time.Duration
}

func loadConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		BaseURL:     getEnv("SHOPEASE_API", "http://127.0.0.1:8000"),
		ProfileDir:  getEnv("SHOPEASE_PROFILE", filepath.Join(home, ".shopease")),
		HTTPTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

type app struct {
	cfg      *Config
	client   *api.Client
	store    *cart.Store
	catalog  *catalog.Service
	checkout *checkout.Submitter
	manager  *auth.Manager
	resolver *identity.Resolver
	logger   *zap.Logger
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := loadConfig()
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	a, err := newApp(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "setup failed:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(cfg *Config, logger *zap.Logger) (*app, error) {
	var manager *auth.Manager
	client := api.NewClient(cfg.BaseURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(logger),
		api.WithTokenSource(api.TokenSourceFunc(func() string {
			if manager == nil {
				return ""
			}
			return manager.Token()
		})),
	)

	sessionStore := identity.NewFileStore(filepath.Join(cfg.ProfileDir, "session.json"))
	resolver := identity.NewResolver(sessionStore, logger)
	store := cart.NewStore(client, cart.WithLogger(logger))
	manager = auth.NewManager(client, resolver, store, logger)

	a := &app{
		cfg:      cfg,
		client:   client,
		store:    store,
		catalog:  catalog.NewService(client),
		checkout: checkout.NewSubmitter(client, store, logger),
		manager:  manager,
		resolver: resolver,
		logger:   logger,
	}
	return a, nil
}

// establishOwner restores a persisted login when present, else falls
// back to the anonymous session.
func (a *app) establishOwner(ctx context.Context) error {
	tokenPath := filepath.Join(a.cfg.ProfileDir, "token")
	if data, err := os.ReadFile(tokenPath); err == nil && len(data) > 0 {
		if _, err := a.manager.Restore(ctx, string(data)); err == nil {
			return nil
		}
		// Stale token: drop it and continue anonymously.
		_ = os.Remove(tokenPath)
	}
	owner, err := a.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	return a.store.SwitchOwner(ctx, owner)
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "products":
		return a.cmdProducts(ctx)
	case "product":
		return a.cmdProduct(ctx, args)
	case "categories":
		return a.cmdCategories(ctx)
	case "cart":
		return a.withOwner(ctx, a.cmdCart)
	case "add":
		return a.withOwner(ctx, func(ctx context.Context) error { return a.cmdAdd(ctx, args) })
	case "update":
		return a.withOwner(ctx, func(ctx context.Context) error { return a.cmdUpdate(ctx, args) })
	case "remove":
		return a.withOwner(ctx, func(ctx context.Context) error { return a.cmdRemove(ctx, args) })
	case "clear":
		return a.withOwner(ctx, func(ctx context.Context) error { return a.store.Clear(ctx) })
	case "checkout":
		return a.withOwner(ctx, func(ctx context.Context) error { return a.cmdCheckout(ctx, args) })
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.cmdLogout(ctx)
	case "register":
		return a.cmdRegister(ctx, args)
	case "update-profile":
		return a.cmdUpdateProfile(ctx, args)
	case "delete-account":
		return a.cmdDeleteAccount(ctx)
	case "orders":
		return a.cmdOrders(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) withOwner(ctx context.Context, fn func(context.Context) error) error {
	if err := a.establishOwner(ctx); err != nil {
		return err
	}
	return fn(ctx)
}

func (a *app) cmdProducts(ctx context.Context) error {
	products, err := a.catalog.Products(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		fmt.Printf("%4d  %-28s $%8.2f  stock %d\n", p.ID, p.Name, p.Price, p.Stock)
	}
	return nil
}

func (a *app) cmdProduct(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: storefront product <product_id>")
	}
	productID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid product id %q", args[0])
	}
	detail, err := a.catalog.ProductByID(ctx, productID)
	if err != nil {
		return err
	}
	p := detail.Product
	fmt.Printf("%4d  %-28s $%8.2f  stock %d\n", p.ID, p.Name, p.Price, p.Stock)
	if p.Description != "" {
		fmt.Printf("      %s\n", p.Description)
	}
	if len(detail.Related) > 0 {
		fmt.Println("related:")
		for _, r := range detail.Related {
			fmt.Printf("%4d  %-28s $%8.2f\n", r.ID, r.Name, r.Price)
		}
	}
	return nil
}

func (a *app) cmdCategories(ctx context.Context) error {
	categories, err := a.catalog.Categories(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		fmt.Printf("%4d  %s\n", c.ID, c.Name)
		for _, sub := range c.Subcategories {
			fmt.Printf("      %4d  %s\n", sub.ID, sub.Name)
		}
	}
	return nil
}

func (a *app) cmdCart(ctx context.Context) error {
	if err := a.store.Fetch(ctx); err != nil {
		return err
	}
	items := a.store.Items()
	if len(items) == 0 {
		fmt.Println("cart is empty")
		return nil
	}
	var total float64
	for _, item := range items {
		fmt.Printf("%4d  %-28s x%-3d $%8.2f\n", item.ProductID, item.Name, item.Quantity, item.Price)
		total += item.Price * float64(item.Quantity)
	}
	fmt.Printf("      total: $%.2f\n", total)
	return nil
}

func (a *app) cmdAdd(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: storefront add <product_id> [quantity]")
	}
	productID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid product id %q", args[0])
	}
	quantity := 1
	if len(args) > 1 {
		if quantity, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
	}
	return a.store.Add(ctx, productID, quantity)
}

func (a *app) cmdUpdate(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: storefront update <product_id> <quantity>")
	}
	productID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid product id %q", args[0])
	}
	quantity, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q", args[1])
	}
	return a.store.Update(ctx, productID, quantity)
}

func (a *app) cmdRemove(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	undo := fs.Bool("undo", false, "immediately compensate the removal (demo of the undo path)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: storefront remove [-undo] <product_id>")
	}
	productID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid product id %q", fs.Arg(0))
	}

	if err := a.store.Fetch(ctx); err != nil {
		return err
	}
	undoFn, err := a.store.Remove(ctx, productID)
	if err != nil {
		return err
	}
	if undoFn == nil {
		fmt.Println("product not in cart")
		return nil
	}
	fmt.Println("removed")
	if *undo {
		if err := undoFn(ctx); err != nil {
			return fmt.Errorf("undo failed: %w", err)
		}
		fmt.Println("restored")
	}
	return nil
}

func (a *app) cmdCheckout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	email := fs.String("email", "", "contact email")
	state := fs.String("state", "", "shipping state")
	city := fs.String("city", "", "shipping city")
	address := fs.String("address", "", "street address")
	phone := fs.String("phone", "", "phone number")
	method := fs.String("method", string(domain.PaymentCard), "payment method (card|paypal)")
	txn := fs.String("txn", "", "gateway transaction id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.store.Fetch(ctx); err != nil {
		return err
	}
	a.checkout.SetForm(domain.CheckoutForm{
		UserEmail:     *email,
		State:         *state,
		City:          *city,
		Address:       *address,
		PhoneNumber:   *phone,
		PaymentMethod: domain.PaymentMethod(*method),
		TransactionID: *txn,
	})
	if err := a.checkout.Submit(ctx); err != nil {
		return err
	}
	fmt.Println("order placed")
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	user, err := a.manager.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.cfg.ProfileDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(a.cfg.ProfileDir, "token"), []byte(a.manager.Token()), 0o600); err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", user.Name, user.Email)
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	if err := a.establishOwner(ctx); err != nil {
		return err
	}
	if err := a.manager.Logout(ctx); err != nil {
		return err
	}
	_ = os.Remove(filepath.Join(a.cfg.ProfileDir, "token"))
	fmt.Println("logged out")
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.manager.Register(ctx, *name, *email, *password); err != nil {
		return err
	}
	fmt.Println("registered")
	return nil
}

func (a *app) cmdUpdateProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update-profile", flag.ContinueOnError)
	name := fs.String("name", "", "new display name")
	email := fs.String("email", "", "new account email")
	password := fs.String("password", "", "new account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.establishOwner(ctx); err != nil {
		return err
	}
	if err := a.manager.UpdateProfile(ctx, *name, *email, *password); err != nil {
		return err
	}
	fmt.Println("profile updated")
	return nil
}

func (a *app) cmdDeleteAccount(ctx context.Context) error {
	if err := a.establishOwner(ctx); err != nil {
		return err
	}
	if err := a.manager.DeleteAccount(ctx); err != nil {
		return err
	}
	_ = os.Remove(filepath.Join(a.cfg.ProfileDir, "token"))
	fmt.Println("account deleted")
	return nil
}

func (a *app) cmdOrders(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ContinueOnError)
	email := fs.String("email", "", "order email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	orders, err := a.client.Orders(ctx, *email)
	if err != nil {
		return err
	}
	for _, o := range orders {
		fmt.Printf("#%d  %s  %s  $%.2f  (%d items)\n", o.ID, o.OrderDate.Format("2006-01-02"), o.Status, o.TotalAmount, len(o.Items))
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: storefront <command> [flags]

commands:
  products                       list the catalog
  product <product_id>           show one product with related items
  categories                     list categories and subcategories
  cart                           show the current cart
  add <product_id> [qty]         add a product to the cart
  update <product_id> <qty>      change a line item quantity
  remove [-undo] <product_id>    remove a line item
  clear                          empty the cart
  checkout -email ... -txn ...   place an order from the cart
  login -email -password         authenticate and persist the session
  logout                         drop the session
  register -name -email -password
  update-profile -name -email -password
  delete-account                 delete the logged-in account
  orders -email                  list placed orders`)
}
