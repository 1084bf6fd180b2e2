package domain

import "time"

type OrderItem struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url,omitempty"`
}

type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentPaypal PaymentMethod = "paypal"
)

// RequiresTransactionID reports whether the method needs a gateway
// transaction identifier before an order may be submitted. This is a
// field-presence check, not payment verification.
func (m PaymentMethod) RequiresTransactionID() bool {
	return m == PaymentCard || m == PaymentPaypal
}

// CheckoutForm carries the shipping and payment fields of the checkout
// page. Field names follow the order-creation endpoint.
type CheckoutForm struct {
	UserEmail     string        `json:"user_email"`
	State         string        `json:"state"`
	City          string        `json:"city"`
	Address       string        `json:"address"`
	PhoneNumber   string        `json:"phone_number"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TransactionID string        `json:"transaction_id,omitempty"`
	CardLast4     string        `json:"card_last4,omitempty"`
}

// DefaultCheckoutForm is the reset state after a successful order.
func DefaultCheckoutForm() CheckoutForm {
	return CheckoutForm{PaymentMethod: PaymentCard}
}

// Order is a placed order as returned by the order-history endpoint.
type Order struct {
	ID          int64       `json:"id"`
	UserEmail   string      `json:"user_email"`
	Status      string      `json:"status"`
	OrderDate   time.Time   `json:"order_date"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"total_amount"`
}
