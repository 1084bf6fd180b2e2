package domain

type CheckoutStatus string

const (
	CheckoutIdle       CheckoutStatus = "IDLE"
	CheckoutValidating CheckoutStatus = "VALIDATING"
	CheckoutSubmitting CheckoutStatus = "SUBMITTING"
	CheckoutSucceeded  CheckoutStatus = "SUCCEEDED"
	CheckoutFailed     CheckoutStatus = "FAILED"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutSucceeded || s == CheckoutFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}
