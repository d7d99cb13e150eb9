package cycles

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Kind is the spend classification of a transaction.
type Kind int

const (
	Charge Kind = iota
	Refund
	Payment
)

func (k Kind) String() string {
	switch k {
	case Charge:
		return "charge"
	case Refund:
		return "refund"
	case Payment:
		return "payment"
	}
	return "unknown"
}

// PaymentPolicy selects how payments are told apart from spend.
type PaymentPolicy string

const (
	// PolicyDescriptionOnly treats any description match as a payment,
	// whatever the amount sign.
	PolicyDescriptionOnly PaymentPolicy = "description"
	// PolicyDescriptionAndCredit additionally requires a negative amount.
	PolicyDescriptionAndCredit PaymentPolicy = "description_and_credit"
)

// ParsePaymentPolicy maps a config value onto a policy, defaulting to
// description-only for empty or unknown values.
func ParsePaymentPolicy(s string) PaymentPolicy {
	if PaymentPolicy(strings.ToLower(strings.TrimSpace(s))) == PolicyDescriptionAndCredit {
		return PolicyDescriptionAndCredit
	}
	return PolicyDescriptionOnly
}

// Lower-case substrings that mark a card payment.
var paymentIndicators = []string{
	"pymt",
	"payment",
	"autopay",
	"auto pay",
	"ach payment",
	"online payment",
	"mobile payment",
	"electronic payment",
	"web payment",
}

// Classifier labels transactions as charges, refunds or payments.
type Classifier struct {
	policy PaymentPolicy
}

// NewClassifier returns a classifier for the given policy.
func NewClassifier(policy PaymentPolicy) *Classifier {
	if policy == "" {
		policy = PolicyDescriptionOnly
	}
	return &Classifier{policy: policy}
}

// Policy returns the payment policy in effect.
func (c *Classifier) Policy() PaymentPolicy {
	return c.policy
}

// Classify labels a transaction from its description and signed amount.
func (c *Classifier) Classify(description string, amount decimal.Decimal) Kind {
	if IsPaymentDescription(description) {
		if c.policy != PolicyDescriptionAndCredit || amount.IsNegative() {
			return Payment
		}
	}
	if amount.IsNegative() {
		return Refund
	}
	return Charge
}

// IsPaymentDescription reports whether the text matches a payment indicator,
// case-insensitively.
func IsPaymentDescription(description string) bool {
	text := strings.ToLower(description)
	for _, indicator := range paymentIndicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}
	return false
}
