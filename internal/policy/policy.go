// Package policy loads and resolves jurisdiction pricing policies (tax
// rate, shipping threshold, flat fee). Policy files live on local disk or
// in S3 and are loaded once at startup.
package policy

import (
	"context"

	"github.com/shopspring/decimal"

	"shopcore/internal/pricing"
)

// Jurisdiction is one entry in a policy file.
type Jurisdiction struct {
	Code                  string          `json:"code"`
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
	FlatShippingFee       decimal.Decimal `json:"flatShippingFee"`
	TaxRate               decimal.Decimal `json:"taxRate"`
}

// Source resolves a jurisdiction code to a pricing policy.
type Source interface {
	// Policy returns the policy for the given jurisdiction code, falling
	// back to the default policy for unknown or empty codes.
	Policy(code string) pricing.Policy
}

// Loader reads jurisdiction policies from a backing store.
type Loader interface {
	// Load reads and parses the policy file at the given path or key.
	Load(ctx context.Context, path string) ([]Jurisdiction, error)
}

// Static is a Source with a single fixed policy, used as a fallback and in
// tests.
type Static struct {
	Fixed pricing.Policy
}

// Policy returns the fixed policy regardless of jurisdiction.
func (s Static) Policy(code string) pricing.Policy {
	return s.Fixed
}
