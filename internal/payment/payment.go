// Package payment defines the gateway port the order lifecycle charges
// through. The real gateway integration lives outside the core; this
// package holds the contract and a deterministic mock.
package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"shopcore/internal/model"
)

// Authorization is the gateway's answer to a charge attempt.
type Authorization struct {
	// Authorized is false when the gateway declined the charge.
	Authorized bool

	// Reference identifies the charge at the gateway when authorized.
	Reference string
}

// Gateway authorizes a charge for a frozen price breakdown against a
// payment method reference.
type Gateway interface {
	Authorize(ctx context.Context, methodRef string, breakdown model.PriceBreakdown) (*Authorization, error)
}

// MockGateway authorizes everything except method references registered as
// declining. It stands in for a real gateway in development and tests.
type MockGateway struct {
	declined map[string]bool
}

// NewMockGateway creates a mock gateway that declines the given method
// references and authorizes all others.
func NewMockGateway(declinedRefs ...string) *MockGateway {
	declined := make(map[string]bool, len(declinedRefs))
	for _, ref := range declinedRefs {
		declined[ref] = true
	}
	return &MockGateway{declined: declined}
}

// Authorize approves the charge unless the method reference was registered
// as declining.
func (g *MockGateway) Authorize(ctx context.Context, methodRef string, breakdown model.PriceBreakdown) (*Authorization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if g.declined[methodRef] {
		return &Authorization{Authorized: false}, nil
	}

	return &Authorization{
		Authorized: true,
		Reference:  fmt.Sprintf("pay_%s", uuid.New().String()),
	}, nil
}
