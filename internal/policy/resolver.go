package policy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"shopcore/internal/pricing"
)

// Resolver implements Source over a set of loaded jurisdictions with a
// default policy for unknown codes. Jurisdictions are read-only after
// initialisation, so no locking is needed.
type Resolver struct {
	policies map[string]pricing.Policy
	fallback pricing.Policy
	logger   zerolog.Logger
}

// NewResolver loads the policy file at path through the given loader and
// builds a resolver over it. The fallback policy applies to jurisdictions
// not present in the file.
func NewResolver(ctx context.Context, loader Loader, path string, fallback pricing.Policy, logger zerolog.Logger) (*Resolver, error) {
	logger = logger.With().Str("component", "policy-resolver").Logger()

	jurisdictions, err := loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing policies: %w", err)
	}

	policies := make(map[string]pricing.Policy, len(jurisdictions))
	for _, j := range jurisdictions {
		policies[j.Code] = pricing.Policy{
			FreeShippingThreshold: j.FreeShippingThreshold,
			FlatShippingFee:       j.FlatShippingFee,
			TaxRate:               j.TaxRate,
		}
	}

	logger.Info().
		Int("jurisdictions", len(policies)).
		Msg("pricing policies loaded")

	return &Resolver{
		policies: policies,
		fallback: fallback,
		logger:   logger,
	}, nil
}

// Policy returns the policy for the given jurisdiction code, or the
// fallback for unknown or empty codes.
func (r *Resolver) Policy(code string) pricing.Policy {
	if p, ok := r.policies[code]; ok {
		return p
	}
	if code != "" {
		r.logger.Debug().Str("jurisdiction", code).Msg("unknown jurisdiction, using default policy")
	}
	return r.fallback
}
