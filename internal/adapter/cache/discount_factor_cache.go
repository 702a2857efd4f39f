package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
)

// DiscountFactorRepository serves discount-factor curves from memory and falls back
// to the wrapped repository on a miss. Callers always get their own copy of a curve.
type DiscountFactorRepository struct {
	next  domain.DiscountFactorRepository
	cache *gocache.Cache
	log   zerolog.Logger
}

var _ domain.DiscountFactorRepository = (*DiscountFactorRepository)(nil)

// NewDiscountFactorRepository wraps next with a cache whose entries live for ttl
func NewDiscountFactorRepository(next domain.DiscountFactorRepository, ttl time.Duration, log zerolog.Logger) *DiscountFactorRepository {
	return &DiscountFactorRepository{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
		log:   log.With().Str("component", "discount_factor_cache").Logger(),
	}
}

// LoadCurve returns the cached curve for freq, loading it on a miss.
// Failed loads are not cached.
func (r *DiscountFactorRepository) LoadCurve(ctx context.Context, freq domain.PaymentFrequency) ([]decimal.Decimal, error) {
	key := string(freq)
	if cached, ok := r.cache.Get(key); ok {
		return append([]decimal.Decimal(nil), cached.([]decimal.Decimal)...), nil
	}

	factors, err := r.next.LoadCurve(ctx, freq)
	if err != nil {
		return nil, err
	}

	r.cache.Set(key, append([]decimal.Decimal(nil), factors...), gocache.DefaultExpiration)
	r.log.Debug().Str("frequency", key).Int("factors", len(factors)).Msg("Discount factor curve cached")
	return factors, nil
}

// Invalidate drops every cached curve
func (r *DiscountFactorRepository) Invalidate() {
	r.cache.Flush()
}
