package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resort/internal/domain"
	"resort/internal/models"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const (
	priceCacheTTL     = 10 * time.Minute
	priceCacheCleanup = 20 * time.Minute
)

type PricingService struct {
	store  domain.TxStore
	cache  *cache.Cache
	logger *zerolog.Logger
}

var _ domain.PricingService = (*PricingService)(nil)

func NewPricingService(store domain.TxStore, logger *zerolog.Logger) *PricingService {
	return &PricingService{
		store:  store,
		cache:  cache.New(priceCacheTTL, priceCacheCleanup),
		logger: logger,
	}
}

func priceKey(category, typ string) string {
	return category + "/" + typ
}

// Lookup returns the current unit price, served from cache when possible.
func (s *PricingService) Lookup(ctx context.Context, category, typ string) (float64, error) {
	key := priceKey(category, typ)
	if v, found := s.cache.Get(key); found {
		return v.(float64), nil
	}

	price, err := s.store.GetPrice(ctx, category, typ)
	if err != nil {
		return 0, err
	}
	s.cache.Set(key, price, cache.DefaultExpiration)
	return price, nil
}

// fee is Lookup with unconfigured prices treated as free.
func (s *PricingService) fee(ctx context.Context, category, typ string) (float64, error) {
	price, err := s.Lookup(ctx, category, typ)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Debug().Str("category", category).Str("type", typ).Msg("No price configured, charging nothing")
		return 0, nil
	}
	return price, err
}

func (s *PricingService) List(ctx context.Context) ([]*models.PricingSetting, error) {
	return s.store.ListPricing(ctx)
}

// BulkUpdate applies every update or none of them.
func (s *PricingService) BulkUpdate(ctx context.Context, updates []models.PriceUpdate) error {
	if len(updates) == 0 {
		return domain.NewValidationError("prices", "at least one update is required")
	}
	for i, u := range updates {
		if u.ID <= 0 {
			return domain.NewValidationError(fmt.Sprintf("prices[%d].id", i), "is required")
		}
		if u.Price < 0 {
			return domain.NewValidationError(fmt.Sprintf("prices[%d].price", i), "must not be negative")
		}
	}

	err := s.store.WithTx(ctx, func(tx domain.Store) error {
		for _, u := range updates {
			if err := tx.UpdatePrice(ctx, u.ID, u.Price); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Flush()
	s.logger.Info().Int("count", len(updates)).Msg("Pricing updated")
	return nil
}
