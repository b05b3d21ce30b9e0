package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/rentalz-backend/internal/payments"
	"github.com/angelmondragon/rentalz-backend/internal/payments/providers"
	"github.com/angelmondragon/rentalz-backend/pkg/config"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
	"github.com/angelmondragon/rentalz-backend/pkg/paypal"
	"github.com/angelmondragon/rentalz-backend/pkg/redis"
	"github.com/angelmondragon/rentalz-backend/pkg/square"
	"github.com/angelmondragon/rentalz-backend/pkg/stripe"
)

const (
	idempotencyLockTTL    = time.Minute
	memoryCacheSweep      = 5 * time.Minute
	idempotencyStoreMem   = "memory"
	idempotencyStoreRedis = "redis"
)

type gateways struct {
	registry *payments.Registry
	stripe   *stripe.Client
	square   *square.Client
}

// buildGateways registers every provider whose credentials are present. A
// provider that fails to initialize is skipped so the rest keep working.
func buildGateways(ctx context.Context, cfg *config.Config, logg *logger.Logger) gateways {
	g := gateways{registry: payments.NewRegistry(providers.NewOnsite())}

	if cfg.FeatureFlags.TestPayment && !cfg.App.IsProd() {
		g.registry.Register(providers.NewTest())
	}

	if strings.TrimSpace(cfg.Stripe.APIKey) != "" {
		client, err := stripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			logg.Error(ctx, "stripe disabled", err)
		} else if provider, err := providers.NewStripe(client.Payments()); err != nil {
			logg.Error(ctx, "stripe provider disabled", err)
		} else {
			g.stripe = client
			g.registry.Register(provider)
		}
	}

	if strings.TrimSpace(cfg.Square.AccessToken) != "" {
		client, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			logg.Error(ctx, "square disabled", err)
		} else if provider, err := providers.NewSquare(client); err != nil {
			logg.Error(ctx, "square provider disabled", err)
		} else {
			g.square = client
			g.registry.Register(provider)
		}
	}

	if strings.TrimSpace(cfg.PayPal.ClientID) != "" {
		client, err := paypal.NewClient(ctx, cfg.PayPal, logg)
		if err != nil {
			logg.Error(ctx, "paypal disabled", err)
		} else if provider, err := providers.NewPayPal(client.Orders()); err != nil {
			logg.Error(ctx, "paypal provider disabled", err)
		} else {
			g.registry.Register(provider)
		}
	}

	return g
}

// buildPaymentCache picks the store behind payment idempotency. The returned
// func releases it.
func buildPaymentCache(cfg config.PaymentsConfig, client *redis.Client) (*payments.IdempotencyCache, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.IdempotencyStore)) {
	case idempotencyStoreMem:
		store := payments.NewMemoryIdempotencyStore(memoryCacheSweep)
		cache, err := payments.NewIdempotencyCache(store, cfg.IdempotencyTTL, idempotencyLockTTL)
		if err != nil {
			store.Close()
			return nil, func() {}, err
		}
		return cache, store.Close, nil
	case idempotencyStoreRedis, "":
		store, err := payments.NewRedisIdempotencyStore(client)
		if err != nil {
			return nil, func() {}, err
		}
		cache, err := payments.NewIdempotencyCache(store, cfg.IdempotencyTTL, idempotencyLockTTL)
		return cache, func() {}, err
	default:
		return nil, func() {}, fmt.Errorf("unknown idempotency store %q", cfg.IdempotencyStore)
	}
}
