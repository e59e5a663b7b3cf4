// README: Cost-resolution strategies. The estimate strategy never blocks; the live strategy calls external sources and falls back to the estimate on failure.
package cost

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"vtc/internal/types"
)

// Resolver supplies the externally sourced inputs of the cost model.
type Resolver interface {
	// FuelPrice returns the price per litre for fuelType; fallback is used when nothing
	// better is available (a non-positive fallback means the static default).
	FuelPrice(ctx context.Context, fuelType FuelType, fallback float64) (float64, PriceSource)
	// TollCost returns the toll for the leg from→to.
	TollCost(ctx context.Context, from, to types.Point, distanceKm, ratePerKm float64) TollCost
}

// FuelPriceSource is a real-time fuel price provider.
type FuelPriceSource interface {
	CurrentPrice(ctx context.Context, fuelType FuelType) (float64, error)
}

// FuelPriceCache stores the last known real-time price.
type FuelPriceCache interface {
	Get(ctx context.Context, fuelType FuelType) (float64, bool, error)
	Set(ctx context.Context, fuelType FuelType, price float64) error
}

// TollProvider is a live toll-cost provider.
type TollProvider interface {
	TollCost(ctx context.Context, from, to types.Point) (float64, error)
}

var ErrNoPrice = errors.New("no fuel price available")

// EstimateResolver uses configured rates only.
type EstimateResolver struct{}

func (EstimateResolver) FuelPrice(_ context.Context, fuelType FuelType, fallback float64) (float64, PriceSource) {
	return defaultOr(fuelType, fallback), PriceDefault
}

func (EstimateResolver) TollCost(_ context.Context, _, _ types.Point, distanceKm, ratePerKm float64) TollCost {
	return CalculateTollCost(distanceKm, ratePerKm)
}

// LiveResolver resolves fuel prices real-time → cache → default and tolls live → estimate.
type LiveResolver struct {
	fuel  FuelPriceSource
	cache FuelPriceCache
	tolls TollProvider
	log   *zap.Logger
}

// NewLiveResolver builds a LiveResolver; any of the collaborators may be nil.
func NewLiveResolver(fuel FuelPriceSource, cache FuelPriceCache, tolls TollProvider, log *zap.Logger) *LiveResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &LiveResolver{fuel: fuel, cache: cache, tolls: tolls, log: log}
}

func (r *LiveResolver) FuelPrice(ctx context.Context, fuelType FuelType, fallback float64) (float64, PriceSource) {
	// Electricity tariffs are contractual; the live feeds only cover liquid fuels.
	if fuelType == FuelElectric {
		return DefaultFuelPrice(FuelElectric), PriceDefault
	}

	if r.fuel != nil {
		price, err := r.fuel.CurrentPrice(ctx, fuelType)
		if err == nil && price > 0 {
			if r.cache != nil {
				if err := r.cache.Set(ctx, fuelType, price); err != nil {
					r.log.Warn("fuel price cache write failed", zap.String("fuel_type", string(fuelType)), zap.Error(err))
				}
			}
			return price, PriceRealtime
		}
		if err == nil {
			err = ErrNoPrice
		}
		r.log.Warn("real-time fuel price unavailable", zap.String("fuel_type", string(fuelType)), zap.Error(err))
	}

	if r.cache != nil {
		price, ok, err := r.cache.Get(ctx, fuelType)
		switch {
		case err != nil:
			r.log.Warn("fuel price cache read failed", zap.String("fuel_type", string(fuelType)), zap.Error(err))
		case ok && price > 0:
			return price, PriceCache
		}
	}

	return defaultOr(fuelType, fallback), PriceDefault
}

func (r *LiveResolver) TollCost(ctx context.Context, from, to types.Point, distanceKm, ratePerKm float64) TollCost {
	if r.tolls == nil || distanceKm <= 0 {
		return CalculateTollCost(distanceKm, ratePerKm)
	}
	amount, err := r.tolls.TollCost(ctx, from, to)
	if err != nil || amount < 0 {
		r.log.Warn("live toll cost unavailable, using estimate", zap.Float64("distance_km", distanceKm), zap.Error(err))
		return CalculateTollCost(distanceKm, ratePerKm)
	}
	return LiveTollCost(distanceKm, amount)
}

func defaultOr(fuelType FuelType, fallback float64) float64 {
	if fuelType == FuelElectric || fallback <= 0 {
		return DefaultFuelPrice(fuelType)
	}
	return fallback
}
