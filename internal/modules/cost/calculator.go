// README: Pure cost component functions. Amounts are rounded at computation time, never deferred.
package cost

import "vtc/internal/types"

func CalculateFuelCost(distanceKm, consumptionL100km, pricePerLiter float64) FuelCost {
	return FuelCost{
		Amount:            types.RoundMoney(distanceKm / 100 * consumptionL100km * pricePerLiter),
		DistanceKm:        distanceKm,
		ConsumptionL100km: consumptionL100km,
		PricePerLiter:     pricePerLiter,
	}
}

func CalculateTollCost(distanceKm, ratePerKm float64) TollCost {
	return TollCost{
		Amount:     types.RoundMoney(distanceKm * ratePerKm),
		DistanceKm: distanceKm,
		RatePerKm:  ratePerKm,
		Source:     TollEstimate,
	}
}

// LiveTollCost wraps an authoritative toll amount. RatePerKm is the implied rate.
func LiveTollCost(distanceKm, amount float64) TollCost {
	t := TollCost{Amount: types.RoundMoney(amount), DistanceKm: distanceKm, Source: TollLive}
	if distanceKm > 0 {
		t.RatePerKm = types.Round(amount/distanceKm, 4)
	}
	return t
}

func CalculateWearCost(distanceKm, ratePerKm float64) WearCost {
	return WearCost{
		Amount:     types.RoundMoney(distanceKm * ratePerKm),
		DistanceKm: distanceKm,
		RatePerKm:  ratePerKm,
	}
}

func CalculateDriverCost(durationMinutes, hourlyRate float64) DriverCost {
	return DriverCost{
		Amount:          types.RoundMoney(durationMinutes / 60 * hourlyRate),
		DurationMinutes: durationMinutes,
		HourlyRate:      hourlyRate,
	}
}

func CalculateTCOCost(distanceKm float64, cfg TCOConfig) TCOCost {
	dep := types.RoundMoney(distanceKm * cfg.DepreciationPerKm)
	mnt := types.RoundMoney(distanceKm * cfg.MaintenancePerKm)
	ins := types.RoundMoney(distanceKm * cfg.InsurancePerKm)
	return TCOCost{
		Amount:       types.RoundMoney(dep + mnt + ins),
		DistanceKm:   distanceKm,
		Depreciation: dep,
		Maintenance:  mnt,
		Insurance:    ins,
		Config:       cfg,
	}
}

// ResolveTCO merges vehicle and category TCO figures, vehicle first. It returns nil when
// neither carries any figure, in which case the flat wear rate applies.
func ResolveTCO(vehicle, category *TCOOverrides) *TCOConfig {
	var cfg TCOConfig
	usedVehicle, usedCategory := false, false
	pick := func(v, c func(*TCOOverrides) *float64) float64 {
		if vehicle != nil && v(vehicle) != nil {
			usedVehicle = true
			return *v(vehicle)
		}
		if category != nil && c(category) != nil {
			usedCategory = true
			return *c(category)
		}
		return 0
	}
	cfg.DepreciationPerKm = pick(
		func(o *TCOOverrides) *float64 { return o.DepreciationPerKm },
		func(o *TCOOverrides) *float64 { return o.DepreciationPerKm })
	cfg.MaintenancePerKm = pick(
		func(o *TCOOverrides) *float64 { return o.MaintenancePerKm },
		func(o *TCOOverrides) *float64 { return o.MaintenancePerKm })
	cfg.InsurancePerKm = pick(
		func(o *TCOOverrides) *float64 { return o.InsurancePerKm },
		func(o *TCOOverrides) *float64 { return o.InsurancePerKm })

	switch {
	case usedVehicle && usedCategory:
		cfg.Source = "MIXED"
	case usedVehicle:
		cfg.Source = "VEHICLE"
	case usedCategory:
		cfg.Source = "CATEGORY"
	default:
		return nil
	}
	return &cfg
}

// Calculate costs one distance/duration unit. With a TCO model the wear component is zero
// and the TCO component carries the ownership cost.
func Calculate(in Input, p Params) Breakdown {
	b := Breakdown{
		Fuel:           CalculateFuelCost(in.DistanceKm, p.FuelConsumptionL100km, p.FuelPricePerLiter),
		Driver:         CalculateDriverCost(in.DurationMinutes, p.DriverHourlyCost),
		Parking:        ParkingCost{Amount: types.RoundMoney(in.ParkingCost)},
		ZoneSurcharges: types.RoundMoney(in.ZoneSurcharges),
	}
	b.Fuel.FuelType = p.FuelType
	b.Fuel.PriceSource = p.FuelPriceSource

	if in.Tolls != nil {
		b.Tolls = *in.Tolls
	} else {
		b.Tolls = CalculateTollCost(in.DistanceKm, p.TollCostPerKm)
	}

	if p.TCO != nil {
		tco := CalculateTCOCost(in.DistanceKm, *p.TCO)
		b.TCO = &tco
		b.Wear = WearCost{DistanceKm: in.DistanceKm}
	} else {
		b.Wear = CalculateWearCost(in.DistanceKm, p.WearCostPerKm)
	}
	b.Total = b.ComponentSum()
	return b
}

// ComponentSum is the sum of all rounded components.
func (b Breakdown) ComponentSum() float64 {
	sum := b.Fuel.Amount + b.Tolls.Amount + b.Wear.Amount + b.Driver.Amount + b.Parking.Amount + b.ZoneSurcharges
	if b.TCO != nil {
		sum += b.TCO.Amount
	}
	return types.RoundMoney(sum)
}

// Combine adds breakdowns component by component. Rates are taken from the first breakdown
// that carries one; quantities and amounts are summed.
func Combine(parts ...Breakdown) Breakdown {
	var out Breakdown
	for _, p := range parts {
		out.Fuel.Amount = types.RoundMoney(out.Fuel.Amount + p.Fuel.Amount)
		out.Fuel.DistanceKm += p.Fuel.DistanceKm
		if out.Fuel.PricePerLiter == 0 {
			out.Fuel.PricePerLiter = p.Fuel.PricePerLiter
			out.Fuel.ConsumptionL100km = p.Fuel.ConsumptionL100km
			out.Fuel.FuelType = p.Fuel.FuelType
			out.Fuel.PriceSource = p.Fuel.PriceSource
		}

		out.Tolls.Amount = types.RoundMoney(out.Tolls.Amount + p.Tolls.Amount)
		out.Tolls.DistanceKm += p.Tolls.DistanceKm
		if out.Tolls.Source == "" || p.Tolls.Source == TollLive {
			out.Tolls.Source = p.Tolls.Source
		}
		if out.Tolls.RatePerKm == 0 {
			out.Tolls.RatePerKm = p.Tolls.RatePerKm
		}

		out.Wear.Amount = types.RoundMoney(out.Wear.Amount + p.Wear.Amount)
		out.Wear.DistanceKm += p.Wear.DistanceKm
		if out.Wear.RatePerKm == 0 {
			out.Wear.RatePerKm = p.Wear.RatePerKm
		}

		out.Driver.Amount = types.RoundMoney(out.Driver.Amount + p.Driver.Amount)
		out.Driver.DurationMinutes += p.Driver.DurationMinutes
		if out.Driver.HourlyRate == 0 {
			out.Driver.HourlyRate = p.Driver.HourlyRate
		}

		out.Parking.Amount = types.RoundMoney(out.Parking.Amount + p.Parking.Amount)
		if out.Parking.Description == "" {
			out.Parking.Description = p.Parking.Description
		}
		out.ZoneSurcharges = types.RoundMoney(out.ZoneSurcharges + p.ZoneSurcharges)

		if p.TCO != nil {
			if out.TCO == nil {
				out.TCO = &TCOCost{Config: p.TCO.Config}
			}
			out.TCO.Amount = types.RoundMoney(out.TCO.Amount + p.TCO.Amount)
			out.TCO.DistanceKm += p.TCO.DistanceKm
			out.TCO.Depreciation = types.RoundMoney(out.TCO.Depreciation + p.TCO.Depreciation)
			out.TCO.Maintenance = types.RoundMoney(out.TCO.Maintenance + p.TCO.Maintenance)
			out.TCO.Insurance = types.RoundMoney(out.TCO.Insurance + p.TCO.Insurance)
		}
	}
	out.Total = out.ComponentSum()
	return out
}
