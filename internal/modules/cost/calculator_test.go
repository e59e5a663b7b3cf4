package cost

import (
	"testing"

	"vtc/internal/types"
)

func ptr(v float64) *float64 { return &v }

func TestComponentFormulas(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		// 120km / 100 * 8 L * 1.80 = 17.28
		{"fuel", CalculateFuelCost(120, 8, 1.80).Amount, 17.28},
		// 120km * 0.12 = 14.40
		{"tolls", CalculateTollCost(120, 0.12).Amount, 14.40},
		// 120km * 0.08 = 9.60
		{"wear", CalculateWearCost(120, 0.08).Amount, 9.60},
		// 90min / 60 * 25 = 37.50
		{"driver", CalculateDriverCost(90, 25).Amount, 37.50},
		// 33.3km * 0.15 = 4.995 -> 5.00 (half-up)
		{"rounding half-up", CalculateWearCost(33.3, 0.15).Amount, 5.00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestCalculate_TotalIsSumOfComponents(t *testing.T) {
	params := Params{
		FuelConsumptionL100km: 7.3,
		FuelPricePerLiter:     1.789,
		FuelType:              FuelDiesel,
		TollCostPerKm:         0.117,
		WearCostPerKm:         0.083,
		DriverHourlyCost:      27.5,
	}
	inputs := []Input{
		{DistanceKm: 12.345, DurationMinutes: 23},
		{DistanceKm: 0, DurationMinutes: 45},
		{DistanceKm: 333.33, DurationMinutes: 217, ParkingCost: 12.5, ZoneSurcharges: 7.333},
	}
	for _, in := range inputs {
		b := Calculate(in, params)
		sum := types.RoundMoney(b.Fuel.Amount + b.Tolls.Amount + b.Wear.Amount + b.Driver.Amount + b.Parking.Amount + b.ZoneSurcharges)
		if b.Total != sum {
			t.Errorf("input %+v: total %v != component sum %v", in, b.Total, sum)
		}
	}
}

func TestCalculate_TCOReplacesWear(t *testing.T) {
	params := Params{
		FuelConsumptionL100km: 8,
		FuelPricePerLiter:     1.8,
		TollCostPerKm:         0.1,
		WearCostPerKm:         0.08,
		DriverHourlyCost:      30,
		TCO:                   &TCOConfig{DepreciationPerKm: 0.10, MaintenancePerKm: 0.05, InsurancePerKm: 0.03},
	}
	b := Calculate(Input{DistanceKm: 100, DurationMinutes: 60}, params)
	if b.Wear.Amount != 0 {
		t.Errorf("wear should be replaced by TCO, got %v", b.Wear.Amount)
	}
	if b.TCO == nil || b.TCO.Amount != 18 {
		t.Fatalf("expected TCO amount 18, got %+v", b.TCO)
	}
	// fuel 14.40 + tolls 10 + driver 30 + tco 18
	if b.Total != 72.40 {
		t.Errorf("total = %v, want 72.40", b.Total)
	}
}

func TestCalculate_LiveTollOverride(t *testing.T) {
	live := LiveTollCost(50, 6.8)
	b := Calculate(Input{DistanceKm: 50, Tolls: &live}, Params{TollCostPerKm: 0.5})
	if b.Tolls.Amount != 6.8 || b.Tolls.Source != TollLive {
		t.Errorf("expected live toll 6.8, got %+v", b.Tolls)
	}
}

func TestResolveTCO(t *testing.T) {
	if ResolveTCO(nil, nil) != nil {
		t.Fatal("no overrides must mean no TCO model")
	}
	vehicle := &TCOOverrides{DepreciationPerKm: ptr(0.2)}
	category := &TCOOverrides{DepreciationPerKm: ptr(0.1), InsurancePerKm: ptr(0.04)}

	cfg := ResolveTCO(vehicle, category)
	if cfg == nil {
		t.Fatal("expected TCO config")
	}
	if cfg.DepreciationPerKm != 0.2 || cfg.InsurancePerKm != 0.04 || cfg.MaintenancePerKm != 0 {
		t.Errorf("unexpected merge: %+v", cfg)
	}
	if cfg.Source != "MIXED" {
		t.Errorf("source = %s, want MIXED", cfg.Source)
	}
	if got := ResolveTCO(nil, category).Source; got != "CATEGORY" {
		t.Errorf("source = %s, want CATEGORY", got)
	}
}

func TestCombine(t *testing.T) {
	p := Params{FuelConsumptionL100km: 8, FuelPricePerLiter: 1.8, TollCostPerKm: 0.1, WearCostPerKm: 0.1, DriverHourlyCost: 30}
	a := Calculate(Input{DistanceKm: 10, DurationMinutes: 15}, p)
	b := Calculate(Input{DistanceKm: 30, DurationMinutes: 40, ParkingCost: 5}, p)
	c := Combine(a, b)
	if c.Fuel.DistanceKm != 40 || c.Driver.DurationMinutes != 55 {
		t.Errorf("quantities not summed: %+v", c)
	}
	if c.Total != types.RoundMoney(a.Total+b.Total) {
		t.Errorf("combined total %v != %v", c.Total, types.RoundMoney(a.Total+b.Total))
	}
	if c.Total != c.ComponentSum() {
		t.Errorf("combined total %v != component sum %v", c.Total, c.ComponentSum())
	}
}
