// README: Operational cost components. Every component keeps its rate and basis quantity for traceability.
package cost

type FuelType string

const (
	FuelDiesel   FuelType = "DIESEL"
	FuelGasoline FuelType = "GASOLINE"
	FuelLPG      FuelType = "LPG"
	FuelElectric FuelType = "ELECTRIC"
	FuelHybrid   FuelType = "HYBRID"
)

// PriceSource tells where a fuel price came from.
type PriceSource string

const (
	PriceRealtime PriceSource = "REALTIME"
	PriceCache    PriceSource = "CACHE"
	PriceDefault  PriceSource = "DEFAULT"
)

// TollSource tells whether a toll amount is authoritative or estimated.
type TollSource string

const (
	TollLive     TollSource = "LIVE"
	TollEstimate TollSource = "ESTIMATE"
)

// defaultFuelPrices are EUR per litre (per kWh for electric).
var defaultFuelPrices = map[FuelType]float64{
	FuelDiesel:   1.75,
	FuelGasoline: 1.85,
	FuelLPG:      1.00,
	FuelElectric: 0.25,
	FuelHybrid:   1.85,
}

// DefaultFuelPrice returns the static price for a fuel type (diesel when unknown).
func DefaultFuelPrice(ft FuelType) float64 {
	if p, ok := defaultFuelPrices[ft]; ok {
		return p
	}
	return defaultFuelPrices[FuelDiesel]
}

type FuelCost struct {
	Amount            float64     `json:"amount"`
	DistanceKm        float64     `json:"distanceKm"`
	ConsumptionL100km float64     `json:"consumptionL100km"`
	PricePerLiter     float64     `json:"pricePerLiter"`
	FuelType          FuelType    `json:"fuelType,omitempty"`
	PriceSource       PriceSource `json:"priceSource,omitempty"`
}

type TollCost struct {
	Amount     float64    `json:"amount"`
	DistanceKm float64    `json:"distanceKm"`
	RatePerKm  float64    `json:"ratePerKm"`
	Source     TollSource `json:"source"`
}

type WearCost struct {
	Amount     float64 `json:"amount"`
	DistanceKm float64 `json:"distanceKm"`
	RatePerKm  float64 `json:"ratePerKm"`
}

type DriverCost struct {
	Amount          float64 `json:"amount"`
	DurationMinutes float64 `json:"durationMinutes"`
	HourlyRate      float64 `json:"hourlyRate"`
}

type ParkingCost struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// TCOConfig is a per-km total cost of ownership model replacing the flat wear rate.
type TCOConfig struct {
	DepreciationPerKm float64 `json:"depreciationPerKm"`
	MaintenancePerKm  float64 `json:"maintenancePerKm"`
	InsurancePerKm    float64 `json:"insurancePerKm"`
	Source            string  `json:"source"`
}

// PerKm is the combined TCO rate.
func (c TCOConfig) PerKm() float64 {
	return c.DepreciationPerKm + c.MaintenancePerKm + c.InsurancePerKm
}

// TCOOverrides are the optional TCO figures configured on a vehicle or its category.
type TCOOverrides struct {
	DepreciationPerKm *float64 `json:"depreciationPerKm,omitempty"`
	MaintenancePerKm  *float64 `json:"maintenancePerKm,omitempty"`
	InsurancePerKm    *float64 `json:"insurancePerKm,omitempty"`
}

type TCOCost struct {
	Amount       float64   `json:"amount"`
	DistanceKm   float64   `json:"distanceKm"`
	Depreciation float64   `json:"depreciation"`
	Maintenance  float64   `json:"maintenance"`
	Insurance    float64   `json:"insurance"`
	Config       TCOConfig `json:"config"`
}

// Breakdown is the full cost of a segment or trip. Total is always the literal sum of the
// rounded components.
type Breakdown struct {
	Fuel           FuelCost    `json:"fuel"`
	Tolls          TollCost    `json:"tolls"`
	Wear           WearCost    `json:"wear"`
	Driver         DriverCost  `json:"driver"`
	Parking        ParkingCost `json:"parking"`
	TCO            *TCOCost    `json:"tco,omitempty"`
	ZoneSurcharges float64     `json:"zoneSurcharges"`
	Total          float64     `json:"total"`
}

// Params are the resolved rates used to cost distance and duration.
type Params struct {
	FuelConsumptionL100km float64     `json:"fuelConsumptionL100km"`
	FuelPricePerLiter     float64     `json:"fuelPricePerLiter"`
	FuelType              FuelType    `json:"fuelType"`
	FuelPriceSource       PriceSource `json:"fuelPriceSource"`
	TollCostPerKm         float64     `json:"tollCostPerKm"`
	WearCostPerKm         float64     `json:"wearCostPerKm"`
	DriverHourlyCost      float64     `json:"driverHourlyCost"`
	TCO                   *TCOConfig  `json:"tco,omitempty"`
}

// Input is one unit of work to cost. A nil Tolls means the per-km estimate is used.
type Input struct {
	DistanceKm      float64
	DurationMinutes float64
	ParkingCost     float64
	ZoneSurcharges  float64
	Tolls           *TollCost
}
