package economy

import (
	"errors"
	"fmt"
	"math"

	"github.com/napolitain/factory-env/internal/models"
)

var (
	// ErrNegativeDelta is returned by Advance for a time delta below zero
	ErrNegativeDelta = errors.New("negative time delta")

	// ErrInvalidDelta is returned by Advance for a NaN or infinite time delta
	ErrInvalidDelta = errors.New("invalid time delta")
)

// State represents the complete economy: stockpiles, facility levels and clock.
// Production and power figures are derived from the levels on every read, so
// they can never go stale after a purchase.
type State struct {
	ResourceA float64
	ResourceB float64

	LevelA     int
	LevelB     int
	LevelPower int

	Elapsed float64 // simulated seconds since reset
}

// NewState creates a state initialised to the starting values
func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset reinitialises the state to the fixed starting values
func (s *State) Reset() {
	*s = State{
		ResourceA:  StartingResource,
		ResourceB:  StartingResource,
		LevelA:     StartingLevel,
		LevelB:     StartingLevel,
		LevelPower: StartingLevel,
	}
}

// ProdA returns resource A produced per second
func (s *State) ProdA() int {
	return ProductionPerLevelA * s.LevelA
}

// ProdB returns resource B produced per second
func (s *State) ProdB() int {
	return ProductionPerLevelB * s.LevelB
}

// PowerGen returns the total power capacity
func (s *State) PowerGen() int {
	return PowerPerLevel * s.LevelPower
}

// PowerUse returns the total power drawn by production facilities
func (s *State) PowerUse() int {
	return PowerDrawA*s.LevelA + PowerDrawB*s.LevelB
}

// Level returns the current level of a facility
func (s *State) Level(ft models.FacilityType) int {
	switch ft {
	case models.FacilityA:
		return s.LevelA
	case models.FacilityB:
		return s.LevelB
	case models.FacilityPower:
		return s.LevelPower
	default:
		return 0
	}
}

// Resource returns the current amount of a resource
func (s *State) Resource(rt models.ResourceType) float64 {
	switch rt {
	case models.ResourceA:
		return s.ResourceA
	case models.ResourceB:
		return s.ResourceB
	default:
		return 0
	}
}

// ProductionRate returns the per-second production rate for a resource
func (s *State) ProductionRate(rt models.ResourceType) float64 {
	switch rt {
	case models.ResourceA:
		return float64(s.ProdA())
	case models.ResourceB:
		return float64(s.ProdB())
	default:
		return 0
	}
}

// QuoteCost returns the price of the next level of a facility:
// base · 2^currentLevel for each resource.
func (s *State) QuoteCost(ft models.FacilityType) models.Costs {
	return levelCost(ft, s.Level(ft)+1)
}

// levelCost is the price paid to reach level: base · 2^(level-1)
func levelCost(ft models.FacilityType, level int) models.Costs {
	base := BaseCost(ft)
	return models.Costs{
		A: math.Ldexp(base.A, level-1),
		B: math.Ldexp(base.B, level-1),
	}
}

// PowerBalanceAllows reports whether one more level of ft keeps consumption
// within capacity. Power facilities are always allowed.
func (s *State) PowerBalanceAllows(ft models.FacilityType) bool {
	if ft == models.FacilityPower {
		return true
	}
	return s.PowerUse()+MarginalPowerDraw(ft) <= s.PowerGen()
}

// HasResourcesFor reports whether both stockpiles cover costs
func (s *State) HasResourcesFor(costs models.Costs) bool {
	return s.ResourceA >= costs.A && s.ResourceB >= costs.B
}

// CanAfford returns true if the next level of ft is affordable and, for
// production facilities, the projected power use stays within capacity
func (s *State) CanAfford(ft models.FacilityType) bool {
	if s.Level(ft) == 0 {
		return false // unknown facility type
	}
	return s.HasResourcesFor(s.QuoteCost(ft)) && s.PowerBalanceAllows(ft)
}

// Purchase buys the next level of ft. It re-validates affordability and
// returns false without touching the state when the purchase is not possible.
func (s *State) Purchase(ft models.FacilityType) bool {
	if !s.CanAfford(ft) {
		return false
	}

	costs := s.QuoteCost(ft)
	s.ResourceA -= costs.A
	s.ResourceB -= costs.B

	switch ft {
	case models.FacilityA:
		s.LevelA++
	case models.FacilityB:
		s.LevelB++
	case models.FacilityPower:
		s.LevelPower++
	}
	return true
}

// Advance runs production for dt seconds. Negative, NaN or infinite deltas
// are rejected and leave the state untouched.
func (s *State) Advance(dt float64) error {
	if math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidDelta, dt)
	}
	if dt < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeDelta, dt)
	}

	// Explicit conversions keep the products rounded (no fused multiply-add),
	// which the resolver's wait arithmetic relies on
	s.ResourceA += float64(s.ProductionRate(models.ResourceA) * dt)
	s.ResourceB += float64(s.ProductionRate(models.ResourceB) * dt)
	s.Elapsed += dt
	return nil
}

// FacilityValue returns the sunk cost of a facility at its current level:
// the sum of levelCost for levels 1 through L, including the free first level.
func (s *State) FacilityValue(ft models.FacilityType) float64 {
	level := s.Level(ft)
	if level <= 0 {
		return 0
	}
	// Σ_{i=1}^{L} base·2^(i-1) = base·(2^L - 1)
	base := BaseCost(ft).Total()
	return base * (math.Ldexp(1, level) - 1)
}

// NetWorth values the economy as liquid resources plus the sunk cost of every
// facility level, counting level 1 of each facility as if it had been bought
func (s *State) NetWorth() float64 {
	worth := s.ResourceA + s.ResourceB
	for _, ft := range models.AllFacilityTypes() {
		worth += s.FacilityValue(ft)
	}
	return worth
}

// PurchasedNetWorth is NetWorth without the free starting level of each
// facility, i.e. it only values levels that were actually paid for
func (s *State) PurchasedNetWorth() float64 {
	worth := s.NetWorth()
	for _, ft := range models.AllFacilityTypes() {
		worth -= levelCost(ft, StartingLevel).Total()
	}
	return worth
}

// Observation returns the fixed-order numeric view of the state
func (s *State) Observation() models.Observation {
	var obs models.Observation
	obs[models.ObsResourceA] = s.ResourceA
	obs[models.ObsResourceB] = s.ResourceB
	obs[models.ObsLevelA] = float64(s.LevelA)
	obs[models.ObsLevelB] = float64(s.LevelB)
	obs[models.ObsLevelPower] = float64(s.LevelPower)
	obs[models.ObsElapsed] = s.Elapsed
	return obs
}

// Clone creates a copy of the state
func (s *State) Clone() *State {
	clone := *s
	return &clone
}
