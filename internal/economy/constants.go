package economy

import "github.com/napolitain/factory-env/internal/models"

// Economy constants
const (
	// StartingResource is the stockpile of each resource at reset
	StartingResource = 1000.0

	// StartingLevel is the level every facility begins at
	StartingLevel = 1

	// ProductionPerLevelA is resource A produced per second per A-facility level
	ProductionPerLevelA = 5

	// ProductionPerLevelB is resource B produced per second per B-facility level
	ProductionPerLevelB = 3

	// PowerPerLevel is power capacity generated per power-facility level
	PowerPerLevel = 20

	// PowerDrawA is the power consumed per A-facility level
	PowerDrawA = 10

	// PowerDrawB is the power consumed per B-facility level
	PowerDrawB = 15
)

// BaseCost returns the level-1 price pair of a facility type.
// Each further level doubles it.
func BaseCost(ft models.FacilityType) models.Costs {
	switch ft {
	case models.FacilityA:
		return models.Costs{A: 100, B: 50}
	case models.FacilityB:
		return models.Costs{A: 150, B: 75}
	case models.FacilityPower:
		return models.Costs{A: 200, B: 100}
	}
	return models.Costs{}
}

// MarginalPowerDraw returns the power consumption one more level of ft adds.
// Power facilities never consume power.
func MarginalPowerDraw(ft models.FacilityType) int {
	switch ft {
	case models.FacilityA:
		return PowerDrawA
	case models.FacilityB:
		return PowerDrawB
	}
	return 0
}
