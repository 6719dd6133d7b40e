package models

// ResourceType represents the raw resources stockpiled by the operator
type ResourceType string

const (
	ResourceA ResourceType = "resource_a"
	ResourceB ResourceType = "resource_b"
)

// AllResourceTypes returns all resource types in deterministic order
func AllResourceTypes() []ResourceType {
	return []ResourceType{ResourceA, ResourceB}
}

// FacilityType represents the buildable facility types
type FacilityType string

const (
	FacilityA     FacilityType = "facility_a"
	FacilityB     FacilityType = "facility_b"
	FacilityPower FacilityType = "power"
)

// AllFacilityTypes returns all facility types in deterministic order
func AllFacilityTypes() []FacilityType {
	return []FacilityType{FacilityA, FacilityB, FacilityPower}
}

// Label returns a short human readable name
func (ft FacilityType) Label() string {
	switch ft {
	case FacilityA:
		return "A"
	case FacilityB:
		return "B"
	case FacilityPower:
		return "Power"
	}
	return string(ft)
}

// Costs is the (A, B) price pair of one facility level
type Costs struct {
	A float64
	B float64
}

// Get returns the cost for a specific resource type
func (c Costs) Get(rt ResourceType) float64 {
	switch rt {
	case ResourceA:
		return c.A
	case ResourceB:
		return c.B
	}
	return 0
}

// Total returns the combined cost of both resources
func (c Costs) Total() float64 {
	return c.A + c.B
}

// Observation field indices. The order is the encoding an external learner
// is trained against and must never change.
const (
	ObsResourceA = iota
	ObsResourceB
	ObsLevelA
	ObsLevelB
	ObsLevelPower
	ObsElapsed
	ObservationSize
)

// ObservationFields names each observation slot in encoding order
var ObservationFields = [ObservationSize]string{
	"resource_a", "resource_b", "level_a", "level_b", "level_power", "elapsed",
}

// Observation is the fixed-length numeric view of the economy handed to a learner
type Observation [ObservationSize]float64

// Slice returns the observation as a slice, for encoders that need one
func (o Observation) Slice() []float64 {
	out := make([]float64, ObservationSize)
	copy(out, o[:])
	return out
}

// StepResult is what a driver receives after resolving one choice
type StepResult struct {
	Observation Observation
	Reward      float64
	Done        bool
	Info        map[string]any
}

// Transition records one resolution step for rendering and comparison
type Transition struct {
	Step        int
	Choice      Choice
	WaitSeconds float64
	Purchased   bool
	Cost        Costs // zero unless Purchased
	Reward      float64
	NetWorth    float64
	Observation Observation
	PowerUse    int
	PowerGen    int
}
