package driver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/napolitain/factory-env/internal/economy"
	"github.com/napolitain/factory-env/internal/models"
	"github.com/napolitain/factory-env/internal/resolver"
)

// ErrUnknownPolicy is returned by NewPolicy for an unrecognised name
var ErrUnknownPolicy = errors.New("unknown policy")

// Policy picks the next choice from a read-only view of the economy
type Policy interface {
	Name() string
	Choose(view economy.State, remaining float64) models.Choice
}

// Resetter is implemented by policies that keep per-episode state
type Resetter interface {
	Reset()
}

// BuiltinPolicyNames lists the policies compare runs by default
var BuiltinPolicyNames = []string{"wait", "round-robin", "greedy"}

// NewPolicy builds a policy by name: wait, round-robin, greedy or
// sequence:<choice>,<choice>,...
func NewPolicy(name string) (Policy, error) {
	name = strings.TrimSpace(strings.ToLower(name))

	switch {
	case name == "wait":
		return WaitPolicy{}, nil
	case name == "round-robin" || name == "roundrobin" || name == "rr":
		return &RoundRobin{}, nil
	case name == "greedy":
		return Greedy{}, nil
	case strings.HasPrefix(name, "sequence:"):
		return parseSequence(strings.TrimPrefix(name, "sequence:"))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// BuiltinPolicies returns a fresh instance of each built-in policy
func BuiltinPolicies() []Policy {
	policies := make([]Policy, 0, len(BuiltinPolicyNames))
	for _, name := range BuiltinPolicyNames {
		p, _ := NewPolicy(name)
		policies = append(policies, p)
	}
	return policies
}

func parseSequence(csv string) (Policy, error) {
	var choices []models.Choice
	for _, field := range strings.Split(csv, ",") {
		if strings.TrimSpace(field) == "" {
			continue
		}
		c, err := models.ParseChoice(field)
		if err != nil {
			return nil, err
		}
		choices = append(choices, c)
	}
	if len(choices) == 0 {
		return nil, fmt.Errorf("%w: empty sequence", ErrUnknownPolicy)
	}
	return NewSequence(choices...), nil
}

// WaitPolicy never builds
type WaitPolicy struct{}

func (WaitPolicy) Name() string { return "wait" }

func (WaitPolicy) Choose(economy.State, float64) models.Choice { return models.Wait }

// RoundRobin cycles A, B, Power regardless of affordability
type RoundRobin struct {
	next int
}

func (*RoundRobin) Name() string { return "round-robin" }

func (r *RoundRobin) Choose(economy.State, float64) models.Choice {
	builds := []models.Choice{models.BuildA, models.BuildB, models.BuildPower}
	c := builds[r.next%len(builds)]
	r.next++
	return c
}

func (r *RoundRobin) Reset() { r.next = 0 }

// Sequence replays a scripted list of choices, then waits
type Sequence struct {
	choices []models.Choice
	pos     int
}

// NewSequence creates a scripted policy
func NewSequence(choices ...models.Choice) *Sequence {
	return &Sequence{choices: choices}
}

func (s *Sequence) Name() string {
	names := make([]string, len(s.choices))
	for i, c := range s.choices {
		names[i] = c.String()
	}
	return "sequence:" + strings.Join(names, ",")
}

func (s *Sequence) Choose(economy.State, float64) models.Choice {
	if s.pos >= len(s.choices) {
		return models.Wait
	}
	c := s.choices[s.pos]
	s.pos++
	return c
}

func (s *Sequence) Reset() { s.pos = 0 }

// Greedy builds the production facility with the best ROI that can still
// complete before the horizon. When every production build is power-blocked
// it raises power instead, and it waits once nothing can finish in time.
type Greedy struct{}

func (Greedy) Name() string { return "greedy" }

func (Greedy) Choose(view economy.State, remaining float64) models.Choice {
	best := models.Wait
	bestROI := 0.0
	blocked := false

	for _, ft := range []models.FacilityType{models.FacilityA, models.FacilityB} {
		if !view.PowerBalanceAllows(ft) {
			blocked = true
			continue
		}
		metric := buildMetric(&view, ft, remaining)
		if roi := metric.Calculate(); roi > bestROI {
			best, bestROI = mustChoice(ft), roi
		}
	}

	if best == models.Wait && blocked && resolver.WaitTime(&view, models.FacilityPower) < remaining {
		return models.BuildPower
	}
	return best
}

// buildMetric values one more level of a production facility bought after
// its catch-up wait
func buildMetric(view *economy.State, ft models.FacilityType, remaining float64) ROIMetric {
	var gain float64
	switch ft {
	case models.FacilityA:
		gain = economy.ProductionPerLevelA
	case models.FacilityB:
		gain = economy.ProductionPerLevelB
	}

	return ROIMetric{
		GainPerSecond: gain,
		Seconds:       remaining - resolver.WaitTime(view, ft),
		TotalCost:     view.QuoteCost(ft).Total(),
	}
}

func mustChoice(ft models.FacilityType) models.Choice {
	c, err := models.ChoiceForFacility(ft)
	if err != nil {
		panic(err)
	}
	return c
}
