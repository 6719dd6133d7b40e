package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownChoice is returned when a choice name or index does not map to a Choice
var ErrUnknownChoice = errors.New("unknown choice")

// Choice is one of the four high-level decisions an operator can make.
// The zero value is invalid so an unset choice never silently means "build A".
type Choice uint8

const (
	BuildA Choice = iota + 1
	BuildB
	BuildPower
	Wait
)

// AllChoices returns the choices in learner action-index order
func AllChoices() []Choice {
	return []Choice{BuildA, BuildB, BuildPower, Wait}
}

// String returns the wire name of the choice
func (c Choice) String() string {
	switch c {
	case BuildA:
		return "build_a"
	case BuildB:
		return "build_b"
	case BuildPower:
		return "build_power"
	case Wait:
		return "wait"
	default:
		return "unknown"
	}
}

// Valid reports whether c is one of the four defined choices
func (c Choice) Valid() bool {
	return c >= BuildA && c <= Wait
}

// Facility returns the facility a build choice targets; ok is false for Wait
func (c Choice) Facility() (FacilityType, bool) {
	switch c {
	case BuildA:
		return FacilityA, true
	case BuildB:
		return FacilityB, true
	case BuildPower:
		return FacilityPower, true
	}
	return "", false
}

// Index returns the gym-style discrete action index (0..3)
func (c Choice) Index() int {
	if !c.Valid() {
		return -1
	}
	return int(c) - 1
}

// ChoiceFromIndex maps a discrete action index (0: A, 1: B, 2: power, 3: wait)
func ChoiceFromIndex(i int) (Choice, error) {
	if i < 0 || i >= len(AllChoices()) {
		return 0, fmt.Errorf("%w: index %d", ErrUnknownChoice, i)
	}
	return Choice(i + 1), nil
}

// ChoiceForFacility returns the build choice for a facility type
func ChoiceForFacility(ft FacilityType) (Choice, error) {
	switch ft {
	case FacilityA:
		return BuildA, nil
	case FacilityB:
		return BuildB, nil
	case FacilityPower:
		return BuildPower, nil
	}
	return 0, fmt.Errorf("%w: facility %q", ErrUnknownChoice, ft)
}

// ParseChoice accepts a wire name ("build_a"), a short alias ("a", "power", "w")
// or a discrete index ("0".."3")
func ParseChoice(s string) (Choice, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "build_a", "a":
		return BuildA, nil
	case "build_b", "b":
		return BuildB, nil
	case "build_power", "power", "p":
		return BuildPower, nil
	case "wait", "w":
		return Wait, nil
	}
	if i, err := strconv.Atoi(name); err == nil {
		return ChoiceFromIndex(i)
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChoice, s)
}
