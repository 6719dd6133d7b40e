// Package resolver turns discrete build/wait choices into continuous-time
// advances of an economy and scores each step by its net worth delta.
//
// An Env is a sequential state machine with two phases: running while the
// elapsed time is below the horizon, and terminal once it reaches it. Stepping
// a terminal Env is a caller contract violation and is not checked here.
package resolver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/napolitain/factory-env/internal/economy"
	"github.com/napolitain/factory-env/internal/models"
)

// ErrInvalidHorizon is returned by New for a negative, NaN or infinite horizon
var ErrInvalidHorizon = errors.New("invalid horizon")

// Valuation scores an economy; rewards are differences of valuations
type Valuation func(s *economy.State) float64

// SunkValuation values every facility level including the free first one
func SunkValuation(s *economy.State) float64 { return s.NetWorth() }

// PurchasedValuation values only facility levels that were paid for
func PurchasedValuation(s *economy.State) float64 { return s.PurchasedNetWorth() }

// ParseValuation maps a configured valuation name to its function
func ParseValuation(name string) (Valuation, error) {
	switch name {
	case "", "sunk":
		return SunkValuation, nil
	case "purchased":
		return PurchasedValuation, nil
	default:
		return nil, fmt.Errorf("unknown valuation %q", name)
	}
}

// Recorder observes resolution steps, e.g. for metrics
type Recorder interface {
	ObserveReset()
	ObserveStep(o Outcome)
}

type nopRecorder struct{}

func (nopRecorder) ObserveReset()       {}
func (nopRecorder) ObserveStep(Outcome) {}

// Outcome is the full detail of one resolution step
type Outcome struct {
	Choice    models.Choice
	Wait      float64      // seconds advanced this step
	Attempted bool         // a purchase was attempted (build choices only)
	Purchased bool         // the purchase succeeded
	Cost      models.Costs // amount spent, zero unless Purchased
	Reward    float64
	NetWorth  float64 // valuation after the step
	Done      bool
}

// Env wraps one economy and resolves choices against a fixed horizon
type Env struct {
	horizon   float64
	state     *economy.State
	valuation Valuation
	logger    *slog.Logger
	recorder  Recorder
}

// Option configures an Env
type Option func(*Env)

// WithValuation replaces the default sunk-cost valuation
func WithValuation(v Valuation) Option {
	return func(e *Env) {
		if v != nil {
			e.valuation = v
		}
	}
}

// WithLogger sets the logger used for per-step debug output
func WithLogger(l *slog.Logger) Option {
	return func(e *Env) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder sets a step observer
func WithRecorder(r Recorder) Option {
	return func(e *Env) {
		if r != nil {
			e.recorder = r
		}
	}
}

// New creates an Env for the given horizon in simulated seconds.
// The economy starts in its reset state.
func New(horizon float64, opts ...Option) (*Env, error) {
	if math.IsNaN(horizon) || math.IsInf(horizon, 0) || horizon < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHorizon, horizon)
	}

	e := &Env{
		horizon:   horizon,
		state:     economy.NewState(),
		valuation: SunkValuation,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Horizon returns the episode length in simulated seconds
func (e *Env) Horizon() float64 {
	return e.horizon
}

// Logger returns the logger steps are reported to
func (e *Env) Logger() *slog.Logger {
	return e.logger
}

// State returns a copy of the current economy
func (e *Env) State() economy.State {
	return *e.state
}

// Remaining returns the simulated time left before the horizon, never negative
func (e *Env) Remaining() float64 {
	return math.Max(0, e.horizon-e.state.Elapsed)
}

// Done reports whether the episode reached its terminal phase
func (e *Env) Done() bool {
	return e.state.Elapsed >= e.horizon
}

// NetWorth returns the current valuation of the economy
func (e *Env) NetWorth() float64 {
	return e.valuation(e.state)
}

// Reset reinitialises the economy and returns the starting observation
func (e *Env) Reset() models.Observation {
	e.state.Reset()
	e.recorder.ObserveReset()
	return e.state.Observation()
}

// Step resolves one choice and returns the learner-facing result.
// Info is always an empty map.
func (e *Env) Step(c models.Choice) models.StepResult {
	o := e.Resolve(c)
	return models.StepResult{
		Observation: e.state.Observation(),
		Reward:      o.Reward,
		Done:        o.Done,
		Info:        map[string]any{},
	}
}

// Resolve advances the economy for choice c and attempts the purchase it
// names. It panics on a choice outside the four defined values.
func (e *Env) Resolve(c models.Choice) Outcome {
	before := e.valuation(e.state)
	o := Outcome{Choice: c}

	switch c {
	case models.Wait:
		o.Wait = e.Remaining()
		e.advance(o.Wait)

	case models.BuildA, models.BuildB, models.BuildPower:
		ft, _ := c.Facility()
		o.Wait = math.Min(WaitTime(e.state, ft), e.Remaining())
		if o.Wait > 0 {
			e.advance(o.Wait)
		}

		cost := e.state.QuoteCost(ft)
		o.Attempted = true
		o.Purchased = e.state.Purchase(ft)
		if o.Purchased {
			o.Cost = cost
		}

	default:
		panic(fmt.Sprintf("resolver: invalid choice %d", c))
	}

	o.NetWorth = e.valuation(e.state)
	o.Reward = o.NetWorth - before
	o.Done = e.Done()

	e.logger.Debug("resolved choice",
		"choice", c.String(),
		"wait", o.Wait,
		"purchased", o.Purchased,
		"reward", o.Reward,
		"elapsed", e.state.Elapsed,
		"done", o.Done,
	)
	e.recorder.ObserveStep(o)

	return o
}

// advance applies a delta computed by the resolver itself; a rejection means
// the wait arithmetic is broken, not that the caller misbehaved
func (e *Env) advance(dt float64) {
	if err := e.state.Advance(dt); err != nil {
		panic(fmt.Sprintf("resolver: %v", err))
	}
}

// WaitTime returns the seconds of production needed before the next level of
// ft is affordable on resources alone. It is +Inf when a missing resource has
// no production, and ignores the power balance, which waiting cannot change.
func WaitTime(s *economy.State, ft models.FacilityType) float64 {
	costs := s.QuoteCost(ft)

	wait := 0.0
	for _, rt := range models.AllResourceTypes() {
		wait = math.Max(wait, timeToCover(s.Resource(rt), costs.Get(rt), s.ProductionRate(rt)))
	}
	return wait
}

// timeToCover returns the smallest dt for which balance + rate·dt reaches cost,
// evaluated the same way economy.State.Advance accumulates production
func timeToCover(balance, cost, rate float64) float64 {
	if balance >= cost {
		return 0
	}
	if rate <= 0 {
		return math.Inf(1)
	}

	dt := (cost - balance) / rate
	for balance+float64(rate*dt) < cost {
		dt = math.Nextafter(dt, math.Inf(1))
	}
	return dt
}
