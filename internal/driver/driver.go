// Package driver rolls out policies against resolver environments and
// compares their results.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/napolitain/factory-env/internal/economy"
	"github.com/napolitain/factory-env/internal/models"
	"github.com/napolitain/factory-env/internal/resolver"
)

// ErrInvalidMaxSteps is returned when the step limit is below one
var ErrInvalidMaxSteps = errors.New("max steps must be at least 1")

// Episode is the record of one policy rollout
type Episode struct {
	ID      string
	Policy  string
	Horizon float64

	Transitions []models.Transition

	InitialNetWorth float64
	FinalNetWorth   float64
	TotalReward     float64
	Final           economy.State

	// Done is false when the rollout stopped at the step limit before the horizon
	Done bool
}

// Purchases counts successful builds in the episode
func (ep *Episode) Purchases() int {
	n := 0
	for _, tr := range ep.Transitions {
		if tr.Purchased {
			n++
		}
	}
	return n
}

// Run resets env and steps it with policy until the horizon or maxSteps.
// Cancellation is checked between steps; the partial episode is returned
// alongside the context error. Episode events go to the env's logger.
func Run(ctx context.Context, env *resolver.Env, policy Policy, maxSteps int) (*Episode, error) {
	if maxSteps < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxSteps, maxSteps)
	}
	if r, ok := policy.(Resetter); ok {
		r.Reset()
	}

	env.Reset()
	ep := &Episode{
		ID:              uuid.NewString(),
		Policy:          policy.Name(),
		Horizon:         env.Horizon(),
		InitialNetWorth: env.NetWorth(),
	}
	logger := env.Logger().With("episode_id", ep.ID, "policy", ep.Policy)
	logger.Info("episode started", "horizon", ep.Horizon, "max_steps", maxSteps)

	for step := 1; step <= maxSteps && !env.Done(); step++ {
		if err := ctx.Err(); err != nil {
			ep.finish(env)
			return ep, err
		}

		c := policy.Choose(env.State(), env.Remaining())
		o := env.Resolve(c)
		s := env.State()

		ep.Transitions = append(ep.Transitions, models.Transition{
			Step:        step,
			Choice:      c,
			WaitSeconds: o.Wait,
			Purchased:   o.Purchased,
			Cost:        o.Cost,
			Reward:      o.Reward,
			NetWorth:    o.NetWorth,
			Observation: s.Observation(),
			PowerUse:    s.PowerUse(),
			PowerGen:    s.PowerGen(),
		})
		ep.TotalReward += o.Reward
	}

	ep.finish(env)
	logger.Info("episode finished",
		"steps", len(ep.Transitions),
		"purchases", ep.Purchases(),
		"net_worth", ep.FinalNetWorth,
		"done", ep.Done,
	)
	return ep, nil
}

func (ep *Episode) finish(env *resolver.Env) {
	ep.Final = env.State()
	ep.FinalNetWorth = env.NetWorth()
	ep.Done = env.Done()
}

// CompareAll runs every policy on its own fresh environment concurrently.
// Results keep the input order. Each policy instance must appear only once.
func CompareAll(ctx context.Context, horizon float64, policies []Policy, maxSteps int, opts ...resolver.Option) ([]*Episode, error) {
	envs := make([]*resolver.Env, len(policies))
	for i := range policies {
		env, err := resolver.New(horizon, opts...)
		if err != nil {
			return nil, err
		}
		envs[i] = env
	}

	episodes := make([]*Episode, len(policies))
	errs := make([]error, len(policies))

	var wg sync.WaitGroup
	for i, p := range policies {
		wg.Add(1)
		go func(i int, p Policy) {
			defer wg.Done()
			episodes[i], errs[i] = Run(ctx, envs[i], p, maxSteps)
		}(i, p)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return episodes, fmt.Errorf("policy %s: %w", policies[i].Name(), err)
		}
	}
	return episodes, nil
}

// Rank returns the episodes ordered by final net worth, best first.
// Ties keep their input order.
func Rank(episodes []*Episode) []*Episode {
	ranked := make([]*Episode, 0, len(episodes))
	for _, ep := range episodes {
		if ep != nil {
			ranked = append(ranked, ep)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalNetWorth > ranked[j].FinalNetWorth
	})
	return ranked
}

// Best returns the highest net worth episode, or nil for an empty list
func Best(episodes []*Episode) *Episode {
	ranked := Rank(episodes)
	if len(ranked) == 0 {
		return nil
	}
	return ranked[0]
}
