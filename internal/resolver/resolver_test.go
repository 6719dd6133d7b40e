package resolver

import (
	"errors"
	"math"
	"testing"

	"github.com/napolitain/factory-env/internal/economy"
	"github.com/napolitain/factory-env/internal/models"
)

func newTestEnv(t *testing.T, horizon float64, opts ...Option) *Env {
	t.Helper()
	env, err := New(horizon, opts...)
	if err != nil {
		t.Fatalf("New(%v): %v", horizon, err)
	}
	env.Reset()
	return env
}

func TestNewRejectsInvalidHorizon(t *testing.T) {
	for _, h := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := New(h); !errors.Is(err, ErrInvalidHorizon) {
			t.Errorf("horizon %v: expected ErrInvalidHorizon, got %v", h, err)
		}
	}
	if _, err := New(0); err != nil {
		t.Errorf("zero horizon should be accepted: %v", err)
	}
}

func TestResetObservation(t *testing.T) {
	env := newTestEnv(t, 3600)
	env.Resolve(models.Wait)

	obs := env.Reset()
	want := models.Observation{1000, 1000, 1, 1, 1, 0}
	if obs != want {
		t.Errorf("Expected %v, got %v", want, obs)
	}
	if env.Done() {
		t.Error("fresh env should be running")
	}
}

func TestWaitAdvancesToHorizon(t *testing.T) {
	env := newTestEnv(t, 10)

	res := env.Step(models.Wait)

	if res.Observation[models.ObsElapsed] != 10 {
		t.Errorf("Expected elapsed 10, got %v", res.Observation[models.ObsElapsed])
	}
	if res.Observation[models.ObsResourceA] != 1050 {
		t.Errorf("Expected A 1050, got %v", res.Observation[models.ObsResourceA])
	}
	if res.Observation[models.ObsResourceB] != 1030 {
		t.Errorf("Expected B 1030, got %v", res.Observation[models.ObsResourceB])
	}
	if !res.Done {
		t.Error("Expected done after waiting to the horizon")
	}
	if res.Reward != 80 {
		t.Errorf("Expected reward 80 (10s of 5+3), got %v", res.Reward)
	}
	if res.Info == nil || len(res.Info) != 0 {
		t.Errorf("Expected empty info map, got %v", res.Info)
	}
}

func TestWaitWithZeroRemaining(t *testing.T) {
	env := newTestEnv(t, 0)

	o := env.Resolve(models.Wait)
	if o.Wait != 0 || o.Reward != 0 || !o.Done {
		t.Errorf("Expected zero wait, zero reward, done; got %+v", o)
	}
}

func TestBuildPowerBlockedAtReset(t *testing.T) {
	env := newTestEnv(t, 1e9)
	before := env.State()

	o := env.Resolve(models.BuildA)

	if o.Wait != 0 {
		t.Errorf("Resources already cover A, expected no wait, got %v", o.Wait)
	}
	if !o.Attempted || o.Purchased {
		t.Errorf("Expected attempted-but-failed purchase, got %+v", o)
	}
	if env.State() != before {
		t.Errorf("Power-blocked build must not change state: %+v -> %+v", before, env.State())
	}
	if o.Reward != 0 {
		t.Errorf("Expected zero reward, got %v", o.Reward)
	}
}

func TestBuildAfterPowerFlip(t *testing.T) {
	env := newTestEnv(t, 1e9)

	o := env.Resolve(models.BuildPower)
	if !o.Purchased || o.Wait != 0 {
		t.Fatalf("power purchase at reset should be immediate, got %+v", o)
	}
	if o.Cost != (models.Costs{A: 400, B: 200}) {
		t.Errorf("Expected power cost (400,200), got %+v", o.Cost)
	}

	o = env.Resolve(models.BuildA)
	s := env.State()
	if !o.Purchased || o.Wait != 0 {
		t.Fatalf("A should now be immediate, got %+v", o)
	}
	if s.LevelA != 2 || s.ResourceA != 400 || s.ResourceB != 700 {
		t.Errorf("Expected levelA=2 A=400 B=700, got levelA=%d A=%v B=%v", s.LevelA, s.ResourceA, s.ResourceB)
	}
	if s.PowerUse() > s.PowerGen() {
		t.Errorf("power use %d exceeds gen %d", s.PowerUse(), s.PowerGen())
	}
}

func TestBuildWaitsForShortfall(t *testing.T) {
	env := newTestEnv(t, 1e9)
	env.Resolve(models.BuildPower) // A=600 B=800

	// Next power level costs (800,400): 200 A short at 5/s
	o := env.Resolve(models.BuildPower)
	s := env.State()

	if o.Wait != 40 {
		t.Errorf("Expected 40s wait, got %v", o.Wait)
	}
	if !o.Purchased {
		t.Fatal("Expected purchase after waiting")
	}
	if s.Elapsed != 40 || s.ResourceA != 0 || s.ResourceB != 520 {
		t.Errorf("Expected t=40 A=0 B=520, got t=%v A=%v B=%v", s.Elapsed, s.ResourceA, s.ResourceB)
	}
	// Purchases are value-neutral under the sunk valuation; only production counts
	if o.Reward != 320 {
		t.Errorf("Expected reward 320, got %v", o.Reward)
	}
}

func TestBuildWaitClampedToHorizon(t *testing.T) {
	env := newTestEnv(t, 20)
	env.Resolve(models.BuildPower) // A=600 B=800, needs 40s for the next one

	o := env.Resolve(models.BuildPower)
	s := env.State()

	if o.Wait != 20 {
		t.Errorf("Expected wait clamped to 20, got %v", o.Wait)
	}
	if o.Purchased {
		t.Error("Purchase should fail when the clamped wait is insufficient")
	}
	if s.ResourceA != 700 || s.ResourceB != 860 || s.LevelPower != 2 {
		t.Errorf("Expected A=700 B=860 power=2, got A=%v B=%v power=%d", s.ResourceA, s.ResourceB, s.LevelPower)
	}
	if !o.Done {
		t.Error("Expected done at the horizon")
	}
	if o.Reward != 160 {
		t.Errorf("Expected passive reward 160, got %v", o.Reward)
	}
}

func TestRepeatedPowerBuilds(t *testing.T) {
	env := newTestEnv(t, 1e9)

	prev := env.State()
	for i := 0; i < 8; i++ {
		o := env.Resolve(models.BuildPower)
		s := env.State()
		if !o.Purchased {
			t.Fatalf("power build %d failed after waiting %v (A=%v B=%v)", i, o.Wait, s.ResourceA, s.ResourceB)
		}
		if s.PowerUse() < prev.PowerUse() {
			t.Errorf("build %d lowered power use %d -> %d", i, prev.PowerUse(), s.PowerUse())
		}
		if s.PowerGen() <= prev.PowerGen() {
			t.Errorf("build %d did not raise power gen %d -> %d", i, prev.PowerGen(), s.PowerGen())
		}
		prev = s
	}
}

func TestWaitedBuildsAlwaysSucceed(t *testing.T) {
	env := newTestEnv(t, 1e12)
	env.Resolve(models.BuildPower)
	env.Resolve(models.BuildPower)

	// Rates of 5 and 3 per second make shortfall/rate inexact; the purchase
	// must still succeed right after its own catch-up wait
	for i := 0; i < 30; i++ {
		c := models.AllChoices()[i%3]
		ft, _ := c.Facility()
		s := env.State()
		if !s.PowerBalanceAllows(ft) {
			env.Resolve(models.BuildPower)
			continue
		}
		if o := env.Resolve(c); !o.Purchased {
			t.Fatalf("step %d: %s failed after waiting %v", i, c, o.Wait)
		}
	}
}

func TestRewardIsNetWorthDelta(t *testing.T) {
	env := newTestEnv(t, 500)
	choices := []models.Choice{models.BuildPower, models.BuildB, models.BuildA, models.BuildPower, models.Wait}

	total := 0.0
	start := env.NetWorth()
	for _, c := range choices {
		before := env.NetWorth()
		res := env.Step(c)
		if diff := env.NetWorth() - before; diff != res.Reward {
			t.Errorf("%s: reward %v != net worth delta %v", c, res.Reward, diff)
		}
		total += res.Reward
	}
	if math.Abs(total-(env.NetWorth()-start)) > 1e-6 {
		t.Errorf("Rewards %v do not telescope to %v", total, env.NetWorth()-start)
	}
}

func TestValuationOnlyShiftsNetWorth(t *testing.T) {
	sunk := newTestEnv(t, 300)
	paid := newTestEnv(t, 300, WithValuation(PurchasedValuation))

	for _, c := range []models.Choice{models.BuildPower, models.BuildA, models.BuildB, models.Wait} {
		a := sunk.Resolve(c)
		b := paid.Resolve(c)
		if a.Reward != b.Reward {
			t.Errorf("%s: sunk reward %v, purchased reward %v", c, a.Reward, b.Reward)
		}
		if a.NetWorth-b.NetWorth != 675 {
			t.Errorf("%s: expected valuations 675 apart, got %v", c, a.NetWorth-b.NetWorth)
		}
	}
}

func TestWaitTimeInfiniteWithoutProduction(t *testing.T) {
	s := economy.NewState()
	s.LevelA = 0 // no A production
	s.ResourceA = 0

	if got := WaitTime(s, models.FacilityPower); !math.IsInf(got, 1) {
		t.Errorf("Expected +Inf wait with zero production, got %v", got)
	}

	// Covered shortfalls need no production at all
	s.ResourceA = 1e6
	if got := WaitTime(s, models.FacilityPower); got != 0 {
		t.Errorf("Expected zero wait, got %v", got)
	}
}

func TestWaitTimeTakesSlowestResource(t *testing.T) {
	s := economy.NewState()
	s.ResourceA, s.ResourceB = 0, 0

	// Power quote (400,200): A needs 80s at 5/s, B needs 66.67s at 3/s
	got := WaitTime(s, models.FacilityPower)
	if got < 80 || got > 80+1e-9 {
		t.Errorf("Expected ~80s, got %v", got)
	}
}

func TestInvalidChoicePanics(t *testing.T) {
	env := newTestEnv(t, 10)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for an invalid choice")
		}
	}()
	env.Resolve(models.Choice(0))
}

type countingRecorder struct {
	resets, steps, purchases int
}

func (r *countingRecorder) ObserveReset() { r.resets++ }
func (r *countingRecorder) ObserveStep(o Outcome) {
	r.steps++
	if o.Purchased {
		r.purchases++
	}
}

func TestRecorderObservesSteps(t *testing.T) {
	rec := &countingRecorder{}
	env := newTestEnv(t, 100, WithRecorder(rec))

	env.Step(models.BuildPower)
	env.Step(models.BuildA)
	env.Step(models.Wait)

	if rec.resets != 1 || rec.steps != 3 || rec.purchases != 2 {
		t.Errorf("Expected 1 reset, 3 steps, 2 purchases; got %+v", rec)
	}
}

func TestIndependentEnvs(t *testing.T) {
	a := newTestEnv(t, 100)
	b := newTestEnv(t, 100)

	a.Step(models.BuildPower)
	if b.State() != *economy.NewState() {
		t.Error("stepping one env changed another")
	}
}

func TestParseValuation(t *testing.T) {
	s := economy.NewState()
	for name, want := range map[string]float64{"": 2675, "sunk": 2675, "purchased": 2000} {
		v, err := ParseValuation(name)
		if err != nil {
			t.Fatalf("ParseValuation(%q): %v", name, err)
		}
		if got := v(s); got != want {
			t.Errorf("%q valuation at reset = %v, want %v", name, got, want)
		}
	}
	if _, err := ParseValuation("market"); err == nil {
		t.Error("expected error for unknown valuation")
	}
}
