package main

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
)

// MCMethod selects the Monte Carlo resampling mode.
type MCMethod int

const (
	MCBootstrap MCMethod = iota
	MCProbability
)

func (m MCMethod) String() string {
	if m == MCProbability {
		return "probability_based"
	}
	return "bootstrap"
}

// ParseMCMethod parses the configured method name.
func ParseMCMethod(s string) (MCMethod, error) {
	switch s {
	case "", "bootstrap":
		return MCBootstrap, nil
	case "probability_based":
		return MCProbability, nil
	}
	return 0, fmt.Errorf("%w: monte_carlo.method %q", ErrConfigInvalid, s)
}

// HitProbEstimator estimates the per-ticket hit probability for
// probability-based trials. Implementations must return a value in
// [0, 1]. The estimator's form is a deliberate extension point; the
// driver refuses to run without one rather than inventing a formula.
type HitProbEstimator func(t *Ticket, race *Race) float64

// MonteCarlo wraps the single-pass replay in resampled trials.
//
// Reproducibility: every trial draws from its own generator seeded
// deterministically from (Seed, trial index), so per-trial outcomes are
// identical across runs and across degrees of parallelism.
type MonteCarlo struct {
	Engine *Engine

	NumTrials int
	Seed      int64
	Method    MCMethod

	Workers       int // 0 = all cores
	KeepHistories bool
	TargetFund    int64

	Estimator HitProbEstimator // required for MCProbability

	// OnTrial, when set, is called after each completed trial with the
	// running completion count.
	OnTrial func(done int, finalFund int64)
}

// childSeed derives the trial generator seed with a splitmix64 finalizer
// over (master seed, trial index), so per-trial draws never depend on
// worker scheduling.
func childSeed(master int64, trial int) int64 {
	z := uint64(master) + (uint64(trial)+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z ^= z >> 31
	return int64(z >> 1)
}

// Run executes the trials. The race list is shared read-only; each trial
// owns its fund state, history, and generator. Cancellation is honored at
// trial boundaries and yields a partial result flagged Cancelled.
func (mc *MonteCarlo) Run(ctx context.Context, races []*Race) (*MonteCarloResult, error) {
	if mc.NumTrials < 1 {
		return nil, fmt.Errorf("%w: monte_carlo.num_trials must be >= 1, got %d", ErrConfigInvalid, mc.NumTrials)
	}
	if mc.Method == MCProbability && mc.Estimator == nil {
		return nil, fmt.Errorf("%w: probability_based Monte Carlo needs a hit probability estimator", ErrConfigInvalid)
	}
	if len(races) == 0 {
		return &MonteCarloResult{NumTrials: 0, Seed: mc.Seed}, nil
	}

	ordered := make([]*Race, len(races))
	copy(ordered, races)
	SortRaces(ordered)

	workers := mc.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > mc.NumTrials {
		workers = mc.NumTrials
	}

	finals := make([]int64, mc.NumTrials)
	completed := make([]bool, mc.NumTrials)
	var histories [][]int64
	if mc.KeepHistories {
		histories = make([][]int64, mc.NumTrials)
	}

	var trialErr error
	var errOnce sync.Once
	var progressMu sync.Mutex
	done := 0

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for trial := range jobs {
				result, err := mc.runTrial(ctx, ordered, trial)
				if err != nil {
					errOnce.Do(func() { trialErr = err })
					continue
				}
				// A trial cut short by cancellation is not a completed trial.
				if result.Cancelled {
					continue
				}
				finals[trial] = result.FinalFund
				completed[trial] = true
				if mc.KeepHistories {
					histories[trial] = result.FundHistory
				}
				if mc.OnTrial != nil {
					progressMu.Lock()
					done++
					mc.OnTrial(done, result.FinalFund)
					progressMu.Unlock()
				}
			}
		}()
	}

	cancelled := false
feed:
	for trial := 0; trial < mc.NumTrials; trial++ {
		select {
		case <-ctx.Done():
			cancelled = true
			break feed
		case jobs <- trial:
		}
	}
	close(jobs)
	wg.Wait()
	if ctx.Err() != nil {
		cancelled = true
	}

	if trialErr != nil {
		return nil, trialErr
	}

	out := &MonteCarloResult{
		NumTrials: mc.NumTrials,
		Seed:      mc.Seed,
		Cancelled: cancelled,
	}
	for trial, ok := range completed {
		if !ok {
			continue
		}
		out.FinalFunds = append(out.FinalFunds, finals[trial])
		if mc.KeepHistories {
			out.Histories = append(out.Histories, histories[trial])
		}
	}
	out.Summary = SummarizeTrials(out.FinalFunds, mc.Engine.InitialFund, mc.TargetFund)
	return out, nil
}

func (mc *MonteCarlo) runTrial(ctx context.Context, ordered []*Race, trial int) (*SimulationResult, error) {
	rng := rand.New(rand.NewSource(childSeed(mc.Seed, trial)))

	switch mc.Method {
	case MCBootstrap:
		// Draw |races| with replacement. The resample intentionally breaks
		// chronological order: the bootstrap targets the distribution of
		// per-race outcomes, not a time series.
		resample := make([]*Race, len(ordered))
		for i := range resample {
			resample[i] = ordered[rng.Intn(len(ordered))]
		}
		return mc.Engine.RunSequence(ctx, resample, Settle)

	case MCProbability:
		// Original order with synthetic hit draws.
		synthetic := func(t *Ticket, race *Race) (bool, int64, error) {
			p := clamp(mc.Estimator(t, race), 0, 1)
			if rng.Float64() < p {
				return true, payout(t.Amount, t.Odds), nil
			}
			return false, 0, nil
		}
		return mc.Engine.RunSequence(ctx, ordered, synthetic)
	}
	return nil, fmt.Errorf("%w: unknown monte carlo method %d", ErrConfigInvalid, int(mc.Method))
}
