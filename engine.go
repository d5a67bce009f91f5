package main

import (
	"context"
	"fmt"
	"time"
)

// settleFunc adjudicates one ticket. The default is Settle against the
// realized result; probability-based Monte Carlo substitutes a synthetic
// settler.
type settleFunc func(t *Ticket, race *Race) (bool, int64, error)

// Engine wires the strategy, bankroll, and filter into the single-pass
// replay. The configured Bankroll is a template; every run works on its
// own clone, so the engine is safe to reuse and Run is idempotent.
type Engine struct {
	Strategy *Strategy
	Bankroll *Bankroll
	Filter   *RaceFilter

	InitialFund int64

	// Progress, when set, is called after each processed race.
	Progress func(raceIdx, totalRaces, bets int, fund int64)
}

// Run replays the races in chronological order against the realized
// results.
func (e *Engine) Run(ctx context.Context, races []*Race) (*SimulationResult, error) {
	return e.replay(ctx, races, Settle, true)
}

// RunSequence replays the races in the given order with a custom
// settlement function, preserving the exact (deduct, settle, credit,
// record) ordering. Monte Carlo uses this for bootstrap resamples (whose
// order is intentionally non-chronological) and for synthetic settlement.
func (e *Engine) RunSequence(ctx context.Context, races []*Race, settle settleFunc) (*SimulationResult, error) {
	return e.replay(ctx, races, settle, false)
}

func (e *Engine) replay(ctx context.Context, races []*Race, settle settleFunc, chronological bool) (*SimulationResult, error) {
	ordered := make([]*Race, len(races))
	copy(ordered, races)
	if chronological {
		SortRaces(ordered)
	}

	bankroll := e.Bankroll.Clone()
	bankroll.Fund = e.InitialFund
	c := bankroll.Constraints

	stopLossFloor := int64(-1)
	if c.StopLossThreshold > 0 {
		stopLossFloor = int64(float64(e.InitialFund) * c.StopLossThreshold)
	}

	result := &SimulationResult{
		InitialFund: e.InitialFund,
		FinalFund:   e.InitialFund,
		FundHistory: []int64{e.InitialFund},
	}

	var currentDay time.Time
	var dayPlaced int64

	fund := e.InitialFund
	stopped := false

	for idx, race := range ordered {
		// Cancellation is checked between races, never inside the ticket
		// loop.
		if ctx != nil && ctx.Err() != nil {
			result.Cancelled = true
			break
		}
		if stopped {
			break
		}

		ok, tierMult, _ := e.Filter.Check(race)
		if !ok {
			continue
		}

		// Per-day budget resets on date change, per-race on race entry.
		day := race.Date()
		if !day.Equal(currentDay) {
			currentDay = day
			dayPlaced = 0
		}
		var racePlaced int64

		tickets := e.Strategy.GenerateTickets(race)
		for i := range tickets {
			ticket := tickets[i]

			raceRemaining := int64(-1)
			if c.MaxBetPerRace > 0 {
				raceRemaining = c.MaxBetPerRace - racePlaced
			}
			dayRemaining := int64(-1)
			if c.MaxBetPerDay > 0 {
				dayRemaining = c.MaxBetPerDay - dayPlaced
			}

			stake := bankroll.Size(&ticket, tierMult, raceRemaining, dayRemaining)
			if stake == 0 {
				continue
			}
			ticket.Amount = stake

			fundBefore := fund
			fund -= stake
			racePlaced += stake
			dayPlaced += stake

			isHit, payout, err := settle(&ticket, race)
			if err != nil {
				return nil, fmt.Errorf("settling %s on race %s: %w", ticket.Kind, race.ID(), err)
			}
			fund += payout
			bankroll.Fund = fund

			result.BetHistory = append(result.BetHistory, BetRecord{
				RaceID:     race.ID(),
				RaceDate:   day,
				Ticket:     ticket,
				IsHit:      isHit,
				Payout:     payout,
				FundBefore: fundBefore,
				FundAfter:  fund,
			})
			result.FundHistory = append(result.FundHistory, fund)

			// Insufficient fund and stop-loss are normal termination, not
			// errors: the run completes with the truncated history.
			if fund < c.MinBet || (stopLossFloor >= 0 && fund <= stopLossFloor) {
				stopped = true
				break
			}
		}

		if e.Progress != nil {
			e.Progress(idx+1, len(ordered), len(result.BetHistory), fund)
		}
	}

	result.FinalFund = fund
	result.Metrics = CalculateMetrics(result)
	return result, nil
}
