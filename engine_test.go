package main

import (
	"context"
	"math"
	"reflect"
	"testing"
)

// scenarioS1 builds the single-race favorite-win setup: 12 horses,
// predicted rank 1 = horse #3 at odds 4.0.
func scenarioS1(winning bool) *Race {
	finish := []int{3, 7, 11, 1, 5}
	if !winning {
		// Horse #3 finishes 5th.
		finish = []int{7, 11, 1, 5, 3}
	}
	return buildRace(raceSpec{
		numHorses: 12,
		predRank:  rankTop(12, 3),
		odds:      map[int]float64{3: 4.0},
		finish:    finish,
	})
}

func s1Engine() *Engine {
	return &Engine{
		Strategy:    mustStrategy("favorite_win", map[string]any{"top_n": 1}),
		Bankroll:    fixedBankroll(1000),
		Filter:      openFilter(),
		InitialFund: 100000,
	}
}

func TestReplayFavoriteWinHit(t *testing.T) {
	result, err := s1Engine().Run(context.Background(), []*Race{scenarioS1(true)})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.BetHistory) != 1 {
		t.Fatalf("got %d bets, want 1", len(result.BetHistory))
	}
	b := result.BetHistory[0]
	if b.Ticket.Amount != 1000 || !b.IsHit || b.Payout != 4000 {
		t.Errorf("record = amount %d hit %v payout %d", b.Ticket.Amount, b.IsHit, b.Payout)
	}
	if b.FundBefore != 100000 || b.FundAfter != 103000 {
		t.Errorf("funds = %d -> %d, want 100000 -> 103000", b.FundBefore, b.FundAfter)
	}
	if result.FinalFund != 103000 {
		t.Errorf("final fund = %d", result.FinalFund)
	}
	if math.Abs(result.Metrics.ROI-400) > 1e-9 {
		t.Errorf("ROI = %g, want 400", result.Metrics.ROI)
	}
}

func TestReplayFavoriteWinMiss(t *testing.T) {
	result, err := s1Engine().Run(context.Background(), []*Race{scenarioS1(false)})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.BetHistory) != 1 {
		t.Fatalf("got %d bets, want 1", len(result.BetHistory))
	}
	b := result.BetHistory[0]
	if b.IsHit || b.Payout != 0 || b.FundAfter != 99000 {
		t.Errorf("record = hit %v payout %d after %d", b.IsHit, b.Payout, b.FundAfter)
	}
	if result.Metrics.ROI != 0 {
		t.Errorf("ROI = %g, want 0", result.Metrics.ROI)
	}
}

// losingSeries builds n races where the favorite never wins.
func losingSeries(n int) []*Race {
	races := make([]*Race, n)
	for i := 0; i < n; i++ {
		races[i] = buildRace(raceSpec{
			kaisaiDate: 101 + i,
			predRank:   rankTop(12, 3),
			finish:     []int{7, 11, 1},
		})
	}
	return races
}

// Stop-loss: with threshold 0.5 and 2,500 yen losing bets, the 20th
// settled ticket lands exactly on the floor and the replay terminates
// before the 21st.
func TestStopLossTriggers(t *testing.T) {
	engine := s1Engine()
	engine.Bankroll = fixedBankroll(2500)
	engine.Bankroll.Constraints.StopLossThreshold = 0.5

	result, err := engine.Run(context.Background(), losingSeries(30))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.BetHistory) != 20 {
		t.Fatalf("got %d bets, want 20", len(result.BetHistory))
	}
	if result.FinalFund != 50000 {
		t.Errorf("final fund = %d, want 50000", result.FinalFund)
	}
	if result.Metrics.TotalBets != 20 {
		t.Errorf("metrics reflect %d bets", result.Metrics.TotalBets)
	}
}

// Insufficient fund is the normal termination condition, not an error.
func TestInsufficientFundStops(t *testing.T) {
	engine := s1Engine()
	engine.Bankroll = fixedBankroll(60000)
	engine.Bankroll.Constraints.MaxBetPerTicket = 1000000
	engine.Bankroll.Constraints.MaxBetPerRace = 0

	result, err := engine.Run(context.Background(), losingSeries(5))
	if err != nil {
		t.Fatal(err)
	}
	// 100000 -> 40000 -> 0 (second stake clamps to cash on hand).
	if result.FinalFund >= 100 {
		t.Errorf("final fund = %d, want < min bet", result.FinalFund)
	}
	if len(result.BetHistory) >= 5 {
		t.Errorf("replay must stop early, got %d bets", len(result.BetHistory))
	}
}

// Universal invariants over a mixed hit/miss replay.
func TestReplayInvariants(t *testing.T) {
	races := losingSeries(6)
	races[2] = scenarioS1(true)
	races[2].KaisaiDate = 103

	engine := s1Engine()
	engine.Bankroll = fixedBankroll(1500)
	result, err := engine.Run(context.Background(), races)
	if err != nil {
		t.Fatal(err)
	}

	if result.FundHistory[0] != engine.InitialFund {
		t.Error("fund_history[0] must equal the initial fund")
	}
	if len(result.FundHistory) != len(result.BetHistory)+1 {
		t.Errorf("|fund_history| = %d, |bet_history| = %d", len(result.FundHistory), len(result.BetHistory))
	}
	for i, b := range result.BetHistory {
		if b.FundAfter != b.FundBefore-b.Ticket.Amount+b.Payout {
			t.Errorf("bet %d: fund bookkeeping broken", i)
		}
		if b.Ticket.Amount < engine.Bankroll.Constraints.MinBet {
			t.Errorf("bet %d: amount %d below min bet", i, b.Ticket.Amount)
		}
		if b.Ticket.Amount%100 != 0 {
			t.Errorf("bet %d: amount %d not a 100 yen multiple", i, b.Ticket.Amount)
		}
		if b.Ticket.Amount > b.FundBefore {
			t.Errorf("bet %d: staked more than cash on hand", i)
		}
		if result.FundHistory[i+1] != b.FundAfter {
			t.Errorf("bet %d: fund_history out of step", i)
		}
	}
}

// Running the replay twice on the same input yields equal results.
func TestReplayIdempotent(t *testing.T) {
	races := losingSeries(4)
	races[1] = scenarioS1(true)
	races[1].KaisaiDate = 102

	engine := s1Engine()
	r1, err := engine.Run(context.Background(), races)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := engine.Run(context.Background(), races)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r1, r2) {
		t.Error("replay is not idempotent")
	}
}

// Empty race list: no bets, fund unchanged, zero-input metrics.
func TestReplayEmptyRaceList(t *testing.T) {
	result, err := s1Engine().Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.BetHistory) != 0 || result.FinalFund != 100000 {
		t.Errorf("empty input changed state: %d bets, fund %d", len(result.BetHistory), result.FinalFund)
	}
	if result.Metrics != (SimulationMetrics{}) {
		t.Errorf("metrics not at zero defaults: %+v", result.Metrics)
	}
}

func TestReplayFilterSkips(t *testing.T) {
	small := buildRace(raceSpec{numHorses: 6, predRank: rankTop(6, 3), finish: []int{3, 1, 2}})
	engine := s1Engine()
	engine.Filter = NewRaceFilter() // default min_horse_count = 12

	result, err := engine.Run(context.Background(), []*Race{small})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.BetHistory) != 0 {
		t.Error("filtered race must produce no tickets")
	}
}

// Tier mode scales the stake through the filter's multiplier.
func TestReplayTierMultiplier(t *testing.T) {
	race := scenarioS1(true)
	engine := s1Engine()
	engine.Filter.TrackMode = TrackModeTier
	engine.Filter.Tiers = map[string]string{race.Track: "tier3"}

	result, err := engine.Run(context.Background(), []*Race{race})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.BetHistory) != 1 || result.BetHistory[0].Ticket.Amount != 600 {
		t.Fatalf("tier3 stake = %v, want 600", result.BetHistory)
	}
}

// Per-race budget caps the sum of stakes within one race.
func TestReplayPerRaceBudget(t *testing.T) {
	race := buildRace(raceSpec{
		predRank: rankTop(12, 2, 5, 7, 9),
		finish:   []int{5, 7, 11},
	})
	engine := &Engine{
		Strategy:    mustStrategy("box_quinella", map[string]any{"box_size": 4}),
		Bankroll:    fixedBankroll(1000),
		Filter:      openFilter(),
		InitialFund: 100000,
	}
	engine.Bankroll.Constraints.MaxBetPerRace = 3500

	result, err := engine.Run(context.Background(), []*Race{race})
	if err != nil {
		t.Fatal(err)
	}
	var total int64
	for _, b := range result.BetHistory {
		total += b.Ticket.Amount
	}
	if total > 3500 {
		t.Errorf("race total %d exceeds budget", total)
	}
	// 3 full stakes then one clamped to 500... which floors to 500 (a
	// 100-multiple above min bet).
	if len(result.BetHistory) != 4 {
		t.Errorf("got %d bets, want 4", len(result.BetHistory))
	}
}

// Per-day budget spans races on the same date and resets on date change.
func TestReplayPerDayBudget(t *testing.T) {
	day1a := scenarioS1(true)
	day1a.RaceNumber = 1
	day1b := scenarioS1(true)
	day1b.RaceNumber = 2
	day2 := scenarioS1(true)
	day2.KaisaiDate = day1a.KaisaiDate + 1

	engine := s1Engine()
	engine.Bankroll = fixedBankroll(1000)
	engine.Bankroll.Constraints.MaxBetPerDay = 1500

	result, err := engine.Run(context.Background(), []*Race{day1a, day1b, day2})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.BetHistory) != 3 {
		t.Fatalf("got %d bets, want 3", len(result.BetHistory))
	}
	amounts := []int64{
		result.BetHistory[0].Ticket.Amount,
		result.BetHistory[1].Ticket.Amount,
		result.BetHistory[2].Ticket.Amount,
	}
	// Day 1: 1000 then clamped 500; day 2 resets to 1000.
	if !reflect.DeepEqual(amounts, []int64{1000, 500, 1000}) {
		t.Errorf("amounts = %v", amounts)
	}
}

func TestReplayCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := s1Engine().Run(ctx, losingSeries(10))
	if err != nil {
		t.Fatal(err)
	}
	if !result.Cancelled {
		t.Error("cancelled replay must be flagged")
	}
	if len(result.BetHistory) != 0 {
		t.Error("pre-cancelled context should process no races")
	}
}

func TestReplaySortsChronologically(t *testing.T) {
	early := scenarioS1(true)
	early.KaisaiDate = 101
	late := scenarioS1(false)
	late.KaisaiDate = 1201

	result, err := s1Engine().Run(context.Background(), []*Race{late, early})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.BetHistory) != 2 {
		t.Fatalf("got %d bets", len(result.BetHistory))
	}
	if !result.BetHistory[0].IsHit || result.BetHistory[1].IsHit {
		t.Error("races must replay in chronological order")
	}
}

// Settlement failures surface as errors, never as misses.
func TestReplayResultUnavailableIsFatal(t *testing.T) {
	race := buildRace(raceSpec{predRank: rankTop(12, 3), noPayouts: true})
	_, err := s1Engine().Run(context.Background(), []*Race{race})
	if err == nil {
		t.Fatal("missing result must fail the replay")
	}
}
