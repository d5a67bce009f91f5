package main

import (
	"fmt"
	"math"
	"sort"
)

// varConfidence is the confidence level for VaR/CVaR.
const varConfidence = 0.95

// bankruptcyFraction: a trial ending below this fraction of the initial
// fund counts as bankrupt.
const bankruptcyFraction = 0.10

// CalculateMetrics derives the risk/return summary from a replay's fund
// history and bet records. All quantities default to zero on empty input.
func CalculateMetrics(result *SimulationResult) SimulationMetrics {
	var m SimulationMetrics
	if len(result.BetHistory) == 0 {
		return m
	}

	raceIDs := make(map[string]bool)
	for _, b := range result.BetHistory {
		m.TotalBets++
		if b.IsHit {
			m.TotalHits++
		}
		m.TotalInvested += b.Ticket.Amount
		m.TotalPayout += b.Payout
		raceIDs[b.RaceID] = true
		if b.Ticket.EstimatedOdds {
			m.UsedEstimatedOdds = true
		}
	}
	m.TotalRaces = len(raceIDs)
	m.Profit = m.TotalPayout - m.TotalInvested

	if m.TotalBets > 0 {
		m.HitRate = float64(m.TotalHits) / float64(m.TotalBets) * 100
	}
	if m.TotalInvested > 0 {
		m.ROI = float64(m.TotalPayout) / float64(m.TotalInvested) * 100
	}
	m.RecoveryRate = m.ROI

	m.MaxDrawdown, m.MaxDrawdownPeriod = maxDrawdown(result.FundHistory)
	m.CAGR = cagr(result)

	returns := perBetReturns(result.BetHistory)
	m.Sharpe = sharpe(returns)
	m.Sortino, m.SortinoInfinite = sortino(returns)
	m.VaR, m.CVaR = valueAtRisk(returns, varConfidence)

	m.MaxConsecutiveWins, m.MaxConsecutiveLosses = streaks(result.BetHistory)
	return m
}

// maxDrawdown scans the fund history with a running peak and returns the
// maximum percentage drop and its index distance from the peak. A
// monotonic-up history yields 0.
func maxDrawdown(history []int64) (float64, int) {
	if len(history) == 0 {
		return 0, 0
	}
	peak := history[0]
	maxDD := 0.0
	maxPeriod := 0
	period := 0
	for _, fund := range history {
		// >= so the first entry counts as the peak it is; otherwise a
		// decline starting at history[0] reports one step too many.
		if fund >= peak {
			peak = fund
			period = 0
			continue
		}
		period++
		if peak > 0 {
			dd := float64(peak-fund) / float64(peak) * 100
			if dd > maxDD {
				maxDD = dd
				maxPeriod = period
			}
		}
	}
	return maxDD, maxPeriod
}

// cagr annualizes the fund growth over the replay's calendar span.
func cagr(result *SimulationResult) float64 {
	if result.InitialFund <= 0 || result.FinalFund <= 0 || len(result.BetHistory) == 0 {
		return 0
	}
	first := result.BetHistory[0].RaceDate
	last := result.BetHistory[len(result.BetHistory)-1].RaceDate
	years := last.Sub(first).Hours() / 24 / 365.25
	if years <= 0 {
		return 0
	}
	return math.Pow(float64(result.FinalFund)/float64(result.InitialFund), 1/years) - 1
}

func perBetReturns(bets []BetRecord) []float64 {
	returns := make([]float64, 0, len(bets))
	for _, b := range bets {
		if b.FundBefore > 0 {
			returns = append(returns, float64(b.FundAfter-b.FundBefore)/float64(b.FundBefore))
		}
	}
	return returns
}

func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	sd := std(returns)
	// A constant series leaves float noise (~1e-17) instead of an exact 0.
	if sd < 1e-12 {
		return 0
	}
	return mean(returns) / sd
}

// sortino divides mean return by downside deviation. With no negative
// returns the ratio is the "infinite" sentinel, reported via the flag.
func sortino(returns []float64) (float64, bool) {
	if len(returns) < 2 {
		return 0, false
	}
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return 0, true
	}
	sd := std(downside)
	if sd == 0 {
		return 0, false
	}
	return mean(returns) / sd, false
}

// valueAtRisk returns VaR (the (1-alpha) percentile of returns, negative
// for losses) and CVaR (the mean of returns at or below VaR).
func valueAtRisk(returns []float64, alpha float64) (float64, float64) {
	if len(returns) == 0 {
		return 0, 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	v := percentileSorted(sorted, (1-alpha)*100)

	var tail []float64
	for _, r := range sorted {
		if r <= v {
			tail = append(tail, r)
		}
	}
	if len(tail) == 0 {
		return v, v
	}
	return v, mean(tail)
}

func streaks(bets []BetRecord) (maxWins, maxLosses int) {
	var wins, losses int
	for _, b := range bets {
		if b.IsHit {
			wins++
			losses = 0
			if wins > maxWins {
				maxWins = wins
			}
		} else {
			losses++
			wins = 0
			if losses > maxLosses {
				maxLosses = losses
			}
		}
	}
	return maxWins, maxLosses
}

// mean computes the arithmetic mean.
func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// std computes the sample standard deviation.
func std(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	m := mean(data)
	sumSq := 0.0
	for _, v := range data {
		diff := v - m
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(data)-1))
}

// median computes the median of a slice.
func median(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// percentileSorted interpolates the pct-th percentile over an ascending
// slice.
func percentileSorted(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := pct / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// SummarizeTrials aggregates Monte Carlo final funds. Aggregation is
// commutative: the result depends only on the multiset of outcomes.
func SummarizeTrials(finalFunds []int64, initialFund, targetFund int64) MonteCarloSummary {
	var s MonteCarloSummary
	if len(finalFunds) == 0 {
		return s
	}

	values := make([]float64, len(finalFunds))
	s.Min = finalFunds[0]
	s.Max = finalFunds[0]
	var bankrupt, profitable, reachedTarget int
	bankruptcyFloor := float64(initialFund) * bankruptcyFraction

	for i, f := range finalFunds {
		values[i] = float64(f)
		if f < s.Min {
			s.Min = f
		}
		if f > s.Max {
			s.Max = f
		}
		if float64(f) < bankruptcyFloor {
			bankrupt++
		}
		if f > initialFund {
			profitable++
		}
		if targetFund > 0 && f >= targetFund {
			reachedTarget++
		}
	}

	s.Mean = mean(values)
	s.Median = median(values)
	s.Std = std(values)

	sort.Float64s(values)
	s.P5 = percentileSorted(values, 5)
	s.P25 = percentileSorted(values, 25)
	s.P75 = percentileSorted(values, 75)
	s.P95 = percentileSorted(values, 95)

	n := float64(len(finalFunds))
	s.BankruptcyProb = float64(bankrupt) / n
	s.ProfitProb = float64(profitable) / n
	if targetFund > 0 {
		s.TargetProb = float64(reachedTarget) / n
	}
	return s
}

// Decision is the downstream Go/No-Go judgment.
type Decision struct {
	Go             bool     `json:"go"`
	ReasonsFor     []string `json:"reasons_for"`
	ReasonsAgainst []string `json:"reasons_against"`
}

// Go/No-Go thresholds.
const (
	goMaxBankruptcyProb = 0.05
	goMinROI            = 150.0
	goMaxDrawdown       = 50.0

	noGoBankruptcyProb = 0.10
	noGoROI            = 120.0
	noGoLossStreak     = 30
)

// JudgeGoNoGo evaluates the deployment predicate. Any No-Go condition
// forces No-Go regardless of the Go side; otherwise Go requires every Go
// condition. The bankruptcy clauses only apply when a Monte Carlo summary
// is available.
func JudgeGoNoGo(m SimulationMetrics, mc *MonteCarloSummary) Decision {
	var d Decision

	var noGo []string
	if mc != nil && mc.BankruptcyProb >= noGoBankruptcyProb {
		noGo = append(noGo, fmt.Sprintf("bankruptcy probability %.1f%% >= %.0f%%", mc.BankruptcyProb*100, noGoBankruptcyProb*100))
	}
	if m.ROI < noGoROI {
		noGo = append(noGo, fmt.Sprintf("ROI %.1f%% < %.0f%%", m.ROI, noGoROI))
	}
	if m.MaxConsecutiveLosses >= noGoLossStreak {
		noGo = append(noGo, fmt.Sprintf("max consecutive losses %d >= %d", m.MaxConsecutiveLosses, noGoLossStreak))
	}

	goConditions := true
	if mc != nil {
		if mc.BankruptcyProb <= goMaxBankruptcyProb {
			d.ReasonsFor = append(d.ReasonsFor, fmt.Sprintf("bankruptcy probability %.1f%% <= %.0f%%", mc.BankruptcyProb*100, goMaxBankruptcyProb*100))
		} else {
			goConditions = false
			d.ReasonsAgainst = append(d.ReasonsAgainst, fmt.Sprintf("bankruptcy probability %.1f%% > %.0f%%", mc.BankruptcyProb*100, goMaxBankruptcyProb*100))
		}
	} else {
		d.ReasonsFor = append(d.ReasonsFor, "bankruptcy probability not evaluated (no Monte Carlo run)")
	}
	if m.ROI >= goMinROI {
		d.ReasonsFor = append(d.ReasonsFor, fmt.Sprintf("ROI %.1f%% >= %.0f%%", m.ROI, goMinROI))
	} else {
		goConditions = false
		d.ReasonsAgainst = append(d.ReasonsAgainst, fmt.Sprintf("ROI %.1f%% < %.0f%%", m.ROI, goMinROI))
	}
	if m.MaxDrawdown <= goMaxDrawdown {
		d.ReasonsFor = append(d.ReasonsFor, fmt.Sprintf("max drawdown %.1f%% <= %.0f%%", m.MaxDrawdown, goMaxDrawdown))
	} else {
		goConditions = false
		d.ReasonsAgainst = append(d.ReasonsAgainst, fmt.Sprintf("max drawdown %.1f%% > %.0f%%", m.MaxDrawdown, goMaxDrawdown))
	}

	if len(noGo) > 0 {
		d.Go = false
		d.ReasonsAgainst = append(d.ReasonsAgainst, noGo...)
		return d
	}
	d.Go = goConditions
	return d
}
