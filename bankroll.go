package main

import "fmt"

// betUnit is the stake granularity: JRA tickets sell in 100 yen units.
const betUnit = 100

// BankrollMethod identifies the sizing variant.
type BankrollMethod int

const (
	BankrollFixed BankrollMethod = iota
	BankrollPercentage
	BankrollKelly
)

var bankrollNames = map[BankrollMethod]string{
	BankrollFixed:      "fixed",
	BankrollPercentage: "percentage",
	BankrollKelly:      "kelly",
}

func (m BankrollMethod) String() string { return bankrollNames[m] }

// BankrollInfo describes one sizing method for the list command.
type BankrollInfo struct {
	Name        string
	Description string
}

// ListBankrolls returns the registered fund management methods.
func ListBankrolls() []BankrollInfo {
	return []BankrollInfo{
		{"fixed", "stake the same fixed amount on every ticket"},
		{"percentage", "stake a fixed fraction of the current fund"},
		{"kelly", "fractional Kelly sized from the ticket's implied edge"},
	}
}

// Constraints are the global stake limits. Zero disables a limit except
// MinBet, which always applies.
type Constraints struct {
	MinBet            int64
	MaxBetPerTicket   int64
	MaxBetPerRace     int64
	MaxBetPerDay      int64
	StopLossThreshold float64
}

// DefaultConstraints mirrors the configuration defaults.
func DefaultConstraints() Constraints {
	return Constraints{
		MinBet:            100,
		MaxBetPerTicket:   100000,
		MaxBetPerRace:     500000,
		MaxBetPerDay:      0,
		StopLossThreshold: 0,
	}
}

// Bankroll sizes each candidate ticket under the global constraints. It is
// stateless except for the current fund; per-race and per-day running
// totals are owned by the driver and passed into Size.
type Bankroll struct {
	Method BankrollMethod

	BetAmount     int64   // fixed
	BetPercentage float64 // percentage
	KellyFraction float64 // kelly

	Constraints Constraints
	Fund        int64
}

// NewBankroll parses a method name + params record.
func NewBankroll(name string, params map[string]any, c Constraints) (*Bankroll, error) {
	b := &Bankroll{
		BetAmount:     int64(intParam(params, "bet_amount", 1000)),
		BetPercentage: floatParam(params, "bet_percentage", 0.02),
		KellyFraction: floatParam(params, "kelly_fraction", 0.25),
		Constraints:   c,
	}
	switch name {
	case "fixed":
		b.Method = BankrollFixed
		if b.BetAmount <= 0 {
			return nil, fmt.Errorf("%w: bet_amount must be positive, got %d", ErrBankrollParamInvalid, b.BetAmount)
		}
	case "percentage":
		b.Method = BankrollPercentage
		if b.BetPercentage <= 0 || b.BetPercentage > 1 {
			return nil, fmt.Errorf("%w: bet_percentage must be in (0, 1], got %g", ErrBankrollParamInvalid, b.BetPercentage)
		}
	case "kelly":
		b.Method = BankrollKelly
		if b.KellyFraction <= 0 || b.KellyFraction > 1 {
			return nil, fmt.Errorf("%w: kelly_fraction must be in (0, 1], got %g", ErrBankrollParamInvalid, b.KellyFraction)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrBankrollUnknown, name)
	}
	return b, nil
}

// Clone returns an independent copy for per-trial or per-window runs.
func (b *Bankroll) Clone() *Bankroll {
	clone := *b
	return &clone
}

// rawStake computes the pre-constraint stake for the ticket.
func (b *Bankroll) rawStake(t *Ticket) float64 {
	switch b.Method {
	case BankrollFixed:
		return float64(b.BetAmount)
	case BankrollPercentage:
		return float64(b.Fund) * b.BetPercentage
	case BankrollKelly:
		return b.kellyStake(t)
	}
	return 0
}

// kellyStake derives the implied win probability from the ticket's
// expected value, then applies the fractional Kelly formula
// f* = (p*b - (1-p)) / b with b = odds - 1.
func (b *Bankroll) kellyStake(t *Ticket) float64 {
	if t.Odds <= 0 {
		return 0
	}
	p := clamp(t.ExpectedValue/t.Odds, 0.01, 0.99)
	gain := t.Odds - 1
	if gain <= 0 {
		return 0
	}
	f := (p*gain - (1 - p)) / gain
	if f <= 0 {
		return 0
	}
	return float64(b.Fund) * f * b.KellyFraction
}

// Size maps a candidate ticket into a stake, in this exact order:
// composite weight and tier multiplier, floor to 100 yen units, clamp to
// the per-ticket maximum, clamp by the remaining per-race and per-day
// budgets, clamp by cash on hand, then the minimum-bet cutoff. A return
// of 0 means skip.
//
// raceRemaining/dayRemaining < 0 mean the corresponding budget is
// unlimited.
func (b *Bankroll) Size(t *Ticket, tierMult float64, raceRemaining, dayRemaining int64) int64 {
	raw := b.rawStake(t)

	weight := t.Weight
	if weight == 0 {
		weight = 1.0
	}
	raw *= weight * tierMult

	// The small epsilon keeps float noise (2499.999... for an exact 2500)
	// from dropping a whole 100 yen unit.
	amount := (int64(raw+1e-6) / betUnit) * betUnit

	if b.Constraints.MaxBetPerTicket > 0 && amount > b.Constraints.MaxBetPerTicket {
		amount = b.Constraints.MaxBetPerTicket
	}
	if raceRemaining >= 0 && amount > raceRemaining {
		amount = raceRemaining
	}
	if dayRemaining >= 0 && amount > dayRemaining {
		amount = dayRemaining
	}
	if amount > b.Fund {
		amount = b.Fund
	}

	// Clamps against odd-valued funds can leave a ragged amount; keep the
	// 100 yen granularity.
	amount = (amount / betUnit) * betUnit

	if amount < b.Constraints.MinBet {
		return 0
	}
	return amount
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
