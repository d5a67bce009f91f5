package main

import "fmt"

// Settle adjudicates a ticket against the race's realized finishing order
// and returns (hit, payout in yen). Payout is truncated to integer yen.
//
// The decision depends only on the ticket and the finishing ranks;
// disqualified or scratched horses (rank >= RankDNF) never occupy a
// required position, so any ticket that needs them misses. A race with no
// realized result fails with ErrResultUnavailable — settlement never
// silently treats a missing result as a miss.
func Settle(t *Ticket, race *Race) (bool, int64, error) {
	if !race.HasResult() {
		return false, 0, fmt.Errorf("%w: race %s", ErrResultUnavailable, race.ID())
	}

	frame := race.InFrame()
	first, second, third := frameSlot(frame, 0), frameSlot(frame, 1), frameSlot(frame, 2)

	// Tickets naming a non-finisher always miss.
	for _, n := range t.Numbers {
		if h := race.HorseByNumber(n); h == nil || !h.Finished() {
			return false, 0, nil
		}
	}

	switch t.Kind {
	case TicketWin:
		if t.Numbers[0] == first {
			return true, payout(t.Amount, winOdds(t, race)), nil
		}
	case TicketPlace:
		n := t.Numbers[0]
		if n == first || n == second || n == third {
			return true, payout(t.Amount, placePayoutOdds(t, race, n)), nil
		}
	case TicketQuinella:
		if sameSet2(t.Numbers, first, second) {
			return true, payout(t.Amount, comboPayoutOdds(t, race)), nil
		}
	case TicketWide:
		if insideFrame2(t.Numbers, first, second, third) {
			return true, payout(t.Amount, widePayoutOdds(t, race)), nil
		}
	case TicketExacta:
		if t.Numbers[0] == first && t.Numbers[1] == second {
			return true, payout(t.Amount, comboPayoutOdds(t, race)), nil
		}
	case TicketTrio:
		if sameSet3(t.Numbers, first, second, third) {
			return true, payout(t.Amount, comboPayoutOdds(t, race)), nil
		}
	case TicketTrifecta:
		if t.Numbers[0] == first && t.Numbers[1] == second && t.Numbers[2] == third {
			return true, payout(t.Amount, comboPayoutOdds(t, race)), nil
		}
	}
	return false, 0, nil
}

func frameSlot(frame []Horse, i int) int {
	if i < len(frame) {
		return frame[i].Number
	}
	return 0
}

func payout(amount int64, odds float64) int64 {
	if odds <= 0 {
		return 0
	}
	return int64(float64(amount) * odds)
}

// winOdds pays from the horse's win odds.
func winOdds(t *Ticket, race *Race) float64 {
	if h := race.HorseByNumber(t.Numbers[0]); h != nil {
		return h.Odds
	}
	return t.Odds
}

// placePayoutOdds prefers the realized place payout table; the ticket's
// own (possibly estimated) odds are the fallback.
func placePayoutOdds(t *Ticket, race *Race, number int) float64 {
	if p := race.Payouts; p != nil {
		for i, h := range p.PlaceHorses {
			if h == number && i < len(p.PlaceOdds) && p.PlaceOdds[i] > 0 {
				return p.PlaceOdds[i]
			}
		}
	}
	return t.Odds
}

// widePayoutOdds matches the hit pair against the three realized wide
// payouts.
func widePayoutOdds(t *Ticket, race *Race) float64 {
	if p := race.Payouts; p != nil {
		for i, pair := range p.WidePairs {
			if sameSet2(t.Numbers, pair[0], pair[1]) && i < len(p.WideOdds) && p.WideOdds[i] > 0 {
				return p.WideOdds[i]
			}
		}
	}
	return t.Odds
}

// comboPayoutOdds pays from the realized table for the kind, falling back
// to the ticket odds captured at purchase.
func comboPayoutOdds(t *Ticket, race *Race) float64 {
	if p := race.Payouts; p != nil {
		var odds float64
		switch t.Kind {
		case TicketQuinella:
			odds = p.QuinellaOdds
		case TicketExacta:
			odds = p.ExactaOdds
		case TicketTrio:
			odds = p.TrioOdds
		case TicketTrifecta:
			odds = p.TrifectaOdds
		}
		if odds > 0 {
			return odds
		}
	}
	return t.Odds
}

func sameSet2(numbers []int, a, b int) bool {
	if len(numbers) != 2 {
		return false
	}
	return (numbers[0] == a && numbers[1] == b) || (numbers[0] == b && numbers[1] == a)
}

func sameSet3(numbers []int, a, b, c int) bool {
	if len(numbers) != 3 {
		return false
	}
	seen := map[int]bool{a: true, b: true, c: true}
	for _, n := range numbers {
		if !seen[n] {
			return false
		}
		delete(seen, n)
	}
	return len(seen) == 0
}

// insideFrame2 reports whether the pair is any 2-subset of the top three.
func insideFrame2(numbers []int, first, second, third int) bool {
	if len(numbers) != 2 {
		return false
	}
	in := func(n int) bool { return n == first || n == second || n == third }
	return in(numbers[0]) && in(numbers[1]) && numbers[0] != numbers[1]
}
