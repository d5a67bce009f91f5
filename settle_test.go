package main

import (
	"errors"
	"testing"
)

func settledRace() *Race {
	return buildRace(raceSpec{
		numHorses: 12,
		odds:      map[int]float64{5: 4.0},
		finish:    []int{5, 7, 11, 1, 3},
	})
}

func settle(t *testing.T, race *Race, kind TicketKind, amount int64, numbers ...int) (bool, int64) {
	t.Helper()
	tk := NewTicket(kind, "test", numbers...)
	tk.Amount = amount
	hit, payout, err := Settle(&tk, race)
	if err != nil {
		t.Fatal(err)
	}
	return hit, payout
}

func TestSettleWin(t *testing.T) {
	race := settledRace()
	hit, payout := settle(t, race, TicketWin, 1000, 5)
	if !hit || payout != 4000 {
		t.Errorf("win: hit=%v payout=%d, want hit 4000", hit, payout)
	}
	if hit, _ := settle(t, race, TicketWin, 1000, 7); hit {
		t.Error("second place must not win")
	}
}

func TestSettlePlace(t *testing.T) {
	race := settledRace()
	// Place odds come from the realized table: 1.5 / 1.4 / 1.3.
	for _, tc := range []struct {
		number int
		hit    bool
		payout int64
	}{
		{5, true, 1500},
		{7, true, 1400},
		{11, true, 1300},
		{1, false, 0},
	} {
		hit, payout := settle(t, race, TicketPlace, 1000, tc.number)
		if hit != tc.hit || payout != tc.payout {
			t.Errorf("place %d: hit=%v payout=%d, want %v %d", tc.number, hit, payout, tc.hit, tc.payout)
		}
	}
}

func TestSettleQuinella(t *testing.T) {
	race := settledRace()
	if hit, payout := settle(t, race, TicketQuinella, 100, 7, 5); !hit || payout != 1000 {
		t.Errorf("quinella {5,7} should pay 1000, got hit=%v payout=%d", hit, payout)
	}
	if hit, _ := settle(t, race, TicketQuinella, 100, 5, 11); hit {
		t.Error("{1st, 3rd} is not a quinella hit")
	}
}

func TestSettleWide(t *testing.T) {
	race := settledRace()
	// All three 2-subsets of the frame hit, each with its own payout.
	for _, tc := range []struct {
		pair   []int
		payout int64
	}{
		{[]int{5, 7}, 300},
		{[]int{7, 11}, 400},
		{[]int{5, 11}, 500},
	} {
		hit, payout := settle(t, race, TicketWide, 100, tc.pair[0], tc.pair[1])
		if !hit || payout != tc.payout {
			t.Errorf("wide %v: hit=%v payout=%d, want %d", tc.pair, hit, payout, tc.payout)
		}
	}
	if hit, _ := settle(t, race, TicketWide, 100, 5, 1); hit {
		t.Error("pair with a 4th-place horse must miss")
	}
}

func TestSettleExacta(t *testing.T) {
	race := settledRace()
	if hit, payout := settle(t, race, TicketExacta, 100, 5, 7); !hit || payout != 1500 {
		t.Errorf("exacta (5,7) should pay 1500, got hit=%v payout=%d", hit, payout)
	}
	// Reversed order misses: exacta is position-sensitive.
	if hit, _ := settle(t, race, TicketExacta, 100, 7, 5); hit {
		t.Error("exacta (7,5) must miss")
	}
}

func TestSettleTrio(t *testing.T) {
	race := settledRace()
	if hit, payout := settle(t, race, TicketTrio, 100, 11, 5, 7); !hit || payout != 2000 {
		t.Errorf("trio should pay 2000, got hit=%v payout=%d", hit, payout)
	}
	if hit, _ := settle(t, race, TicketTrio, 100, 5, 7, 1); hit {
		t.Error("trio with a 4th-place horse must miss")
	}
}

func TestSettleTrifecta(t *testing.T) {
	race := settledRace()
	if hit, payout := settle(t, race, TicketTrifecta, 100, 5, 7, 11); !hit || payout != 5000 {
		t.Errorf("trifecta should pay 5000, got hit=%v payout=%d", hit, payout)
	}
	if hit, _ := settle(t, race, TicketTrifecta, 100, 7, 5, 11); hit {
		t.Error("trifecta order matters")
	}
}

func TestSettlePayoutTruncation(t *testing.T) {
	race := buildRace(raceSpec{
		odds:   map[int]float64{5: 3.3},
		finish: []int{5, 7, 11},
	})
	// 150 * 3.3 = 494.999... or 495; int truncation keeps integer yen.
	_, payout := settle(t, race, TicketWin, 150, 5)
	if payout != 494 && payout != 495 {
		t.Errorf("payout = %d", payout)
	}
	if payout != int64(float64(150)*3.3) {
		t.Errorf("payout must truncate exactly like int64(amount*odds)")
	}
}

// Disqualified horses are non-finishers: their inclusion in any required
// position makes the ticket miss.
func TestSettleDNF(t *testing.T) {
	race := buildRace(raceSpec{
		finish: []int{5, 7, 11},
		dnf:    []int{2},
	})
	if hit, _ := settle(t, race, TicketWin, 100, 2); hit {
		t.Error("DNF horse cannot win")
	}
	if hit, _ := settle(t, race, TicketQuinella, 100, 2, 5); hit {
		t.Error("pair including a DNF horse must miss")
	}
}

// A race with no realized result fails settlement; it is never a miss.
func TestSettleResultUnavailable(t *testing.T) {
	race := buildRace(raceSpec{noPayouts: true})
	tk := NewTicket(TicketWin, "test", 1)
	tk.Amount = 100
	_, _, err := Settle(&tk, race)
	if !errors.Is(err, ErrResultUnavailable) {
		t.Fatalf("err = %v, want ErrResultUnavailable", err)
	}
}

// Settlement is deterministic: same ticket, same race, same answer.
func TestSettleDeterministic(t *testing.T) {
	race := settledRace()
	tk := NewTicket(TicketWide, "test", 5, 11)
	tk.Amount = 300
	h1, p1, _ := Settle(&tk, race)
	h2, p2, _ := Settle(&tk, race)
	if h1 != h2 || p1 != p2 {
		t.Error("settlement must be deterministic")
	}
}
