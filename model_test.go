package main

import (
	"reflect"
	"testing"
)

func TestNewHorseValidation(t *testing.T) {
	cases := []struct {
		name    string
		number  int
		odds    float64
		score   float64
		wantErr bool
	}{
		{"valid", 7, 4.5, 0.8, false},
		{"number too low", 0, 4.5, 0.8, true},
		{"number too high", 19, 4.5, 0.8, true},
		{"zero odds", 7, 0, 0.8, true},
		{"negative odds", 7, -2, 0.8, true},
		{"score above 1", 7, 4.5, 1.2, true},
		{"score below 0", 7, 4.5, -0.1, true},
		{"score boundary", 7, 4.5, 1.0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewHorse(tc.number, "x", tc.odds, 1, 0, 1, tc.score)
			if (err != nil) != tc.wantErr {
				t.Fatalf("NewHorse(%d, odds=%g, score=%g): err=%v, wantErr=%v",
					tc.number, tc.odds, tc.score, err, tc.wantErr)
			}
		})
	}
}

func TestHorseDerived(t *testing.T) {
	h := Horse{Number: 3, Odds: 4.0, PredictedScore: 0.3, ActualRank: 2}
	if ev := h.ExpectedValue(); ev != 1.2 {
		t.Errorf("ExpectedValue = %g, want 1.2", ev)
	}
	if !h.InFrame() {
		t.Error("rank 2 should be in frame")
	}
	if !h.Finished() {
		t.Error("rank 2 should count as finished")
	}

	dnf := Horse{Number: 4, Odds: 9.0, ActualRank: 99}
	if dnf.Finished() || dnf.InFrame() {
		t.Error("sentinel rank must be a non-finisher")
	}
	unknown := Horse{Number: 5, Odds: 9.0, ActualRank: 0}
	if unknown.Finished() {
		t.Error("rank 0 means unknown, not finished")
	}
}

func TestRaceID(t *testing.T) {
	race := buildRace(raceSpec{track: "東京", year: 2023, kaisaiDate: 428, raceNumber: 9})
	if got := race.ID(); got != "東京_2023_0428_09" {
		t.Errorf("ID = %q", got)
	}
}

func TestRaceDate(t *testing.T) {
	race := buildRace(raceSpec{year: 2023, kaisaiDate: 1228})
	d := race.Date()
	if d.Year() != 2023 || int(d.Month()) != 12 || d.Day() != 28 {
		t.Errorf("Date = %v", d)
	}
}

func TestRaceQueries(t *testing.T) {
	race := buildRace(raceSpec{
		numHorses: 6,
		predRank:  map[int]int{5: 1, 1: 5},
		upset:     map[int]float64{2: 0.3, 6: 0.7},
		finish:    []int{5, 2, 4, 1, 3, 6},
	})

	top := race.TopPredicted(2)
	if top[0].Number != 5 || top[1].Number != 2 {
		t.Errorf("TopPredicted = %d, %d", top[0].Number, top[1].Number)
	}

	if h := race.HorseByNumber(4); h == nil || h.Number != 4 {
		t.Error("HorseByNumber(4) failed")
	}
	if h := race.HorseByNumber(99); h != nil {
		t.Error("HorseByNumber(99) should be nil")
	}

	ups := race.UpsetCandidates()
	if len(ups) != 2 || ups[0].Number != 6 || ups[1].Number != 2 {
		t.Errorf("UpsetCandidates = %v", ups)
	}

	if w := race.Winner(); w == nil || w.Number != 5 {
		t.Error("Winner should be horse 5")
	}

	frame := race.InFrame()
	if len(frame) != 3 || frame[0].Number != 5 || frame[1].Number != 2 || frame[2].Number != 4 {
		t.Errorf("InFrame = %v", frame)
	}
}

func TestCanonicalNumbers(t *testing.T) {
	if got := CanonicalNumbers(TicketQuinella, []int{7, 2}); !reflect.DeepEqual(got, []int{2, 7}) {
		t.Errorf("quinella canonical = %v", got)
	}
	if got := CanonicalNumbers(TicketTrio, []int{9, 2, 5}); !reflect.DeepEqual(got, []int{2, 5, 9}) {
		t.Errorf("trio canonical = %v", got)
	}
	// Position-sensitive kinds preserve order.
	if got := CanonicalNumbers(TicketExacta, []int{7, 2}); !reflect.DeepEqual(got, []int{7, 2}) {
		t.Errorf("exacta canonical = %v", got)
	}
	if got := CanonicalNumbers(TicketTrifecta, []int{9, 2, 5}); !reflect.DeepEqual(got, []int{9, 2, 5}) {
		t.Errorf("trifecta canonical = %v", got)
	}
}

func TestTicketKey(t *testing.T) {
	a := NewTicket(TicketQuinella, "s1", 7, 2)
	b := NewTicket(TicketQuinella, "s2", 2, 7)
	if a.Key() != b.Key() {
		t.Errorf("unordered keys should match: %q vs %q", a.Key(), b.Key())
	}
	c := NewTicket(TicketExacta, "s1", 7, 2)
	d := NewTicket(TicketExacta, "s1", 2, 7)
	if c.Key() == d.Key() {
		t.Error("exacta keys must keep position semantics")
	}
}

func TestSortRaces(t *testing.T) {
	r1 := buildRace(raceSpec{year: 2024, kaisaiDate: 301, raceNumber: 5})
	r2 := buildRace(raceSpec{year: 2023, kaisaiDate: 1201, raceNumber: 11})
	r3 := buildRace(raceSpec{year: 2024, kaisaiDate: 301, raceNumber: 2})
	races := []*Race{r1, r2, r3}
	SortRaces(races)
	if races[0] != r2 || races[1] != r3 || races[2] != r1 {
		t.Errorf("sort order wrong: %s %s %s", races[0].ID(), races[1].ID(), races[2].ID())
	}
}

func TestParseSurface(t *testing.T) {
	for _, v := range []string{"turf", "芝"} {
		if s, err := ParseSurface(v); err != nil || s != SurfaceTurf {
			t.Errorf("ParseSurface(%q) = %v, %v", v, s, err)
		}
	}
	for _, v := range []string{"dirt", "ダート", "ダ"} {
		if s, err := ParseSurface(v); err != nil || s != SurfaceDirt {
			t.Errorf("ParseSurface(%q) = %v, %v", v, s, err)
		}
	}
	if _, err := ParseSurface("sand"); err == nil {
		t.Error("unknown surface should error")
	}
}
