package main

import "fmt"

// raceSpec describes one synthetic race for tests. Horse number i gets
// predicted rank i unless overridden; the finishing order lists horse
// numbers by finish position.
type raceSpec struct {
	track      string
	year       int
	kaisaiDate int
	raceNumber int

	numHorses int
	odds      map[int]float64 // horse number -> win odds
	predRank  map[int]int     // horse number -> predicted rank
	scores    map[int]float64 // horse number -> predicted score
	upset     map[int]float64 // horse number -> upset prob (flags candidate)
	placeMin  map[int]float64 // horse number -> exposed place odds
	finish    []int           // horse numbers in finishing order (may be partial)
	dnf       []int           // horse numbers that did not finish

	noPayouts bool
}

func buildRace(spec raceSpec) *Race {
	if spec.track == "" {
		spec.track = "中山"
	}
	if spec.year == 0 {
		spec.year = 2024
	}
	if spec.kaisaiDate == 0 {
		spec.kaisaiDate = 105
	}
	if spec.raceNumber == 0 {
		spec.raceNumber = 11
	}
	if spec.numHorses == 0 {
		spec.numHorses = 12
	}

	race := &Race{
		Track:      spec.track,
		Year:       spec.year,
		KaisaiDate: spec.kaisaiDate,
		RaceNumber: spec.raceNumber,
		Surface:    SurfaceTurf,
		Distance:   1600,
	}

	finishPos := make(map[int]int)
	for pos, number := range spec.finish {
		finishPos[number] = pos + 1
	}
	dnfSet := make(map[int]bool)
	for _, number := range spec.dnf {
		dnfSet[number] = true
	}

	for n := 1; n <= spec.numHorses; n++ {
		odds := 5.0 + float64(n)
		if o, ok := spec.odds[n]; ok {
			odds = o
		}
		rank := n
		if r, ok := spec.predRank[n]; ok {
			rank = r
		}
		score := 0.9 - 0.05*float64(rank-1)
		if score < 0.05 {
			score = 0.05
		}
		if s, ok := spec.scores[n]; ok {
			score = s
		}
		actual := 0
		if p, ok := finishPos[n]; ok {
			actual = p
		} else if len(spec.finish) > 0 {
			// Unlisted horses fill the remaining positions in number order.
			actual = len(spec.finish) + n
		}
		if dnfSet[n] {
			actual = 99
		}

		h := Horse{
			Number:         n,
			Name:           fmt.Sprintf("horse%02d", n),
			Odds:           odds,
			Popularity:     n,
			ActualRank:     actual,
			PredictedRank:  rank,
			PredictedScore: score,
		}
		if p, ok := spec.upset[n]; ok {
			h.UpsetProb = p
			h.IsUpsetCandidate = true
		}
		if p, ok := spec.placeMin[n]; ok {
			h.PlaceOddsMin = p
		}
		race.Horses = append(race.Horses, h)
	}

	if !spec.noPayouts && len(spec.finish) >= 3 {
		race.Payouts = &RacePayouts{
			WinHorse:     spec.finish[0],
			PlaceHorses:  []int{spec.finish[0], spec.finish[1], spec.finish[2]},
			PlaceOdds:    []float64{1.5, 1.4, 1.3},
			QuinellaPair: [2]int{spec.finish[0], spec.finish[1]},
			QuinellaOdds: 10.0,
			WidePairs: [][2]int{
				{spec.finish[0], spec.finish[1]},
				{spec.finish[1], spec.finish[2]},
				{spec.finish[0], spec.finish[2]},
			},
			WideOdds:       []float64{3.0, 4.0, 5.0},
			ExactaPair:     [2]int{spec.finish[0], spec.finish[1]},
			ExactaOdds:     15.0,
			TrioTriple:     [3]int{spec.finish[0], spec.finish[1], spec.finish[2]},
			TrioOdds:       20.0,
			TrifectaTriple: [3]int{spec.finish[0], spec.finish[1], spec.finish[2]},
			TrifectaOdds:   50.0,
		}
	}
	return race
}

// openFilter accepts every race regardless of field size.
func openFilter() *RaceFilter {
	f := NewRaceFilter()
	f.MinHorseCount = 0
	return f
}

// fixedBankroll builds a fixed-stake bankroll with relaxed constraints.
func fixedBankroll(amount int64) *Bankroll {
	b, err := NewBankroll("fixed", map[string]any{"bet_amount": int(amount)}, Constraints{
		MinBet:          100,
		MaxBetPerTicket: 1000000,
	})
	if err != nil {
		panic(err)
	}
	return b
}

func mustStrategy(name string, params map[string]any) *Strategy {
	s, err := NewStrategy(name, params)
	if err != nil {
		panic(err)
	}
	return s
}

func ticketKeys(tickets []Ticket) []string {
	keys := make([]string, len(tickets))
	for i := range tickets {
		keys[i] = tickets[i].Key()
	}
	return keys
}
