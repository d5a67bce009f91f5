package main

import (
	"context"
	"errors"
	"testing"
	"time"
)

// wfSeries spreads winning races across six months of meeting days.
func wfSeries() []*Race {
	var races []*Race
	for month := 1; month <= 6; month++ {
		for _, day := range []int{5, 15, 25} {
			races = append(races, buildRace(raceSpec{
				kaisaiDate: month*100 + day,
				predRank:   rankTop(12, 3),
				odds:       map[int]float64{3: 4.0},
				finish:     []int{3, 7, 11},
			}))
		}
	}
	return races
}

func TestWalkForwardWindows(t *testing.T) {
	wf := &WalkForward{TrainDays: 60, TestDays: 30, StepDays: 30}
	first := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC)
	windows, err := wf.buildWindows(first, last)
	if err != nil {
		t.Fatal(err)
	}
	if len(windows) < 3 {
		t.Fatalf("got %d windows", len(windows))
	}
	// Windows advance by the step and never extend past the last race.
	for i, w := range windows {
		if !w.End.Equal(w.Start.AddDate(0, 0, 30)) {
			t.Errorf("window %d span wrong: %s", i, w.label())
		}
		if w.End.After(last.AddDate(0, 0, 1)) {
			t.Errorf("window %d extends past the data: %s", i, w.label())
		}
		if i > 0 && !w.Start.Equal(windows[i-1].Start.AddDate(0, 0, 30)) {
			t.Errorf("window %d does not advance by the step", i)
		}
	}
}

func TestWalkForwardRun(t *testing.T) {
	wf := &WalkForward{TrainDays: 60, TestDays: 30, StepDays: 30}
	results, err := wf.Run(context.Background(), s1Engine(), wfSeries())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no windows produced")
	}
	for _, r := range results {
		if r.Label == "" {
			t.Error("window results must carry their date-range tag")
		}
		// Fresh fund per window.
		if r.InitialFund != 100000 {
			t.Errorf("window initial fund = %d", r.InitialFund)
		}
		// Every window in this series wins every race.
		for _, b := range r.BetHistory {
			if !b.IsHit {
				t.Error("expected all hits in this series")
			}
		}
	}
}

func TestWalkForwardParamValidation(t *testing.T) {
	wf := &WalkForward{TrainDays: 0, TestDays: 30, StepDays: 30}
	if _, err := wf.Run(context.Background(), s1Engine(), wfSeries()); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("err = %v", err)
	}

	// Windows that cannot fit the span are rejected.
	tight := &WalkForward{TrainDays: 400, TestDays: 100, StepDays: 30}
	if _, err := tight.Run(context.Background(), s1Engine(), wfSeries()); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("err = %v", err)
	}

	if _, err := (&WalkForward{TrainDays: 30, TestDays: 30, StepDays: 30}).Run(context.Background(), s1Engine(), nil); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("empty race list: err = %v", err)
	}
}
