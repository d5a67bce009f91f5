package main

import (
	"context"
	"fmt"
	"time"
)

// WalkForward slides a train/test window across the race calendar and
// replays each test window in isolation.
//
// Parameter optimization on the train window is a declared extension
// point; the default keeps the same strategy configuration throughout, so
// the train window only anchors the slide.
type WalkForward struct {
	TrainDays int
	TestDays  int
	StepDays  int
}

// wfWindow is one generated test window, half-open [Start, End).
type wfWindow struct {
	Start time.Time
	End   time.Time
}

func (w wfWindow) label() string {
	return fmt.Sprintf("%s -> %s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// buildWindows generates the test windows over [first, last] race dates.
// The cursor starts one train period in; each step advances StepDays; the
// slide stops when the test window extends past the last race.
func (wf *WalkForward) buildWindows(first, last time.Time) ([]wfWindow, error) {
	if wf.TrainDays <= 0 || wf.TestDays <= 0 || wf.StepDays <= 0 {
		return nil, fmt.Errorf("%w: walk_forward periods must be positive (train=%d test=%d step=%d)",
			ErrConfigInvalid, wf.TrainDays, wf.TestDays, wf.StepDays)
	}

	var windows []wfWindow
	cursor := first.AddDate(0, 0, wf.TrainDays)
	for {
		end := cursor.AddDate(0, 0, wf.TestDays)
		if end.After(last.AddDate(0, 0, 1)) {
			break
		}
		windows = append(windows, wfWindow{Start: cursor, End: end})
		cursor = cursor.AddDate(0, 0, wf.StepDays)
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: walk_forward windows do not fit the dataset span (%s -> %s)",
			ErrConfigInvalid, first.Format("2006-01-02"), last.Format("2006-01-02"))
	}
	return windows, nil
}

// Run emits one SimulationResult per test window, tagged with its date
// range. Every window replays on a fresh fund.
func (wf *WalkForward) Run(ctx context.Context, engine *Engine, races []*Race) ([]*SimulationResult, error) {
	if len(races) == 0 {
		return nil, fmt.Errorf("%w: walk_forward needs a non-empty race list", ErrConfigInvalid)
	}

	ordered := make([]*Race, len(races))
	copy(ordered, races)
	SortRaces(ordered)

	first := ordered[0].Date()
	last := ordered[len(ordered)-1].Date()
	windows, err := wf.buildWindows(first, last)
	if err != nil {
		return nil, err
	}

	var results []*SimulationResult
	for _, w := range windows {
		if ctx != nil && ctx.Err() != nil {
			break
		}
		var testRaces []*Race
		for _, r := range ordered {
			d := r.Date()
			if !d.Before(w.Start) && d.Before(w.End) {
				testRaces = append(testRaces, r)
			}
		}

		result, err := engine.Run(ctx, testRaces)
		if err != nil {
			return nil, fmt.Errorf("window %s: %w", w.label(), err)
		}
		result.Label = w.label()
		results = append(results, result)
	}
	return results, nil
}
