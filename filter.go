package main

import "fmt"

// Track list modes.
const (
	TrackModeOff       = ""
	TrackModeWhitelist = "whitelist"
	TrackModeBlacklist = "blacklist"
	TrackModeTier      = "tier"
)

// Tier multipliers scale the eventual stake instead of rejecting.
var tierMultipliers = map[string]float64{
	"tier1": 1.0,
	"tier2": 0.8,
	"tier3": 0.6,
}

// RaceFilter decides, once per race and before any ticket is generated,
// whether to participate. The tier multiplier is the only filter state
// that crosses into bankroll sizing.
type RaceFilter struct {
	MinHorseCount int
	MinConfidence float64

	Surface    *Surface // nil = any
	DistanceMin int
	DistanceMax int

	TrackMode string
	Tracks    []string          // whitelist / blacklist entries
	Tiers     map[string]string // track -> tier1/tier2/tier3

	Years       []int // empty = all
	RaceNumbers []int // empty = all

	SkipMaiden     bool
	SkipBadWeather bool
	SkipNoUpset    bool
}

// NewRaceFilter returns a filter with the default gates.
func NewRaceFilter() *RaceFilter {
	return &RaceFilter{
		MinHorseCount: 12,
		DistanceMax:   99999,
	}
}

// Check returns whether the race is accepted, the tier stake multiplier
// (1.0 unless tier mode maps the track lower), and a reason when rejected.
func (f *RaceFilter) Check(race *Race) (ok bool, tierMult float64, reason string) {
	tierMult = 1.0

	if race.NumHorses() < f.MinHorseCount {
		return false, 1.0, fmt.Sprintf("field size %d < %d", race.NumHorses(), f.MinHorseCount)
	}
	if f.MinConfidence > 0 && race.Confidence < f.MinConfidence {
		return false, 1.0, fmt.Sprintf("confidence %.2f < %.2f", race.Confidence, f.MinConfidence)
	}
	if f.Surface != nil && race.Surface != *f.Surface {
		return false, 1.0, fmt.Sprintf("surface %s != %s", race.Surface, *f.Surface)
	}
	if race.Distance < f.DistanceMin || (f.DistanceMax > 0 && race.Distance > f.DistanceMax) {
		return false, 1.0, fmt.Sprintf("distance %dm outside [%d, %d]", race.Distance, f.DistanceMin, f.DistanceMax)
	}

	switch f.TrackMode {
	case TrackModeWhitelist:
		if !containsString(f.Tracks, race.Track) {
			return false, 1.0, fmt.Sprintf("track %s not whitelisted", race.Track)
		}
	case TrackModeBlacklist:
		if containsString(f.Tracks, race.Track) {
			return false, 1.0, fmt.Sprintf("track %s blacklisted", race.Track)
		}
	case TrackModeTier:
		tier, found := f.Tiers[race.Track]
		if found {
			if m, known := tierMultipliers[tier]; known {
				tierMult = m
			}
		}
	}

	if len(f.Years) > 0 && !containsInt(f.Years, race.Year) {
		return false, 1.0, fmt.Sprintf("year %d not selected", race.Year)
	}
	if len(f.RaceNumbers) > 0 && !containsInt(f.RaceNumbers, race.RaceNumber) {
		return false, 1.0, fmt.Sprintf("race number %d not selected", race.RaceNumber)
	}

	if f.SkipMaiden && race.IsMaiden {
		return false, 1.0, "maiden race"
	}
	if f.SkipBadWeather && race.BadWeather {
		return false, 1.0, "bad weather"
	}
	if f.SkipNoUpset && len(race.UpsetCandidates()) == 0 {
		return false, 1.0, "no upset candidate"
	}

	return true, tierMult, ""
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}
