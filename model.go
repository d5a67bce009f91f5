package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TicketKind identifies a wager type.
type TicketKind int

const (
	TicketWin TicketKind = iota
	TicketPlace
	TicketQuinella
	TicketWide
	TicketExacta
	TicketTrio
	TicketTrifecta
)

var ticketKindNames = map[TicketKind]string{
	TicketWin:      "win",
	TicketPlace:    "place",
	TicketQuinella: "quinella",
	TicketWide:     "wide",
	TicketExacta:   "exacta",
	TicketTrio:     "trio",
	TicketTrifecta: "trifecta",
}

func (k TicketKind) String() string {
	if s, ok := ticketKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Ordered reports whether horse order carries meaning for this kind.
// Exacta and trifecta are position-sensitive; the rest compare as sets.
func (k TicketKind) Ordered() bool {
	return k == TicketExacta || k == TicketTrifecta
}

// ParseTicketKind parses a ticket kind name.
func ParseTicketKind(s string) (TicketKind, error) {
	for k, name := range ticketKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown ticket kind: %q", s)
}

// Surface is the race course type.
type Surface int

const (
	SurfaceTurf Surface = iota
	SurfaceDirt
)

func (s Surface) String() string {
	if s == SurfaceDirt {
		return "dirt"
	}
	return "turf"
}

// ParseSurface accepts both the dataset's localized values and the
// config-file spellings.
func ParseSurface(v string) (Surface, error) {
	switch strings.TrimSpace(v) {
	case "turf", "芝":
		return SurfaceTurf, nil
	case "dirt", "ダート", "ダ":
		return SurfaceDirt, nil
	}
	return 0, fmt.Errorf("unknown surface: %q", v)
}

// RankDNF is the smallest finishing rank treated as "did not finish"
// (disqualified or scratched). Rank 0 means the result is unknown.
const RankDNF = 90

const maxHorseNumber = 18

// Horse is one runner in a race. Values are immutable after load.
type Horse struct {
	Number           int
	Name             string
	Odds             float64 // win odds
	Popularity       int     // public-odds rank, 1 = most backed
	ActualRank       int     // 0 = unknown, >= RankDNF = did not finish
	PredictedRank    int
	PredictedScore   float64 // [0, 1]
	UpsetProb        float64 // [0, 1]
	IsUpsetCandidate bool
	IsActualUpset    bool
	PlaceOddsMin     float64 // 0 = not provided
	PlaceOddsMax     float64 // 0 = not provided
}

// NewHorse validates and constructs a Horse.
func NewHorse(number int, name string, odds float64, popularity, actualRank, predictedRank int, predictedScore float64) (Horse, error) {
	if number < 1 || number > maxHorseNumber {
		return Horse{}, fmt.Errorf("invalid horse number: %d", number)
	}
	if odds <= 0 {
		return Horse{}, fmt.Errorf("invalid odds for horse %d: %g", number, odds)
	}
	if predictedScore < 0 || predictedScore > 1 {
		return Horse{}, fmt.Errorf("predicted score out of range for horse %d: %g", number, predictedScore)
	}
	return Horse{
		Number:         number,
		Name:           name,
		Odds:           odds,
		Popularity:     popularity,
		ActualRank:     actualRank,
		PredictedRank:  predictedRank,
		PredictedScore: predictedScore,
	}, nil
}

// ExpectedValue is the model's win expectation for a 1-unit win bet.
func (h Horse) ExpectedValue() float64 {
	return h.PredictedScore * h.Odds
}

// Finished reports whether the horse has a real finishing position.
func (h Horse) Finished() bool {
	return h.ActualRank >= 1 && h.ActualRank < RankDNF
}

// InFrame reports a top-3 finish.
func (h Horse) InFrame() bool {
	return h.Finished() && h.ActualRank <= 3
}

// RacePayouts carries the realized payout tables for one race.
// Odds are multipliers (4.2 means a 100 yen stake returns 420).
type RacePayouts struct {
	WinHorse int

	PlaceHorses       []int
	PlaceOdds         []float64
	PlacePopularities []int

	QuinellaPair [2]int
	QuinellaOdds float64

	WidePairs [][2]int
	WideOdds  []float64

	ExactaPair [2]int
	ExactaOdds float64

	TrioTriple [3]int
	TrioOdds   float64

	TrifectaTriple [3]int
	TrifectaOdds   float64
}

// Race is one historical race. Mutable while the loader assembles it,
// shared read-only afterwards.
type Race struct {
	Track      string
	Year       int
	KaisaiDate int // meeting day encoded MMDD
	RaceNumber int

	Surface  Surface
	Distance int // meters

	Confidence float64 // externally supplied race confidence score
	IsMaiden   bool
	BadWeather bool

	Horses  []Horse // ordered by horse number
	Payouts *RacePayouts

	// Optional per-combination odds tables keyed by canonical number string.
	ComboOdds map[TicketKind]map[string]float64
}

// ID joins the identity tuple into the canonical race id.
func (r *Race) ID() string {
	return fmt.Sprintf("%s_%d_%04d_%02d", r.Track, r.Year, r.KaisaiDate, r.RaceNumber)
}

// Date converts the (year, MMDD) encoding into a calendar day.
func (r *Race) Date() time.Time {
	month := r.KaisaiDate / 100
	day := r.KaisaiDate % 100
	if month < 1 || month > 12 {
		month = 1
	}
	if day < 1 || day > 31 {
		day = 1
	}
	return time.Date(r.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// NumHorses is the field size.
func (r *Race) NumHorses() int { return len(r.Horses) }

// HorseByNumber returns the horse with the given number, or nil.
func (r *Race) HorseByNumber(number int) *Horse {
	for i := range r.Horses {
		if r.Horses[i].Number == number {
			return &r.Horses[i]
		}
	}
	return nil
}

// TopPredicted returns the top n horses by predicted rank.
func (r *Race) TopPredicted(n int) []Horse {
	sorted := make([]Horse, len(r.Horses))
	copy(sorted, r.Horses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PredictedRank < sorted[j].PredictedRank
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// TopByOdds returns the n shortest-priced horses.
func (r *Race) TopByOdds(n int) []Horse {
	sorted := make([]Horse, len(r.Horses))
	copy(sorted, r.Horses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Odds < sorted[j].Odds
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// TopByPopularity returns the n most-backed horses.
func (r *Race) TopByPopularity(n int) []Horse {
	sorted := make([]Horse, len(r.Horses))
	copy(sorted, r.Horses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Popularity < sorted[j].Popularity
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// UpsetCandidates returns flagged horses sorted by descending upset
// probability. Ties keep horse-number order.
func (r *Race) UpsetCandidates() []Horse {
	var out []Horse
	for _, h := range r.Horses {
		if h.IsUpsetCandidate {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpsetProb > out[j].UpsetProb
	})
	return out
}

// Winner returns the rank-1 finisher, or nil when the result is missing.
func (r *Race) Winner() *Horse {
	for i := range r.Horses {
		if r.Horses[i].ActualRank == 1 {
			return &r.Horses[i]
		}
	}
	return nil
}

// InFrame returns the top-3 finishers ordered by finishing rank.
func (r *Race) InFrame() []Horse {
	var out []Horse
	for _, h := range r.Horses {
		if h.InFrame() {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ActualRank < out[j].ActualRank
	})
	return out
}

// HasResult reports whether a realized finishing order exists.
func (r *Race) HasResult() bool {
	return r.Winner() != nil
}

// LookupComboOdds returns the per-combination odds for the canonical
// numbers, when the dataset exposed a table for that kind.
func (r *Race) LookupComboOdds(kind TicketKind, numbers []int) (float64, bool) {
	table, ok := r.ComboOdds[kind]
	if !ok {
		return 0, false
	}
	odds, ok := table[numbersKey(CanonicalNumbers(kind, numbers))]
	return odds, ok
}

// raceLess orders races chronologically by (year, kaisai date, race number).
func raceLess(a, b *Race) bool {
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	if a.KaisaiDate != b.KaisaiDate {
		return a.KaisaiDate < b.KaisaiDate
	}
	return a.RaceNumber < b.RaceNumber
}

// SortRaces sorts races chronologically. The sort is stable so equal keys
// keep their load order.
func SortRaces(races []*Race) {
	sort.SliceStable(races, func(i, j int) bool {
		return raceLess(races[i], races[j])
	})
}

// CanonicalNumbers returns the numbers in canonical form for the kind:
// ascending for unordered kinds, untouched for position-sensitive ones.
func CanonicalNumbers(kind TicketKind, numbers []int) []int {
	out := make([]int, len(numbers))
	copy(out, numbers)
	if !kind.Ordered() {
		sort.Ints(out)
	}
	return out
}

func numbersKey(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "-")
}

// Ticket is a single wager. Immutable once the bankroll manager has
// assigned the stake.
type Ticket struct {
	Kind    TicketKind
	Numbers []int // canonical for unordered kinds, positional otherwise

	Odds   float64 // odds at purchase, 0 when the dataset exposes none
	Amount int64   // yen, multiple of 100, >= min bet when issued

	Strategy      string
	ExpectedValue float64
	Weight        float64 // composite weight, 0 treated as 1.0
	EstimatedOdds bool    // priced by the place-odds fallback
}

// NewTicket builds a ticket with canonicalized numbers.
func NewTicket(kind TicketKind, strategy string, numbers ...int) Ticket {
	return Ticket{
		Kind:     kind,
		Numbers:  CanonicalNumbers(kind, numbers),
		Strategy: strategy,
	}
}

// Key identifies a ticket by kind and canonical numbers, for composite
// deduplication.
func (t *Ticket) Key() string {
	return t.Kind.String() + ":" + numbersKey(CanonicalNumbers(t.Kind, t.Numbers))
}

// NumbersString renders the numbers for reports ("2-5-7").
func (t *Ticket) NumbersString() string {
	return numbersKey(t.Numbers)
}

func (t *Ticket) String() string {
	return fmt.Sprintf("%s[%s] %d yen", t.Kind, t.NumbersString(), t.Amount)
}

// BetRecord is the append-only record of one settled ticket.
type BetRecord struct {
	RaceID   string
	RaceDate time.Time
	Ticket   Ticket
	IsHit    bool
	Payout   int64
	FundBefore int64
	FundAfter  int64
}

// Profit is payout minus stake.
func (b *BetRecord) Profit() int64 {
	return b.Payout - b.Ticket.Amount
}

// SimulationMetrics is the risk/return summary for one replay.
type SimulationMetrics struct {
	TotalRaces    int   `json:"total_races"`
	TotalBets     int   `json:"total_bets"`
	TotalHits     int   `json:"total_hits"`
	TotalInvested int64 `json:"total_invested"`
	TotalPayout   int64 `json:"total_payout"`
	Profit        int64 `json:"profit"`

	HitRate           float64 `json:"hit_rate"`
	ROI               float64 `json:"roi"`
	RecoveryRate      float64 `json:"recovery_rate"`
	CAGR              float64 `json:"cagr"`
	MaxDrawdown       float64 `json:"max_drawdown"`
	MaxDrawdownPeriod int     `json:"max_drawdown_period"`
	Sharpe            float64 `json:"sharpe"`
	Sortino           float64 `json:"sortino"`
	SortinoInfinite   bool    `json:"sortino_infinite"`
	VaR               float64 `json:"var"`
	CVaR              float64 `json:"cvar"`

	MaxConsecutiveLosses int `json:"max_consecutive_losses"`
	MaxConsecutiveWins   int `json:"max_consecutive_wins"`

	// Runs that priced any ticket with the place-odds fallback are
	// reported at reduced fidelity.
	UsedEstimatedOdds bool `json:"used_estimated_odds"`
}

// SimulationResult is the output of one replay.
type SimulationResult struct {
	InitialFund int64
	FinalFund   int64

	FundHistory []int64 // initial fund first, then one entry per settled ticket
	BetHistory  []BetRecord

	Metrics   SimulationMetrics
	Cancelled bool
	Label     string // window tag for walk-forward runs
}

// Profit is the net result of the replay.
func (r *SimulationResult) Profit() int64 {
	return r.FinalFund - r.InitialFund
}

// MonteCarloSummary holds the distribution statistics over trial final
// funds.
type MonteCarloSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    int64   `json:"min"`
	Max    int64   `json:"max"`

	P5  float64 `json:"percentile_5"`
	P25 float64 `json:"percentile_25"`
	P75 float64 `json:"percentile_75"`
	P95 float64 `json:"percentile_95"`

	// Fractions in [0, 1].
	BankruptcyProb float64 `json:"bankruptcy_prob"`
	ProfitProb     float64 `json:"profit_prob"`
	TargetProb     float64 `json:"target_prob"`
}

// MonteCarloResult is the output of one Monte Carlo run.
type MonteCarloResult struct {
	NumTrials int
	Seed      int64

	FinalFunds []int64
	Histories  [][]int64 // optional per-trial fund histories

	Summary   MonteCarloSummary
	Cancelled bool
}
