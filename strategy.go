package main

import (
	"fmt"
	"math"
	"sort"
)

// StrategyKind tags the concrete strategy variant. Dispatch happens in
// GenerateTickets; the factory parses a name+params record into a variant.
type StrategyKind int

const (
	StratFavoriteWin StrategyKind = iota
	StratPopularityWin
	StratLongshotWin
	StratValueWin
	StratFavoritePlace
	StratLongshotPlace
	StratFavoriteQuinella
	StratFavoriteLongshotQuinella
	StratBoxQuinella
	StratFavoriteWide
	StratFavoriteLongshotWide
	StratBoxWide
	StratFavoriteTrio
	StratFavorite2LongshotTrio
	StratFormationTrio
	StratComposite
)

// WeightedStrategy is one composite member.
type WeightedStrategy struct {
	Strategy *Strategy
	Weight   float64
}

// Strategy holds the variant tag plus the union of parameters the
// variants read. Zero values mean "unset" for the odds bounds.
type Strategy struct {
	Kind StrategyKind
	Name string

	TopN             int
	MinOdds          float64 // 0 = no lower bound
	MaxOdds          float64 // 0 = no upper bound
	UpsetThreshold   float64
	MaxCandidates    int
	MinExpectedValue float64
	MaxTickets       int
	BoxSize          int
	MaxCounterparts  int
	FirstLeg         []int
	SecondLeg        []int
	ThirdLeg         []int
	StrictPlaceOdds  bool

	Subs []WeightedStrategy // composite only
}

// StrategyInfo describes one registered strategy for the list command.
type StrategyInfo struct {
	Name        string
	Description string
}

var strategyRegistry = []StrategyInfo{
	{"favorite_win", "win on the top-N predicted horses"},
	{"popularity_win", "win on the top-N most-backed horses"},
	{"longshot_win", "win on upset candidates above a probability threshold"},
	{"value_win", "win on horses whose expected value clears a floor"},
	{"favorite_place", "place on the top-N predicted horses"},
	{"longshot_place", "place on upset candidates above a probability threshold"},
	{"favorite_quinella", "quinella on the top-2 predicted horses"},
	{"favorite_longshot_quinella", "quinella flowing from the favorite to upset candidates"},
	{"box_quinella", "all quinella pairs among the top-N predicted horses"},
	{"favorite_wide", "wide on the top-2 predicted horses"},
	{"favorite_longshot_wide", "wide flowing from the favorite to upset candidates"},
	{"box_wide", "all wide pairs among the top-N predicted horses"},
	{"favorite_trio", "trio on the top-3 predicted horses"},
	{"favorite2_longshot_trio", "trio with two favorite anchors and upset partners"},
	{"formation_trio", "trio formation from configured rank legs"},
}

// ListStrategies returns the registered strategies.
func ListStrategies() []StrategyInfo {
	out := make([]StrategyInfo, len(strategyRegistry))
	copy(out, strategyRegistry)
	return out
}

// NewStrategy parses a name+params record into a strategy variant.
func NewStrategy(name string, params map[string]any) (*Strategy, error) {
	s := &Strategy{
		Name:             name,
		TopN:             intParam(params, "top_n", 1),
		MinOdds:          floatParam(params, "min_odds", 0),
		MaxOdds:          floatParam(params, "max_odds", 0),
		UpsetThreshold:   floatParam(params, "upset_threshold", 0.1),
		MaxCandidates:    intParam(params, "max_candidates", 3),
		MinExpectedValue: floatParam(params, "min_expected_value", 1.0),
		MaxTickets:       intParam(params, "max_tickets", 3),
		BoxSize:          intParam(params, "box_size", 4),
		MaxCounterparts:  intParam(params, "max_counterparts", 5),
		FirstLeg:         intListParam(params, "first_leg", []int{1}),
		SecondLeg:        intListParam(params, "second_leg", []int{2, 3}),
		ThirdLeg:         intListParam(params, "third_leg", []int{4, 5, 6}),
		StrictPlaceOdds:  boolParam(params, "strict_place_odds", false),
	}

	switch name {
	case "favorite_win":
		s.Kind = StratFavoriteWin
	case "popularity_win":
		s.Kind = StratPopularityWin
	case "longshot_win":
		s.Kind = StratLongshotWin
	case "value_win":
		s.Kind = StratValueWin
	case "favorite_place":
		s.Kind = StratFavoritePlace
	case "longshot_place":
		s.Kind = StratLongshotPlace
	case "favorite_quinella":
		s.Kind = StratFavoriteQuinella
	case "favorite_longshot_quinella":
		s.Kind = StratFavoriteLongshotQuinella
	case "box_quinella":
		s.Kind = StratBoxQuinella
	case "favorite_wide":
		s.Kind = StratFavoriteWide
	case "favorite_longshot_wide":
		s.Kind = StratFavoriteLongshotWide
	case "box_wide":
		s.Kind = StratBoxWide
	case "favorite_trio":
		s.Kind = StratFavoriteTrio
	case "favorite2_longshot_trio":
		s.Kind = StratFavorite2LongshotTrio
	case "formation_trio":
		s.Kind = StratFormationTrio
	default:
		return nil, fmt.Errorf("%w: %q", ErrStrategyUnknown, name)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewCompositeStrategy builds a composite over weighted sub-strategies.
// Weights are normalized to sum to 1.
func NewCompositeStrategy(subs []WeightedStrategy) (*Strategy, error) {
	if len(subs) == 0 {
		return nil, fmt.Errorf("%w: composite needs at least one sub-strategy", ErrStrategyParamInvalid)
	}
	total := 0.0
	for _, ws := range subs {
		if ws.Weight <= 0 {
			return nil, fmt.Errorf("%w: composite weight must be positive, got %g", ErrStrategyParamInvalid, ws.Weight)
		}
		total += ws.Weight
	}
	normalized := make([]WeightedStrategy, len(subs))
	for i, ws := range subs {
		normalized[i] = WeightedStrategy{Strategy: ws.Strategy, Weight: ws.Weight / total}
	}
	return &Strategy{Kind: StratComposite, Name: "composite", Subs: normalized}, nil
}

func (s *Strategy) validate() error {
	if s.TopN < 1 {
		return fmt.Errorf("%w: top_n must be >= 1, got %d", ErrStrategyParamInvalid, s.TopN)
	}
	if s.UpsetThreshold < 0 || s.UpsetThreshold > 1 {
		return fmt.Errorf("%w: upset_threshold must be in [0, 1], got %g", ErrStrategyParamInvalid, s.UpsetThreshold)
	}
	if s.MaxOdds > 0 && s.MinOdds > s.MaxOdds {
		return fmt.Errorf("%w: min_odds %g > max_odds %g", ErrStrategyParamInvalid, s.MinOdds, s.MaxOdds)
	}
	switch s.Kind {
	case StratBoxQuinella, StratBoxWide:
		if s.BoxSize < 2 {
			return fmt.Errorf("%w: box_size must be >= 2, got %d", ErrStrategyParamInvalid, s.BoxSize)
		}
	case StratLongshotWin, StratLongshotPlace:
		if s.MaxCandidates < 1 {
			return fmt.Errorf("%w: max_candidates must be >= 1, got %d", ErrStrategyParamInvalid, s.MaxCandidates)
		}
	case StratFavoriteLongshotQuinella, StratFavoriteLongshotWide, StratFavorite2LongshotTrio:
		if s.MaxCounterparts < 1 {
			return fmt.Errorf("%w: max_counterparts must be >= 1, got %d", ErrStrategyParamInvalid, s.MaxCounterparts)
		}
	case StratValueWin:
		if s.MaxTickets < 1 {
			return fmt.Errorf("%w: max_tickets must be >= 1, got %d", ErrStrategyParamInvalid, s.MaxTickets)
		}
	case StratFormationTrio:
		if len(s.FirstLeg) == 0 || len(s.SecondLeg) == 0 || len(s.ThirdLeg) == 0 {
			return fmt.Errorf("%w: formation legs must be non-empty", ErrStrategyParamInvalid)
		}
	}
	return nil
}

// withinOdds applies the min/max odds bounds; a zero bound is unset.
func (s *Strategy) withinOdds(odds float64) bool {
	if s.MinOdds > 0 && odds < s.MinOdds {
		return false
	}
	if s.MaxOdds > 0 && odds > s.MaxOdds {
		return false
	}
	return true
}

// oddsBounded reports whether any odds bound is configured.
func (s *Strategy) oddsBounded() bool {
	return s.MinOdds > 0 || s.MaxOdds > 0
}

// placeOdds resolves the place odds for a horse. When the dataset does not
// expose one, the deliberate max(1.1, win*0.35) approximation is used and
// flagged, unless strict mode disables the fallback entirely.
func (s *Strategy) placeOdds(h Horse) (odds float64, estimated, ok bool) {
	if h.PlaceOddsMin > 0 {
		return h.PlaceOddsMin, false, true
	}
	if s.StrictPlaceOdds {
		return 0, false, false
	}
	return math.Max(1.1, h.Odds*0.35), true, true
}

// comboOdds resolves odds for a multi-horse ticket from the race's
// per-combination tables. When a bound is configured and the race does not
// expose the odds, the combination is skipped rather than estimated.
func (s *Strategy) comboOdds(race *Race, kind TicketKind, numbers []int) (odds float64, ok bool) {
	odds, found := race.LookupComboOdds(kind, numbers)
	if !found {
		if s.oddsBounded() {
			return 0, false
		}
		return 0, true
	}
	if !s.withinOdds(odds) {
		return 0, false
	}
	return odds, true
}

// GenerateTickets maps one race into candidate tickets. Tickets carry an
// expected-value estimate for Kelly sizing and keep emission order.
func (s *Strategy) GenerateTickets(race *Race) []Ticket {
	switch s.Kind {
	case StratFavoriteWin:
		return s.winTickets(race, race.TopPredicted(s.TopN))
	case StratPopularityWin:
		return s.winTickets(race, race.TopByPopularity(s.TopN))
	case StratLongshotWin:
		return s.longshotWin(race)
	case StratValueWin:
		return s.valueWin(race)
	case StratFavoritePlace:
		return s.placeTickets(race.TopPredicted(s.TopN))
	case StratLongshotPlace:
		return s.longshotPlace(race)
	case StratFavoriteQuinella:
		return s.favoritePair(race, TicketQuinella)
	case StratFavoriteLongshotQuinella:
		return s.favoriteLongshotPair(race, TicketQuinella)
	case StratBoxQuinella:
		return s.boxPair(race, TicketQuinella)
	case StratFavoriteWide:
		return s.favoritePair(race, TicketWide)
	case StratFavoriteLongshotWide:
		return s.favoriteLongshotPair(race, TicketWide)
	case StratBoxWide:
		return s.boxPair(race, TicketWide)
	case StratFavoriteTrio:
		return s.favoriteTrio(race)
	case StratFavorite2LongshotTrio:
		return s.favorite2LongshotTrio(race)
	case StratFormationTrio:
		return s.formationTrio(race)
	case StratComposite:
		return s.compositeTickets(race)
	}
	return nil
}

func (s *Strategy) winTickets(race *Race, horses []Horse) []Ticket {
	var tickets []Ticket
	for _, h := range horses {
		if !s.withinOdds(h.Odds) {
			continue
		}
		t := NewTicket(TicketWin, s.Name, h.Number)
		t.Odds = h.Odds
		t.ExpectedValue = h.PredictedScore * h.Odds
		tickets = append(tickets, t)
	}
	return tickets
}

func (s *Strategy) longshotWin(race *Race) []Ticket {
	var tickets []Ticket
	for _, h := range sortedByUpsetProb(race.Horses, s.UpsetThreshold) {
		if len(tickets) >= s.MaxCandidates {
			break
		}
		if !s.withinOdds(h.Odds) {
			continue
		}
		t := NewTicket(TicketWin, s.Name, h.Number)
		t.Odds = h.Odds
		t.ExpectedValue = h.UpsetProb * h.Odds
		tickets = append(tickets, t)
	}
	return tickets
}

func (s *Strategy) valueWin(race *Race) []Ticket {
	sorted := make([]Horse, len(race.Horses))
	copy(sorted, race.Horses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExpectedValue() > sorted[j].ExpectedValue()
	})

	var tickets []Ticket
	for _, h := range sorted {
		if len(tickets) >= s.MaxTickets {
			break
		}
		if h.ExpectedValue() < s.MinExpectedValue {
			break
		}
		if !s.withinOdds(h.Odds) {
			continue
		}
		t := NewTicket(TicketWin, s.Name, h.Number)
		t.Odds = h.Odds
		t.ExpectedValue = h.ExpectedValue()
		tickets = append(tickets, t)
	}
	return tickets
}

func (s *Strategy) placeTickets(horses []Horse) []Ticket {
	var tickets []Ticket
	for _, h := range horses {
		odds, estimated, ok := s.placeOdds(h)
		if !ok || !s.withinOdds(odds) {
			continue
		}
		t := NewTicket(TicketPlace, s.Name, h.Number)
		t.Odds = odds
		t.EstimatedOdds = estimated
		// Triple the win probability as the in-frame approximation.
		t.ExpectedValue = math.Min(1, h.PredictedScore*3) * odds
		tickets = append(tickets, t)
	}
	return tickets
}

// longshotPlace mirrors longshotWin on place: a candidate only takes one
// of the max_candidates slots once its ticket clears the odds filters.
func (s *Strategy) longshotPlace(race *Race) []Ticket {
	var tickets []Ticket
	for _, h := range sortedByUpsetProb(race.Horses, s.UpsetThreshold) {
		if len(tickets) >= s.MaxCandidates {
			break
		}
		odds, estimated, ok := s.placeOdds(h)
		if !ok || !s.withinOdds(odds) {
			continue
		}
		t := NewTicket(TicketPlace, s.Name, h.Number)
		t.Odds = odds
		t.EstimatedOdds = estimated
		t.ExpectedValue = math.Min(1, h.UpsetProb*3) * odds
		tickets = append(tickets, t)
	}
	return tickets
}

func (s *Strategy) favoritePair(race *Race, kind TicketKind) []Ticket {
	top := race.TopPredicted(2)
	if len(top) < 2 {
		return nil
	}
	odds, ok := s.comboOdds(race, kind, []int{top[0].Number, top[1].Number})
	if !ok {
		return nil
	}
	t := NewTicket(kind, s.Name, top[0].Number, top[1].Number)
	t.Odds = odds
	t.ExpectedValue = top[0].PredictedScore * top[1].PredictedScore * odds
	return []Ticket{t}
}

func (s *Strategy) favoriteLongshotPair(race *Race, kind TicketKind) []Ticket {
	top := race.TopPredicted(1)
	if len(top) == 0 {
		return nil
	}
	anchor := top[0]

	var tickets []Ticket
	for _, partner := range race.UpsetCandidates() {
		if len(tickets) >= s.MaxCounterparts {
			break
		}
		if partner.Number == anchor.Number {
			continue
		}
		odds, ok := s.comboOdds(race, kind, []int{anchor.Number, partner.Number})
		if !ok {
			continue
		}
		t := NewTicket(kind, s.Name, anchor.Number, partner.Number)
		t.Odds = odds
		t.ExpectedValue = anchor.PredictedScore * partner.UpsetProb * odds
		tickets = append(tickets, t)
	}
	return tickets
}

func (s *Strategy) boxPair(race *Race, kind TicketKind) []Ticket {
	top := race.TopPredicted(s.BoxSize)
	if len(top) < 2 {
		return nil
	}
	var tickets []Ticket
	for i := 0; i < len(top); i++ {
		for j := i + 1; j < len(top); j++ {
			odds, ok := s.comboOdds(race, kind, []int{top[i].Number, top[j].Number})
			if !ok {
				continue
			}
			t := NewTicket(kind, s.Name, top[i].Number, top[j].Number)
			t.Odds = odds
			t.ExpectedValue = top[i].PredictedScore * top[j].PredictedScore * odds
			tickets = append(tickets, t)
		}
	}
	return tickets
}

func (s *Strategy) favoriteTrio(race *Race) []Ticket {
	top := race.TopPredicted(3)
	if len(top) < 3 {
		return nil
	}
	odds, ok := s.comboOdds(race, TicketTrio, []int{top[0].Number, top[1].Number, top[2].Number})
	if !ok {
		return nil
	}
	t := NewTicket(TicketTrio, s.Name, top[0].Number, top[1].Number, top[2].Number)
	t.Odds = odds
	t.ExpectedValue = top[0].PredictedScore * top[1].PredictedScore * top[2].PredictedScore * odds
	return []Ticket{t}
}

func (s *Strategy) favorite2LongshotTrio(race *Race) []Ticket {
	top := race.TopPredicted(2)
	if len(top) < 2 {
		return nil
	}
	anchorSet := map[int]bool{top[0].Number: true, top[1].Number: true}

	var tickets []Ticket
	for _, partner := range race.UpsetCandidates() {
		if len(tickets) >= s.MaxCounterparts {
			break
		}
		if anchorSet[partner.Number] {
			continue
		}
		odds, ok := s.comboOdds(race, TicketTrio, []int{top[0].Number, top[1].Number, partner.Number})
		if !ok {
			continue
		}
		t := NewTicket(TicketTrio, s.Name, top[0].Number, top[1].Number, partner.Number)
		t.Odds = odds
		t.ExpectedValue = top[0].PredictedScore * top[1].PredictedScore * partner.UpsetProb * odds
		tickets = append(tickets, t)
	}
	return tickets
}

// formationTrio enumerates (a, b, c) over the three rank legs, collapses
// to canonical unordered triples, and emits each unique triple once in
// first-emission order.
func (s *Strategy) formationTrio(race *Race) []Ticket {
	byRank := make(map[int]Horse)
	for i, h := range race.TopPredicted(race.NumHorses()) {
		byRank[i+1] = h
	}

	seen := make(map[string]bool)
	var tickets []Ticket
	for _, ra := range s.FirstLeg {
		a, okA := byRank[ra]
		if !okA {
			continue
		}
		for _, rb := range s.SecondLeg {
			b, okB := byRank[rb]
			if !okB || b.Number == a.Number {
				continue
			}
			for _, rc := range s.ThirdLeg {
				c, okC := byRank[rc]
				if !okC || c.Number == a.Number || c.Number == b.Number {
					continue
				}
				nums := CanonicalNumbers(TicketTrio, []int{a.Number, b.Number, c.Number})
				key := numbersKey(nums)
				if seen[key] {
					continue
				}
				seen[key] = true

				odds, ok := s.comboOdds(race, TicketTrio, nums)
				if !ok {
					continue
				}
				t := NewTicket(TicketTrio, s.Name, a.Number, b.Number, c.Number)
				t.Odds = odds
				t.ExpectedValue = a.PredictedScore * b.PredictedScore * c.PredictedScore * odds
				tickets = append(tickets, t)
			}
		}
	}
	return tickets
}

// compositeTickets gathers the union of sub-strategy tickets. Each carries
// its originating weight; a duplicate (kind, canonical numbers) keeps the
// first occurrence and sums the weights.
func (s *Strategy) compositeTickets(race *Race) []Ticket {
	index := make(map[string]int)
	var tickets []Ticket
	for _, ws := range s.Subs {
		for _, t := range ws.Strategy.GenerateTickets(race) {
			key := t.Key()
			if i, dup := index[key]; dup {
				tickets[i].Weight += ws.Weight
				continue
			}
			t.Weight = ws.Weight
			index[key] = len(tickets)
			tickets = append(tickets, t)
		}
	}
	return tickets
}

// sortedByUpsetProb returns horses with a positive upset probability at or
// above the threshold, sorted by descending upset probability. Ties keep
// horse-number order.
func sortedByUpsetProb(horses []Horse, threshold float64) []Horse {
	var out []Horse
	for _, h := range horses {
		if h.UpsetProb >= threshold && h.UpsetProb > 0 {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpsetProb > out[j].UpsetProb
	})
	return out
}

// Config param helpers. YAML decoding hands back untyped maps; these
// coerce the common scalar shapes.

func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

func floatParam(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

func boolParam(params map[string]any, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}

func intListParam(params map[string]any, key string, def []int) []int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch list := v.(type) {
	case []int:
		return list
	case []any:
		out := make([]int, 0, len(list))
		for _, e := range list {
			switch n := e.(type) {
			case int:
				out = append(out, n)
			case int64:
				out = append(out, int(n))
			case float64:
				out = append(out, int(n))
			}
		}
		return out
	}
	return def
}
