package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/yagi8899/KirisameBettingSimulation/logx"
)

// Dataset column names. The feed is tab-separated with a localized header
// row; columns are bound by header name, not position.
const (
	colTrack      = "競馬場"
	colYear       = "開催年"
	colKaisaiDate = "開催日"
	colRaceNumber = "レース番号"
	colSurface    = "芝ダ区分"
	colDistance   = "距離"
	colHorseNum   = "馬番"
	colHorseName  = "馬名"
	colWinOdds    = "単勝オッズ"
	colPopularity = "人気順"
	colActualRank = "確定着順"
	colPredRank   = "予測順位"
	colPredScore  = "予測スコア"
)

var requiredColumns = []string{
	colTrack, colYear, colKaisaiDate, colRaceNumber, colSurface, colDistance,
	colHorseNum, colHorseName, colWinOdds, colPopularity, colActualRank,
	colPredRank, colPredScore,
}

// Optional per-horse columns.
const (
	colUpsetProb      = "穴馬確率"
	colUpsetCandidate = "穴馬候補"
	colActualUpset    = "実際の穴馬"
	colPlaceOddsMin   = "複勝オッズ下限"
	colPlaceOddsMax   = "複勝オッズ上限"
)

// Optional per-race columns (repeated on every row of the race; the first
// row wins).
const (
	colConfidence = "レース信頼度"
	colMaiden     = "新馬"
	colWeatherBad = "悪天候"

	colPlace1Horse = "複勝1着馬番"
	colPlace1Odds  = "複勝1着オッズ"
	colPlace1Pop   = "複勝1着人気"
	colPlace2Horse = "複勝2着馬番"
	colPlace2Odds  = "複勝2着オッズ"
	colPlace2Pop   = "複勝2着人気"
	colPlace3Horse = "複勝3着馬番"
	colPlace3Odds  = "複勝3着オッズ"
	colPlace3Pop   = "複勝3着人気"

	colQuinellaH1   = "馬連馬番1"
	colQuinellaH2   = "馬連馬番2"
	colQuinellaOdds = "馬連オッズ"

	colWide12H1   = "ワイド1_2馬番1"
	colWide12H2   = "ワイド1_2馬番2"
	colWide12Odds = "ワイド1_2オッズ"
	colWide23H1   = "ワイド2_3着馬番1"
	colWide23H2   = "ワイド2_3着馬番2"
	colWide23Odds = "ワイド2_3オッズ"
	colWide13H1   = "ワイド1_3着馬番1"
	colWide13H2   = "ワイド1_3着馬番2"
	colWide13Odds = "ワイド1_3オッズ"

	colExactaH1   = "馬単馬番1"
	colExactaH2   = "馬単馬番2"
	colExactaOdds = "馬単オッズ"

	colTrioOdds     = "３連複オッズ"
	colTrifectaOdds = "３連単オッズ"
)

// Optional packed per-combination odds tables, one column per kind.
// Format: "2-5:11.7;2-7:22.0" with canonical (ascending for unordered
// kinds) number keys.
var comboOddsColumns = map[string]TicketKind{
	"馬連オッズ表":  TicketQuinella,
	"ワイドオッズ表": TicketWide,
	"馬単オッズ表":  TicketExacta,
	"三連複オッズ表": TicketTrio,
	"三連単オッズ表": TicketTrifecta,
}

// row gives header-bound access to one TSV record.
type row struct {
	index  map[string]int
	record []string
	line   int
}

func (r row) get(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r row) getInt(col string) (int, error) {
	s := r.get(col)
	if s == "" {
		return 0, fmt.Errorf("column %s empty", col)
	}
	return strconv.Atoi(s)
}

func (r row) getFloat(col string) (float64, error) {
	s := r.get(col)
	if s == "" {
		return 0, fmt.Errorf("column %s empty", col)
	}
	return strconv.ParseFloat(s, 64)
}

// optInt/optFloat/optBool tolerate absent or empty optional columns.
func (r row) optInt(col string) int {
	n, err := strconv.Atoi(r.get(col))
	if err != nil {
		return 0
	}
	return n
}

func (r row) optFloat(col string) float64 {
	f, err := strconv.ParseFloat(r.get(col), 64)
	if err != nil {
		return 0
	}
	return f
}

func (r row) optBool(col string) bool {
	switch strings.ToLower(r.get(col)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// LoadRaces reads a TSV dataset into races. Invalid rows are logged and
// skipped; structurally invalid races (duplicate horse numbers, no valid
// horses) are dropped as a whole.
func LoadRaces(path string) ([]*Race, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReaderSize(f, 1<<20))
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read header of %s: %v", ErrDatasetInvalidFormat, path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s (file %s)", ErrDatasetMissingColumn, col, path)
		}
	}

	type raceKey struct {
		track      string
		year       int
		kaisaiDate int
		raceNumber int
	}
	byKey := make(map[raceKey]*Race)
	var order []raceKey

	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			logx.Warnln("LOAD", fmt.Sprintf("row %d: malformed record, skipped: %v", line, err))
			continue
		}
		rw := row{index: index, record: record, line: line}

		year, yerr := rw.getInt(colYear)
		kaisai, kerr := rw.getInt(colKaisaiDate)
		raceNo, rerr := rw.getInt(colRaceNumber)
		track := rw.get(colTrack)
		if yerr != nil || kerr != nil || rerr != nil || track == "" {
			logx.Warnln("LOAD", fmt.Sprintf("row %d: bad race key, skipped", line))
			continue
		}

		key := raceKey{track: track, year: year, kaisaiDate: kaisai, raceNumber: raceNo}
		race, ok := byKey[key]
		if !ok {
			race, err = raceFromRow(rw, track, year, kaisai, raceNo)
			if err != nil {
				logx.Warnln("LOAD", fmt.Sprintf("row %d: race %s_%d_%04d_%02d dropped: %v",
					line, track, year, kaisai, raceNo, err))
				continue
			}
			byKey[key] = race
			order = append(order, key)
		}

		horse, err := horseFromRow(rw)
		if err != nil {
			logx.Warnln("LOAD", fmt.Sprintf("row %d: race %s: horse skipped: %v", line, race.ID(), err))
			continue
		}
		race.Horses = append(race.Horses, horse)
	}

	races := make([]*Race, 0, len(order))
	for _, key := range order {
		race := byKey[key]
		if err := finalizeRace(race); err != nil {
			logx.Warnln("LOAD", fmt.Sprintf("race %s dropped: %v", race.ID(), err))
			continue
		}
		races = append(races, race)
	}
	return races, nil
}

func raceFromRow(rw row, track string, year, kaisai, raceNo int) (*Race, error) {
	surface, err := ParseSurface(rw.get(colSurface))
	if err != nil {
		return nil, err
	}
	distance, err := rw.getInt(colDistance)
	if err != nil {
		return nil, fmt.Errorf("bad distance: %v", err)
	}
	race := &Race{
		Track:      track,
		Year:       year,
		KaisaiDate: kaisai,
		RaceNumber: raceNo,
		Surface:    surface,
		Distance:   distance,
		Confidence: rw.optFloat(colConfidence),
		IsMaiden:   rw.optBool(colMaiden),
		BadWeather: rw.optBool(colWeatherBad),
		Payouts:    payoutsFromRow(rw),
	}
	race.ComboOdds = comboOddsFromRow(rw)
	return race, nil
}

func horseFromRow(rw row) (Horse, error) {
	number, err := rw.getInt(colHorseNum)
	if err != nil {
		return Horse{}, fmt.Errorf("bad horse number: %v", err)
	}
	odds, err := rw.getFloat(colWinOdds)
	if err != nil {
		return Horse{}, fmt.Errorf("bad win odds: %v", err)
	}
	popularity, err := rw.getInt(colPopularity)
	if err != nil {
		return Horse{}, fmt.Errorf("bad popularity: %v", err)
	}
	actualRank, err := rw.getInt(colActualRank)
	if err != nil {
		return Horse{}, fmt.Errorf("bad finish rank: %v", err)
	}
	predRank, err := rw.getInt(colPredRank)
	if err != nil {
		return Horse{}, fmt.Errorf("bad predicted rank: %v", err)
	}
	predScore, err := rw.getFloat(colPredScore)
	if err != nil {
		return Horse{}, fmt.Errorf("bad predicted score: %v", err)
	}

	horse, err := NewHorse(number, rw.get(colHorseName), odds, popularity, actualRank, predRank, predScore)
	if err != nil {
		return Horse{}, err
	}
	horse.UpsetProb = rw.optFloat(colUpsetProb)
	horse.IsUpsetCandidate = rw.optBool(colUpsetCandidate)
	horse.IsActualUpset = rw.optBool(colActualUpset)
	horse.PlaceOddsMin = rw.optFloat(colPlaceOddsMin)
	horse.PlaceOddsMax = rw.optFloat(colPlaceOddsMax)
	return horse, nil
}

func payoutsFromRow(rw row) *RacePayouts {
	p := &RacePayouts{
		PlaceHorses: []int{
			rw.optInt(colPlace1Horse), rw.optInt(colPlace2Horse), rw.optInt(colPlace3Horse),
		},
		PlaceOdds: []float64{
			rw.optFloat(colPlace1Odds), rw.optFloat(colPlace2Odds), rw.optFloat(colPlace3Odds),
		},
		PlacePopularities: []int{
			rw.optInt(colPlace1Pop), rw.optInt(colPlace2Pop), rw.optInt(colPlace3Pop),
		},
		QuinellaPair: [2]int{rw.optInt(colQuinellaH1), rw.optInt(colQuinellaH2)},
		QuinellaOdds: rw.optFloat(colQuinellaOdds),
		WidePairs: [][2]int{
			{rw.optInt(colWide12H1), rw.optInt(colWide12H2)},
			{rw.optInt(colWide23H1), rw.optInt(colWide23H2)},
			{rw.optInt(colWide13H1), rw.optInt(colWide13H2)},
		},
		WideOdds: []float64{
			rw.optFloat(colWide12Odds), rw.optFloat(colWide23Odds), rw.optFloat(colWide13Odds),
		},
		ExactaPair: [2]int{rw.optInt(colExactaH1), rw.optInt(colExactaH2)},
		ExactaOdds: rw.optFloat(colExactaOdds),
		TrioOdds:   rw.optFloat(colTrioOdds),
		TrifectaOdds: rw.optFloat(colTrifectaOdds),
	}
	// The feed carries no explicit trio/trifecta numbers; they follow the
	// place table (1st-2nd-3rd).
	p.WinHorse = p.PlaceHorses[0]
	p.TrioTriple = [3]int{p.PlaceHorses[0], p.PlaceHorses[1], p.PlaceHorses[2]}
	p.TrifectaTriple = p.TrioTriple
	return p
}

func comboOddsFromRow(rw row) map[TicketKind]map[string]float64 {
	var out map[TicketKind]map[string]float64
	for col, kind := range comboOddsColumns {
		packed := rw.get(col)
		if packed == "" {
			continue
		}
		table := make(map[string]float64)
		for _, entry := range strings.Split(packed, ";") {
			key, val, ok := strings.Cut(strings.TrimSpace(entry), ":")
			if !ok {
				continue
			}
			odds, err := strconv.ParseFloat(val, 64)
			if err != nil || odds <= 0 {
				continue
			}
			table[key] = odds
		}
		if len(table) > 0 {
			if out == nil {
				out = make(map[TicketKind]map[string]float64)
			}
			out[kind] = table
		}
	}
	return out
}

func finalizeRace(race *Race) error {
	if len(race.Horses) == 0 {
		return fmt.Errorf("no valid horses")
	}
	seen := make(map[int]bool, len(race.Horses))
	for _, h := range race.Horses {
		if seen[h.Number] {
			return fmt.Errorf("duplicate horse number %d", h.Number)
		}
		seen[h.Number] = true
	}
	sort.SliceStable(race.Horses, func(i, j int) bool {
		return race.Horses[i].Number < race.Horses[j].Number
	})
	return nil
}

// DatasetSummary aggregates load statistics for the validate command.
type DatasetSummary struct {
	TotalRaces   int
	TotalHorses  int
	Tracks       []string
	Years        []int
	AvgFieldSize float64
	WithResult   int
}

// SummarizeDataset computes the dataset digest.
func SummarizeDataset(races []*Race) DatasetSummary {
	s := DatasetSummary{TotalRaces: len(races)}
	if len(races) == 0 {
		return s
	}
	trackSet := make(map[string]bool)
	yearSet := make(map[int]bool)
	for _, r := range races {
		s.TotalHorses += r.NumHorses()
		trackSet[r.Track] = true
		yearSet[r.Year] = true
		if r.HasResult() {
			s.WithResult++
		}
	}
	for t := range trackSet {
		s.Tracks = append(s.Tracks, t)
	}
	sort.Strings(s.Tracks)
	for y := range yearSet {
		s.Years = append(s.Years, y)
	}
	sort.Ints(s.Years)
	s.AvgFieldSize = float64(s.TotalHorses) / float64(len(races))
	return s
}
