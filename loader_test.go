package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const tsvHeader = "競馬場\t開催年\t開催日\tレース番号\t芝ダ区分\t距離\t馬番\t馬名\t単勝オッズ\t人気順\t確定着順\t予測順位\t予測スコア\t穴馬確率\t穴馬候補\t複勝1着馬番\t複勝1着オッズ\t複勝2着馬番\t複勝2着オッズ\t複勝3着馬番\t複勝3着オッズ\t馬連馬番1\t馬連馬番2\t馬連オッズ\t３連複オッズ"

func tsvRow(track string, year, date, raceNo int, surface string, horse int, odds string, rank, predRank int, score string) string {
	cols := []string{
		track, itoa(year), itoa(date), itoa(raceNo), surface, "1600",
		itoa(horse), "horse" + itoa(horse), odds, itoa(horse), itoa(rank), itoa(predRank), score,
		"0.2", "1",
		"3", "1.5", "7", "1.4", "11", "1.3",
		"3", "7", "10.0", "20.0",
	}
	return strings.Join(cols, "\t")
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func writeTSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "races.tsv")
	content := strings.Join(append([]string{tsvHeader}, lines...), "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRaces(t *testing.T) {
	path := writeTSV(t,
		tsvRow("中山", 2024, 105, 11, "芝", 3, "4.0", 1, 1, "0.9"),
		tsvRow("中山", 2024, 105, 11, "芝", 7, "8.5", 2, 2, "0.6"),
		tsvRow("中山", 2024, 105, 11, "芝", 11, "15.0", 3, 3, "0.3"),
		tsvRow("東京", 2024, 106, 9, "ダート", 1, "2.2", 1, 1, "0.8"),
	)

	races, err := LoadRaces(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(races) != 2 {
		t.Fatalf("got %d races", len(races))
	}

	r := races[0]
	if r.ID() != "中山_2024_0105_11" {
		t.Errorf("race id = %s", r.ID())
	}
	if r.NumHorses() != 3 {
		t.Errorf("field size = %d", r.NumHorses())
	}
	h := r.HorseByNumber(3)
	if h == nil || h.Odds != 4.0 || h.PredictedScore != 0.9 {
		t.Errorf("horse 3 = %+v", h)
	}
	if !h.IsUpsetCandidate || h.UpsetProb != 0.2 {
		t.Errorf("optional columns not bound: %+v", h)
	}
	if r.Payouts == nil || r.Payouts.QuinellaOdds != 10.0 || r.Payouts.TrioOdds != 20.0 {
		t.Errorf("payouts = %+v", r.Payouts)
	}
	if races[1].Surface != SurfaceDirt {
		t.Error("dirt surface not parsed")
	}
}

func TestLoadRacesMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "races.tsv")
	os.WriteFile(path, []byte("競馬場\t開催年\n中山\t2024\n"), 0644)
	_, err := LoadRaces(path)
	if !errors.Is(err, ErrDatasetMissingColumn) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadRacesNotFound(t *testing.T) {
	_, err := LoadRaces(filepath.Join(t.TempDir(), "nope.tsv"))
	if !errors.Is(err, ErrDatasetNotFound) {
		t.Fatalf("err = %v", err)
	}
}

// Invalid rows are dropped with a warning; the rest of the race loads.
func TestLoadRacesSkipsBadRows(t *testing.T) {
	path := writeTSV(t,
		tsvRow("中山", 2024, 105, 11, "芝", 3, "4.0", 1, 1, "0.9"),
		tsvRow("中山", 2024, 105, 11, "芝", 7, "not-a-number", 2, 2, "0.6"),
		tsvRow("中山", 2024, 105, 11, "芝", 11, "15.0", 3, 3, "0.3"),
	)
	races, err := LoadRaces(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(races) != 1 || races[0].NumHorses() != 2 {
		t.Fatalf("bad row not skipped: %d races", len(races))
	}
}

// Duplicate horse numbers drop the whole race.
func TestLoadRacesDropsDuplicateHorses(t *testing.T) {
	path := writeTSV(t,
		tsvRow("中山", 2024, 105, 11, "芝", 3, "4.0", 1, 1, "0.9"),
		tsvRow("中山", 2024, 105, 11, "芝", 3, "8.5", 2, 2, "0.6"),
		tsvRow("東京", 2024, 106, 9, "ダート", 1, "2.2", 1, 1, "0.8"),
	)
	races, err := LoadRaces(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(races) != 1 || races[0].Track != "東京" {
		t.Fatalf("duplicate-horse race not dropped: %d races", len(races))
	}
}

// Out-of-range values fail horse construction and drop the row.
func TestLoadRacesRejectsInvalidValues(t *testing.T) {
	path := writeTSV(t,
		tsvRow("中山", 2024, 105, 11, "芝", 3, "4.0", 1, 1, "1.7"), // score out of range
		tsvRow("中山", 2024, 105, 11, "芝", 7, "8.5", 2, 2, "0.6"),
	)
	races, err := LoadRaces(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(races) != 1 || races[0].NumHorses() != 1 {
		t.Fatalf("invalid score row not dropped")
	}
}

func TestLoadRacesCRLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "races.tsv")
	content := tsvHeader + "\r\n" + tsvRow("中山", 2024, 105, 11, "芝", 3, "4.0", 1, 1, "0.9") + "\r\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	races, err := LoadRaces(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(races) != 1 || races[0].NumHorses() != 1 {
		t.Fatalf("CRLF input not handled: %d races", len(races))
	}
}

func TestSummarizeDataset(t *testing.T) {
	path := writeTSV(t,
		tsvRow("中山", 2024, 105, 11, "芝", 3, "4.0", 1, 1, "0.9"),
		tsvRow("中山", 2024, 105, 11, "芝", 7, "8.5", 2, 2, "0.6"),
		tsvRow("東京", 2023, 106, 9, "ダート", 1, "2.2", 1, 1, "0.8"),
	)
	races, err := LoadRaces(path)
	if err != nil {
		t.Fatal(err)
	}
	s := SummarizeDataset(races)
	if s.TotalRaces != 2 || s.TotalHorses != 3 {
		t.Errorf("summary = %+v", s)
	}
	if len(s.Tracks) != 2 || len(s.Years) != 2 {
		t.Errorf("tracks/years = %v %v", s.Tracks, s.Years)
	}
}
