package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// runReport is the per-run JSON document: metrics, judgment, and a full
// configuration snapshot for reproduction.
type runReport struct {
	RunID       string `json:"run_id"`
	GeneratedAt string `json:"generated_at"`

	SimulationType string `json:"simulation_type"`
	InitialFund    int64  `json:"initial_fund"`
	FinalFund      int64  `json:"final_fund"`
	Profit         int64  `json:"profit"`
	Cancelled      bool   `json:"cancelled"`

	Metrics  SimulationMetrics `json:"metrics"`
	Decision Decision          `json:"decision"`

	MonteCarlo  *mcReport          `json:"monte_carlo,omitempty"`
	WalkForward []windowReport     `json:"walk_forward,omitempty"`
	Config      *Config            `json:"config"`
}

type mcReport struct {
	NumTrials int               `json:"num_trials"`
	Seed      int64             `json:"seed"`
	Summary   MonteCarloSummary `json:"summary"`
}

type windowReport struct {
	Label     string            `json:"label"`
	FinalFund int64             `json:"final_fund"`
	Metrics   SimulationMetrics `json:"metrics"`
}

// Reporter writes the configured output files for one run.
type Reporter struct {
	Config *Config
	RunID  string
}

// NewReporter stamps a fresh run identity.
func NewReporter(cfg *Config) *Reporter {
	return &Reporter{Config: cfg, RunID: uuid.NewString()}
}

// Write emits every enabled format. The simple result is required; the
// Monte Carlo and walk-forward sections are optional.
func (rp *Reporter) Write(result *SimulationResult, mc *MonteCarloResult, wf []*SimulationResult, decision Decision) error {
	dir := rp.Config.Output.Directory
	if dir == "" {
		dir = "output"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutputWriteFailed, dir, err)
	}

	if rp.Config.Output.Formats.JSON {
		if err := rp.writeJSON(filepath.Join(dir, "result.json"), result, mc, wf, decision); err != nil {
			return err
		}
	}
	if rp.Config.Output.Formats.CSV {
		if err := rp.writeFundHistory(filepath.Join(dir, "fund_history.csv"), result); err != nil {
			return err
		}
		if err := rp.writeBetHistory(filepath.Join(dir, "bet_history.csv"), result); err != nil {
			return err
		}
	}
	if rp.Config.Output.Formats.TXT {
		if err := rp.writeSummary(filepath.Join(dir, "summary.txt"), result, mc, wf, decision); err != nil {
			return err
		}
	}
	return nil
}

func (rp *Reporter) writeJSON(path string, result *SimulationResult, mc *MonteCarloResult, wf []*SimulationResult, decision Decision) error {
	report := runReport{
		RunID:          rp.RunID,
		GeneratedAt:    time.Now().UTC().Format(time.RFC3339),
		SimulationType: rp.Config.Simulation.Type,
		InitialFund:    result.InitialFund,
		FinalFund:      result.FinalFund,
		Profit:         result.Profit(),
		Cancelled:      result.Cancelled,
		Metrics:        result.Metrics,
		Decision:       decision,
		Config:         rp.Config,
	}
	if mc != nil {
		report.MonteCarlo = &mcReport{NumTrials: mc.NumTrials, Seed: mc.Seed, Summary: mc.Summary}
	}
	for _, w := range wf {
		report.WalkForward = append(report.WalkForward, windowReport{
			Label:     w.Label,
			FinalFund: w.FinalFund,
			Metrics:   w.Metrics,
		})
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutputWriteFailed, path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutputWriteFailed, path, err)
	}
	return nil
}

// writeFundHistory emits one row per settled ticket with the fund
// trajectory and running drawdown.
func (rp *Reporter) writeFundHistory(path string, result *SimulationResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutputWriteFailed, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(bufio.NewWriterSize(f, 1<<20))
	if err := w.Write([]string{"date", "race_id", "fund_before", "stake", "payout", "fund_after", "cumulative_profit", "drawdown"}); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutputWriteFailed, path, err)
	}

	peak := result.InitialFund
	for _, b := range result.BetHistory {
		if b.FundAfter > peak {
			peak = b.FundAfter
		}
		drawdown := 0.0
		if peak > 0 {
			drawdown = float64(peak-b.FundAfter) / float64(peak) * 100
		}
		row := []string{
			b.RaceDate.Format("2006-01-02"),
			b.RaceID,
			strconv.FormatInt(b.FundBefore, 10),
			strconv.FormatInt(b.Ticket.Amount, 10),
			strconv.FormatInt(b.Payout, 10),
			strconv.FormatInt(b.FundAfter, 10),
			strconv.FormatInt(b.FundAfter-result.InitialFund, 10),
			strconv.FormatFloat(drawdown, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrOutputWriteFailed, path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutputWriteFailed, path, err)
	}
	return nil
}

func (rp *Reporter) writeBetHistory(path string, result *SimulationResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutputWriteFailed, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(bufio.NewWriterSize(f, 1<<20))
	if err := w.Write([]string{"date", "race_id", "kind", "numbers", "strategy", "odds", "estimated_odds", "amount", "is_hit", "payout", "profit"}); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutputWriteFailed, path, err)
	}
	for _, b := range result.BetHistory {
		row := []string{
			b.RaceDate.Format("2006-01-02"),
			b.RaceID,
			b.Ticket.Kind.String(),
			b.Ticket.NumbersString(),
			b.Ticket.Strategy,
			strconv.FormatFloat(b.Ticket.Odds, 'f', 1, 64),
			strconv.FormatBool(b.Ticket.EstimatedOdds),
			strconv.FormatInt(b.Ticket.Amount, 10),
			strconv.FormatBool(b.IsHit),
			strconv.FormatInt(b.Payout, 10),
			strconv.FormatInt(b.Profit(), 10),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrOutputWriteFailed, path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutputWriteFailed, path, err)
	}
	return nil
}

func (rp *Reporter) writeSummary(path string, result *SimulationResult, mc *MonteCarloResult, wf []*SimulationResult, decision Decision) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutputWriteFailed, path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	m := result.Metrics

	fmt.Fprintf(w, "Simulation Summary (run %s)\n", rp.RunID)
	fmt.Fprintf(w, "==================================================\n")
	fmt.Fprintf(w, "Type:            %s\n", rp.Config.Simulation.Type)
	fmt.Fprintf(w, "Initial Fund:    %12d yen\n", result.InitialFund)
	fmt.Fprintf(w, "Final Fund:      %12d yen\n", result.FinalFund)
	fmt.Fprintf(w, "Profit/Loss:     %+12d yen\n", result.Profit())
	fmt.Fprintf(w, "--------------------------------------------------\n")
	fmt.Fprintf(w, "Races:           %12d\n", m.TotalRaces)
	fmt.Fprintf(w, "Bets:            %12d\n", m.TotalBets)
	fmt.Fprintf(w, "Hits:            %12d\n", m.TotalHits)
	fmt.Fprintf(w, "Hit Rate:        %11.2f%%\n", m.HitRate)
	fmt.Fprintf(w, "ROI:             %11.2f%%\n", m.ROI)
	fmt.Fprintf(w, "CAGR:            %11.2f%%\n", m.CAGR*100)
	fmt.Fprintf(w, "Max Drawdown:    %11.2f%% (over %d bets)\n", m.MaxDrawdown, m.MaxDrawdownPeriod)
	fmt.Fprintf(w, "Sharpe:          %12.4f\n", m.Sharpe)
	if m.SortinoInfinite {
		fmt.Fprintf(w, "Sortino:         %12s\n", "inf")
	} else {
		fmt.Fprintf(w, "Sortino:         %12.4f\n", m.Sortino)
	}
	fmt.Fprintf(w, "VaR(95):         %12.4f\n", m.VaR)
	fmt.Fprintf(w, "CVaR(95):        %12.4f\n", m.CVaR)
	fmt.Fprintf(w, "Max Loss Streak: %12d\n", m.MaxConsecutiveLosses)
	if m.UsedEstimatedOdds {
		fmt.Fprintf(w, "NOTE: place odds were estimated for some tickets; reduced fidelity.\n")
	}

	if mc != nil {
		s := mc.Summary
		fmt.Fprintf(w, "--------------------------------------------------\n")
		fmt.Fprintf(w, "Monte Carlo (%d trials, seed %d)\n", mc.NumTrials, mc.Seed)
		fmt.Fprintf(w, "Mean Final:      %12.0f yen\n", s.Mean)
		fmt.Fprintf(w, "Median Final:    %12.0f yen\n", s.Median)
		fmt.Fprintf(w, "Std Dev:         %12.0f yen\n", s.Std)
		fmt.Fprintf(w, "P5/P25/P75/P95:  %.0f / %.0f / %.0f / %.0f\n", s.P5, s.P25, s.P75, s.P95)
		fmt.Fprintf(w, "Bankruptcy:      %11.2f%%\n", s.BankruptcyProb*100)
		fmt.Fprintf(w, "Profitable:      %11.2f%%\n", s.ProfitProb*100)
		if s.TargetProb > 0 {
			fmt.Fprintf(w, "Target reached:  %11.2f%%\n", s.TargetProb*100)
		}
	}

	if len(wf) > 0 {
		fmt.Fprintf(w, "--------------------------------------------------\n")
		fmt.Fprintf(w, "Walk-Forward (%d windows)\n", len(wf))
		for _, window := range wf {
			fmt.Fprintf(w, "  [%s] final=%d roi=%.1f%% dd=%.1f%%\n",
				window.Label, window.FinalFund, window.Metrics.ROI, window.Metrics.MaxDrawdown)
		}
	}

	fmt.Fprintf(w, "--------------------------------------------------\n")
	if decision.Go {
		fmt.Fprintf(w, "Go/No-Go:        GO\n")
	} else {
		fmt.Fprintf(w, "Go/No-Go:        NO-GO\n")
	}
	for _, r := range decision.ReasonsFor {
		fmt.Fprintf(w, "  + %s\n", r)
	}
	for _, r := range decision.ReasonsAgainst {
		fmt.Fprintf(w, "  - %s\n", r)
	}
	fmt.Fprintf(w, "==================================================\n")

	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutputWriteFailed, path, err)
	}
	return nil
}
