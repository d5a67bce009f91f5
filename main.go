package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/yagi8899/KirisameBettingSimulation/logx"
	"github.com/yagi8899/KirisameBettingSimulation/tui"
)

func usage() {
	fmt.Println("Kirisame Betting Simulation")
	fmt.Println("===========================")
	fmt.Println()
	fmt.Println("Usage: kirisame <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run       execute a simulation (simple, monte_carlo, or walk_forward)")
	fmt.Println("  validate  validate a configuration and dataset without running")
	fmt.Println("  compare   run several strategies against one dataset")
	fmt.Println("  list      print available strategies and fund management methods")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "validate":
		os.Exit(cmdValidate(os.Args[2:]))
	case "compare":
		os.Exit(cmdCompare(os.Args[2:]))
	case "list":
		os.Exit(cmdList())
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

// fail prints the error and returns its exit code. No stack traces; the
// message names the offending input.
func fail(err error) int {
	logx.Errorln("SIM ", err.Error())
	return exitCodeFor(err)
}

func loadInputs(configPath, dataPath string) (*Config, []*Race, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if dataPath != "" {
		cfg.Dataset = dataPath
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrConfigInvalid, strings.Join(errs, "; "))
	}
	if cfg.Dataset == "" {
		return nil, nil, fmt.Errorf("%w: dataset path (config `dataset` or -data flag)", ErrConfigMissing)
	}

	start := time.Now()
	races, err := LoadRaces(cfg.Dataset)
	if err != nil {
		return nil, nil, err
	}
	logx.Logf("LOAD", "Loaded %s races from %s in %s",
		logx.FormatNumber(len(races)), cfg.Dataset, logx.FormatDuration(time.Since(start)))
	return cfg, races, nil
}

func buildEngine(cfg *Config) (*Engine, error) {
	strategy, err := cfg.BuildStrategy()
	if err != nil {
		return nil, err
	}
	bankroll, err := cfg.BuildBankroll()
	if err != nil {
		return nil, err
	}
	filter, err := cfg.BuildFilter()
	if err != nil {
		return nil, err
	}
	return &Engine{
		Strategy:    strategy,
		Bankroll:    bankroll,
		Filter:      filter,
		InitialFund: cfg.Simulation.InitialFund,
	}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logx.Warnln("SIM ", "stop signal received, finishing current boundary...")
		cancel()
	}()
	return ctx, cancel
}

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "configuration file (YAML)")
	dataPath := fs.String("data", "", "dataset path (overrides config `dataset`)")
	outputDir := fs.String("output", "", "output directory (overrides config)")
	seedFlag := fs.Int64("seed", 0, "random seed override (0 = use config)")
	quiet := fs.Bool("quiet", false, "suppress progress output")
	useTUI := fs.Bool("tui", false, "live monitor for Monte Carlo runs")
	fs.Parse(args)

	logx.SetQuiet(*quiet)

	cfg, races, err := loadInputs(*configPath, *dataPath)
	if err != nil {
		return fail(err)
	}
	if *outputDir != "" {
		cfg.Output.Directory = *outputDir
	}
	if *seedFlag != 0 {
		cfg.Simulation.RandomSeed = *seedFlag
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return fail(err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	logx.Logf("SIM ", "Strategy: %s | Fund: %s | Initial: %s yen | Type: %s",
		engine.Strategy.Name, engine.Bankroll.Method,
		logx.FormatYen(engine.InitialFund), cfg.Simulation.Type)

	result, err := engine.Run(ctx, races)
	if err != nil {
		return fail(err)
	}

	var mcResult *MonteCarloResult
	var wfResults []*SimulationResult

	switch cfg.Simulation.Type {
	case "monte_carlo":
		mcResult, err = runMonteCarlo(ctx, cfg, engine, races, *useTUI)
		if err != nil {
			return fail(err)
		}
	case "walk_forward":
		wf := &WalkForward{
			TrainDays: cfg.WalkForward.TrainPeriodDays,
			TestDays:  cfg.WalkForward.TestPeriodDays,
			StepDays:  cfg.WalkForward.StepDays,
		}
		wfResults, err = wf.Run(ctx, engine, races)
		if err != nil {
			return fail(err)
		}
		for i, w := range wfResults {
			logx.LogWindowProgress(i+1, len(wfResults), w.Label, w.FinalFund, w.Metrics.ROI)
		}
	}

	var mcSummary *MonteCarloSummary
	if mcResult != nil {
		mcSummary = &mcResult.Summary
	}
	decision := JudgeGoNoGo(result.Metrics, mcSummary)

	reporter := NewReporter(cfg)
	if err := reporter.Write(result, mcResult, wfResults, decision); err != nil {
		return fail(err)
	}
	logx.Logf("RPT ", "Reports written to %s (run %s)", cfg.Output.Directory, reporter.RunID)

	printRunResult(result, mcResult, decision)
	if result.Cancelled || (mcResult != nil && mcResult.Cancelled) {
		return exitRun
	}
	return exitOK
}

func runMonteCarlo(ctx context.Context, cfg *Config, engine *Engine, races []*Race, useTUI bool) (*MonteCarloResult, error) {
	method, err := ParseMCMethod(cfg.MonteCarlo.Method)
	if err != nil {
		return nil, err
	}

	mc := &MonteCarlo{
		Engine:     engine,
		NumTrials:  cfg.MonteCarlo.NumTrials,
		Seed:       cfg.Simulation.RandomSeed,
		Method:     method,
		TargetFund: cfg.MonteCarlo.TargetFund,
	}

	tuiActive := false
	if useTUI {
		if err := tui.Start(ctx, tui.TUIConfig{
			Title:   "Kirisame Betting Simulation",
			Mode:    "monte_carlo/" + method.String(),
			Dataset: cfg.Dataset,
		}); err != nil {
			logx.Warnln("MC  ", err.Error())
		} else {
			tuiActive = true
			defer tui.Stop()
		}
	}

	start := time.Now()
	var sum, min, max, bankrupt, profitable atomic.Int64
	min.Store(1 << 62)
	bankruptFloor := int64(float64(engine.InitialFund) * bankruptcyFraction)

	logEvery := mc.NumTrials / 20
	if logEvery < 1 {
		logEvery = 1
	}

	mc.OnTrial = func(done int, finalFund int64) {
		sum.Add(finalFund)
		if finalFund < min.Load() {
			min.Store(finalFund)
		}
		if finalFund > max.Load() {
			max.Store(finalFund)
		}
		if finalFund < bankruptFloor {
			bankrupt.Add(1)
		}
		if finalFund > engine.InitialFund {
			profitable.Add(1)
		}

		elapsed := time.Since(start).Seconds()
		rate := float64(done) / (elapsed + 1e-9)
		meanFinal := float64(sum.Load()) / float64(done)
		bankruptPct := float64(bankrupt.Load()) / float64(done) * 100

		if tuiActive {
			tui.PushState(tui.StateSnapshot{
				Title:         "Kirisame Betting Simulation",
				Mode:          "monte_carlo/" + method.String(),
				Dataset:       cfg.Dataset,
				StartTime:     start,
				TrialsDone:    done,
				TrialsTotal:   mc.NumTrials,
				RatePerSec:    rate,
				InitialFund:   engine.InitialFund,
				MeanFinal:     meanFinal,
				BestFinal:     max.Load(),
				WorstFinal:    min.Load(),
				BankruptcyPct: bankruptPct,
				ProfitPct:     float64(profitable.Load()) / float64(done) * 100,
				LastTrialFund: finalFund,
				LastTrialTime: time.Now(),
			})
		} else if done%logEvery == 0 || done == mc.NumTrials {
			logx.LogTrialProgress(done, mc.NumTrials, rate, meanFinal, bankruptPct)
		}
	}

	logx.Logf("MC  ", "Running %s trials (method=%s, seed=%d)...",
		logx.FormatNumber(mc.NumTrials), method, mc.Seed)
	return mc.Run(ctx, races)
}

func printRunResult(result *SimulationResult, mc *MonteCarloResult, decision Decision) {
	m := result.Metrics
	const width = 54

	fmt.Println()
	fmt.Print(logx.BoxHeader("RESULT", width))
	fmt.Print(logx.BoxRow(fmt.Sprintf("Initial: %s yen   Final: %s yen",
		logx.FormatYen(result.InitialFund), logx.FormatYen(result.FinalFund)), width))
	fmt.Print(logx.BoxRow(fmt.Sprintf("Profit: %s yen", logx.FormatYen(result.Profit())), width))
	fmt.Print(logx.BoxRow(fmt.Sprintf("Races: %d   Bets: %d   Hits: %d (%.2f%%)",
		m.TotalRaces, m.TotalBets, m.TotalHits, m.HitRate), width))
	fmt.Print(logx.BoxRow(fmt.Sprintf("ROI: %.2f%%   MaxDD: %.2f%%   LossStreak: %d",
		m.ROI, m.MaxDrawdown, m.MaxConsecutiveLosses), width))
	if mc != nil {
		s := mc.Summary
		fmt.Print(logx.BoxRow(fmt.Sprintf("MC mean: %.0f   median: %.0f   bankrupt: %.2f%%",
			s.Mean, s.Median, s.BankruptcyProb*100), width))
	}
	verdict := logx.Error("NO-GO ✗")
	if decision.Go {
		verdict = logx.Success("GO ✓")
	}
	fmt.Print(logx.BoxRow("Go/No-Go: "+verdict, width))
	fmt.Print(logx.BoxFooter(width))
}

func cmdValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "configuration file (YAML)")
	dataPath := fs.String("data", "", "dataset path (overrides config `dataset`)")
	fs.Parse(args)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return fail(err)
	}
	if *dataPath != "" {
		cfg.Dataset = *dataPath
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Println("Validation failed:")
		for _, e := range errs {
			fmt.Printf("  - %s\n", e)
		}
		return exitConfig
	}
	fmt.Println("Configuration is valid.")

	if cfg.Dataset != "" {
		races, err := LoadRaces(cfg.Dataset)
		if err != nil {
			return fail(err)
		}
		s := SummarizeDataset(races)
		w := logx.NewTableWriter(os.Stdout)
		fmt.Fprintf(w, "races:\t%d\n", s.TotalRaces)
		fmt.Fprintf(w, "horses:\t%d\n", s.TotalHorses)
		fmt.Fprintf(w, "with result:\t%d\n", s.WithResult)
		fmt.Fprintf(w, "avg field size:\t%.1f\n", s.AvgFieldSize)
		fmt.Fprintf(w, "tracks:\t%s\n", strings.Join(s.Tracks, ", "))
		fmt.Fprintf(w, "years:\t%v\n", s.Years)
		w.Flush()
	}
	return exitOK
}

func cmdCompare(args []string) int {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "base configuration file (YAML)")
	dataPath := fs.String("data", "", "dataset path (overrides config `dataset`)")
	names := fs.String("strategies", "", "comma-separated strategy names (default params)")
	fs.Parse(args)

	if *names == "" {
		return fail(fmt.Errorf("%w: compare needs -strategies", ErrConfigMissing))
	}

	cfg, races, err := loadInputs(*configPath, *dataPath)
	if err != nil {
		return fail(err)
	}
	bankroll, err := cfg.BuildBankroll()
	if err != nil {
		return fail(err)
	}
	filter, err := cfg.BuildFilter()
	if err != nil {
		return fail(err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	w := logx.NewTableWriter(os.Stdout)
	fmt.Fprintln(w, "strategy\tbets\thit rate\tROI\tmax DD\tfinal fund")
	for _, name := range strings.Split(*names, ",") {
		name = strings.TrimSpace(name)
		strategy, err := NewStrategy(name, nil)
		if err != nil {
			return fail(err)
		}
		engine := &Engine{
			Strategy:    strategy,
			Bankroll:    bankroll,
			Filter:      filter,
			InitialFund: cfg.Simulation.InitialFund,
		}
		result, err := engine.Run(ctx, races)
		if err != nil {
			return fail(err)
		}
		m := result.Metrics
		fmt.Fprintf(w, "%s\t%d\t%.2f%%\t%.2f%%\t%.2f%%\t%d\n",
			name, m.TotalBets, m.HitRate, m.ROI, m.MaxDrawdown, result.FinalFund)
	}
	w.Flush()
	return exitOK
}

func cmdList() int {
	w := logx.NewTableWriter(os.Stdout)
	fmt.Fprintln(w, "Available strategies:")
	for _, s := range ListStrategies() {
		fmt.Fprintf(w, "  %s\t%s\n", s.Name, s.Description)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Available fund management methods:")
	for _, b := range ListBankrolls() {
		fmt.Fprintf(w, "  %s\t%s\n", b.Name, b.Description)
	}
	w.Flush()
	return exitOK
}
