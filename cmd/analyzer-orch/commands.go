package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/codeplane/analyzer-orchestrator/internal/command"
	"github.com/codeplane/analyzer-orchestrator/internal/config"
	"github.com/codeplane/analyzer-orchestrator/internal/domain"
	"github.com/codeplane/analyzer-orchestrator/internal/executor"
	"github.com/codeplane/analyzer-orchestrator/internal/history"
	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the analyzer version",
		RunE:  runCheck,
	}
	rootCmd.AddCommand(checkCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Analyze one or more files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAnalyze,
	}
	rootCmd.AddCommand(analyzeCmd)

	analyzeProjectCmd := &cobra.Command{
		Use:   "analyze-project",
		Short: "Analyze the whole project",
		RunE:  runAnalyzeProject,
	}
	rootCmd.AddCommand(analyzeProjectCmd)

	parseCmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse the analyzer report",
		RunE:  runParse,
	}
	rootCmd.AddCommand(parseCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent analyzer runs",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// newOrchestrator wires the scheduler against the real analyzer toolchain
// and attaches a recorder so every run lands in the history store.
func newOrchestrator(cfg *config.Config, store *history.Store) (*executor.Orchestrator, *history.Recorder) {
	runner := &executor.ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
	sched := executor.NewScheduler(runner, command.NewBuilder(cfg))
	orch := executor.NewOrchestrator(sched, cfg.ReportPath())

	rec := history.NewRecorder(store)
	rec.Attach(sched)
	return orch, rec
}

func openStore(cfg *config.Config) (*history.Store, error) {
	if err := os.MkdirAll(cfg.General.OutputDir, 0755); err != nil {
		return nil, err
	}
	return history.New(cfg.General.DatabasePath)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	orch, rec := newOrchestrator(cfg, store)
	defer rec.Close()

	if _, err := orch.CheckVersion(cmd.Context()); err != nil {
		return fmt.Errorf("version check failed: %w", err)
	}
	fmt.Println("Analyzer version OK")
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	orch, rec := newOrchestrator(cfg, store)
	defer rec.Close()

	ctx := cmd.Context()
	if _, err := orch.CheckVersion(ctx); err != nil {
		return fmt.Errorf("version check failed: %w", err)
	}

	for _, file := range args {
		fmt.Printf("Analyzing %s\n", file)
		req := domain.Request{Kind: domain.KindAnalyze, Target: file}
		if _, err := orch.Run(ctx, req); err != nil {
			return err
		}
	}

	fmt.Printf("Report written to %s\n", cfg.ReportPath())
	return nil
}

func runAnalyzeProject(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	orch, rec := newOrchestrator(cfg, store)
	defer rec.Close()

	ctx := cmd.Context()
	if _, err := orch.CheckVersion(ctx); err != nil {
		return fmt.Errorf("version check failed: %w", err)
	}

	fmt.Println("Analyzing project")
	req := domain.Request{Kind: domain.KindAnalyze, Target: domain.ProjectTarget}
	if _, err := orch.Run(ctx, req); err != nil {
		return err
	}

	fmt.Printf("Report written to %s\n", cfg.ReportPath())
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	orch, rec := newOrchestrator(cfg, store)
	defer rec.Close()

	req := domain.Request{Kind: domain.KindParse, Target: cfg.ReportPath()}
	if _, err := orch.Run(cmd.Context(), req); err != nil {
		return err
	}

	fmt.Printf("Parsed report written to %s\n", cfg.RenderedPath())
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRecent(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tKIND\tTARGET\tSTATUS\tDURATION")
	for _, run := range runs {
		duration := "-"
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		target := run.Target
		if target == domain.ProjectTarget {
			target = "(project)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Kind, target, run.Status, duration)
	}
	return w.Flush()
}
