package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/codeplane/analyzer-orchestrator/internal/batch"
	"github.com/codeplane/analyzer-orchestrator/internal/config"
	"github.com/codeplane/analyzer-orchestrator/internal/domain"
	"github.com/codeplane/analyzer-orchestrator/internal/executor"
	"github.com/codeplane/analyzer-orchestrator/internal/notify"
	"github.com/codeplane/analyzer-orchestrator/internal/observer"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the report and run scheduled analysis",
		Long: `Runs until interrupted. Re-parses the analyzer report whenever it
changes on disk, runs whole-project analysis on the configured cron
schedule, and sends notifications for finished and failed runs.`,
		RunE: runWatch,
	}
	rootCmd.AddCommand(watchCmd)
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	notifiers := []notify.Notifier{}
	if cfg.Notifications.Desktop {
		notifiers = append(notifiers, notify.NewDesktopNotifier(true))
	}
	if cfg.Notifications.SlackWebhook != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notifications.SlackWebhook))
	}
	if len(notifiers) == 0 {
		return notify.NoopNotifier{}
	}
	return notify.NewMultiNotifier(notifiers...)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := orch.CheckVersion(ctx); err != nil {
		return fmt.Errorf("version check failed: %w", err)
	}

	notifier := buildNotifier(cfg)
	sub := orch.Scheduler().OnStatusChange(func(ev executor.Event) {
		n, ok := notify.ForEvent(ev)
		if !ok {
			return
		}
		if err := notifier.Send(n); err != nil {
			fmt.Printf("Warning: notification failed: %v\n", err)
		}
	})
	defer sub.Dispose()

	watcher, err := observer.NewReportWatcher(cfg.General.OutputDir, func(files []string) {
		orch.ParseMetadata()
	})
	if err != nil {
		return fmt.Errorf("starting report watcher: %w", err)
	}
	defer watcher.Stop()
	watcher.Start(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	if cfg.Schedule.Enabled {
		sched, err := batch.NewSchedule(cfg.Schedule.Cron)
		if err != nil {
			return err
		}
		fmt.Printf("Scheduled analysis enabled, next run at %s\n",
			sched.NextRun().Format("2006-01-02 15:04:05"))
		g.Go(func() error {
			sched.Start(ctx, func() error {
				req := domain.Request{Kind: domain.KindAnalyze, Target: domain.ProjectTarget}
				_, err := orch.Run(ctx, req)
				return err
			})
			return nil
		})
	}

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", cfg.General.OutputDir)
	if err := g.Wait(); err != nil {
		return err
	}

	orch.StopAnalysis()
	orch.StopMetadataTasks()
	return nil
}
