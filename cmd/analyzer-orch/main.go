package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "analyzer-orch",
		Short: "Analyzer Orchestrator - schedules static analysis runs",
		Long: `Analyzer Orchestrator supervises invocations of an external static
analyzer: version probes, single-file and whole-project analysis, and
parsing of the produced report. One analyzer process runs at a time;
duplicate pending work is collapsed and anything in flight can be stopped.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
