package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/opscart/capacity-forecaster/pkg/collector"
	"github.com/opscart/capacity-forecaster/pkg/logger"
)

var (
	collectRounds int
	collectEvery  time.Duration
	collectOutput string
)

func newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run collection rounds once and print what was appended",
		RunE:  runCollect,
	}
	cmd.Flags().IntVarP(&collectRounds, "rounds", "n", 1, "Number of rounds to run")
	cmd.Flags().DurationVar(&collectEvery, "every", 0, "Pause between rounds (0 runs them back to back)")
	cmd.Flags().StringVarP(&collectOutput, "output", "o", "text", "Output format: text, json")
	return cmd
}

func runCollect(cmd *cobra.Command, args []string) error {
	if collectRounds < 1 {
		return fmt.Errorf("--rounds must be at least 1")
	}
	if collectOutput != "text" && collectOutput != "json" {
		return fmt.Errorf("unknown output format %q (expected text or json)", collectOutput)
	}

	cfg, log, err := loadConfigAndLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Flush(log.Logger)

	p := newPipeline(cfg, log)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rounds := make([]collector.Round, 0, collectRounds)
	for i := 0; i < collectRounds; i++ {
		if i > 0 && collectEvery > 0 {
			select {
			case <-time.After(collectEvery):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		rounds = append(rounds, p.collector.Collect(ctx))
	}

	if collectOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rounds)
	}
	return printRounds(rounds, p.source.Name())
}

func printRounds(rounds []collector.Round, source string) error {
	fmt.Printf("Source: %s\n\n", source)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROUND\tSTARTED\tMETRIC\tVALUE\tSOURCE\tERROR")
	for _, round := range rounds {
		for _, r := range round.Readings {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
				round.ID[:8],
				round.StartedAt.Format("15:04:05"),
				r.Metric,
				r.Value,
				r.Source,
				r.Error,
			)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	last := rounds[len(rounds)-1]
	fmt.Printf("\nLast round outcome: %s (connected: %v)\n", last.Outcome(), last.Connected)
	return nil
}
