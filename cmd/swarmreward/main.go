package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spachava753/swarmreward/internal/executor"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: swarmreward <reward.yaml>")
		os.Exit(1)
	}

	configPath := os.Args[1]

	// Setup context with manual signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	defer func() {
		signal.Stop(sigChan)
		cancel()
	}()

	go func() {
		sig := <-sigChan
		slog.Info("interrupt received, stopping reward computation", "signal", sig)
		cancel()
	}()

	result, err := executor.RunFromConfig(ctx, configPath)
	if err != nil {
		slog.Error("reward computation failed", "error", err)
		os.Exit(1)
	}

	s := result.Summary
	fmt.Printf("\nRun: %s (round %d, stage %d)\n", result.Name, result.Round, result.Stage)
	fmt.Printf("Output: %s\n", result.OutputDir)
	fmt.Printf("Agents: %d  Batches: %d  Nodes: %d  Rewards: %d\n", s.TotalAgents, s.TotalBatches, s.TotalNodes, s.TotalRewards)
	fmt.Printf("Mean reward: %.4f\n", s.MeanReward)
	fmt.Printf("Floor rewards: %d  Ceiling rewards: %d\n", s.FloorRewards, s.CeilingRewards)
	for _, agent := range slices.Sorted(maps.Keys(s.Agents)) {
		a := s.Agents[agent]
		fmt.Printf("  %s: nodes=%d mean=%.4f\n", agent, a.Nodes, a.MeanReward)
	}
	fmt.Printf("Duration: %.2fs\n", result.DurationSec)
}
