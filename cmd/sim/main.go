package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/behavior/internal/config"
	"github.com/zeusync/behavior/internal/injector"
)

func main() {
	configPath := flag.String("config", "configs/sim.yaml", "simulator configuration file")
	ticks := flag.Uint64("ticks", 0, "stop after this many ticks, overrides sim.ticks when set")
	printTrees := flag.Bool("print-trees", false, "print the outline of every tree and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}
	if *ticks > 0 {
		cfg.Sim.Ticks = *ticks
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sim, cleanup, err := injector.InitializeSimulator(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error starting simulator:", err)
		os.Exit(1)
	}
	defer cleanup()

	if *printTrees {
		for _, t := range sim.Catalogue().All() {
			fmt.Println(t)
		}
		return
	}

	if err = sim.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error running simulator:", err)
		cleanup()
		os.Exit(1)
	}
	st := sim.Stats()
	fmt.Printf("ticks=%d modifications=%d tree_errors=%d\n", st.Ticks, st.Modifications, st.TreeErrors)
}
