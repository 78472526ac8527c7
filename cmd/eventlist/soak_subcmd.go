package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/inoxlang/eventlist/internal/scenario"
)

func RunSoak(mainSubCommand string, mainSubCommandArgs []string, env cliEnv) (exitCode int) {
	flags := flag.NewFlagSet(mainSubCommand, flag.ContinueOnError)
	flags.SetOutput(env.errW)

	soakConfig := env.config.Soak

	var operations, cursors, workers int
	var seed int64
	flags.IntVar(&operations, "ops", soakConfig.Operations, "number of operations per worker")
	flags.IntVar(&cursors, "cursors", soakConfig.Cursors, "number of cursors per list")
	flags.IntVar(&workers, "workers", scenario.DEFAULT_SOAK_WORKERS, "number of lists soaked in parallel")
	flags.Int64Var(&seed, "seed", soakConfig.Seed, "seed of the first worker")

	if showHelp(flags, mainSubCommandArgs, env.outW) {
		return
	}

	if err := flags.Parse(mainSubCommandArgs); err != nil {
		return ERROR_STATUS_CODE
	}

	if operations < 0 || cursors < 0 || workers < 0 {
		fmt.Fprintln(env.errW, "ops, cursors and workers should be positive")
		return ERROR_STATUS_CODE
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	report, err := scenario.Soak(ctx, scenario.SoakConfig{
		Operations: operations,
		Cursors:    cursors,
		Workers:    workers,
		Seed:       seed,
		Logger:     &env.logger,
		Levels:     env.levels,
	})

	if err != nil {
		fmt.Fprintln(env.errW, err)
		return ERROR_STATUS_CODE
	}

	fmt.Fprintf(env.outW, "%d operations on %d list(s), max size %d\n", report.Operations, report.Workers, report.MaxSize)
	for _, op := range scenario.SOAK_OPS {
		fmt.Fprintf(env.outW, "\t%s: %d\n", op, report.OpCounts[op])
	}
	fmt.Fprintf(env.outW, "heap: %s at start, %s at peak, %s at end\n",
		humanize.IBytes(report.HeapAllocStart), humanize.IBytes(report.PeakHeapAlloc), humanize.IBytes(report.HeapAllocEnd))
	return 0
}
