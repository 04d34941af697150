// Command lottery-jobs runs one batch step of the ticket lifecycle and exits
// with 0 on success and 1 on failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LavaJover/shvark-lottery-service/internal/app/background"
	"github.com/LavaJover/shvark-lottery-service/internal/app/setup"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	var p params
	flag.Int64Var(&p.LotteryID, "lottery-id", 0, "restrict the job to one lottery")
	flag.StringVar(&p.From, "from", "", "first day for generate-lotteries, YYYY-MM-DD")
	flag.StringVar(&p.To, "to", "", "last day for generate-lotteries, YYYY-MM-DD")
	flag.StringVar(&p.Type, "type", "", "lottery type for import-tickets")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: lottery-jobs [flags] <job>\n\njobs: %v\n\nflags:\n", jobNames)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		return 1
	}
	p.Job = flag.Arg(0)
	if err := p.validate(); err != nil {
		log.Printf("lottery-jobs: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setup.InitializeDependencies(ctx)
	if err != nil {
		log.Printf("lottery-jobs: %v", err)
		return 1
	}
	defer deps.Close()

	ucs, err := setup.InitializeUseCases(ctx, deps)
	if err != nil {
		deps.Logger.Error("init usecases", zap.Error(err))
		return 1
	}

	tasks := background.NewBackgroundTasks(
		ucs.InventoryUsecase,
		ucs.BasketUsecase,
		ucs.SettlementUsecase,
		ucs.ExportUsecase,
		deps.Config,
		deps.Metrics,
		deps.Logger.Named("jobs"),
	)
	r := &runner{deps: deps, ucs: ucs, tasks: tasks}

	logger := deps.Logger.With(zap.String("job", p.Job), zap.Int64("lottery_id", p.LotteryID))
	n, err := r.run(ctx, p)
	if err != nil {
		logger.Error("job failed", zap.Error(err))
		return 1
	}
	logger.Info("job finished", zap.Int("handled", n))
	return 0
}
