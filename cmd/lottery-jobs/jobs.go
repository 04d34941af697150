package main

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/app/background"
	"github.com/LavaJover/shvark-lottery-service/internal/app/setup"
	"github.com/LavaJover/shvark-lottery-service/internal/domain"
)

const (
	jobImportTickets = "import-tickets"
	jobImportResults = "import-results"
)

var jobNames = []string{
	background.JobGenerateLotteries,
	background.JobGenerateTickets,
	background.JobExpireBaskets,
	background.JobReconcilePayments,
	background.JobCalculateWinners,
	background.JobDraw,
	background.JobExportSchedules,
	background.JobExportWinnersConfig,
	background.JobExportTickets,
	background.JobExportResults,
	jobImportTickets,
	jobImportResults,
}

const dayLayout = "2006-01-02"

type params struct {
	Job       string
	LotteryID int64
	From      string
	To        string
	Type      string
}

func (p params) validate() error {
	known := false
	for _, name := range jobNames {
		if name == p.Job {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown job %q", p.Job)
	}
	if p.LotteryID < 0 {
		return fmt.Errorf("-lottery-id must be positive")
	}
	if p.Type != "" && !domain.LotteryType(p.Type).Valid() {
		return fmt.Errorf("unknown lottery type %q", p.Type)
	}
	if p.From != "" || p.To != "" {
		if _, err := p.period(domain.Period{}); err != nil {
			return err
		}
	}
	return nil
}

// period resolves -from and -to; a missing bound falls back to def.
func (p params) period(def domain.Period) (domain.Period, error) {
	out := def
	if p.From != "" {
		from, err := time.ParseInLocation(dayLayout, p.From, time.Local)
		if err != nil {
			return out, fmt.Errorf("-from: %w", err)
		}
		out.From = from
	}
	if p.To != "" {
		to, err := time.ParseInLocation(dayLayout, p.To, time.Local)
		if err != nil {
			return out, fmt.Errorf("-to: %w", err)
		}
		out.To = to
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.To.Before(out.From) {
		return out, fmt.Errorf("-to %s is before -from %s", p.To, p.From)
	}
	return out, nil
}

func (p params) ticketTypes() []domain.LotteryType {
	if p.Type != "" {
		return []domain.LotteryType{domain.LotteryType(p.Type)}
	}
	return domain.LotteryTypes
}

type runner struct {
	deps  *setup.Dependencies
	ucs   *setup.UseCases
	tasks *background.BackgroundTasks
}

func (r *runner) run(ctx context.Context, p params) (int, error) {
	cfg := r.deps.Config
	switch p.Job {
	case background.JobGenerateLotteries:
		period, err := p.period(r.tasks.GenerationPeriod())
		if err != nil {
			return 0, err
		}
		return r.ucs.InventoryUsecase.GenerateForPeriod(ctx, period, cfg.Countries)
	case background.JobGenerateTickets:
		if p.LotteryID > 0 {
			return 1, r.ucs.InventoryUsecase.SetupLotteryByID(ctx, p.LotteryID)
		}
		return 0, r.ucs.InventoryUsecase.RunTicketGeneration(ctx)
	case background.JobCalculateWinners:
		if p.LotteryID > 0 {
			lottery, err := r.deps.Repositories.LotteryRepo.GetLotteryByID(ctx, p.LotteryID)
			if err != nil {
				return 0, err
			}
			return r.ucs.SettlementUsecase.ComputeWinnersCount(ctx, lottery)
		}
		return r.ucs.SettlementUsecase.CalculatePendingWinnersCounts(ctx)
	case background.JobDraw:
		if p.LotteryID > 0 {
			result, err := r.ucs.SettlementUsecase.Draw(ctx, p.LotteryID)
			if err != nil {
				return 0, err
			}
			return len(result.Winners), nil
		}
		return r.ucs.SettlementUsecase.RunDueDraws(ctx)
	case jobImportTickets:
		topics := background.TicketTopics(cfg.KafkaService.Topics.Tickets, p.ticketTypes())
		return len(topics), r.drain(ctx, topics)
	case jobImportResults:
		return 1, r.drain(ctx, []string{cfg.KafkaService.Topics.Results})
	}

	for _, job := range r.tasks.Jobs() {
		if job.Name == p.Job {
			return job.Run(ctx)
		}
	}
	return 0, fmt.Errorf("job %s is not enabled for roles %v", p.Job, cfg.Roles)
}

// drain imports topics until each of them has nothing left to read.
func (r *runner) drain(ctx context.Context, topics []string) error {
	set := background.NewConsumers(
		r.deps.Config,
		topics,
		r.ucs.ImportUsecase,
		nil,
		r.deps.Publisher,
		r.deps.Metrics,
		r.deps.Logger.Named("kafka"),
		true,
	)
	return set.Run(ctx)
}
