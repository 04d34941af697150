package setup

import (
	"fmt"

	"github.com/LavaJover/shvark-lottery-service/internal/config"
	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/shopspring/decimal"
)

// LotteryTemplates converts the configured lottery types.
func LotteryTemplates(list []config.LotteryTemplate) ([]domain.LotteryTemplate, error) {
	out := make([]domain.LotteryTemplate, 0, len(list))
	seen := make(map[domain.LotteryType]bool, len(list))
	for _, t := range list {
		lt := domain.LotteryType(t.Type)
		if !lt.Valid() {
			return nil, fmt.Errorf("lottery_types: unknown type %q", t.Type)
		}
		if seen[lt] {
			return nil, fmt.Errorf("lottery_types: %s configured twice", lt)
		}
		seen[lt] = true

		price, err := decimal.NewFromString(t.TicketPrice)
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("lottery_types: %s ticket_price %q must be a positive decimal", lt, t.TicketPrice)
		}
		if t.Currency == "" {
			return nil, fmt.Errorf("lottery_types: %s currency is required", lt)
		}
		if lt.Capped() && t.TicketCap <= 0 {
			return nil, fmt.Errorf("lottery_types: %s needs a positive ticket_cap", lt)
		}
		if !lt.Capped() && len(t.Slots) == 0 {
			return nil, fmt.Errorf("lottery_types: %s needs at least one slot", lt)
		}
		out = append(out, domain.LotteryTemplate{
			Type:                 lt,
			Slots:                t.Slots,
			WindowDays:           t.WindowDays,
			TicketCap:            t.TicketCap,
			DrawDelay:            t.DrawDelay,
			TicketPrice:          price,
			Currency:             t.Currency,
			PrizeConfigurationID: t.PrizeConfigurationID,
		})
	}
	return out, nil
}

// PrizeConfigurations converts and validates the configured prize tables.
func PrizeConfigurations(list []config.PrizeConfig) ([]*domain.PrizeConfiguration, error) {
	out := make([]*domain.PrizeConfiguration, 0, len(list))
	for _, c := range list {
		fund, err := parseDecimal(c.FundPercent, "fund_percent")
		if err != nil {
			return nil, fmt.Errorf("prize_configurations %d: %w", c.ID, err)
		}
		pc := &domain.PrizeConfiguration{
			ID:          c.ID,
			LotteryType: domain.LotteryType(c.LotteryType),
			FundPercent: fund,
			Currency:    c.Currency,
		}
		for _, r := range c.Fixed {
			rule, err := fixedRule(r)
			if err != nil {
				return nil, fmt.Errorf("prize_configurations %d: %w", c.ID, err)
			}
			pc.Rules = append(pc.Rules, rule)
		}
		if c.Tail != nil {
			tail, err := tailRule(*c.Tail)
			if err != nil {
				return nil, fmt.Errorf("prize_configurations %d: %w", c.ID, err)
			}
			pc.Rules = append(pc.Rules, tail)
		}
		if err := pc.Validate(); err != nil {
			return nil, fmt.Errorf("prize_configurations %d: %w", c.ID, err)
		}
		out = append(out, pc)
	}
	return out, nil
}

func fixedRule(r config.FixedRule) (domain.PrizeRule, error) {
	switch {
	case r.Amount != "" && r.Percent != "":
		return nil, fmt.Errorf("position %d sets both amount and percent", r.Position)
	case r.Amount != "":
		amount, err := parseDecimal(r.Amount, "amount")
		if err != nil {
			return nil, err
		}
		return domain.FixedAmount{Position: r.Position, Amount: amount}, nil
	case r.Percent != "":
		percent, err := parseDecimal(r.Percent, "percent")
		if err != nil {
			return nil, err
		}
		return domain.FixedPercent{Position: r.Position, Percent: percent}, nil
	default:
		return nil, fmt.Errorf("position %d sets neither amount nor percent", r.Position)
	}
}

func tailRule(r config.TailRule) (domain.PrizeRule, error) {
	fields := map[string]string{
		"start_percent":     r.StartPercent,
		"decrease_step":     r.DecreaseStep,
		"min_amount":        r.MinAmount,
		"base_fund_percent": r.BaseFundPercent,
	}
	values := make(map[string]decimal.Decimal, len(fields))
	for name, raw := range fields {
		v, err := parseDecimal(raw, name)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return domain.DynamicTailRule{
		AfterPosition:   r.AfterPosition,
		StartPercent:    values["start_percent"],
		DecreaseStep:    values["decrease_step"],
		MinAmount:       values["min_amount"],
		BaseFundPercent: values["base_fund_percent"],
	}, nil
}

func parseDecimal(raw, field string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q is not a decimal", field, raw)
	}
	return v, nil
}
