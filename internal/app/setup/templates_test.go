package setup

import (
	"testing"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/config"
	"github.com/LavaJover/shvark-lottery-service/internal/domain"
)

func TestLotteryTemplates(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		out, err := LotteryTemplates([]config.LotteryTemplate{
			{Type: "FIXED_DAILY", Slots: []time.Duration{20 * time.Hour}, TicketPrice: "100", Currency: "RUB"},
			{Type: "CAPPED_SUPERTOUR", TicketCap: 5000, TicketPrice: "250.50", Currency: "RUB", PrizeConfigurationID: 4},
		})
		if err != nil {
			t.Fatalf("LotteryTemplates: %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("expected 2 templates, got %d", len(out))
		}
		if out[1].Type != domain.LotteryTypeCappedSupertour || out[1].TicketPrice.String() != "250.5" || out[1].PrizeConfigurationID != 4 {
			t.Fatalf("unexpected capped template: %+v", out[1])
		}
	})

	bad := []struct {
		name string
		tmpl config.LotteryTemplate
	}{
		{"unknown type", config.LotteryTemplate{Type: "WEEKLY", Slots: []time.Duration{time.Hour}, TicketPrice: "1", Currency: "RUB"}},
		{"bad price", config.LotteryTemplate{Type: "FIXED_DAILY", Slots: []time.Duration{time.Hour}, TicketPrice: "ten", Currency: "RUB"}},
		{"zero price", config.LotteryTemplate{Type: "FIXED_DAILY", Slots: []time.Duration{time.Hour}, TicketPrice: "0", Currency: "RUB"}},
		{"no currency", config.LotteryTemplate{Type: "FIXED_DAILY", Slots: []time.Duration{time.Hour}, TicketPrice: "1"}},
		{"capped without cap", config.LotteryTemplate{Type: "CAPPED_SUPERTOUR", TicketPrice: "1", Currency: "RUB"}},
		{"daily without slots", config.LotteryTemplate{Type: "DYNAMIC_DAILY", TicketPrice: "1", Currency: "RUB"}},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LotteryTemplates([]config.LotteryTemplate{tc.tmpl}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	t.Run("duplicate type", func(t *testing.T) {
		tmpl := config.LotteryTemplate{Type: "FIXED_DAILY", Slots: []time.Duration{time.Hour}, TicketPrice: "1", Currency: "RUB"}
		if _, err := LotteryTemplates([]config.LotteryTemplate{tmpl, tmpl}); err == nil {
			t.Fatalf("expected duplicate error")
		}
	})
}

func TestPrizeConfigurations(t *testing.T) {
	t.Run("fixed and tail", func(t *testing.T) {
		out, err := PrizeConfigurations([]config.PrizeConfig{{
			ID:          1,
			LotteryType: "FIXED_DAILY",
			FundPercent: "50",
			Currency:    "RUB",
			Fixed: []config.FixedRule{
				{Position: 1, Amount: "1000"},
				{Position: 2, Percent: "10"},
			},
			Tail: &config.TailRule{AfterPosition: 2, StartPercent: "5", DecreaseStep: "1", MinAmount: "10", BaseFundPercent: "40"},
		}})
		if err != nil {
			t.Fatalf("PrizeConfigurations: %v", err)
		}
		pc := out[0]
		if len(pc.Rules) != 3 || len(pc.FixedRules()) != 2 || pc.Tail() == nil {
			t.Fatalf("unexpected rules: %+v", pc.Rules)
		}
		if _, ok := pc.Rules[1].(domain.FixedPercent); !ok {
			t.Fatalf("expected second rule to be a percent, got %T", pc.Rules[1])
		}
	})

	bad := []struct {
		name string
		cfg  config.PrizeConfig
	}{
		{"bad fund", config.PrizeConfig{ID: 2, FundPercent: "x"}},
		{"fund over 100", config.PrizeConfig{ID: 2, FundPercent: "120"}},
		{"both amount and percent", config.PrizeConfig{ID: 2, FundPercent: "50", Fixed: []config.FixedRule{{Position: 1, Amount: "1", Percent: "1"}}}},
		{"empty fixed rule", config.PrizeConfig{ID: 2, FundPercent: "50", Fixed: []config.FixedRule{{Position: 1}}}},
		{"bad tail", config.PrizeConfig{ID: 2, FundPercent: "50", Tail: &config.TailRule{StartPercent: "5", DecreaseStep: "?", MinAmount: "1", BaseFundPercent: "10"}}},
		{"duplicate position", config.PrizeConfig{ID: 2, FundPercent: "50", Fixed: []config.FixedRule{{Position: 1, Amount: "1"}, {Position: 1, Amount: "2"}}}},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := PrizeConfigurations([]config.PrizeConfig{tc.cfg}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
