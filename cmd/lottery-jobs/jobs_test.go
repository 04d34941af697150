package main

import (
	"testing"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
)

func TestParamsValidate(t *testing.T) {
	cases := []struct {
		name string
		p    params
		ok   bool
	}{
		{"plain job", params{Job: "draw"}, true},
		{"job with lottery", params{Job: "draw", LotteryID: 7}, true},
		{"unknown job", params{Job: "sell"}, false},
		{"negative id", params{Job: "draw", LotteryID: -1}, false},
		{"bad type", params{Job: "import-tickets", Type: "WEEKLY"}, false},
		{"good type", params{Job: "import-tickets", Type: "FIXED_DAILY"}, true},
		{"bad date", params{Job: "generate-lotteries", From: "10/05/2026"}, false},
		{"reversed range", params{Job: "generate-lotteries", From: "2026-05-10", To: "2026-05-09"}, false},
		{"range", params{Job: "generate-lotteries", From: "2026-05-10", To: "2026-05-12"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestParamsPeriodDefaults(t *testing.T) {
	def := domain.Period{
		From: time.Date(2026, 5, 1, 0, 0, 0, 0, time.Local),
		To:   time.Date(2026, 5, 2, 0, 0, 0, 0, time.Local),
	}
	p := params{To: "2026-05-04"}
	got, err := p.period(def)
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	if !got.From.Equal(def.From) {
		t.Fatalf("expected default from, got %v", got.From)
	}
	if len(got.Days()) != 4 {
		t.Fatalf("expected 4 days, got %d", len(got.Days()))
	}
}

func TestTicketTypes(t *testing.T) {
	if got := (params{}).ticketTypes(); len(got) != len(domain.LotteryTypes) {
		t.Fatalf("expected every type, got %v", got)
	}
	if got := (params{Type: "CAPPED_SUPERTOUR"}).ticketTypes(); len(got) != 1 || got[0] != domain.LotteryTypeCappedSupertour {
		t.Fatalf("unexpected types %v", got)
	}
}
