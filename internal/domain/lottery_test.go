package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestInstancesForDay(t *testing.T) {
	day := time.Date(2026, 4, 2, 15, 30, 0, 0, time.UTC)
	midnight := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	base := LotteryTemplate{TicketPrice: decimal.NewFromInt(100), Currency: "RUB", DrawDelay: 30 * time.Minute}

	t.Run("fixed daily", func(t *testing.T) {
		tmpl := base
		tmpl.Type = LotteryTypeFixedDaily
		tmpl.Slots = []time.Duration{20 * time.Hour}
		got := tmpl.InstancesForDay("ru", day)
		if len(got) != 1 {
			t.Fatalf("expected 1 instance, got %d", len(got))
		}
		if !got[0].SaleStartDate.Equal(midnight) || !got[0].SaleEndDate.Equal(midnight.Add(20*time.Hour)) {
			t.Fatalf("unexpected window %v - %v", got[0].SaleStartDate, *got[0].SaleEndDate)
		}
		if !got[0].DrawDate.Equal(midnight.Add(20*time.Hour + 30*time.Minute)) {
			t.Fatalf("unexpected draw date %v", *got[0].DrawDate)
		}
	})

	t.Run("dynamic daily chains slots in order", func(t *testing.T) {
		tmpl := base
		tmpl.Type = LotteryTypeDynamicDaily
		tmpl.Slots = []time.Duration{18 * time.Hour, 10 * time.Hour, 14 * time.Hour}
		got := tmpl.InstancesForDay("KZ", day)
		if len(got) != 3 {
			t.Fatalf("expected 3 instances, got %d", len(got))
		}
		for i := 1; i < len(got); i++ {
			if !got[i].SaleStartDate.Equal(*got[i-1].SaleEndDate) {
				t.Fatalf("instance %d does not start where %d ended", i, i-1)
			}
		}
		if !got[2].SaleEndDate.Equal(midnight.Add(18 * time.Hour)) {
			t.Fatalf("last instance ends at %v", *got[2].SaleEndDate)
		}
	})

	t.Run("jackpot spans the window", func(t *testing.T) {
		tmpl := base
		tmpl.Type = LotteryTypeAccumulatingJackpot
		tmpl.Slots = []time.Duration{21 * time.Hour}
		tmpl.WindowDays = 7
		got := tmpl.InstancesForDay("RU", day)
		want := midnight.AddDate(0, 0, 7).Add(21 * time.Hour)
		if len(got) != 1 || !got[0].SaleEndDate.Equal(want) {
			t.Fatalf("unexpected jackpot window: %+v", got)
		}
	})

	t.Run("capped has no end", func(t *testing.T) {
		tmpl := base
		tmpl.Type = LotteryTypeCappedSupertour
		tmpl.TicketCap = 1000
		got := tmpl.InstancesForDay("RU", day)
		if len(got) != 1 || got[0].SaleEndDate != nil || got[0].DrawDate != nil {
			t.Fatalf("capped sale must be open ended: %+v", got)
		}
		if got[0].TicketCap != 1000 {
			t.Fatalf("expected cap 1000, got %d", got[0].TicketCap)
		}
	})
}

func TestLotteryOnSale(t *testing.T) {
	start := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(20 * time.Hour)
	l := &Lottery{IsActive: true, SaleStartDate: start, SaleEndDate: &end}

	if l.OnSale(start.Add(-time.Second)) {
		t.Fatalf("on sale before start")
	}
	if !l.OnSale(start.Add(time.Hour)) {
		t.Fatalf("not on sale inside the window")
	}
	if l.OnSale(end) {
		t.Fatalf("on sale at end")
	}
	if l.SaleClosedFor(end.Add(time.Minute), 2*time.Minute) {
		t.Fatalf("grace period not honoured")
	}
	if !l.SaleClosedFor(end.Add(2*time.Minute), 2*time.Minute) {
		t.Fatalf("expected sale closed after grace")
	}

	l.IsDrawn = true
	if l.OnSale(start.Add(time.Hour)) {
		t.Fatalf("drawn lottery on sale")
	}
}

func TestPeriodDays(t *testing.T) {
	p := Period{From: time.Date(2026, 2, 27, 13, 0, 0, 0, time.UTC), To: time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)}
	days := p.Days()
	if len(days) != 4 {
		t.Fatalf("expected 4 days, got %d", len(days))
	}
	if days[3].Day() != 2 || days[3].Hour() != 0 {
		t.Fatalf("unexpected last day %v", days[3])
	}
}

func TestFormatTicketNumber(t *testing.T) {
	if got := FormatTicketNumber("ru", 42, 7); got != "RU000000427" {
		t.Fatalf("unexpected number %s", got)
	}
	if FormatTicketNumber("RU", 1, 17) == FormatTicketNumber("RU", 11, 7) {
		t.Fatalf("numbers of different lotteries collide")
	}
}
