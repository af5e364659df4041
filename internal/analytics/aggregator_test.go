package analytics

import (
	"fmt"
	"testing"
	"time"

	"contas/internal/core"
)

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.Local)

func testClock() time.Time { return testNow }

func date(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseLocalDate(s)
	if err != nil {
		t.Fatalf("ParseLocalDate(%q): %v", s, err)
	}
	return d
}

func fixture(t *testing.T) []core.Bill {
	t.Helper()
	return []core.Bill{
		{ID: "1", Name: "Vivo Fibra", Company: "Vivo", Amount: core.Money{Cents: 12000}, DueDate: date(t, "2025-03-12")},
		{ID: "2", Name: "Vivo Fibra", Company: "Vivo", Amount: core.Money{Cents: 12000}, DueDate: date(t, "2025-02-12"), IsProtocoled: true},
		{ID: "3", Name: "Microsoft 365", Company: "Microsoft", Amount: core.Money{Cents: 15000}, DueDate: date(t, "2025-03-05")},
		{ID: "4", Name: "AWS", Company: "Amazon", Amount: core.Money{Cents: 30000}, DueDate: date(t, "2025-04-20")},
	}
}

func TestStatusDistribution(t *testing.T) {
	a := NewAggregator(testClock)

	got := a.StatusDistribution(fixture(t))
	want := []StatusSlice{
		{core.StatusOverdue, 1},
		{core.StatusDueSoon, 1},
		{core.StatusPending, 1},
		{core.StatusProtocoled, 1},
	}
	if len(got) != len(want) {
		t.Fatalf("slices = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slice %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStatusDistributionDropsEmptyBuckets(t *testing.T) {
	a := NewAggregator(testClock)
	bills := []core.Bill{
		{ID: "1", Name: "AWS", Amount: core.Money{Cents: 100}, DueDate: date(t, "2025-04-20")},
	}

	got := a.StatusDistribution(bills)
	if len(got) != 1 || got[0].Status != core.StatusPending {
		t.Fatalf("slices = %+v", got)
	}
}

func TestCompanyTotals(t *testing.T) {
	a := NewAggregator(testClock)

	got := a.CompanyTotals(fixture(t))
	if len(got) != 3 {
		t.Fatalf("totals = %+v", got)
	}
	// Largest total first: Amazon 300, Vivo 240, Microsoft 150.
	if got[0].Label != "Amazon" || got[0].Total.Cents != 30000 {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Label != "Vivo" || got[1].Total.Cents != 24000 || got[1].Pending.Cents != 12000 || got[1].Count != 2 {
		t.Fatalf("vivo = %+v", got[1])
	}
	if got[2].Label != "Microsoft" || got[2].Pending.Cents != 15000 {
		t.Fatalf("microsoft = %+v", got[2])
	}
}

func TestMonthlyTimeline(t *testing.T) {
	a := NewAggregator(testClock)
	bills := append(fixture(t), core.Bill{ID: "5", Name: "Sem data", Amount: core.Money{Cents: 999}})

	got := a.MonthlyTimeline(bills)
	if len(got) != 3 {
		t.Fatalf("points = %+v", got)
	}
	if got[0].Key != "2025-02" || got[0].Paid.Cents != 12000 || got[0].Pending.Cents != 0 {
		t.Fatalf("feb = %+v", got[0])
	}
	if got[1].Key != "2025-03" || got[1].Pending.Cents != 27000 {
		t.Fatalf("mar = %+v", got[1])
	}
	if got[2].Key != "2025-04" || got[2].Pending.Cents != 30000 {
		t.Fatalf("apr = %+v", got[2])
	}
	if got[1].Label != "março de 2025" {
		t.Fatalf("label = %q", got[1].Label)
	}
}

func TestMonthlyTimelineKeepsLastTwelve(t *testing.T) {
	a := NewAggregator(testClock)
	var bills []core.Bill
	for i := 0; i < 15; i++ {
		bills = append(bills, core.Bill{
			ID:      fmt.Sprintf("b%d", i),
			Name:    "Mensal",
			Amount:  core.Money{Cents: 100},
			DueDate: core.ClampedDateForDay(2024, 1+i, 10),
		})
	}

	got := a.MonthlyTimeline(bills)
	if len(got) != TimelineMonths {
		t.Fatalf("len = %d, want %d", len(got), TimelineMonths)
	}
	if got[0].Key != "2024-04" || got[len(got)-1].Key != "2025-03" {
		t.Fatalf("range = %s..%s", got[0].Key, got[len(got)-1].Key)
	}
}

func TestUpcoming(t *testing.T) {
	a := NewAggregator(testClock)
	bills := append(fixture(t),
		core.Bill{ID: "5", Name: "Longe", Amount: core.Money{Cents: 100}, DueDate: date(t, "2025-04-10")},
		core.Bill{ID: "6", Name: "Muito longe", Amount: core.Money{Cents: 100}, DueDate: date(t, "2025-04-11")},
		core.Bill{ID: "7", Name: "Hoje", Amount: core.Money{Cents: 100}, DueDate: date(t, "2025-03-10")},
	)

	got := a.Upcoming(bills)
	// Window is 2025-03-10 through 2025-04-09; id 5 lands exactly at +31
	// and id 6 beyond, both out; id 4 (04-20) is out; protocoled excluded.
	wantIDs := []string{"7", "1"}
	if len(got) != len(wantIDs) {
		t.Fatalf("upcoming = %+v", got)
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Fatalf("upcoming[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestOverdue(t *testing.T) {
	a := NewAggregator(testClock)
	bills := append(fixture(t),
		core.Bill{ID: "5", Name: "Antiga", Amount: core.Money{Cents: 100}, DueDate: date(t, "2025-01-02")},
	)

	got := a.Overdue(bills)
	if len(got) != 2 || got[0].ID != "5" || got[1].ID != "3" {
		t.Fatalf("overdue = %+v", got)
	}
}
