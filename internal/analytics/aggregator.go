// Package analytics aggregates a bill snapshot into the figures behind the
// dashboard panels: status distribution, per-counterparty totals, a monthly
// paid/pending timeline and the upcoming and overdue lists.
package analytics

import (
	"sort"
	"time"

	"contas/internal/core"
)

// TimelineMonths caps the monthly timeline at the last twelve months that
// actually contain bills.
const TimelineMonths = 12

// UpcomingWindowDays is the horizon of the upcoming list, inclusive.
const UpcomingWindowDays = 30

type (
	StatusSlice struct {
		Status core.BillStatus
		Count  int
	}

	// CompanyTotal sums a counterparty's bills. Pending covers everything not
	// yet protocoled regardless of due date.
	CompanyTotal struct {
		Label   string
		Total   core.Money
		Pending core.Money
		Count   int
	}

	// MonthPoint is one timeline bucket. Paid is the protocoled share.
	MonthPoint struct {
		Key     string // "YYYY-MM"
		Label   string // "março de 2025"
		Paid    core.Money
		Pending core.Money
	}
)

type Aggregator struct {
	clock func() time.Time
}

func NewAggregator(clock func() time.Time) *Aggregator {
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{clock: clock}
}

// StatusDistribution counts bills per status, dropping empty buckets so the
// chart never renders zero-width slices.
func (a *Aggregator) StatusDistribution(bills []core.Bill) []StatusSlice {
	now := a.clock()
	counts := map[core.BillStatus]int{}
	for _, b := range bills {
		counts[core.Status(b, now)]++
	}
	order := []core.BillStatus{
		core.StatusOverdue,
		core.StatusDueSoon,
		core.StatusPending,
		core.StatusProtocoled,
	}
	var out []StatusSlice
	for _, s := range order {
		if counts[s] > 0 {
			out = append(out, StatusSlice{Status: s, Count: counts[s]})
		}
	}
	return out
}

// CompanyTotals groups bills by counterparty label and sums total and
// pending amounts, largest total first.
func (a *Aggregator) CompanyTotals(bills []core.Bill) []CompanyTotal {
	byKey := map[string]*CompanyTotal{}
	for _, b := range bills {
		label := b.CompanyLabel()
		key := core.NormalizeKey(label)
		t, ok := byKey[key]
		if !ok {
			t = &CompanyTotal{Label: label}
			byKey[key] = t
		}
		t.Total = t.Total.Add(b.Amount)
		t.Count++
		if !b.IsProtocoled {
			t.Pending = t.Pending.Add(b.Amount)
		}
	}
	out := make([]CompanyTotal, 0, len(byKey))
	for _, t := range byKey {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return core.NormalizeKey(out[i].Label) < core.NormalizeKey(out[j].Label)
	})
	return out
}

// MonthlyTimeline buckets bills by due month and keeps the most recent
// TimelineMonths buckets that have data, ascending. Bills with an
// unparseable due date are excluded.
func (a *Aggregator) MonthlyTimeline(bills []core.Bill) []MonthPoint {
	byKey := map[string]*MonthPoint{}
	for _, b := range bills {
		key := b.DueDate.MonthKey()
		if key == "" {
			continue
		}
		p, ok := byKey[key]
		if !ok {
			p = &MonthPoint{Key: key, Label: core.MonthLabelPTBR(key)}
			byKey[key] = p
		}
		if b.IsProtocoled {
			p.Paid = p.Paid.Add(b.Amount)
		} else {
			p.Pending = p.Pending.Add(b.Amount)
		}
	}
	points := make([]MonthPoint, 0, len(byKey))
	for _, p := range byKey {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Key < points[j].Key })
	if len(points) > TimelineMonths {
		points = points[len(points)-TimelineMonths:]
	}
	return points
}

// Upcoming lists non-protocoled bills due between today and today plus
// UpcomingWindowDays, soonest first.
func (a *Aggregator) Upcoming(bills []core.Bill) []core.Bill {
	now := a.clock()
	var out []core.Bill
	for _, b := range bills {
		if b.IsProtocoled || b.DueDate.IsZero() {
			continue
		}
		days := core.DaysUntil(b.DueDate, now)
		if days >= 0 && days <= UpcomingWindowDays {
			out = append(out, b)
		}
	}
	sortByDueDate(out)
	return out
}

// Overdue lists non-protocoled bills past due, oldest first.
func (a *Aggregator) Overdue(bills []core.Bill) []core.Bill {
	now := a.clock()
	var out []core.Bill
	for _, b := range bills {
		if b.IsProtocoled || b.DueDate.IsZero() {
			continue
		}
		if core.DaysUntil(b.DueDate, now) < 0 {
			out = append(out, b)
		}
	}
	sortByDueDate(out)
	return out
}

func sortByDueDate(bills []core.Bill) {
	sort.SliceStable(bills, func(i, j int) bool {
		return bills[i].DueDate.Before(bills[j].DueDate)
	})
}
