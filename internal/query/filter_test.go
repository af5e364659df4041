package query

import (
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
		{ID: "2", Name: "Claro Móvel", Company: "Claro", Amount: core.Money{Cents: 8000}, DueDate: date(t, "2025-03-25")},
		{ID: "3", Name: "Microsoft 365", Company: "Microsoft", Amount: core.Money{Cents: 15000}, DueDate: date(t, "2025-03-05"), BoletoNumber: "34191.79001"},
		{ID: "4", Name: "AWS", Company: "Amazon", Amount: core.Money{Cents: 30000}, DueDate: date(t, "2025-03-01"), IsProtocoled: true, InvoiceNumber: "NF-8821"},
		{ID: "5", Name: "Vivo Fibra", Company: "Vivo", Amount: core.Money{Cents: 12000}, DueDate: date(t, "2025-04-12")},
	}
}

func ids(bills []core.Bill) []string {
	out := make([]string, len(bills))
	for i, b := range bills {
		out[i] = b.ID
	}
	return out
}

func equalIDs(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApplySortOrder(t *testing.T) {
	e := NewEngine(testClock)
	res := e.Apply(fixture(t), Filter{})

	// Overdue first, then ascending due date, protocoled last.
	if got := ids(res.Bills); !equalIDs(got, "3", "1", "2", "5", "4") {
		t.Fatalf("sort order = %v", got)
	}
}

func TestApplyCounts(t *testing.T) {
	e := NewEngine(testClock)
	res := e.Apply(fixture(t), Filter{})

	want := Counts{All: 5, Pending: 3, Overdue: 1, Protocoled: 1}
	if res.Counts != want {
		t.Fatalf("counts = %+v, want %+v", res.Counts, want)
	}
}

func TestApplyCountsIgnoreStatusFilter(t *testing.T) {
	e := NewEngine(testClock)
	res := e.Apply(fixture(t), Filter{Status: FilterOverdue})

	if res.Counts.All != 5 {
		t.Fatalf("counts.All = %d, want counts over the searched set", res.Counts.All)
	}
	if got := ids(res.Bills); !equalIDs(got, "3") {
		t.Fatalf("overdue filter = %v", got)
	}
}

func TestApplyMonthScope(t *testing.T) {
	e := NewEngine(testClock)
	res := e.Apply(fixture(t), Filter{Month: "2025-04"})

	if got := ids(res.Bills); !equalIDs(got, "5") {
		t.Fatalf("month scope = %v", got)
	}
	if res.Counts.All != 1 {
		t.Fatalf("counts.All = %d", res.Counts.All)
	}
}

func TestApplyStatusFilters(t *testing.T) {
	e := NewEngine(testClock)
	tests := []struct {
		name   string
		status StatusFilter
		want   []string
	}{
		{"pending includes due soon", FilterPending, []string{"1", "2", "5"}},
		{"overdue", FilterOverdue, []string{"3"}},
		{"protocoled", FilterProtocoled, []string{"4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Apply(fixture(t), Filter{Status: tt.status})
			if got := ids(res.Bills); !equalIDs(got, tt.want...) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplySearchModes(t *testing.T) {
	e := NewEngine(testClock)
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"company match is accent and case insensitive", Filter{Search: "VÍVO", SearchMode: SearchCompany}, []string{"1", "5"}},
		{"boleto digits", Filter{Search: "34191", SearchMode: SearchBoleto}, []string{"3"}},
		{"invoice number", Filter{Search: "nf-8821", SearchMode: SearchInvoice}, []string{"4"}},
		{"all fields", Filter{Search: "aws", SearchMode: SearchAll}, []string{"4"}},
		{"no match", Filter{Search: "zzz"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Apply(fixture(t), tt.filter)
			if got := ids(res.Bills); !equalIDs(got, tt.want...) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompanyOptionsFollowMonthScope(t *testing.T) {
	e := NewEngine(testClock)

	res := e.Apply(fixture(t), Filter{Month: "2025-03"})
	if len(res.CompanyOptions) != 4 {
		t.Fatalf("march options = %d, want 4", len(res.CompanyOptions))
	}

	res = e.Apply(fixture(t), Filter{Month: "2025-04"})
	if len(res.CompanyOptions) != 1 || res.CompanyOptions[0].Key != "vivo" {
		t.Fatalf("april options = %+v", res.CompanyOptions)
	}
}

func TestStaleCompanySelectionReverts(t *testing.T) {
	e := NewEngine(testClock)

	res := e.Apply(fixture(t), Filter{Month: "2025-04", Company: "amazon"})
	if res.Company != "all" {
		t.Fatalf("company = %q, want revert to all", res.Company)
	}
	if got := ids(res.Bills); !equalIDs(got, "5") {
		t.Fatalf("bills = %v", got)
	}
}

func TestCompanyScope(t *testing.T) {
	e := NewEngine(testClock)

	res := e.Apply(fixture(t), Filter{Company: "vivo"})
	if got := ids(res.Bills); !equalIDs(got, "1", "5") {
		t.Fatalf("company scope = %v", got)
	}
}

func TestCompanyScopeAcceptsDisplaySpelling(t *testing.T) {
	e := NewEngine(testClock)

	// A raw flag or UI value arrives unnormalized; it must select the
	// company, not silently revert to all.
	res := e.Apply(fixture(t), Filter{Company: "Vivo"})
	if res.Company != "vivo" {
		t.Fatalf("company = %q, want vivo", res.Company)
	}
	if got := ids(res.Bills); !equalIDs(got, "1", "5") {
		t.Fatalf("company scope = %v", got)
	}
}

func TestResolveMonthAuto(t *testing.T) {
	e := NewEngine(testClock)

	res := e.Apply(fixture(t), Filter{Month: MonthAuto})
	if res.Month != "2025-03" {
		t.Fatalf("auto month = %q, want current month with data", res.Month)
	}

	res = e.Apply(fixture(t)[4:], Filter{Month: MonthAuto})
	if res.Month != "all" {
		t.Fatalf("auto month = %q, want all when current month is empty", res.Month)
	}
}

func TestMonthOptions(t *testing.T) {
	bills := fixture(t)
	bills = append(bills, core.Bill{ID: "6", Name: "Sem data"})

	got := MonthOptions(bills)
	if len(got) != 2 || got[0] != "2025-03" || got[1] != "2025-04" {
		t.Fatalf("month options = %v", got)
	}
}

func TestUnparseableDueDateSortsLast(t *testing.T) {
	e := NewEngine(testClock)
	bills := []core.Bill{
		{ID: "a", Name: "Sem data"},
		{ID: "b", Name: "Com data", DueDate: date(t, "2025-03-20")},
	}

	res := e.Apply(bills, Filter{})
	if got := ids(res.Bills); !equalIDs(got, "b", "a") {
		t.Fatalf("sort = %v", got)
	}
}
