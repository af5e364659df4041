// Package query derives the visible bill list from filter state: month and
// counterparty scoping, free-text search, per-status counts and the final
// status filter plus sort. Counts are computed over the scoped and searched
// set, not the status-filtered one, so the filter chips stay consistent
// while one of them is active.
package query

import (
	"sort"
	"strings"
	"time"

	"contas/internal/core"
)

const (
	FilterAll        StatusFilter = "all"
	FilterPending    StatusFilter = "pending"
	FilterOverdue    StatusFilter = "overdue"
	FilterProtocoled StatusFilter = "protocoled"
)

const (
	SearchAll     SearchMode = "all"
	SearchCompany SearchMode = "company"
	SearchBoleto  SearchMode = "boleto"
	SearchInvoice SearchMode = "invoice"
)

// MonthAuto selects the current calendar month when it contains bills and
// falls back to all months otherwise.
const MonthAuto = "auto"

type (
	StatusFilter string
	SearchMode   string

	// Filter is the complete dashboard filter state. Zero values mean "all".
	Filter struct {
		Status     StatusFilter
		Month      string // "all", "auto" or "YYYY-MM"
		Company    string // "all" or a counterparty key, any spelling
		Search     string
		SearchMode SearchMode
	}

	// Counts are the chip counters over the scoped+searched set. Due-soon
	// bills count inside Pending.
	Counts struct {
		All        int
		Pending    int
		Overdue    int
		Protocoled int
	}

	// CompanyOption is a selectable counterparty within the current month
	// scope.
	CompanyOption struct {
		Key   string
		Label string
		Count int
	}

	// Result is everything the dashboard needs for one render.
	Result struct {
		Bills          []core.Bill
		Counts         Counts
		CompanyOptions []CompanyOption
		Month          string // resolved month filter
		Company        string // resolved company key, reverted to all when stale
	}

	Engine struct {
		clock func() time.Time
	}
)

func NewEngine(clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{clock: clock}
}

// MonthOptions lists the distinct month keys present in the data, ascending.
// Bills with an unparseable due date contribute no option.
func MonthOptions(bills []core.Bill) []string {
	seen := map[string]struct{}{}
	var keys []string
	for _, b := range bills {
		k := b.DueDate.MonthKey()
		if k == "" {
			continue
		}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Apply runs the full pipeline and returns the visible list plus counts and
// the resolved filter state.
func (e *Engine) Apply(bills []core.Bill, f Filter) Result {
	now := e.clock()
	f = withDefaults(f)

	month := e.resolveMonth(bills, f.Month)
	monthScoped := scopeByMonth(bills, month)

	options := companyOptions(monthScoped)
	company := resolveCompany(options, f.Company)
	scoped := scopeByCompany(monthScoped, company)

	searched := applySearch(scoped, f.Search, f.SearchMode)

	counts := countByStatus(searched, now)
	visible := filterByStatus(searched, f.Status, now)
	sortBills(visible, now)

	return Result{
		Bills:          visible,
		Counts:         counts,
		CompanyOptions: options,
		Month:          month,
		Company:        company,
	}
}

func withDefaults(f Filter) Filter {
	if f.Status == "" {
		f.Status = FilterAll
	}
	if f.Month == "" {
		f.Month = "all"
	}
	// Callers may hand over a display spelling ("Vivo"); keys match on the
	// normalized form.
	f.Company = core.NormalizeKey(f.Company)
	if f.Company == "" {
		f.Company = "all"
	}
	if f.SearchMode == "" {
		f.SearchMode = SearchAll
	}
	return f
}

func (e *Engine) resolveMonth(bills []core.Bill, month string) string {
	if month != MonthAuto {
		return month
	}
	current := core.MonthKeyOf(e.clock())
	for _, k := range MonthOptions(bills) {
		if k == current {
			return current
		}
	}
	return "all"
}

func scopeByMonth(bills []core.Bill, month string) []core.Bill {
	if month == "all" {
		return append([]core.Bill(nil), bills...)
	}
	var out []core.Bill
	for _, b := range bills {
		if b.DueDate.MonthKey() == month {
			out = append(out, b)
		}
	}
	return out
}

// companyOptions derives the selectable counterparties from the
// month-scoped set only, so switching months resets the options.
func companyOptions(bills []core.Bill) []CompanyOption {
	byKey := map[string]*CompanyOption{}
	for _, b := range bills {
		label := b.CompanyLabel()
		key := core.NormalizeKey(label)
		if opt, ok := byKey[key]; ok {
			opt.Count++
		} else {
			byKey[key] = &CompanyOption{Key: key, Label: label, Count: 1}
		}
	}
	options := make([]CompanyOption, 0, len(byKey))
	for _, opt := range byKey {
		options = append(options, *opt)
	}
	sort.Slice(options, func(i, j int) bool {
		return core.NormalizeKey(options[i].Label) < core.NormalizeKey(options[j].Label)
	})
	return options
}

// resolveCompany reverts a selection that no longer exists in the current
// month scope back to all.
func resolveCompany(options []CompanyOption, key string) string {
	if key == "all" {
		return key
	}
	for _, opt := range options {
		if opt.Key == key {
			return key
		}
	}
	return "all"
}

func scopeByCompany(bills []core.Bill, key string) []core.Bill {
	if key == "all" {
		return bills
	}
	var out []core.Bill
	for _, b := range bills {
		if core.NormalizeKey(b.CompanyLabel()) == key {
			out = append(out, b)
		}
	}
	return out
}

func applySearch(bills []core.Bill, search string, mode SearchMode) []core.Bill {
	q := core.NormalizeKey(search)
	if q == "" {
		return bills
	}
	var out []core.Bill
	for _, b := range bills {
		if matches(b, q, mode) {
			out = append(out, b)
		}
	}
	return out
}

func matches(b core.Bill, q string, mode SearchMode) bool {
	company := core.NormalizeKey(b.CompanyLabel())
	boleto := core.NormalizeKey(b.BoletoNumber)
	invoice := core.NormalizeKey(b.InvoiceNumber)
	general := core.NormalizeKey(b.GeneralText())

	switch mode {
	case SearchCompany:
		return strings.Contains(company, q) || strings.Contains(general, q)
	case SearchBoleto:
		return strings.Contains(boleto, q)
	case SearchInvoice:
		return strings.Contains(invoice, q)
	default:
		return strings.Contains(company, q) || strings.Contains(boleto, q) ||
			strings.Contains(invoice, q) || strings.Contains(general, q)
	}
}

func countByStatus(bills []core.Bill, now time.Time) Counts {
	c := Counts{All: len(bills)}
	for _, b := range bills {
		switch core.Status(b, now) {
		case core.StatusPending, core.StatusDueSoon:
			c.Pending++
		case core.StatusOverdue:
			c.Overdue++
		case core.StatusProtocoled:
			c.Protocoled++
		}
	}
	return c
}

func filterByStatus(bills []core.Bill, f StatusFilter, now time.Time) []core.Bill {
	out := make([]core.Bill, 0, len(bills))
	for _, b := range bills {
		status := core.Status(b, now)
		keep := false
		switch f {
		case FilterPending:
			keep = !b.IsProtocoled && (status == core.StatusPending || status == core.StatusDueSoon)
		case FilterOverdue:
			keep = !b.IsProtocoled && status == core.StatusOverdue
		case FilterProtocoled:
			keep = b.IsProtocoled
		default:
			keep = true
		}
		if keep {
			out = append(out, b)
		}
	}
	return out
}

// sortBills orders protocoled bills after everything else, overdue before
// the other live states, then ascending due date with unparseable dates
// last.
func sortBills(bills []core.Bill, now time.Time) {
	sort.SliceStable(bills, func(i, j int) bool {
		a, b := bills[i], bills[j]
		if a.IsProtocoled != b.IsProtocoled {
			return !a.IsProtocoled
		}
		if !a.IsProtocoled {
			ao := core.Status(a, now) == core.StatusOverdue
			bo := core.Status(b, now) == core.StatusOverdue
			if ao != bo {
				return ao
			}
		}
		return a.DueDate.Before(b.DueDate)
	})
}
