package core

// DueDates expands a recurrence into its ordered due-date sequence. The
// first occurrence is the start date itself; occurrence i lands in the start
// month advanced by i*IntervalMonths, reattempting the start's day-of-month
// and clamping it per month. So a series anchored on day 31 yields the 31st
// wherever it exists and the month's last day elsewhere, without the anchor
// ever drifting to the clamped value.
func DueDates(start Date, r Recurrence) ([]Date, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if start.IsZero() {
		return nil, ErrInvalidDueDate
	}
	anchorDay := start.Day()
	dates := make([]Date, 0, r.Count)
	dates = append(dates, ClampedDateForDay(start.Year(), int(start.Month()), anchorDay))
	for i := 1; i < r.Count; i++ {
		d := ClampedDateForDay(start.Year(), int(start.Month())+i*r.IntervalMonths, anchorDay)
		dates = append(dates, d)
	}
	return dates, nil
}
