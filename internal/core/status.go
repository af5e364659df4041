package core

import "time"

const (
	StatusPending    BillStatus = "pending"
	StatusDueSoon    BillStatus = "due-soon"
	StatusOverdue    BillStatus = "overdue"
	StatusProtocoled BillStatus = "protocoled"
)

// BillStatus is the derived lifecycle state of a bill relative to "now".
type BillStatus string

// DueSoonWindowDays is the inclusive day window that turns a pending bill
// into due-soon.
const DueSoonWindowDays = 3

// Status derives the bill's state at the given instant. It is total: a
// protocoled bill is always protocoled regardless of dates, and a bill with
// an unparseable due date degrades to pending instead of failing.
func Status(b Bill, now time.Time) BillStatus {
	if b.IsProtocoled {
		return StatusProtocoled
	}
	if b.DueDate.IsZero() {
		return StatusPending
	}
	diff := DaysUntil(b.DueDate, now)
	switch {
	case diff < 0:
		return StatusOverdue
	case diff <= DueSoonWindowDays:
		return StatusDueSoon
	default:
		return StatusPending
	}
}
