package domain

import (
	"sort"
	"time"
)

const (
	// DefaultFinePerDay is charged for every whole day a loan is overdue
	DefaultFinePerDay int64 = 1000

	// DefaultLoanDays is the loan period when the borrower did not ask for a date
	DefaultLoanDays = 7

	// DefaultExtensionDays is how far one extension pushes the due date
	DefaultExtensionDays = 7

	// DefaultMaxActiveLoans is the simultaneous pending/active/late ceiling
	DefaultMaxActiveLoans = 3

	// DateLayout is the wire format for calendar dates
	DateLayout = "2006-01-02"
)

// DateOf returns the calendar date of t as seen in loc, normalized to
// midnight UTC so dates compare and subtract without DST drift.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a normalized calendar date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t, time.UTC), nil
}

// FormatDate renders a nullable calendar date
func FormatDate(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := DateOf(*t, time.UTC).Format(DateLayout)
	return &s
}

// DaysBetween counts whole calendar days from `from` to `to`.
// Negative when `to` is before `from`.
func DaysBetween(from, to time.Time) int {
	a := DateOf(from, time.UTC)
	b := DateOf(to, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// OverdueDays is max(0, whole days between due and today)
func OverdueDays(due, today time.Time) int {
	days := DaysBetween(due, today)
	if days < 0 {
		return 0
	}
	return days
}

// Fine multiplies overdue days by the per-day rate
func Fine(overdueDays int, finePerDay int64) int64 {
	if overdueDays <= 0 {
		return 0
	}
	return int64(overdueDays) * finePerDay
}

// DeriveStatus returns the status a reader should see on `today`.
// An active loan past its due date reads as terlambat; everything else is
// exposed as stored.
func DeriveStatus(stored LoanStatus, due *time.Time, today time.Time) LoanStatus {
	switch stored {
	case StatusBorrowed:
		if due != nil && DaysBetween(*due, today) > 0 {
			return StatusLate
		}
		return StatusBorrowed
	case StatusLate:
		// legacy rows written by an eager sweep
		return StatusLate
	default:
		return stored
	}
}

// Accrual is the lateness of a loan as of a given day
type Accrual struct {
	Status      LoanStatus
	OverdueDays int
	Fine        int64
}

// Accrue derives status, overdue days and fine for a loan on `today`.
// Open loans accrue live; a returned loan reports its frozen values.
func Accrue(stored LoanStatus, due *time.Time, frozenDays int, frozenFine int64, today time.Time, finePerDay int64) Accrual {
	status := DeriveStatus(stored, due, today)

	switch {
	case status.IsOpen():
		if due == nil {
			return Accrual{Status: status}
		}
		days := OverdueDays(*due, today)
		return Accrual{Status: status, OverdueDays: days, Fine: Fine(days, finePerDay)}
	case status == StatusReturned:
		return Accrual{Status: status, OverdueDays: frozenDays, Fine: frozenFine}
	default:
		return Accrual{Status: status}
	}
}

// statusRank orders the admin listing: pending, late, active, returned, rejected
var statusRank = map[LoanStatus]int{
	StatusPending:  0,
	StatusLate:     1,
	StatusBorrowed: 2,
	StatusReturned: 3,
	StatusRejected: 4,
}

// StatusRank returns the listing group of a derived status
func StatusRank(s LoanStatus) int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return len(statusRank)
}

// Rankable is anything that can be placed in the admin ordering
type Rankable interface {
	DerivedStatus() LoanStatus
	Created() time.Time
}

// SortForAdmin sorts in place by status group then newest first
func SortForAdmin[T Rankable](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := StatusRank(items[i].DerivedStatus()), StatusRank(items[j].DerivedStatus())
		if ri != rj {
			return ri < rj
		}
		return items[i].Created().After(items[j].Created())
	})
}
