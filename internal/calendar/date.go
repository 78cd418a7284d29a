// Package calendar provides the game calendar: dates, day arithmetic, and
// the shared clock that every system reads the current date from.
// The game year has 12 months of 30 days each.
package calendar

import "fmt"

// DaysPerMonth and MonthsPerYear define the simplified game calendar.
const (
	DaysPerMonth  = 30
	MonthsPerYear = 12
	DaysPerYear   = DaysPerMonth * MonthsPerYear
)

var monthNames = [MonthsPerYear]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Date is a day in the game calendar. Month and Day are 1-based.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// NewDate builds a date, normalizing out-of-range month/day values.
func NewDate(year, month, day int) Date {
	d := Date{Year: year, Month: month, Day: day}
	return FromDayNumber(d.DayNumber())
}

// DayNumber converts the date to an absolute day count since year 1.
func (d Date) DayNumber() int {
	return (d.Year-1)*DaysPerYear + (d.Month-1)*DaysPerMonth + (d.Day - 1)
}

// FromDayNumber converts an absolute day count back to a calendar date.
func FromDayNumber(n int) Date {
	if n < 0 {
		n = 0
	}
	year := n/DaysPerYear + 1
	rem := n % DaysPerYear
	return Date{
		Year:  year,
		Month: rem/DaysPerMonth + 1,
		Day:   rem%DaysPerMonth + 1,
	}
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return FromDayNumber(d.DayNumber() + n)
}

// DaysUntil returns the number of days from d to other. Negative if other
// is in the past.
func (d Date) DaysUntil(other Date) int {
	return other.DayNumber() - d.DayNumber()
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.DayNumber() < other.DayNumber()
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.DayNumber() > other.DayNumber()
}

// Equal reports whether two dates are the same day.
func (d Date) Equal(other Date) bool {
	return d.DayNumber() == other.DayNumber()
}

func (d Date) String() string {
	m := d.Month
	if m < 1 || m > MonthsPerYear {
		m = 1
	}
	return fmt.Sprintf("%d %s, Year %d", d.Day, monthNames[m-1], d.Year)
}
