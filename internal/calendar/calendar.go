package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/br"

	"service-bondvol/internal"
)

// Calendar answers business-day questions for a named holiday calendar.
// "ANBIMA" (and "BR") map to the Brazilian banking holidays, the Go
// counterpart of the bizdays ANBIMA calendar.
type Calendar struct {
	name string
	days *cal.BusinessCalendar
}

func Load(name string) (*Calendar, error) {
	bc := cal.NewBusinessCalendar()

	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ANBIMA", "BR", "BRAZIL":
		bc.AddHoliday(br.Holidays...)
	default:
		return nil, fmt.Errorf("unknown calendar %q", name)
	}

	return &Calendar{name: name, days: bc}, nil
}

func (c *Calendar) Name() string { return c.name }

func (c *Calendar) IsBusinessDay(t time.Time) bool {
	return c.days.IsWorkday(t)
}

// Offset walks n business days from the given date, forward for positive
// n and backward for negative. The time-of-day component is dropped.
func (c *Calendar) Offset(from time.Time, n int) time.Time {
	d := dateOnly(from)
	if n == 0 {
		return d
	}

	step := 24 * time.Hour
	if n < 0 {
		step = -step
		n = -n
	}
	for n > 0 {
		d = d.Add(step)
		if c.days.IsWorkday(d) {
			n--
		}
	}
	return d
}

// Sequence lists the business days between from and to, inclusive, in
// ascending order.
func (c *Calendar) Sequence(from, to time.Time) []internal.Date {
	var out []internal.Date
	for d := dateOnly(from); !d.After(dateOnly(to)); d = d.Add(24 * time.Hour) {
		if c.days.IsWorkday(d) {
			out = append(out, internal.NewDate(d))
		}
	}
	return out
}

// WindowEnding gives the business days from today shifted back offsetDays
// business days through today, ascending. The length varies with
// holidays; callers must not assume offsetDays+1 entries.
func (c *Calendar) WindowEnding(today time.Time, offsetDays int) []internal.Date {
	start := c.Offset(today, -offsetDays)
	return c.Sequence(start, today)
}

// dateOnly truncates to the calendar date in the time's own location, so
// a late-evening local time keeps its local date instead of the UTC one.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
