package tracker

import "time"

// DateLayout is the calendar date format of history records.
const DateLayout = "2006-01-02"

// Calendar days are UTC days.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func formatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Today is the current calendar day of the tracker clock, at UTC midnight.
func (t *Tracker) Today() time.Time {
	return t.today()
}

func (t *Tracker) today() time.Time {
	return startOfDay(t.now())
}

func (t *Tracker) todayString() string {
	return formatDate(t.today())
}

// daysAgo returns the calendar date n days before today.
func (t *Tracker) daysAgo(n int) time.Time {
	return t.today().AddDate(0, 0, -n)
}
