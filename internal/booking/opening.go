package booking

import "time"

const (
	openDaysAhead = 31
	openHour      = 18
)

// OpeningTime is when slots for the request's date are released: 31 days
// earlier at 18:00 cafe time.
func (r Request) OpeningTime() time.Time {
	return OpeningTime(r.Date)
}

func OpeningTime(date time.Time) time.Time {
	d := date.In(CafeTZ)
	return time.Date(d.Year(), d.Month(), d.Day(), openHour, 0, 0, 0, CafeTZ).AddDate(0, 0, -openDaysAhead)
}
