package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidRequest = errors.New("invalid booking request")

// Japan has no DST, so a fixed zone avoids depending on tzdata.
var CafeTZ = time.FixedZone("JST", 9*60*60)

type Venue string

const (
	VenueTokyo Venue = "tokyo"
	VenueOsaka Venue = "osaka"
)

// Both sites serve the same markup; only the origin differs.
var venueURLs = map[Venue]string{
	VenueTokyo: "https://reserve.pokemon-cafe.jp/reserve/step1",
	VenueOsaka: "https://osaka.pokemon-cafe.jp/reserve/step1",
}

func ParseVenue(s string) (Venue, error) {
	v := Venue(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := venueURLs[v]; !ok {
		return "", fmt.Errorf("%w: unknown venue %q (want tokyo or osaka)", ErrInvalidRequest, s)
	}
	return v, nil
}

func (v Venue) URL() string { return venueURLs[v] }

const (
	MinGuests = 1
	MaxGuests = 6
)

// Request is what the operator asked for. Build it with NewRequest.
type Request struct {
	Venue  Venue
	Guests int
	// Date is midnight of the reservation day in CafeTZ.
	Date time.Time

	MinTime *TimeSlot
	MaxTime *TimeSlot
}

// NewRequest validates the inputs against today in the cafe's timezone.
func NewRequest(venue Venue, guests int, date time.Time, minTime, maxTime *TimeSlot, now time.Time) (Request, error) {
	if venue.URL() == "" {
		return Request{}, fmt.Errorf("%w: unknown venue %q", ErrInvalidRequest, venue)
	}
	if guests < MinGuests || guests > MaxGuests {
		return Request{}, fmt.Errorf("%w: guests must be between %d and %d (got %d)", ErrInvalidRequest, MinGuests, MaxGuests, guests)
	}
	if date.IsZero() {
		return Request{}, fmt.Errorf("%w: date required", ErrInvalidRequest)
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, CafeTZ)
	n := now.In(CafeTZ)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, CafeTZ)
	if day.Before(today) {
		return Request{}, fmt.Errorf("%w: date %s is in the past", ErrInvalidRequest, day.Format(DateLayout))
	}
	if minTime != nil && maxTime != nil && !minTime.Before(*maxTime) {
		return Request{}, fmt.Errorf("%w: earliest time %s must be before latest time %s", ErrInvalidRequest, minTime, maxTime)
	}
	return Request{Venue: venue, Guests: guests, Date: day, MinTime: minTime, MaxTime: maxTime}, nil
}

const DateLayout = "2006-01-02"

// ParseDate reads YYYY-MM-DD as a day in CafeTZ.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), CafeTZ)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q (want YYYY-MM-DD)", ErrInvalidRequest, s)
	}
	return d, nil
}

// PolicyDescription explains to the operator which slot the bounds will pick.
func (r Request) PolicyDescription() string {
	switch {
	case r.MinTime != nil && r.MaxTime != nil:
		return fmt.Sprintf("will only book a time between %s and %s on %s", r.MinTime, r.MaxTime, r.Date.Format(DateLayout))
	case r.MinTime != nil:
		return fmt.Sprintf("will only book a time after %s on %s, preferring later times", r.MinTime, r.Date.Format(DateLayout))
	case r.MaxTime != nil:
		return fmt.Sprintf("will only book a time before %s on %s, preferring earlier times", r.MaxTime, r.Date.Format(DateLayout))
	default:
		return fmt.Sprintf("will book the first listed time on %s", r.Date.Format(DateLayout))
	}
}
