package booking

import (
	"fmt"
	"regexp"
	"strconv"
)

// TimeSlot is a time of day in minutes since midnight.
type TimeSlot int

func NewTimeSlot(hour, minute int) (TimeSlot, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: time %02d:%02d out of range", ErrInvalidRequest, hour, minute)
	}
	return TimeSlot(hour*60 + minute), nil
}

func (t TimeSlot) Hour() int   { return int(t) / 60 }
func (t TimeSlot) Minute() int { return int(t) % 60 }

func (t TimeSlot) Before(o TimeSlot) bool { return t < o }

func (t TimeSlot) String() string { return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute()) }

var clockRe = regexp.MustCompile(`(\d{2}):(\d{2})`)

// ParseTimeSlot accepts exactly HH:MM.
func ParseTimeSlot(s string) (TimeSlot, error) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil || m[0] != s {
		return 0, fmt.Errorf("%w: invalid time %q (want HH:MM)", ErrInvalidRequest, s)
	}
	return fromMatch(m)
}

// FindTimeSlot returns the first HH:MM found anywhere in label.
func FindTimeSlot(label string) (TimeSlot, bool) {
	m := clockRe.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	t, err := fromMatch(m)
	if err != nil {
		return 0, false
	}
	return t, true
}

func fromMatch(m []string) (TimeSlot, error) {
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return NewTimeSlot(h, mm)
}
