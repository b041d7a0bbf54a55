package page

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/example/cafebook/internal/booking"
)

// Classify returns the first state whose predicate matches, in this order:
// captcha, terms unchecked, terms unagreed, email auth, congestion, the
// table reservation sub-states, loading, unclassified. Several markers can
// appear together on a transitional page, so the order matters.
func Classify(s *Snapshot, req booking.Request) State {
	if s.Contains(TextCaptcha) {
		return CaptchaChallenge
	}
	if s.Contains(TextTerms) {
		if TermsCheckbox(s).Length() > 0 {
			return TermsUnchecked
		}
		if AgreeButton(s).Length() > 0 {
			return TermsUnagreed
		}
	}
	if s.Contains(TextEmailAuth) && s.Exists(SelEmailContinue) {
		return EmailAuthPrompt
	}
	if s.Contains(TextCongested) {
		return Congested
	}
	if s.Contains(TextTableReserve) {
		if st, ok := classifyTableReservation(s, req); ok {
			return st
		}
	}
	if s.Empty() {
		return Loading
	}
	return Unclassified
}

func classifyTableReservation(s *Snapshot, req booking.Request) (State, bool) {
	if s.Exists(SelTimeTable) {
		if s.Exists(SelSlotLinks) {
			return TimeSlotListPresent, true
		}
		return NoTimeSlotsListed, true
	}
	if s.Contains(TextCompleteFinal) {
		return ReservationPendingCompletion, true
	}
	if !GuestSelected(s, req.Guests) {
		return GuestUnset, true
	}
	year, month, ok := CalendarMonth(s)
	if !ok {
		return 0, false
	}
	if year != req.Date.Year() || month != int(req.Date.Month()) {
		return CalendarMonthMismatch, true
	}
	cell := DayCell(s, req.Date.Day())
	if cell.Length() == 0 {
		return 0, false
	}
	if !cell.HasClass(ClassSelected) {
		return DateUnselected, true
	}
	if s.Exists(SelSubmit) {
		return DateSelectedAwaitingNext, true
	}
	return 0, false
}

// TermsCheckbox returns the agreement checkbox if it is still unchecked.
func TermsCheckbox(s *Snapshot) *goquery.Selection {
	return s.Find(SelTermsCheckbox).FilterFunction(func(_ int, sel *goquery.Selection) bool {
		_, checked := sel.Attr("checked")
		return !checked
	})
}

// AgreeButton returns the enabled agree button, if any.
func AgreeButton(s *Snapshot) *goquery.Selection {
	return s.Find(SelAgreeButton).FilterFunction(func(_ int, sel *goquery.Selection) bool {
		_, disabled := sel.Attr("disabled")
		return !disabled
	})
}

// GuestSelected reports whether the option for guests carries selected="selected".
func GuestSelected(s *Snapshot, guests int) bool {
	want := strconv.Itoa(guests)
	return s.Find(SelGuestSelect + " " + SelSelectedOption).FilterFunction(func(_ int, sel *goquery.Selection) bool {
		v, _ := sel.Attr("value")
		return v == want
	}).Length() > 0
}

var nonDigits = regexp.MustCompile(`[^0-9]+`)

// CalendarMonth reads the "<year>...<month>" calendar header.
func CalendarMonth(s *Snapshot) (year, month int, ok bool) {
	h := s.Find(SelCalendarHeader).First()
	if h.Length() == 0 {
		return 0, 0, false
	}
	parts := nonDigits.Split(strings.TrimSpace(h.Text()), -1)
	nums := parts[:0]
	for _, p := range parts {
		if p != "" {
			nums = append(nums, p)
		}
	}
	if len(nums) < 2 {
		return 0, 0, false
	}
	year, err := strconv.Atoi(nums[0])
	if err != nil {
		return 0, 0, false
	}
	month, err = strconv.Atoi(nums[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}

var leadingNumber = regexp.MustCompile(`\d+`)

// DayCell finds the calendar cell whose day number is day.
func DayCell(s *Snapshot, day int) *goquery.Selection {
	idx := DayCellIndex(s, day)
	if idx < 0 {
		return s.Find(SelDayCell).Slice(0, 0)
	}
	return s.Find(SelDayCell).Eq(idx)
}

// DayCellIndex is the position of day among all day cells, or -1.
func DayCellIndex(s *Snapshot, day int) int {
	want := strconv.Itoa(day)
	idx := -1
	s.Find(SelDayCell).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if leadingNumber.FindString(sel.Text()) == want {
			idx = i
			return false
		}
		return true
	})
	return idx
}
