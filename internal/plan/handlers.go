package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/cafebook/internal/booking"
	"github.com/example/cafebook/internal/page"
)

// Handler maps a snapshot in a known state to the next action.
type Handler func(s *page.Snapshot, req booking.Request) Action

var handlers = map[page.State]Handler{
	page.Loading:                      handleLoading,
	page.CaptchaChallenge:             handleCaptcha,
	page.TermsUnchecked:               handleTermsUnchecked,
	page.TermsUnagreed:                handleTermsUnagreed,
	page.EmailAuthPrompt:              handleEmailAuth,
	page.Congested:                    handleCongested,
	page.GuestUnset:                   handleGuestUnset,
	page.CalendarMonthMismatch:        handleMonthMismatch,
	page.DateUnselected:               handleDateUnselected,
	page.DateSelectedAwaitingNext:     handleAwaitingNext,
	page.TimeSlotListPresent:          handleTimeSlots,
	page.NoTimeSlotsListed:            handleNoTimeSlots,
	page.ReservationPendingCompletion: handlePendingCompletion,
	page.Unclassified:                 handleUnclassified,
}

// Decide looks up the handler for state.
func Decide(state page.State, s *page.Snapshot, req booking.Request) Action {
	h, ok := handlers[state]
	if !ok {
		return handleUnclassified(s, req)
	}
	return h(s, req)
}

func handleLoading(*page.Snapshot, booking.Request) Action {
	return sleep("page still loading")
}

// No timeout: the operator solves the captcha in the browser.
func handleCaptcha(*page.Snapshot, booking.Request) Action {
	return sleep("captcha detected, please solve it in the browser")
}

func handleTermsUnchecked(s *page.Snapshot, _ booking.Request) Action {
	if !s.Exists(page.SelTermsCheckboxLabel) {
		return missing("terms checkbox label")
	}
	return click(page.SelTermsCheckboxLabel, "checking terms checkbox")
}

func handleTermsUnagreed(s *page.Snapshot, _ booking.Request) Action {
	if page.AgreeButton(s).Length() == 0 {
		return missing("terms agree button")
	}
	// The no-seats message sends us back to the terms page, so agreeing
	// alone would loop. Reload after the click instead.
	if s.Contains(page.TextNoSeats) {
		a := click(enabledAgreeButton, "no available seats, agreeing and reloading")
		a.ReloadAfter = true
		return a
	}
	return click(enabledAgreeButton, "clicking terms agree button")
}

const enabledAgreeButton = page.SelAgreeButton + ":not(:disabled)"

func handleEmailAuth(s *page.Snapshot, _ booking.Request) Action {
	if !s.Exists(page.SelEmailContinue) {
		return missing("email authentication continue button")
	}
	return click(page.SelEmailContinue, "clicking continue on email authentication notice")
}

func handleCongested(*page.Snapshot, booking.Request) Action {
	return reload("site congested, reloading")
}

func handleGuestUnset(s *page.Snapshot, req booking.Request) Action {
	if !s.Exists(page.SelGuestSelect) {
		return missing("guest selector")
	}
	return Action{
		Kind:  Select,
		Name:  page.GuestSelectName,
		Value: strconv.Itoa(req.Guests),
		Note:  fmt.Sprintf("selecting %d guests", req.Guests),
	}
}

func handleMonthMismatch(s *page.Snapshot, req booking.Request) Action {
	year, month, ok := page.CalendarMonth(s)
	if !ok {
		return reload("calendar header not in expected format, reloading")
	}
	shown := year*12 + month
	wanted := req.Date.Year()*12 + int(req.Date.Month())
	switch {
	case shown < wanted:
		if !s.Exists(page.SelNextMonth) {
			return missing("next month button")
		}
		return click(page.SelNextMonth, "selecting the next month")
	case shown > wanted:
		if !s.Exists(page.SelPrevMonth) {
			return missing("previous month button")
		}
		return click(page.SelPrevMonth, "selecting the previous month")
	}
	return sleep("calendar already on the requested month")
}

func handleDateUnselected(s *page.Snapshot, req booking.Request) Action {
	idx := page.DayCellIndex(s, req.Date.Day())
	if idx < 0 {
		return missing(fmt.Sprintf("calendar cell for day %d", req.Date.Day()))
	}
	return clickNth(page.SelDayCell, idx, fmt.Sprintf("selecting day %d", req.Date.Day()))
}

func handleAwaitingNext(s *page.Snapshot, _ booking.Request) Action {
	if !s.Exists(page.SelSubmit) {
		return missing("next step button")
	}
	return click(page.SelSubmit, "pressing next step")
}

func handleTimeSlots(s *page.Snapshot, req booking.Request) Action {
	links := page.ExtractSlots(s)
	best := booking.SelectBest(page.Times(links), req.MinTime, req.MaxTime)
	if best < 0 {
		return reload(fmt.Sprintf("no time slot within bounds among [%s], reloading", joinTimes(links)))
	}
	l := links[best]
	return clickNth(page.SelSlotLinks, l.Index, fmt.Sprintf("selecting time slot %s from [%s]", l.Time, joinTimes(links)))
}

func handleNoTimeSlots(*page.Snapshot, booking.Request) Action {
	return reload("no time slots listed, reloading")
}

func handlePendingCompletion(*page.Snapshot, booking.Request) Action {
	return Action{Kind: Terminate, Note: "reservation waiting for completion"}
}

func handleUnclassified(*page.Snapshot, booking.Request) Action {
	return reload("page not recognized, reloading")
}

func joinTimes(links []page.SlotLink) string {
	parts := make([]string, len(links))
	for i, l := range links {
		parts[i] = l.Time.String()
	}
	return strings.Join(parts, ", ")
}
