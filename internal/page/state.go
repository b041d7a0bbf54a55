package page

// State is the workflow step a snapshot shows. Exactly one holds per tick.
type State int

const (
	Unclassified State = iota
	Loading
	CaptchaChallenge
	TermsUnchecked
	TermsUnagreed
	EmailAuthPrompt
	Congested
	GuestUnset
	CalendarMonthMismatch
	DateUnselected
	DateSelectedAwaitingNext
	TimeSlotListPresent
	NoTimeSlotsListed
	ReservationPendingCompletion
)

var stateNames = [...]string{
	Unclassified:                 "unclassified",
	Loading:                      "loading",
	CaptchaChallenge:             "captcha_challenge",
	TermsUnchecked:               "terms_unchecked",
	TermsUnagreed:                "terms_unagreed",
	EmailAuthPrompt:              "email_auth_prompt",
	Congested:                    "congested",
	GuestUnset:                   "guest_unset",
	CalendarMonthMismatch:        "calendar_month_mismatch",
	DateUnselected:               "date_unselected",
	DateSelectedAwaitingNext:     "date_selected_awaiting_next",
	TimeSlotListPresent:          "time_slot_list_present",
	NoTimeSlotsListed:            "no_time_slots_listed",
	ReservationPendingCompletion: "reservation_pending_completion",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether the loop should stop on s.
func (s State) Terminal() bool { return s == ReservationPendingCompletion }

// States lists every state, in declaration order.
func States() []State {
	out := make([]State, len(stateNames))
	for i := range out {
		out[i] = State(i)
	}
	return out
}
