package page

// Markup contract of the reservation site. Both venues serve identical pages.
const (
	TextCaptcha       = "confirm you are human"
	TextTerms         = "/ Agree to terms"
	TextNoSeats       = "no available seats can be found"
	TextEmailAuth     = "About Email Address Authentication"
	TextCongested     = "congested"
	TextTableReserve  = "Table Reservation"
	TextCompleteFinal = "complete your reservation"

	SelTermsCheckbox      = "#agreeChecked"
	SelTermsCheckboxLabel = "label.agreeChecked"
	SelAgreeButton        = "#forms-agree .button-container-agree button"
	SelEmailContinue      = "a.button[href='/reserve/step1']"

	SelTimeTable = "#time_table"
	SelSlotLinks = "#time_table .time-cell a"

	GuestSelectName   = "guest"
	SelGuestSelect    = "select[name='guest']"
	SelSelectedOption = "option[selected='selected']"

	SelCalendarHeader = "#step2-form h3"
	SelPrevMonth      = "div:nth-child(1) > .calendar-pager"
	SelNextMonth      = "div:nth-child(3) > .calendar-pager"
	SelDayCell        = "li.calendar-day-cell"
	ClassSelected     = "selected"

	SelSubmit = "#submit_button"
)
