package page

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/example/cafebook/internal/booking"
)

// SlotLink is a parsed slot link and its position among all slot links.
type SlotLink struct {
	Index int
	Label string
	Time  booking.TimeSlot
}

// ExtractSlots parses slot links in the order the site lists them. Links
// without an HH:MM time are dropped.
func ExtractSlots(s *Snapshot) []SlotLink {
	var out []SlotLink
	s.Find(SelSlotLinks).Each(func(i int, sel *goquery.Selection) {
		label := sel.Text()
		t, ok := booking.FindTimeSlot(label)
		if !ok {
			return
		}
		out = append(out, SlotLink{Index: i, Label: label, Time: t})
	})
	return out
}

func Times(links []SlotLink) []booking.TimeSlot {
	out := make([]booking.TimeSlot, len(links))
	for i, l := range links {
		out[i] = l.Time
	}
	return out
}
