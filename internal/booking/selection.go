package booking

// SelectBest picks a slot from slots, which are in the order the site listed
// them. It returns the index into slots, or -1 when nothing qualifies.
//
// With both bounds the first listed slot inside [earliest, latest] wins.
// That is the earliest qualifying slot only because the site lists slots in
// ascending order, which is assumed and not checked. With only earliest the latest
// slot at or after it wins; with only latest the earliest slot at or before
// it wins.
func SelectBest(slots []TimeSlot, earliest, latest *TimeSlot) int {
	if len(slots) == 0 {
		return -1
	}
	switch {
	case earliest == nil && latest == nil:
		return 0
	case earliest != nil && latest != nil:
		for i, s := range slots {
			if s >= *earliest && s <= *latest {
				return i
			}
		}
		return -1
	case earliest != nil:
		best := -1
		for i, s := range slots {
			if s >= *earliest && (best < 0 || s > slots[best]) {
				best = i
			}
		}
		return best
	default:
		best := -1
		for i, s := range slots {
			if s <= *latest && (best < 0 || s < slots[best]) {
				best = i
			}
		}
		return best
	}
}
