package domain

// ReasonCode identifies why a date blocks a stay. The values are wire
// contract and never change.
type ReasonCode string

const (
	ReasonStopSell              ReasonCode = "stop_sell"
	ReasonClosedToArrival       ReasonCode = "cta"
	ReasonClosedToDeparture     ReasonCode = "ctd"
	ReasonInsufficientInventory ReasonCode = "insufficient_inventory"
	ReasonMinLengthOfStay       ReasonCode = "los_min"
	ReasonMaxLengthOfStay       ReasonCode = "los_max"
)

type DateReason struct {
	Date   Date
	Reason ReasonCode
}

// DayAvailability is the per-date availability record of a verdict.
// CanBook is positional: closed-to-arrival only blocks the first night
// of the evaluated stay and closed-to-departure only the last.
type DayAvailability struct {
	Date           Date
	AvailableRooms int
	CanBook        bool
	Rate           int64
	Restrictions   Restrictions
}

// StayVerdict is the outcome of evaluating a stay against inventory
// cell snapshots.
type StayVerdict struct {
	Bookable  bool
	Days      []DayAvailability
	Offending []DateReason
}

// EvaluateStay decides whether rooms can be booked for every night in
// [from, to) given one cell snapshot per night, ordered by date. It is
// pure: callers read the cells, evaluate, then commit against the
// versions they read.
func EvaluateStay(cells []InventoryCell, from, to Date, rooms int) StayVerdict {
	return EvaluateAcquisition(cells, from, to, rooms, nil)
}

// EvaluateAcquisition is EvaluateStay restricted to the dates for which
// held reports false. Dates already held by the reservation being
// modified pass unconditionally: releases and retained nights never
// fail availability and restriction flips never retroactively
// invalidate an existing stay. A nil held treats every date as newly
// acquired.
func EvaluateAcquisition(cells []InventoryCell, from, to Date, rooms int, held func(Date) bool) StayVerdict {
	nights := Nights(from, to)
	v := StayVerdict{Bookable: nights >= 1}
	if nights < 1 {
		return v
	}

	acquired := func(d Date) bool { return held == nil || !held(d) }

	// Length-of-stay gates are evaluated at the arrival date by
	// convention, and only when the arrival night is newly acquired.
	if len(cells) > 0 && acquired(from) {
		r := cells[0].Restrictions
		if r.MinLengthOfStay > 1 && nights < r.MinLengthOfStay {
			v.Offending = append(v.Offending, DateReason{Date: from, Reason: ReasonMinLengthOfStay})
		}
		if r.MaxLengthOfStay > 0 && nights > r.MaxLengthOfStay {
			v.Offending = append(v.Offending, DateReason{Date: from, Reason: ReasonMaxLengthOfStay})
		}
	}

	lastNight := to.AddDays(-1)
	for _, cell := range cells {
		day := DayAvailability{
			Date:           cell.Date,
			AvailableRooms: cell.AvailableRooms(),
			Rate:           cell.BaseRate,
			Restrictions:   cell.Restrictions,
			CanBook:        true,
		}
		if acquired(cell.Date) {
			if cell.Restrictions.StopSell {
				day.CanBook = false
				v.Offending = append(v.Offending, DateReason{Date: cell.Date, Reason: ReasonStopSell})
			}
			if cell.Restrictions.ClosedToArrival && cell.Date == from {
				day.CanBook = false
				v.Offending = append(v.Offending, DateReason{Date: cell.Date, Reason: ReasonClosedToArrival})
			}
			if cell.Restrictions.ClosedToDeparture && cell.Date == lastNight {
				day.CanBook = false
				v.Offending = append(v.Offending, DateReason{Date: cell.Date, Reason: ReasonClosedToDeparture})
			}
			if day.AvailableRooms < rooms {
				day.CanBook = false
				v.Offending = append(v.Offending, DateReason{Date: cell.Date, Reason: ReasonInsufficientInventory})
			}
		}
		v.Days = append(v.Days, day)
	}

	v.Bookable = len(v.Offending) == 0
	return v
}
