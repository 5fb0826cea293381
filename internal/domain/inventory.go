package domain

// Restrictions are the sell rules gating new stays on a date. A zero
// MaxLengthOfStay means no upper bound.
type Restrictions struct {
	StopSell          bool
	ClosedToArrival   bool
	ClosedToDeparture bool
	MinLengthOfStay   int
	MaxLengthOfStay   int
}

// RestrictionsPatch carries only the fields an administrative write
// wants to change; nil fields are left untouched.
type RestrictionsPatch struct {
	StopSell          *bool
	ClosedToArrival   *bool
	ClosedToDeparture *bool
	MinLengthOfStay   *int
	MaxLengthOfStay   *int
}

func (p RestrictionsPatch) Apply(r Restrictions) Restrictions {
	if p.StopSell != nil {
		r.StopSell = *p.StopSell
	}
	if p.ClosedToArrival != nil {
		r.ClosedToArrival = *p.ClosedToArrival
	}
	if p.ClosedToDeparture != nil {
		r.ClosedToDeparture = *p.ClosedToDeparture
	}
	if p.MinLengthOfStay != nil {
		r.MinLengthOfStay = *p.MinLengthOfStay
	}
	if p.MaxLengthOfStay != nil {
		r.MaxLengthOfStay = *p.MaxLengthOfStay
	}
	return r
}

func (p RestrictionsPatch) IsEmpty() bool {
	return p.StopSell == nil && p.ClosedToArrival == nil && p.ClosedToDeparture == nil &&
		p.MinLengthOfStay == nil && p.MaxLengthOfStay == nil
}

// CapacityPatch carries administrative changes to a cell's physical
// attributes; nil fields are left untouched.
type CapacityPatch struct {
	TotalRooms           *int
	BlockedRooms         *int
	BaseRate             *int64
	OverbookingAllowance *int
}

func (p CapacityPatch) IsEmpty() bool {
	return p.TotalRooms == nil && p.BlockedRooms == nil && p.BaseRate == nil && p.OverbookingAllowance == nil
}

// InventoryCell is the per (hotel, room type, date) inventory record.
// Version 0 means the cell has never been materialized in storage; such
// cells are synthesized from the room type's defaults on read and
// inserted lazily on first write.
type InventoryCell struct {
	HotelID              string
	RoomTypeID           string
	Date                 Date
	TotalRooms           int
	SoldRooms            int
	BlockedRooms         int
	BaseRate             int64
	Restrictions         Restrictions
	OverbookingAllowance int
	Version              int64
}

// AvailableRooms is the bookable count on the cell's date, never
// negative.
func (c InventoryCell) AvailableRooms() int {
	avail := c.TotalRooms + c.OverbookingAllowance - c.SoldRooms - c.BlockedRooms
	if avail < 0 {
		return 0
	}
	return avail
}
