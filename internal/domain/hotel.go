package domain

import "time"

// Hotel carries the attributes the core needs: the local calendar is
// derived from Timezone and money amounts are in Currency minor units.
type Hotel struct {
	ID       string
	Name     string
	Timezone string
	Currency string
}

// Location resolves the hotel's timezone, falling back to UTC when the
// stored name does not parse.
func (h Hotel) Location() *time.Location {
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RoomType supplies the defaults used to synthesize inventory cells
// that have never been written for a date.
type RoomType struct {
	ID                 string
	HotelID            string
	Name               string
	DefaultCapacity    int
	DefaultOverbooking int
	DefaultRate        int64
}
