package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/app"
	"github.com/imrejaul007/pentouz-pms-sub007/internal/domain"
)

// AvailabilityChecker is the minimal interface needed to answer
// availability queries.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, q app.AvailabilityQuery) (domain.StayVerdict, error)
}

// HandleAvailability returns the read-only availability endpoint. Safe
// to retry: it never mutates anything.
func HandleAvailability(svc AvailabilityChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()

		hotelID := params.Get("hotelId")
		roomTypeID := params.Get("roomTypeId")
		if hotelID == "" || roomTypeID == "" {
			writeError(w, http.StatusBadRequest, codeValidationError, "hotelId and roomTypeId are required")
			return
		}

		from, err := domain.ParseDate(params.Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationError, "from must be YYYY-MM-DD")
			return
		}
		to, err := domain.ParseDate(params.Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationError, "to must be YYYY-MM-DD")
			return
		}

		rooms := 1
		if v := params.Get("rooms"); v != "" {
			rooms, err = strconv.Atoi(v)
			if err != nil || rooms < 1 {
				writeDomainError(w, domain.ErrInvalidRoomCount)
				return
			}
		}

		verdict, err := svc.CheckAvailability(r.Context(), app.AvailabilityQuery{
			HotelID:    hotelID,
			RoomTypeID: roomTypeID,
			From:       from,
			To:         to,
			Rooms:      rooms,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAvailabilityResponse(hotelID, roomTypeID, verdict))
	}
}

type availabilityResponse struct {
	HotelID          string            `json:"hotelId"`
	RoomTypeID       string            `json:"roomTypeId"`
	Bookable         bool              `json:"bookable"`
	UnavailableDates []unavailableDate `json:"unavailableDates"`
	Days             []dayAvailability `json:"days"`
}

type dayAvailability struct {
	Date           string          `json:"date"`
	AvailableRooms int             `json:"availableRooms"`
	CanBook        bool            `json:"canBook"`
	Rate           int64           `json:"rate"`
	Restrictions   restrictionsDTO `json:"restrictions"`
}

type restrictionsDTO struct {
	StopSell          bool `json:"stopSell"`
	ClosedToArrival   bool `json:"cta"`
	ClosedToDeparture bool `json:"ctd"`
	MinLengthOfStay   int  `json:"minLOS"`
	MaxLengthOfStay   int  `json:"maxLOS,omitempty"`
}

func toAvailabilityResponse(hotelID, roomTypeID string, v domain.StayVerdict) availabilityResponse {
	resp := availabilityResponse{
		HotelID:          hotelID,
		RoomTypeID:       roomTypeID,
		Bookable:         v.Bookable,
		UnavailableDates: []unavailableDate{},
		Days:             make([]dayAvailability, 0, len(v.Days)),
	}
	for _, o := range v.Offending {
		resp.UnavailableDates = append(resp.UnavailableDates, unavailableDate{
			Date:   o.Date.String(),
			Reason: string(o.Reason),
		})
	}
	for _, day := range v.Days {
		resp.Days = append(resp.Days, dayAvailability{
			Date:           day.Date.String(),
			AvailableRooms: day.AvailableRooms,
			CanBook:        day.CanBook,
			Rate:           day.Rate,
			Restrictions: restrictionsDTO{
				StopSell:          day.Restrictions.StopSell,
				ClosedToArrival:   day.Restrictions.ClosedToArrival,
				ClosedToDeparture: day.Restrictions.ClosedToDeparture,
				MinLengthOfStay:   day.Restrictions.MinLengthOfStay,
				MaxLengthOfStay:   day.Restrictions.MaxLengthOfStay,
			},
		})
	}
	return resp
}
