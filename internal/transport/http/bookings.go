package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/app"
	"github.com/imrejaul007/pentouz-pms-sub007/internal/domain"
)

// BookingCoordinator is the coordinator surface the booking endpoints
// drive.
type BookingCoordinator interface {
	CreateBooking(ctx context.Context, in app.CreateBookingInput) (app.CreateBookingResult, error)
	ModifyBooking(ctx context.Context, id string, in app.ModifyBookingInput) (domain.Reservation, error)
	CancelBooking(ctx context.Context, id, actor, reason string) (app.CancelBookingResult, error)
	ConfirmBooking(ctx context.Context, id, actor string) (domain.Reservation, error)
	CheckIn(ctx context.Context, id, actor string) (domain.Reservation, error)
	CheckOut(ctx context.Context, id, actor string) (domain.Reservation, error)
	MarkNoShow(ctx context.Context, id, actor string) (domain.Reservation, error)
	GetBooking(ctx context.Context, id string) (domain.Reservation, error)
}

type createBookingRequest struct {
	HotelID    string      `json:"hotelId"`
	RoomTypeID string      `json:"roomTypeId"`
	CheckIn    string      `json:"checkIn"`
	CheckOut   string      `json:"checkOut"`
	Guests     guestCounts `json:"guests"`
	// Rate, when present, is the externally agreed nightly rate and
	// replaces the base-rate snapshot for every night.
	Rate              *int64 `json:"rate,omitempty"`
	Currency          string `json:"currency,omitempty"`
	IdempotencyKey    string `json:"idempotencyKey"`
	Source            string `json:"source,omitempty"`
	ExternalReference string `json:"externalReference,omitempty"`
	GuestRef          string `json:"guestRef,omitempty"`
}

type guestCounts struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

func (r createBookingRequest) validate() (domain.Date, domain.Date, error) {
	if r.HotelID == "" || r.RoomTypeID == "" {
		return domain.Date{}, domain.Date{}, errRequired("hotelId and roomTypeId are required")
	}
	if r.IdempotencyKey == "" {
		return domain.Date{}, domain.Date{}, domain.ErrIdempotencyKeyRequired
	}
	if r.Rate != nil && *r.Rate < 0 {
		return domain.Date{}, domain.Date{}, errRequired("rate must be non-negative")
	}
	checkIn, err := domain.ParseDate(r.CheckIn)
	if err != nil {
		return domain.Date{}, domain.Date{}, err
	}
	checkOut, err := domain.ParseDate(r.CheckOut)
	if err != nil {
		return domain.Date{}, domain.Date{}, err
	}
	if domain.Nights(checkIn, checkOut) < 1 {
		return domain.Date{}, domain.Date{}, domain.ErrInvalidStayDates
	}
	return checkIn, checkOut, nil
}

type errRequired string

func (e errRequired) Error() string { return string(e) }

// HandleCreateBooking returns the booking create endpoint. Replaying
// the same idempotency key returns the prior reservation with
// duplicate=true and a 200 instead of a 201.
func HandleCreateBooking(svc BookingCoordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBookingRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		checkIn, checkOut, err := req.validate()
		if err != nil {
			writeDomainError(w, err)
			return
		}

		source := req.Source
		if source == "" {
			source = SourceFromContext(r.Context())
		}

		result, err := svc.CreateBooking(r.Context(), app.CreateBookingInput{
			HotelID:           req.HotelID,
			RoomTypeID:        req.RoomTypeID,
			CheckIn:           checkIn,
			CheckOut:          checkOut,
			RateOverride:      req.Rate,
			Currency:          req.Currency,
			IdempotencyKey:    req.IdempotencyKey,
			Source:            source,
			ExternalReference: req.ExternalReference,
			GuestRef:          req.GuestRef,
			Guests:            domain.GuestCount{Adults: req.Guests.Adults, Children: req.Guests.Children},
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		status := http.StatusCreated
		if result.Duplicate {
			status = http.StatusOK
		}
		writeJSON(w, status, toBookingResponse(result.Reservation, result.Duplicate))
	}
}

func HandleGetBooking(svc BookingCoordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GetBooking(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBookingResponse(res, false))
	}
}

type modifyBookingRequest struct {
	RoomTypeID *string      `json:"roomTypeId,omitempty"`
	CheckIn    *string      `json:"checkIn,omitempty"`
	CheckOut   *string      `json:"checkOut,omitempty"`
	Guests     *guestCounts `json:"guests,omitempty"`
	Rate       *int64       `json:"rate,omitempty"`
	Reason     string       `json:"reason,omitempty"`
}

// HandleModifyBooking returns the booking amendment endpoint. On
// availability failure the prior reservation is left untouched and the
// offending dates are returned with a 422.
func HandleModifyBooking(svc BookingCoordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req modifyBookingRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		if req.Rate != nil && *req.Rate < 0 {
			writeDomainError(w, errRequired("rate must be non-negative"))
			return
		}

		in := app.ModifyBookingInput{
			RoomTypeID: req.RoomTypeID,
			Rate:       req.Rate,
			Actor:      SourceFromContext(r.Context()),
			Reason:     req.Reason,
		}
		if req.CheckIn != nil {
			d, err := domain.ParseDate(*req.CheckIn)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			in.CheckIn = &d
		}
		if req.CheckOut != nil {
			d, err := domain.ParseDate(*req.CheckOut)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			in.CheckOut = &d
		}
		if req.Guests != nil {
			in.Guests = &domain.GuestCount{Adults: req.Guests.Adults, Children: req.Guests.Children}
		}

		res, err := svc.ModifyBooking(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBookingResponse(res, false))
	}
}

type cancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

// HandleCancelBooking returns the idempotent cancel endpoint:
// cancelling an already-released reservation succeeds with
// alreadyReleased=true.
func HandleCancelBooking(svc BookingCoordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cancelBookingRequest
		if r.Body != nil {
			// Body is optional on cancel.
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		result, err := svc.CancelBooking(r.Context(), chi.URLParam(r, "id"), SourceFromContext(r.Context()), req.Reason)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := toBookingResponse(result.Reservation, false)
		resp.AlreadyReleased = result.AlreadyReleased
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleTransition returns a handler for the single-step lifecycle
// endpoints (confirm, check-in, check-out, no-show).
func HandleTransition(op func(ctx context.Context, id, actor string) (domain.Reservation, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := op(r.Context(), chi.URLParam(r, "id"), SourceFromContext(r.Context()))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBookingResponse(res, false))
	}
}

type bookingResponse struct {
	ReservationID     string      `json:"reservationId"`
	BookingNumber     string      `json:"bookingNumber"`
	HotelID           string      `json:"hotelId"`
	RoomTypeID        string      `json:"roomTypeId"`
	CheckIn           string      `json:"checkIn"`
	CheckOut          string      `json:"checkOut"`
	State             string      `json:"state"`
	Source            string      `json:"source"`
	ExternalReference string      `json:"externalReference,omitempty"`
	Guests            guestCounts `json:"guests"`
	TotalAmount       int64       `json:"totalAmount"`
	Currency          string      `json:"currency"`
	Duplicate         bool        `json:"duplicate"`
	AlreadyReleased   bool        `json:"alreadyReleased,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
}

func toBookingResponse(res domain.Reservation, duplicate bool) bookingResponse {
	return bookingResponse{
		ReservationID:     res.ID,
		BookingNumber:     res.BookingNumber,
		HotelID:           res.HotelID,
		RoomTypeID:        res.RoomTypeID,
		CheckIn:           res.CheckIn.String(),
		CheckOut:          res.CheckOut.String(),
		State:             string(res.State),
		Source:            res.Source,
		ExternalReference: res.ExternalReference,
		Guests:            guestCounts{Adults: res.Guests.Adults, Children: res.Guests.Children},
		TotalAmount:       res.TotalAmount(),
		Currency:          res.Currency,
		Duplicate:         duplicate,
		CreatedAt:         res.CreatedAt,
	}
}
