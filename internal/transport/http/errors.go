package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/app"
	"github.com/imrejaul007/pentouz-pms-sub007/internal/domain"
)

const (
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeValidationError      = "validation_error"
	codeInvalidID            = "invalid_id"
	codeIdempotencyRequired  = "idempotency_key_required"
	codeIdempotencyConflict  = "idempotency_conflict"
	codeNotAvailable         = "not_available"
	codeInvalidState         = "invalid_state"
	codeConflictExhausted    = "conflict_exhausted"
	codeHotelNotFound        = "hotel_not_found"
	codeRoomTypeNotFound     = "room_type_not_found"
	codeReservationNotFound  = "reservation_not_found"
	codeMissingAPIKey        = "missing_api_key"
	codeInvalidAPIKey        = "invalid_api_key"
	codeRateLimited          = "rate_limited"
	codeInternalError        = "internal_error"
	retryAfterConflict       = 1 // seconds
)

type errorResponse struct {
	Error            string            `json:"error"`
	Code             string            `json:"code"`
	UnavailableDates []unavailableDate `json:"unavailableDates,omitempty"`
}

type unavailableDate struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are gone; nothing sensible left to do.
		_ = err
	}
}

// writeDomainError maps coordinator errors onto the wire contract:
// business failures keep their stable code, transient exhaustion tells
// the caller to retry, anything unrecognized is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var notAvailable *domain.NotAvailableError
	if errors.As(err, &notAvailable) {
		resp := errorResponse{Error: "stay not available", Code: codeNotAvailable}
		for _, o := range notAvailable.Offending {
			resp.UnavailableDates = append(resp.UnavailableDates, unavailableDate{
				Date:   o.Date.String(),
				Reason: string(o.Reason),
			})
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	var required errRequired
	if errors.As(err, &required) {
		writeError(w, http.StatusBadRequest, codeValidationError, required.Error())
		return
	}

	var invalidState *domain.InvalidStateError
	if errors.As(err, &invalidState) {
		writeError(w, http.StatusConflict, codeInvalidState, invalidState.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrIdempotencyKeyRequired):
		writeError(w, http.StatusBadRequest, codeIdempotencyRequired, err.Error())
	case errors.Is(err, domain.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
	case errors.Is(err, domain.ErrConflictExhausted):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterConflict))
		writeError(w, http.StatusServiceUnavailable, codeConflictExhausted, err.Error())
	case errors.Is(err, domain.ErrHotelNotFound):
		writeError(w, http.StatusNotFound, codeHotelNotFound, err.Error())
	case errors.Is(err, domain.ErrRoomTypeNotFound):
		writeError(w, http.StatusNotFound, codeRoomTypeNotFound, err.Error())
	case errors.Is(err, domain.ErrReservationNotFound):
		writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, app.ErrBadMinLOS),
		errors.Is(err, app.ErrBadMaxLOS),
		errors.Is(err, app.ErrEmptyPatch),
		errors.Is(err, app.ErrNegativeVal):
		writeError(w, http.StatusBadRequest, codeValidationError, err.Error())
	case errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidStayDates),
		errors.Is(err, domain.ErrArrivalInPast),
		errors.Is(err, domain.ErrInvalidRoomCount):
		writeError(w, http.StatusBadRequest, codeValidationError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
