package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/domain"
)

// InventoryWriter is the administrative restriction/capacity surface.
type InventoryWriter interface {
	SetRestrictions(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date, patch domain.RestrictionsPatch) error
	SetCapacity(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date, patch domain.CapacityPatch) error
}

// HoldingLister lists reservations still holding inventory on a date.
type HoldingLister interface {
	ListHoldingCovering(ctx context.Context, hotelID, roomTypeID string, d domain.Date) ([]domain.Reservation, error)
}

type restrictionsRequest struct {
	From              string `json:"from"`
	To                string `json:"to"`
	StopSell          *bool  `json:"stopSell,omitempty"`
	ClosedToArrival   *bool  `json:"closedToArrival,omitempty"`
	ClosedToDeparture *bool  `json:"closedToDeparture,omitempty"`
	MinLengthOfStay   *int   `json:"minLengthOfStay,omitempty"`
	MaxLengthOfStay   *int   `json:"maxLengthOfStay,omitempty"`
}

// HandleSetRestrictions returns the sell-restriction patch endpoint.
// Only the fields present in the body change; flipping a restriction
// never touches sold counts or existing reservations.
func HandleSetRestrictions(svc InventoryWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req restrictionsRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		from, to, err := parseDateRange(req.From, req.To)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		patch := domain.RestrictionsPatch{
			StopSell:          req.StopSell,
			ClosedToArrival:   req.ClosedToArrival,
			ClosedToDeparture: req.ClosedToDeparture,
			MinLengthOfStay:   req.MinLengthOfStay,
			MaxLengthOfStay:   req.MaxLengthOfStay,
		}
		err = svc.SetRestrictions(r.Context(), chi.URLParam(r, "hotelID"), chi.URLParam(r, "roomTypeID"), from, to, patch)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
	}
}

type capacityRequest struct {
	From                 string `json:"from"`
	To                   string `json:"to"`
	TotalRooms           *int   `json:"totalRooms,omitempty"`
	BlockedRooms         *int   `json:"blockedRooms,omitempty"`
	BaseRate             *int64 `json:"baseRate,omitempty"`
	OverbookingAllowance *int   `json:"overbookingAllowance,omitempty"`
}

func HandleSetCapacity(svc InventoryWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req capacityRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		from, to, err := parseDateRange(req.From, req.To)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		patch := domain.CapacityPatch{
			TotalRooms:           req.TotalRooms,
			BlockedRooms:         req.BlockedRooms,
			BaseRate:             req.BaseRate,
			OverbookingAllowance: req.OverbookingAllowance,
		}
		err = svc.SetCapacity(r.Context(), chi.URLParam(r, "hotelID"), chi.URLParam(r, "roomTypeID"), from, to, patch)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
	}
}

// HandleListHolding returns the reconciliation diagnostic: all
// reservations whose stay covers the given date and still count
// against inventory.
func HandleListHolding(svc HoldingLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := domain.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		held, err := svc.ListHoldingCovering(r.Context(), chi.URLParam(r, "hotelID"), chi.URLParam(r, "roomTypeID"), d)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := struct {
			Date         string            `json:"date"`
			Count        int               `json:"count"`
			Reservations []bookingResponse `json:"reservations"`
		}{Date: d.String(), Count: len(held), Reservations: make([]bookingResponse, 0, len(held))}
		for _, res := range held {
			resp.Reservations = append(resp.Reservations, toBookingResponse(res, false))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func parseDateRange(fromStr, toStr string) (domain.Date, domain.Date, error) {
	from, err := domain.ParseDate(fromStr)
	if err != nil {
		return domain.Date{}, domain.Date{}, err
	}
	to, err := domain.ParseDate(toStr)
	if err != nil {
		return domain.Date{}, domain.Date{}, err
	}
	return from, to, nil
}
