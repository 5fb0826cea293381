package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/app"
	"github.com/imrejaul007/pentouz-pms-sub007/internal/domain"
)

// stubBackend implements every service interface the router needs via
// overridable function fields.
type stubBackend struct {
	createBooking func(ctx context.Context, in app.CreateBookingInput) (app.CreateBookingResult, error)
	modifyBooking func(ctx context.Context, id string, in app.ModifyBookingInput) (domain.Reservation, error)
	cancelBooking func(ctx context.Context, id, actor, reason string) (app.CancelBookingResult, error)
	transition    func(ctx context.Context, id, actor string) (domain.Reservation, error)
	getBooking    func(ctx context.Context, id string) (domain.Reservation, error)
	availability  func(ctx context.Context, q app.AvailabilityQuery) (domain.StayVerdict, error)
	restrictions  func(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date, patch domain.RestrictionsPatch) error
	capacity      func(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date, patch domain.CapacityPatch) error
	holding       func(ctx context.Context, hotelID, roomTypeID string, d domain.Date) ([]domain.Reservation, error)
	ping          func(ctx context.Context) error
}

func (s *stubBackend) CreateBooking(ctx context.Context, in app.CreateBookingInput) (app.CreateBookingResult, error) {
	return s.createBooking(ctx, in)
}

func (s *stubBackend) ModifyBooking(ctx context.Context, id string, in app.ModifyBookingInput) (domain.Reservation, error) {
	return s.modifyBooking(ctx, id, in)
}

func (s *stubBackend) CancelBooking(ctx context.Context, id, actor, reason string) (app.CancelBookingResult, error) {
	return s.cancelBooking(ctx, id, actor, reason)
}

func (s *stubBackend) ConfirmBooking(ctx context.Context, id, actor string) (domain.Reservation, error) {
	return s.transition(ctx, id, actor)
}

func (s *stubBackend) CheckIn(ctx context.Context, id, actor string) (domain.Reservation, error) {
	return s.transition(ctx, id, actor)
}

func (s *stubBackend) CheckOut(ctx context.Context, id, actor string) (domain.Reservation, error) {
	return s.transition(ctx, id, actor)
}

func (s *stubBackend) MarkNoShow(ctx context.Context, id, actor string) (domain.Reservation, error) {
	return s.transition(ctx, id, actor)
}

func (s *stubBackend) GetBooking(ctx context.Context, id string) (domain.Reservation, error) {
	return s.getBooking(ctx, id)
}

func (s *stubBackend) CheckAvailability(ctx context.Context, q app.AvailabilityQuery) (domain.StayVerdict, error) {
	return s.availability(ctx, q)
}

func (s *stubBackend) SetRestrictions(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date, patch domain.RestrictionsPatch) error {
	return s.restrictions(ctx, hotelID, roomTypeID, from, to, patch)
}

func (s *stubBackend) SetCapacity(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date, patch domain.CapacityPatch) error {
	return s.capacity(ctx, hotelID, roomTypeID, from, to, patch)
}

func (s *stubBackend) ListHoldingCovering(ctx context.Context, hotelID, roomTypeID string, d domain.Date) ([]domain.Reservation, error) {
	return s.holding(ctx, hotelID, roomTypeID, d)
}

func (s *stubBackend) Ping(ctx context.Context) error {
	if s.ping != nil {
		return s.ping(ctx)
	}
	return nil
}

func newTestServer(t *testing.T, backend *stubBackend) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(RouterDeps{
		Bookings:     backend,
		Availability: backend,
		Inventory:    backend,
		Holdings:     backend,
		DB:           backend,
		APIKeys:      map[string]string{"test-key": "ota"},
		RateLimit:    1000,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, "test-key")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func sampleReservation() domain.Reservation {
	return domain.Reservation{
		ID:            "res-1",
		BookingNumber: "BK-AB12CD34",
		HotelID:       "hotel-1",
		RoomTypeID:    "std",
		CheckIn:       domain.Date{Year: 2026, Month: time.March, Day: 10},
		CheckOut:      domain.Date{Year: 2026, Month: time.March, Day: 13},
		State:         domain.StatePending,
		Source:        "ota",
		RateSnapshot:  []int64{10000, 10000, 10000},
		Currency:      "USD",
		Guests:        domain.GuestCount{Adults: 2},
	}
}

func TestRouter_Auth(t *testing.T) {
	srv := newTestServer(t, &stubBackend{})

	t.Run("missing key", func(t *testing.T) {
		resp, err := srv.Client().Get(srv.URL + "/api/v1/availability")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "missing_api_key", body["code"])
	})

	t.Run("invalid key", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/availability", nil)
		require.NoError(t, err)
		req.Header.Set(apiKeyHeader, "wrong")

		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("health needs no key", func(t *testing.T) {
		resp, err := srv.Client().Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRouter_RateLimit(t *testing.T) {
	backend := &stubBackend{
		availability: func(ctx context.Context, q app.AvailabilityQuery) (domain.StayVerdict, error) {
			return domain.StayVerdict{Bookable: true}, nil
		},
	}
	srv := httptest.NewServer(NewRouter(RouterDeps{
		Bookings: backend, Availability: backend, Inventory: backend, Holdings: backend, DB: backend,
		APIKeys:   map[string]string{"burst-key": "ota"},
		RateLimit: 2,
	}))
	defer srv.Close()

	get := func() *http.Response {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/availability?hotelId=h&roomTypeId=r&from=2026-03-10&to=2026-03-11", nil)
		require.NoError(t, err)
		req.Header.Set(apiKeyHeader, "burst-key")
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	// Burst of 2 passes, the third is limited.
	assert.Equal(t, http.StatusOK, get().StatusCode)
	assert.Equal(t, http.StatusOK, get().StatusCode)
	limited := get()
	assert.Equal(t, http.StatusTooManyRequests, limited.StatusCode)
	assert.Equal(t, "1", limited.Header.Get("Retry-After"))
}

func TestRouter_Availability(t *testing.T) {
	t.Run("returns the verdict with per-day detail", func(t *testing.T) {
		var gotQuery app.AvailabilityQuery
		backend := &stubBackend{
			availability: func(ctx context.Context, q app.AvailabilityQuery) (domain.StayVerdict, error) {
				gotQuery = q
				return domain.StayVerdict{
					Bookable: false,
					Days: []domain.DayAvailability{{
						Date:           q.From,
						AvailableRooms: 0,
						CanBook:        false,
						Rate:           10000,
						Restrictions:   domain.Restrictions{StopSell: true, MinLengthOfStay: 1},
					}},
					Offending: []domain.DateReason{{Date: q.From, Reason: domain.ReasonStopSell}},
				}, nil
			},
		}
		srv := newTestServer(t, backend)

		resp, body := doJSON(t, srv, http.MethodGet, "/api/v1/availability?hotelId=hotel-1&roomTypeId=std&from=2026-03-10&to=2026-03-11&rooms=2", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "hotel-1", gotQuery.HotelID)
		assert.Equal(t, 2, gotQuery.Rooms)
		assert.Equal(t, false, body["bookable"])

		unavailable := body["unavailableDates"].([]any)
		require.Len(t, unavailable, 1)
		first := unavailable[0].(map[string]any)
		assert.Equal(t, "2026-03-10", first["date"])
		assert.Equal(t, "stop_sell", first["reason"])

		days := body["days"].([]any)
		require.Len(t, days, 1)
		day := days[0].(map[string]any)
		assert.Equal(t, float64(0), day["availableRooms"])
		assert.Equal(t, false, day["canBook"])
		assert.Equal(t, true, day["restrictions"].(map[string]any)["stopSell"])
	})

	t.Run("missing parameters", func(t *testing.T) {
		srv := newTestServer(t, &stubBackend{})
		resp, body := doJSON(t, srv, http.MethodGet, "/api/v1/availability?from=2026-03-10&to=2026-03-11", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_error", body["code"])
	})

	t.Run("malformed date", func(t *testing.T) {
		srv := newTestServer(t, &stubBackend{})
		resp, _ := doJSON(t, srv, http.MethodGet, "/api/v1/availability?hotelId=h&roomTypeId=r&from=bad&to=2026-03-11", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rooms must be positive", func(t *testing.T) {
		srv := newTestServer(t, &stubBackend{})
		resp, body := doJSON(t, srv, http.MethodGet, "/api/v1/availability?hotelId=h&roomTypeId=r&from=2026-03-10&to=2026-03-11&rooms=0", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_error", body["code"])
	})
}

func TestRouter_CreateBooking(t *testing.T) {
	validBody := map[string]any{
		"hotelId":        "hotel-1",
		"roomTypeId":     "std",
		"checkIn":        "2026-03-10",
		"checkOut":       "2026-03-13",
		"guests":         map[string]int{"adults": 2},
		"idempotencyKey": "key-1",
	}

	t.Run("201 on a fresh reservation", func(t *testing.T) {
		var gotInput app.CreateBookingInput
		backend := &stubBackend{
			createBooking: func(ctx context.Context, in app.CreateBookingInput) (app.CreateBookingResult, error) {
				gotInput = in
				return app.CreateBookingResult{Reservation: sampleReservation()}, nil
			},
		}
		srv := newTestServer(t, backend)

		resp, body := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", validBody)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "res-1", body["reservationId"])
		assert.Equal(t, "BK-AB12CD34", body["bookingNumber"])
		assert.Equal(t, "pending", body["state"])
		assert.Equal(t, float64(30000), body["totalAmount"])
		assert.Equal(t, false, body["duplicate"])

		// The API key's source tag is used when the body has none.
		assert.Equal(t, "ota", gotInput.Source)
		assert.Equal(t, 2, gotInput.Guests.Adults)
	})

	t.Run("accepts an agreed rate and currency", func(t *testing.T) {
		var gotInput app.CreateBookingInput
		backend := &stubBackend{
			createBooking: func(ctx context.Context, in app.CreateBookingInput) (app.CreateBookingResult, error) {
				gotInput = in
				res := sampleReservation()
				res.RateSnapshot = []int64{12000, 12000, 12000}
				return app.CreateBookingResult{Reservation: res}, nil
			},
		}
		srv := newTestServer(t, backend)

		resp, body := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", map[string]any{
			"hotelId":           "hotel-1",
			"roomTypeId":        "std",
			"checkIn":           "2026-03-10",
			"checkOut":          "2026-03-13",
			"guests":            map[string]int{"adults": 2, "children": 1},
			"rate":              12000,
			"currency":          "USD",
			"idempotencyKey":    "k1",
			"source":            "ota:booking.com",
			"externalReference": "OTA-555",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, float64(36000), body["totalAmount"])
		require.NotNil(t, gotInput.RateOverride)
		assert.Equal(t, int64(12000), *gotInput.RateOverride)
		assert.Equal(t, "USD", gotInput.Currency)
		assert.Equal(t, "ota:booking.com", gotInput.Source)
	})

	t.Run("negative rate is rejected", func(t *testing.T) {
		srv := newTestServer(t, &stubBackend{})
		body := map[string]any{
			"hotelId": "hotel-1", "roomTypeId": "std",
			"checkIn": "2026-03-10", "checkOut": "2026-03-13",
			"rate": -1, "idempotencyKey": "k1",
		}
		resp, decoded := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_error", decoded["code"])
	})

	t.Run("rooms is not a booking field", func(t *testing.T) {
		// One reservation holds one room; a room count belongs to the
		// availability query only.
		srv := newTestServer(t, &stubBackend{})
		body := map[string]any{
			"hotelId": "hotel-1", "roomTypeId": "std",
			"checkIn": "2026-03-10", "checkOut": "2026-03-13",
			"rooms": 2, "idempotencyKey": "k1",
		}
		resp, decoded := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid_request_body", decoded["code"])
	})

	t.Run("200 on an idempotent replay", func(t *testing.T) {
		backend := &stubBackend{
			createBooking: func(ctx context.Context, in app.CreateBookingInput) (app.CreateBookingResult, error) {
				return app.CreateBookingResult{Reservation: sampleReservation(), Duplicate: true}, nil
			},
		}
		srv := newTestServer(t, backend)

		resp, body := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", validBody)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["duplicate"])
	})

	t.Run("missing idempotency key", func(t *testing.T) {
		srv := newTestServer(t, &stubBackend{})
		body := map[string]any{
			"hotelId": "hotel-1", "roomTypeId": "std",
			"checkIn": "2026-03-10", "checkOut": "2026-03-13",
		}
		resp, decoded := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "idempotency_key_required", decoded["code"])
	})

	t.Run("422 with the offending dates when not available", func(t *testing.T) {
		backend := &stubBackend{
			createBooking: func(ctx context.Context, in app.CreateBookingInput) (app.CreateBookingResult, error) {
				return app.CreateBookingResult{}, &domain.NotAvailableError{Offending: []domain.DateReason{
					{Date: in.CheckIn, Reason: domain.ReasonInsufficientInventory},
				}}
			},
		}
		srv := newTestServer(t, backend)

		resp, body := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", validBody)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "not_available", body["code"])
		dates := body["unavailableDates"].([]any)
		require.Len(t, dates, 1)
		assert.Equal(t, "insufficient_inventory", dates[0].(map[string]any)["reason"])
	})

	t.Run("409 on an idempotency conflict", func(t *testing.T) {
		backend := &stubBackend{
			createBooking: func(ctx context.Context, in app.CreateBookingInput) (app.CreateBookingResult, error) {
				return app.CreateBookingResult{}, domain.ErrIdempotencyConflict
			},
		}
		srv := newTestServer(t, backend)
		resp, body := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", validBody)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "idempotency_conflict", body["code"])
	})

	t.Run("503 with Retry-After when contention exhausts retries", func(t *testing.T) {
		backend := &stubBackend{
			createBooking: func(ctx context.Context, in app.CreateBookingInput) (app.CreateBookingResult, error) {
				return app.CreateBookingResult{}, domain.ErrConflictExhausted
			},
		}
		srv := newTestServer(t, backend)
		resp, body := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", validBody)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "conflict_exhausted", body["code"])
		assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := newTestServer(t, &stubBackend{})
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/bookings", bytes.NewBufferString("{nope"))
		require.NoError(t, err)
		req.Header.Set(apiKeyHeader, "test-key")
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRouter_BookingLifecycle(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		backend := &stubBackend{
			getBooking: func(ctx context.Context, id string) (domain.Reservation, error) {
				assert.Equal(t, "res-1", id)
				return sampleReservation(), nil
			},
		}
		srv := newTestServer(t, backend)
		resp, body := doJSON(t, srv, http.MethodGet, "/api/v1/bookings/res-1", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "res-1", body["reservationId"])
	})

	t.Run("get missing is a 404", func(t *testing.T) {
		backend := &stubBackend{
			getBooking: func(ctx context.Context, id string) (domain.Reservation, error) {
				return domain.Reservation{}, domain.ErrReservationNotFound
			},
		}
		srv := newTestServer(t, backend)
		resp, body := doJSON(t, srv, http.MethodGet, "/api/v1/bookings/res-x", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "reservation_not_found", body["code"])
	})

	t.Run("modify forwards only the fields present", func(t *testing.T) {
		var gotInput app.ModifyBookingInput
		backend := &stubBackend{
			modifyBooking: func(ctx context.Context, id string, in app.ModifyBookingInput) (domain.Reservation, error) {
				gotInput = in
				res := sampleReservation()
				res.CheckOut = domain.Date{Year: 2026, Month: time.March, Day: 14}
				return res, nil
			},
		}
		srv := newTestServer(t, backend)

		resp, body := doJSON(t, srv, http.MethodPut, "/api/v1/bookings/res-1", map[string]any{
			"checkOut": "2026-03-14",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "2026-03-14", body["checkOut"])
		require.NotNil(t, gotInput.CheckOut)
		assert.Nil(t, gotInput.CheckIn)
		assert.Nil(t, gotInput.RoomTypeID)
		assert.Nil(t, gotInput.Rate)
		assert.Equal(t, "ota", gotInput.Actor)
	})

	t.Run("modify forwards an agreed rate", func(t *testing.T) {
		var gotInput app.ModifyBookingInput
		backend := &stubBackend{
			modifyBooking: func(ctx context.Context, id string, in app.ModifyBookingInput) (domain.Reservation, error) {
				gotInput = in
				return sampleReservation(), nil
			},
		}
		srv := newTestServer(t, backend)

		resp, _ := doJSON(t, srv, http.MethodPut, "/api/v1/bookings/res-1", map[string]any{
			"rate": 15000,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotNil(t, gotInput.Rate)
		assert.Equal(t, int64(15000), *gotInput.Rate)
	})

	t.Run("cancel is idempotent", func(t *testing.T) {
		backend := &stubBackend{
			cancelBooking: func(ctx context.Context, id, actor, reason string) (app.CancelBookingResult, error) {
				res := sampleReservation()
				res.State = domain.StateCancelled
				return app.CancelBookingResult{Reservation: res, AlreadyReleased: true}, nil
			},
		}
		srv := newTestServer(t, backend)

		resp, body := doJSON(t, srv, http.MethodPost, "/api/v1/bookings/res-1/cancel", map[string]any{"reason": "guest request"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "cancelled", body["state"])
		assert.Equal(t, true, body["alreadyReleased"])
	})

	t.Run("confirm maps invalid state to 409", func(t *testing.T) {
		backend := &stubBackend{
			transition: func(ctx context.Context, id, actor string) (domain.Reservation, error) {
				return domain.Reservation{}, &domain.InvalidStateError{
					ReservationID: id, Current: domain.StateCancelled, Requested: domain.StateConfirmed,
				}
			},
		}
		srv := newTestServer(t, backend)
		resp, body := doJSON(t, srv, http.MethodPost, "/api/v1/bookings/res-1/confirm", nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "invalid_state", body["code"])
	})

	t.Run("check-in, check-out and no-show route", func(t *testing.T) {
		var calls int
		backend := &stubBackend{
			transition: func(ctx context.Context, id, actor string) (domain.Reservation, error) {
				calls++
				return sampleReservation(), nil
			},
		}
		srv := newTestServer(t, backend)
		for _, path := range []string{"/check-in", "/check-out", "/no-show"} {
			resp, _ := doJSON(t, srv, http.MethodPost, "/api/v1/bookings/res-1"+path, nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		}
		assert.Equal(t, 3, calls)
	})
}

func TestRouter_Admin(t *testing.T) {
	t.Run("restrictions patch", func(t *testing.T) {
		var gotPatch domain.RestrictionsPatch
		backend := &stubBackend{
			restrictions: func(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date, patch domain.RestrictionsPatch) error {
				assert.Equal(t, "hotel-1", hotelID)
				assert.Equal(t, "std", roomTypeID)
				gotPatch = patch
				return nil
			},
		}
		srv := newTestServer(t, backend)

		resp, _ := doJSON(t, srv, http.MethodPut, "/api/v1/hotels/hotel-1/room-types/std/restrictions", map[string]any{
			"from": "2026-03-10", "to": "2026-03-12", "stopSell": true, "minLengthOfStay": 2,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotNil(t, gotPatch.StopSell)
		assert.True(t, *gotPatch.StopSell)
		require.NotNil(t, gotPatch.MinLengthOfStay)
		assert.Equal(t, 2, *gotPatch.MinLengthOfStay)
		assert.Nil(t, gotPatch.ClosedToArrival)
	})

	t.Run("capacity patch validation errors map to 400", func(t *testing.T) {
		backend := &stubBackend{
			capacity: func(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date, patch domain.CapacityPatch) error {
				return app.ErrNegativeVal
			},
		}
		srv := newTestServer(t, backend)
		resp, body := doJSON(t, srv, http.MethodPut, "/api/v1/hotels/hotel-1/room-types/std/capacity", map[string]any{
			"from": "2026-03-10", "to": "2026-03-12", "totalRooms": -1,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_error", body["code"])
	})

	t.Run("holding diagnostic", func(t *testing.T) {
		backend := &stubBackend{
			holding: func(ctx context.Context, hotelID, roomTypeID string, d domain.Date) ([]domain.Reservation, error) {
				return []domain.Reservation{sampleReservation()}, nil
			},
		}
		srv := newTestServer(t, backend)
		resp, body := doJSON(t, srv, http.MethodGet, "/api/v1/hotels/hotel-1/room-types/std/holding?date=2026-03-11", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(1), body["count"])
	})
}

func TestRouter_Health(t *testing.T) {
	t.Run("degraded when the database is unreachable", func(t *testing.T) {
		backend := &stubBackend{
			ping: func(ctx context.Context) error { return errors.New("down") },
		}
		srv := newTestServer(t, backend)
		resp, err := srv.Client().Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestRouter_NotFound(t *testing.T) {
	srv := newTestServer(t, &stubBackend{})
	resp, body := doJSON(t, srv, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])
}
