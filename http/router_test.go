package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"boxoffice/catalog"
	"boxoffice/checkin"
	"boxoffice/checkout"
	"boxoffice/clients"
	"boxoffice/entity"
	boxofficeHTTP "boxoffice/http"
	"boxoffice/inventory"
	"boxoffice/qr"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	echo     *echo.Echo
	catalog  *mockCatalog
	checkout *mockCheckout
	checkIn  *mockCheckIn
	codec    *qr.Codec
}

func newTestServer(t *testing.T, webhookSecret string) testServer {
	t.Helper()

	codec, err := qr.NewCodec([]byte("gate-secret"))
	require.NoError(t, err)

	s := testServer{
		catalog:  &mockCatalog{},
		checkout: &mockCheckout{},
		checkIn:  &mockCheckIn{},
		codec:    codec,
	}
	s.echo = boxofficeHTTP.NewRouter(boxofficeHTTP.RouterDeps{
		Catalog:       s.catalog,
		Checkout:      s.checkout,
		CheckIn:       s.checkIn,
		Normalizer:    codec,
		WebhookSecret: webhookSecret,
	})

	t.Cleanup(func() {
		s.catalog.AssertExpectations(t)
		s.checkout.AssertExpectations(t)
		s.checkIn.AssertExpectations(t)
	})

	return s
}

func (s testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	body := decode(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error envelope: %s", rec.Body.String())

	return errBody["code"].(string)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPostTicketType(t *testing.T) {
	s := newTestServer(t, "")

	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 30, 18, 0, 0, 0, time.UTC)

	s.catalog.On("Create", mock.Anything, "evt-1", mock.MatchedBy(func(def catalog.Definition) bool {
		return def.Name == "VIP" &&
			def.Price.Amount.Equal(decimal.NewFromInt(15000)) &&
			def.Price.Currency == "NGN" &&
			def.Quantity == 50 &&
			def.SaleStart.Equal(start) &&
			def.SaleEnd.Equal(end)
	})).Return(entity.TicketType{
		ID:          "tt-1",
		EventID:     "evt-1",
		Name:        "VIP",
		Price:       entity.Money{Amount: decimal.NewFromInt(15000), Currency: "NGN"},
		Quantity:    50,
		MaxPerOrder: 10,
		SaleStart:   start,
		SaleEnd:     end,
	}, nil)

	rec := s.do(http.MethodPost, "/api/v1/events/evt-1/ticket-types", `{
		"name": "VIP",
		"price": {"amount": "15000", "currency": "ngn"},
		"quantity": 50,
		"sale_start": "2026-06-01T09:00:00Z",
		"sale_end": "2026-06-30T18:00:00Z"
	}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "tt-1", body["ticket_type_id"])
	assert.Equal(t, float64(50), body["available"])
	assert.Equal(t, map[string]any{"amount": "15000.00", "currency": "NGN"}, body["price"])
}

func TestPostTicketTypeRejectsBadPrice(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(http.MethodPost, "/api/v1/events/evt-1/ticket-types", `{"name":"VIP","price":{"amount":"lots","currency":"NGN"},"quantity":1}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))
}

func TestRequestValidation(t *testing.T) {
	testCases := []struct {
		name      string
		path      string
		body      string
		wantField string
	}{
		{
			name:      "empty cart",
			path:      "/api/v1/checkout",
			body:      `{"event_id":"evt-1","buyer_ref":"b","items":[]}`,
			wantField: "items",
		},
		{
			name:      "missing buyer",
			path:      "/api/v1/checkout",
			body:      `{"event_id":"evt-1","items":[{"ticket_type_id":"tt-1","quantity":1}]}`,
			wantField: "buyer_ref",
		},
		{
			name:      "zero quantity",
			path:      "/api/v1/checkout",
			body:      `{"event_id":"evt-1","buyer_ref":"b","items":[{"ticket_type_id":"tt-1","quantity":0}]}`,
			wantField: "items[0].quantity",
		},
		{
			name:      "currency code length",
			path:      "/api/v1/events/evt-1/ticket-types",
			body:      `{"name":"VIP","price":{"amount":"10","currency":"NAIRA"},"quantity":1,"sale_start":"2026-06-01T09:00:00Z","sale_end":"2026-06-30T18:00:00Z"}`,
			wantField: "price.currency",
		},
		{
			name:      "sale ends before it starts",
			path:      "/api/v1/events/evt-1/ticket-types",
			body:      `{"name":"VIP","price":{"amount":"10","currency":"NGN"},"quantity":1,"sale_start":"2026-06-30T18:00:00Z","sale_end":"2026-06-01T09:00:00Z"}`,
			wantField: "sale_end",
		},
		{
			name:      "webhook without reference",
			path:      "/api/v1/payments/webhook",
			body:      `{"outcome":"success"}`,
			wantField: "reference",
		},
		{
			name:      "scan without ticket number",
			path:      "/api/v1/events/evt-1/check-ins",
			body:      `{}`,
			wantField: "ticket_number",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, "")

			rec := s.do(http.MethodPost, tc.path, tc.body, nil)

			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			errBody := decode(t, rec)["error"].(map[string]any)
			assert.Equal(t, "validation_error", errBody["code"])
			assert.Equal(t, tc.wantField, errBody["details"].(map[string]any)["field"])
		})
	}
}

func TestPostCheckoutCanonicalisesIDs(t *testing.T) {
	s := newTestServer(t, "")

	s.checkout.On("StartCheckout", mock.Anything, checkout.Request{
		EventID:  "3f2b1c9e-7d4a-4e8b-9c1d-2a6f5e8b7c90",
		BuyerRef: "b",
		Items:    []entity.CartLine{{TicketTypeID: "a1b2c3d4-0000-4000-8000-00000000000f", Quantity: 1}},
	}).Return(checkout.Result{OrderID: "ord-1"}, nil)

	rec := s.do(http.MethodPost, "/api/v1/checkout", `{
		"event_id": "3F2B1C9E-7D4A-4E8B-9C1D-2A6F5E8B7C90",
		"buyer_ref": "b",
		"items": [{"ticket_type_id": "A1B2C3D4-0000-4000-8000-00000000000F", "quantity": 1}]
	}`, nil)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestPutTicketTypeBelowAllocated(t *testing.T) {
	s := newTestServer(t, "")

	s.catalog.On("Update", mock.Anything, "tt-1", mock.Anything).
		Return(entity.TicketType{}, catalog.ErrQuantityBelowAllocated)

	rec := s.do(http.MethodPut, "/api/v1/ticket-types/tt-1", `{
		"name": "VIP",
		"price": {"amount": "10", "currency": "NGN"},
		"quantity": 1,
		"sale_start": "2026-06-01T09:00:00Z",
		"sale_end": "2026-06-30T18:00:00Z"
	}`, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "quantity_below_allocated", errorCode(t, rec))
}

func TestGetAvailability(t *testing.T) {
	s := newTestServer(t, "")

	s.catalog.On("GetAvailability", mock.Anything, "tt-1").
		Return(entity.Availability{TicketTypeID: "tt-1", Available: 7, SaleOpen: true}, nil)

	rec := s.do(http.MethodGet, "/api/v1/ticket-types/tt-1/availability", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"ticket_type_id": "tt-1", "available": float64(7), "sale_open": true}, decode(t, rec))
}

func TestGetAvailabilityNotFound(t *testing.T) {
	s := newTestServer(t, "")

	s.catalog.On("GetAvailability", mock.Anything, "missing").
		Return(entity.Availability{}, entity.ErrTicketTypeNotFound)

	rec := s.do(http.MethodGet, "/api/v1/ticket-types/missing/availability", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ticket_type_not_found", errorCode(t, rec))
}

func TestPostCheckout(t *testing.T) {
	s := newTestServer(t, "")

	expiresAt := time.Date(2026, 6, 1, 9, 15, 0, 0, time.UTC)
	s.checkout.On("StartCheckout", mock.Anything, checkout.Request{
		EventID:  "evt-1",
		BuyerRef: "buyer@example.com",
		Items:    []entity.CartLine{{TicketTypeID: "tt-1", Quantity: 2}},
	}).Return(checkout.Result{
		OrderID:          "ord-1",
		AuthorizationURL: "https://checkout.example/abc",
		Reference:        "BX-abc",
		Total:            entity.Money{Amount: decimal.NewFromInt(10000), Currency: "NGN"},
		ExpiresAt:        expiresAt,
	}, nil)

	rec := s.do(http.MethodPost, "/api/v1/checkout", `{"event_id":"evt-1","buyer_ref":"buyer@example.com","items":[{"ticket_type_id":"tt-1","quantity":2}]}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "ord-1", body["order_id"])
	assert.Equal(t, "https://checkout.example/abc", body["authorization_url"])
	assert.Equal(t, "BX-abc", body["reference"])
	assert.Equal(t, "2026-06-01T09:15:00Z", body["expires_at"])
}

func TestPostCheckoutErrors(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "insufficient inventory",
			err:        &inventory.LineError{TicketTypeID: "tt-1", Requested: 3, Available: 2, Err: inventory.ErrInsufficientInventory},
			wantStatus: http.StatusConflict,
			wantCode:   "insufficient_inventory",
		},
		{
			name:       "sale window closed",
			err:        &inventory.LineError{TicketTypeID: "tt-1", Requested: 1, Err: inventory.ErrSaleWindowClosed},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "sale_window_closed",
		},
		{
			name:       "max per order",
			err:        &inventory.LineError{TicketTypeID: "tt-1", Requested: 11, Err: inventory.ErrMaxPerOrderExceeded},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "max_per_order_exceeded",
		},
		{
			name:       "unknown ticket type",
			err:        &inventory.LineError{TicketTypeID: "tt-9", Requested: 1, Err: entity.ErrTicketTypeNotFound},
			wantStatus: http.StatusNotFound,
			wantCode:   "ticket_type_not_found",
		},
		{
			name:       "validation",
			err:        entity.ValidationError{Field: "items", Reason: "cart is empty"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
		},
		{
			name:       "payment provider down",
			err:        checkout.ErrPaymentUnavailable,
			wantStatus: http.StatusBadGateway,
			wantCode:   "payment_unavailable",
		},
		{
			name:       "unexpected",
			err:        errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, "")
			s.checkout.On("StartCheckout", mock.Anything, mock.Anything).Return(checkout.Result{}, tc.err)

			rec := s.do(http.MethodPost, "/api/v1/checkout", `{"event_id":"evt-1","buyer_ref":"b","items":[{"ticket_type_id":"tt-1","quantity":1}]}`, nil)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantCode, errorCode(t, rec))
		})
	}
}

func TestPostCheckoutLineErrorDetails(t *testing.T) {
	s := newTestServer(t, "")
	s.checkout.On("StartCheckout", mock.Anything, mock.Anything).Return(checkout.Result{},
		&inventory.LineError{TicketTypeID: "tt-1", Requested: 3, Available: 2, Err: inventory.ErrInsufficientInventory})

	rec := s.do(http.MethodPost, "/api/v1/checkout", `{"event_id":"evt-1","buyer_ref":"b","items":[{"ticket_type_id":"tt-1","quantity":3}]}`, nil)

	details := decode(t, rec)["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "tt-1", details["ticket_type_id"])
	assert.Equal(t, float64(3), details["requested"])
	assert.Equal(t, float64(2), details["available"])
}

func TestPostPaymentWebhook(t *testing.T) {
	s := newTestServer(t, "")

	s.checkout.On("Confirm", mock.Anything, checkout.Confirmation{Reference: "BX-abc", Outcome: checkout.OutcomeSuccess}).
		Return(checkout.ConfirmResult{
			OrderID: "ord-1",
			Status:  entity.OrderPaid,
			Tickets: []entity.Ticket{{ID: "t-1"}, {ID: "t-2"}},
		}, nil).Once()
	s.checkout.On("Confirm", mock.Anything, checkout.Confirmation{Reference: "BX-abc", Outcome: checkout.OutcomeSuccess}).
		Return(checkout.ConfirmResult{OrderID: "ord-1", Status: entity.OrderPaid, Duplicate: true}, nil).Once()

	rec := s.do(http.MethodPost, "/api/v1/payments/webhook", `{"reference":"BX-abc","outcome":"success"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), decode(t, rec)["tickets_issued"])

	rec = s.do(http.MethodPost, "/api/v1/payments/webhook", `{"event":"charge.success","data":{"reference":"BX-abc","status":"success"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["duplicate"])
}

func TestPostPaymentWebhookRejectsUnknownOutcome(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(http.MethodPost, "/api/v1/payments/webhook", `{"reference":"BX-abc","outcome":"maybe"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))
}

func TestPostPaymentWebhookSignature(t *testing.T) {
	s := newTestServer(t, "whsec")

	body := `{"reference":"BX-abc","outcome":"failed"}`
	s.checkout.On("Confirm", mock.Anything, checkout.Confirmation{Reference: "BX-abc", Outcome: checkout.OutcomeFailed}).
		Return(checkout.ConfirmResult{OrderID: "ord-1", Status: entity.OrderFailed}, nil).Once()

	rec := s.do(http.MethodPost, "/api/v1/payments/webhook", body, map[string]string{
		clients.PaystackSignatureHeader: "deadbeef",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/payments/webhook", body, map[string]string{
		clients.PaystackSignatureHeader: clients.SignWebhook("whsec", []byte(body)),
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGetOrder(t *testing.T) {
	s := newTestServer(t, "")

	price := entity.Money{Amount: decimal.NewFromInt(5000), Currency: "NGN"}
	s.checkout.On("GetOrder", mock.Anything, "ord-1").Return(checkout.OrderDetails{
		Order: entity.Order{
			ID:               "ord-1",
			EventID:          "evt-1",
			BuyerRef:         "buyer@example.com",
			Status:           entity.OrderPaid,
			PaymentReference: "BX-abc",
			Items:            []entity.OrderItem{{TicketTypeID: "tt-1", Quantity: 2, UnitPrice: price}},
		},
		Tickets: []entity.Ticket{
			{ID: "t-1", TicketNumber: "TKT-0000000000000001", Status: entity.TicketConfirmed, Price: price},
			{ID: "t-2", TicketNumber: "TKT-0000000000000002", Status: entity.TicketConfirmed, Price: price},
		},
	}, nil)

	rec := s.do(http.MethodGet, "/api/v1/orders/ord-1", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "paid", body["status"])
	assert.Equal(t, map[string]any{"amount": "10000.00", "currency": "NGN"}, body["total"])
	assert.Len(t, body["tickets"], 2)
}

func TestGetOrderNotFound(t *testing.T) {
	s := newTestServer(t, "")
	s.checkout.On("GetOrder", mock.Anything, "nope").Return(checkout.OrderDetails{}, entity.ErrOrderNotFound)

	rec := s.do(http.MethodGet, "/api/v1/orders/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order_not_found", errorCode(t, rec))
}

func TestPostCheckIn(t *testing.T) {
	checkedInAt := time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC)
	ticket := entity.Ticket{
		ID:           "t-1",
		EventID:      "evt-1",
		TicketNumber: "TKT-8F3A91C0D2E4B756",
		Status:       entity.TicketUsed,
		CheckedInAt:  &checkedInAt,
	}

	testCases := []struct {
		name        string
		input       string
		result      checkin.Result
		err         error
		wantStatus  string
		wantCode    string
		wantTicket  bool
		wantMessage string
	}{
		{
			name:       "first scan",
			input:      "tkt-8f3a91c0d2e4b756",
			result:     checkin.Result{Outcome: checkin.OutcomeCheckedIn, Ticket: ticket},
			wantStatus: "success",
			wantTicket: true,
		},
		{
			name:        "second scan",
			input:       "TKT-8F3A91C0D2E4B756",
			result:      checkin.Result{Outcome: checkin.OutcomeAlreadyUsed, Ticket: ticket},
			wantStatus:  "warning",
			wantCode:    "already_used",
			wantTicket:  true,
			wantMessage: "Ticket already used at 2026-06-01T19:00:00Z",
		},
		{
			name:       "ticket url",
			input:      "https://boxoffice.example/tickets/TKT-8F3A91C0D2E4B756",
			result:     checkin.Result{Outcome: checkin.OutcomeCheckedIn, Ticket: ticket},
			wantStatus: "success",
			wantTicket: true,
		},
		{
			name:       "unknown",
			input:      "TKT-8F3A91C0D2E4B756",
			err:        entity.ErrTicketNotFound,
			wantStatus: "error",
			wantCode:   "not_found",
		},
		{
			name:       "wrong event",
			input:      "TKT-8F3A91C0D2E4B756",
			err:        checkin.ErrWrongEvent,
			wantStatus: "error",
			wantCode:   "wrong_event",
		},
		{
			name:       "cancelled",
			input:      "TKT-8F3A91C0D2E4B756",
			err:        checkin.ErrTicketCancelled,
			wantStatus: "error",
			wantCode:   "cancelled",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, "")
			s.checkIn.On("VerifyAndCheckIn", mock.Anything, "evt-1", "TKT-8F3A91C0D2E4B756").Return(tc.result, tc.err)

			payload, err := json.Marshal(map[string]string{"ticket_number": tc.input})
			require.NoError(t, err)

			rec := s.do(http.MethodPost, "/api/v1/events/evt-1/check-ins", string(payload), nil)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.Equal(t, tc.wantStatus, body["status"])
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, body["code"])
			}
			if tc.wantMessage != "" {
				assert.Equal(t, tc.wantMessage, body["message"])
			}
			_, hasTicket := body["ticket"]
			assert.Equal(t, tc.wantTicket, hasTicket)
		})
	}
}

func TestPostCheckInSignedPayload(t *testing.T) {
	s := newTestServer(t, "")

	ticket := entity.Ticket{ID: "t-1", EventID: "evt-1", TicketNumber: "TKT-8F3A91C0D2E4B756", Status: entity.TicketConfirmed}
	payload, err := s.codec.Sign(ticket)
	require.NoError(t, err)

	s.checkIn.On("VerifyAndCheckIn", mock.Anything, "evt-1", "TKT-8F3A91C0D2E4B756").
		Return(checkin.Result{Outcome: checkin.OutcomeCheckedIn, Ticket: ticket}, nil)

	rec := s.do(http.MethodPost, "/api/v1/events/evt-1/check-ins", `{"ticket_number":"`+payload+`"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decode(t, rec)["status"])
}

func TestPostCheckInForgedPayload(t *testing.T) {
	s := newTestServer(t, "")

	other, err := qr.NewCodec([]byte("someone-else"))
	require.NoError(t, err)
	forged, err := other.Sign(entity.Ticket{ID: "t-1", EventID: "evt-1", TicketNumber: "TKT-8F3A91C0D2E4B756"})
	require.NoError(t, err)

	rec := s.do(http.MethodPost, "/api/v1/events/evt-1/check-ins", `{"ticket_number":"`+forged+`"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "invalid_payload", body["code"])
	s.checkIn.AssertNotCalled(t, "VerifyAndCheckIn", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostCheckInEmpty(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(http.MethodPost, "/api/v1/events/evt-1/check-ins", `{"ticket_number":"  "}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))
}

func TestPostCancelTicket(t *testing.T) {
	s := newTestServer(t, "")

	s.checkIn.On("Cancel", mock.Anything, "t-1", "chargeback").
		Return(entity.Ticket{ID: "t-1", Status: entity.TicketCancelled}, nil).Once()
	s.checkIn.On("Cancel", mock.Anything, "t-2", "chargeback").
		Return(entity.Ticket{}, checkin.ErrTicketAlreadyUsed).Once()

	rec := s.do(http.MethodPost, "/api/v1/tickets/t-1/cancel", `{"reason":"chargeback"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode(t, rec)["status"])

	rec = s.do(http.MethodPost, "/api/v1/tickets/t-2/cancel", `{"reason":"chargeback"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ticket_already_used", errorCode(t, rec))
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(http.MethodGet, "/api/v1/nothing-here", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}
