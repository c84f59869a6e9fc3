package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"boxoffice/checkin"
	"boxoffice/entity"
	"boxoffice/qr"

	"github.com/labstack/echo/v4"
)

const (
	scanSuccess = "success"
	scanWarning = "warning"
	scanError   = "error"
)

type ticketResponse struct {
	TicketID     string     `json:"ticket_id"`
	TicketNumber string     `json:"ticket_number"`
	TicketTypeID string     `json:"ticket_type_id"`
	EventID      string     `json:"event_id"`
	OrderID      string     `json:"order_id"`
	Status       string     `json:"status"`
	Price        money      `json:"price"`
	QRPayload    string     `json:"qr_payload,omitempty"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	IssuedAt     time.Time  `json:"issued_at"`
}

func toTicketResponse(t entity.Ticket) ticketResponse {
	return ticketResponse{
		TicketID:     t.ID,
		TicketNumber: t.TicketNumber,
		TicketTypeID: t.TicketTypeID,
		EventID:      t.EventID,
		OrderID:      t.OrderID,
		Status:       string(t.Status),
		Price:        toMoney(t.Price),
		QRPayload:    t.QRPayload,
		CheckedInAt:  t.CheckedInAt,
		CancelledAt:  t.CancelledAt,
		IssuedAt:     t.IssuedAt,
	}
}

type checkInRequest struct {
	TicketNumber string `json:"ticket_number" validate:"required"`
}

type checkInResponse struct {
	Status  string          `json:"status"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message"`
	Ticket  *ticketResponse `json:"ticket,omitempty"`
}

// PostCheckIn answers 200 for every scan the gate should display, so scanners
// only treat transport failures as errors.
func (h handler) PostCheckIn(c echo.Context) error {
	var request checkInRequest
	if err := c.Bind(&request); err != nil {
		return badRequest(err)
	}
	if err := c.Validate(&request); err != nil {
		return toHTTPError(err)
	}

	number, err := h.normalizer.Normalize(request.TicketNumber)
	if errors.Is(err, qr.ErrInvalidPayload) {
		return c.JSON(http.StatusOK, checkInResponse{
			Status:  scanError,
			Code:    "invalid_payload",
			Message: "QR code is not a valid ticket",
		})
	}
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.checkIn.VerifyAndCheckIn(c.Request().Context(), entity.CanonicalID(c.Param("event_id")), number)
	if err != nil {
		if response, ok := scanErrorResponse(err); ok {
			return c.JSON(http.StatusOK, response)
		}
		return toHTTPError(err)
	}

	ticket := toTicketResponse(result.Ticket)
	ticket.QRPayload = ""

	if result.Outcome == checkin.OutcomeAlreadyUsed {
		message := "Ticket already used"
		if result.Ticket.CheckedInAt != nil {
			message = fmt.Sprintf("Ticket already used at %s", result.Ticket.CheckedInAt.UTC().Format(time.RFC3339))
		}

		return c.JSON(http.StatusOK, checkInResponse{
			Status:  scanWarning,
			Code:    "already_used",
			Message: message,
			Ticket:  &ticket,
		})
	}

	return c.JSON(http.StatusOK, checkInResponse{
		Status:  scanSuccess,
		Message: "Checked in",
		Ticket:  &ticket,
	})
}

func scanErrorResponse(err error) (checkInResponse, bool) {
	switch {
	case errors.Is(err, entity.ErrTicketNotFound):
		return checkInResponse{Status: scanError, Code: "not_found", Message: "Ticket not found"}, true
	case errors.Is(err, checkin.ErrWrongEvent):
		return checkInResponse{Status: scanError, Code: "wrong_event", Message: "Ticket is for a different event"}, true
	case errors.Is(err, checkin.ErrTicketCancelled):
		return checkInResponse{Status: scanError, Code: "cancelled", Message: "Ticket has been cancelled"}, true
	}

	return checkInResponse{}, false
}

type cancelTicketRequest struct {
	Reason string `json:"reason"`
}

func (h handler) PostCancelTicket(c echo.Context) error {
	var request cancelTicketRequest
	if err := c.Bind(&request); err != nil {
		return badRequest(err)
	}

	ticket, err := h.checkIn.Cancel(c.Request().Context(), entity.CanonicalID(c.Param("id")), request.Reason)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, toTicketResponse(ticket))
}
