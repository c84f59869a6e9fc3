package http

import (
	"errors"
	"net/http"
	"strings"

	"boxoffice/catalog"
	"boxoffice/checkin"
	"boxoffice/checkout"
	"boxoffice/entity"
	"boxoffice/inventory"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func newHTTPError(status int, code, message string, details map[string]any) *echo.HTTPError {
	return &echo.HTTPError{
		Code: status,
		Message: errorResponse{Error: errorDetail{
			Code:    code,
			Message: message,
			Details: details,
		}},
	}
}

// toHTTPError maps domain errors to responses. Anything unrecognised is a 500
// whose cause is kept in Internal for the error log.
func toHTTPError(err error) *echo.HTTPError {
	var validation entity.ValidationError
	if errors.As(err, &validation) {
		return newHTTPError(http.StatusBadRequest, "validation_error", validation.Error(), map[string]any{
			"field":  validation.Field,
			"reason": validation.Reason,
		})
	}

	var line *inventory.LineError
	if errors.As(err, &line) {
		status, code := inventoryStatus(line.Err)
		return newHTTPError(status, code, line.Error(), map[string]any{
			"ticket_type_id": line.TicketTypeID,
			"requested":      line.Requested,
			"available":      line.Available,
		})
	}

	switch {
	case errors.Is(err, entity.ErrTicketTypeNotFound):
		return newHTTPError(http.StatusNotFound, "ticket_type_not_found", err.Error(), nil)
	case errors.Is(err, entity.ErrOrderNotFound):
		return newHTTPError(http.StatusNotFound, "order_not_found", err.Error(), nil)
	case errors.Is(err, entity.ErrTicketNotFound):
		return newHTTPError(http.StatusNotFound, "ticket_not_found", err.Error(), nil)
	case errors.Is(err, inventory.ErrReservationExpired):
		return newHTTPError(http.StatusConflict, "reservation_expired", err.Error(), nil)
	case errors.Is(err, inventory.ErrAlreadyReleased):
		return newHTTPError(http.StatusConflict, "reservation_released", err.Error(), nil)
	case errors.Is(err, inventory.ErrAlreadyCommitted):
		return newHTTPError(http.StatusConflict, "reservation_committed", err.Error(), nil)
	case errors.Is(err, catalog.ErrQuantityBelowAllocated):
		return newHTTPError(http.StatusConflict, "quantity_below_allocated", err.Error(), nil)
	case errors.Is(err, checkin.ErrTicketAlreadyUsed):
		return newHTTPError(http.StatusConflict, "ticket_already_used", err.Error(), nil)
	case errors.Is(err, checkout.ErrPaymentUnavailable):
		return &echo.HTTPError{
			Code: http.StatusBadGateway,
			Message: errorResponse{Error: errorDetail{
				Code:    "payment_unavailable",
				Message: "Payment provider is unavailable, please try again",
			}},
			Internal: err,
		}
	}

	return &echo.HTTPError{
		Code: http.StatusInternalServerError,
		Message: errorResponse{Error: errorDetail{
			Code:    "internal_error",
			Message: http.StatusText(http.StatusInternalServerError),
		}},
		Internal: err,
	}
}

func inventoryStatus(err error) (int, string) {
	switch {
	case errors.Is(err, inventory.ErrInsufficientInventory):
		return http.StatusConflict, "insufficient_inventory"
	case errors.Is(err, inventory.ErrSaleWindowClosed):
		return http.StatusUnprocessableEntity, "sale_window_closed"
	case errors.Is(err, inventory.ErrMaxPerOrderExceeded):
		return http.StatusUnprocessableEntity, "max_per_order_exceeded"
	case errors.Is(err, entity.ErrTicketTypeNotFound):
		return http.StatusNotFound, "ticket_type_not_found"
	default:
		return http.StatusConflict, "reservation_failed"
	}
}

func badRequest(err error) *echo.HTTPError {
	return &echo.HTTPError{
		Code: http.StatusBadRequest,
		Message: errorResponse{Error: errorDetail{
			Code:    "bad_request",
			Message: "failed to parse request",
		}},
		Internal: err,
	}
}

// handleError renders every failure in the same JSON envelope, including
// errors raised by echo itself such as unknown routes.
func handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		he = toHTTPError(err)
	}

	logger := log.FromContext(c.Request().Context()).WithError(err)
	if he.Internal != nil {
		logger = logger.WithField("cause", he.Internal.Error())
	}
	if he.Code >= http.StatusInternalServerError {
		logger.Error("HTTP request failed")
	} else {
		logger.Info("HTTP request rejected")
	}

	body := he.Message
	if _, ok := body.(errorResponse); !ok {
		body = errorResponse{Error: errorDetail{
			Code:    strings.ReplaceAll(strings.ToLower(http.StatusText(he.Code)), " ", "_"),
			Message: fmtMessage(he.Message),
		}}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Code)
	} else {
		err = c.JSON(he.Code, body)
	}
	if err != nil {
		logger.WithError(err).Error("Failed to write error response")
	}
}

func fmtMessage(m any) string {
	switch v := m.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return "request failed"
	}
}
