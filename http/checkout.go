package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"boxoffice/checkout"
	"boxoffice/clients"
	"boxoffice/entity"

	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 1 << 20

type checkoutRequest struct {
	EventID  string         `json:"event_id" validate:"required"`
	BuyerRef string         `json:"buyer_ref" validate:"required"`
	Items    []checkoutItem `json:"items" validate:"gt=0,dive"`
}

type checkoutItem struct {
	TicketTypeID string `json:"ticket_type_id" validate:"required"`
	Quantity     int    `json:"quantity" validate:"gt=0"`
}

type checkoutResponse struct {
	OrderID          string    `json:"order_id"`
	AuthorizationURL string    `json:"authorization_url"`
	Reference        string    `json:"reference"`
	Total            money     `json:"total"`
	ExpiresAt        time.Time `json:"expires_at"`
}

func (h handler) PostCheckout(c echo.Context) error {
	var request checkoutRequest
	if err := c.Bind(&request); err != nil {
		return badRequest(err)
	}
	if err := c.Validate(&request); err != nil {
		return toHTTPError(err)
	}

	items := make([]entity.CartLine, 0, len(request.Items))
	for _, item := range request.Items {
		items = append(items, entity.CartLine{
			TicketTypeID: entity.CanonicalID(item.TicketTypeID),
			Quantity:     item.Quantity,
		})
	}

	result, err := h.checkout.StartCheckout(c.Request().Context(), checkout.Request{
		EventID:  entity.CanonicalID(request.EventID),
		BuyerRef: request.BuyerRef,
		Items:    items,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, checkoutResponse{
		OrderID:          result.OrderID,
		AuthorizationURL: result.AuthorizationURL,
		Reference:        result.Reference,
		Total:            toMoney(result.Total),
		ExpiresAt:        result.ExpiresAt,
	})
}

type orderItemResponse struct {
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
	UnitPrice    money  `json:"unit_price"`
}

type orderResponse struct {
	OrderID          string              `json:"order_id"`
	EventID          string              `json:"event_id"`
	BuyerRef         string              `json:"buyer_ref"`
	Status           string              `json:"status"`
	Reference        string              `json:"reference,omitempty"`
	AuthorizationURL string              `json:"authorization_url,omitempty"`
	FailureReason    string              `json:"failure_reason,omitempty"`
	Total            money               `json:"total"`
	Items            []orderItemResponse `json:"items"`
	Tickets          []ticketResponse    `json:"tickets"`
}

func (h handler) GetOrder(c echo.Context) error {
	details, err := h.checkout.GetOrder(c.Request().Context(), entity.CanonicalID(c.Param("id")))
	if err != nil {
		return toHTTPError(err)
	}

	order := details.Order
	response := orderResponse{
		OrderID:          order.ID,
		EventID:          order.EventID,
		BuyerRef:         order.BuyerRef,
		Status:           string(order.Status),
		Reference:        order.PaymentReference,
		AuthorizationURL: order.AuthorizationURL,
		FailureReason:    order.FailureReason,
		Total:            toMoney(order.Total()),
		Items:            make([]orderItemResponse, 0, len(order.Items)),
		Tickets:          make([]ticketResponse, 0, len(details.Tickets)),
	}
	for _, item := range order.Items {
		response.Items = append(response.Items, orderItemResponse{
			TicketTypeID: item.TicketTypeID,
			Quantity:     item.Quantity,
			UnitPrice:    toMoney(item.UnitPrice),
		})
	}
	for _, ticket := range details.Tickets {
		response.Tickets = append(response.Tickets, toTicketResponse(ticket))
	}

	return c.JSON(http.StatusOK, response)
}

// paymentWebhookRequest accepts the plain {reference, outcome} shape as well
// as the provider's native {event, data: {reference, status}} envelope.
type paymentWebhookRequest struct {
	Reference string `json:"reference"`
	Outcome   string `json:"outcome"`
	Event     string `json:"event"`
	Data      struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

type webhookConfirmation struct {
	Reference string `json:"reference" validate:"required"`
	Outcome   string `json:"outcome" validate:"oneof=success failed"`
}

func (r paymentWebhookRequest) confirmation() webhookConfirmation {
	reference := r.Reference
	if reference == "" {
		reference = r.Data.Reference
	}

	outcome := r.Outcome
	if outcome == "" {
		switch {
		case r.Event == "charge.success" || r.Data.Status == "success":
			outcome = string(checkout.OutcomeSuccess)
		case r.Event == "charge.failed" || r.Data.Status == "failed" || r.Data.Status == "abandoned":
			outcome = string(checkout.OutcomeFailed)
		}
	}

	return webhookConfirmation{
		Reference: reference,
		Outcome:   outcome,
	}
}

type paymentWebhookResponse struct {
	OrderID         string `json:"order_id"`
	Status          string `json:"status"`
	Duplicate       bool   `json:"duplicate"`
	RefundRequested bool   `json:"refund_requested"`
	TicketsIssued   int    `json:"tickets_issued"`
}

func (h handler) PostPaymentWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return badRequest(fmt.Errorf("reading webhook body: %w", err))
	}

	if h.webhookSecret != "" {
		signature := c.Request().Header.Get(clients.PaystackSignatureHeader)
		if !clients.VerifyWebhookSignature(h.webhookSecret, body, signature) {
			return newHTTPError(http.StatusUnauthorized, "invalid_signature", "webhook signature does not match", nil)
		}
	}

	var request paymentWebhookRequest
	if err := json.Unmarshal(body, &request); err != nil {
		return badRequest(fmt.Errorf("decoding webhook body: %w", err))
	}

	confirmation := request.confirmation()
	if err := c.Validate(&confirmation); err != nil {
		return toHTTPError(err)
	}

	result, err := h.checkout.Confirm(c.Request().Context(), checkout.Confirmation{
		Reference: confirmation.Reference,
		Outcome:   checkout.Outcome(confirmation.Outcome),
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, paymentWebhookResponse{
		OrderID:         result.OrderID,
		Status:          string(result.Status),
		Duplicate:       result.Duplicate,
		RefundRequested: result.RefundRequested,
		TicketsIssued:   len(result.Tickets),
	})
}
