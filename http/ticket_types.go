package http

import (
	"net/http"
	"time"

	"boxoffice/catalog"
	"boxoffice/entity"

	"github.com/labstack/echo/v4"
)

type money struct {
	Amount   string `json:"amount" validate:"required"`
	Currency string `json:"currency" validate:"len=3"`
}

func toMoney(m entity.Money) money {
	return money{
		Amount:   m.Amount.StringFixed(2),
		Currency: m.Currency,
	}
}

type ticketTypeRequest struct {
	Name        string    `json:"name" validate:"required"`
	Price       money     `json:"price"`
	Quantity    int       `json:"quantity" validate:"gt=0"`
	MaxPerOrder int       `json:"max_per_order" validate:"gte=0"`
	SaleStart   time.Time `json:"sale_start" validate:"required"`
	SaleEnd     time.Time `json:"sale_end" validate:"required,gtfield=SaleStart"`
}

func (r ticketTypeRequest) definition() (catalog.Definition, error) {
	price, err := entity.NewMoney(r.Price.Amount, r.Price.Currency)
	if err != nil {
		return catalog.Definition{}, entity.ValidationError{Field: "price.amount", Reason: "must be a decimal number"}
	}

	return catalog.Definition{
		Name:        r.Name,
		Price:       price,
		Quantity:    r.Quantity,
		MaxPerOrder: r.MaxPerOrder,
		SaleStart:   r.SaleStart,
		SaleEnd:     r.SaleEnd,
	}, nil
}

type ticketTypeResponse struct {
	ID          string    `json:"ticket_type_id"`
	EventID     string    `json:"event_id"`
	Name        string    `json:"name"`
	Price       money     `json:"price"`
	Quantity    int       `json:"quantity"`
	Sold        int       `json:"sold"`
	Held        int       `json:"held"`
	Available   int       `json:"available"`
	MaxPerOrder int       `json:"max_per_order"`
	SaleStart   time.Time `json:"sale_start"`
	SaleEnd     time.Time `json:"sale_end"`
}

func toTicketTypeResponse(tt entity.TicketType) ticketTypeResponse {
	return ticketTypeResponse{
		ID:          tt.ID,
		EventID:     tt.EventID,
		Name:        tt.Name,
		Price:       toMoney(tt.Price),
		Quantity:    tt.Quantity,
		Sold:        tt.Sold,
		Held:        tt.Held,
		Available:   max(tt.Available(), 0),
		MaxPerOrder: tt.MaxPerOrder,
		SaleStart:   tt.SaleStart,
		SaleEnd:     tt.SaleEnd,
	}
}

func (h handler) PostTicketType(c echo.Context) error {
	var request ticketTypeRequest
	if err := c.Bind(&request); err != nil {
		return badRequest(err)
	}
	if err := c.Validate(&request); err != nil {
		return toHTTPError(err)
	}

	def, err := request.definition()
	if err != nil {
		return toHTTPError(err)
	}

	tt, err := h.catalog.Create(c.Request().Context(), entity.CanonicalID(c.Param("event_id")), def)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, toTicketTypeResponse(tt))
}

func (h handler) PutTicketType(c echo.Context) error {
	var request ticketTypeRequest
	if err := c.Bind(&request); err != nil {
		return badRequest(err)
	}
	if err := c.Validate(&request); err != nil {
		return toHTTPError(err)
	}

	def, err := request.definition()
	if err != nil {
		return toHTTPError(err)
	}

	tt, err := h.catalog.Update(c.Request().Context(), entity.CanonicalID(c.Param("id")), def)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, toTicketTypeResponse(tt))
}

func (h handler) ListTicketTypes(c echo.Context) error {
	types, err := h.catalog.ListByEvent(c.Request().Context(), entity.CanonicalID(c.Param("event_id")))
	if err != nil {
		return toHTTPError(err)
	}

	response := make([]ticketTypeResponse, 0, len(types))
	for _, tt := range types {
		response = append(response, toTicketTypeResponse(tt))
	}

	return c.JSON(http.StatusOK, response)
}

type availabilityResponse struct {
	TicketTypeID string `json:"ticket_type_id"`
	Available    int    `json:"available"`
	SaleOpen     bool   `json:"sale_open"`
}

func (h handler) GetAvailability(c echo.Context) error {
	availability, err := h.catalog.GetAvailability(c.Request().Context(), entity.CanonicalID(c.Param("id")))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, availabilityResponse{
		TicketTypeID: availability.TicketTypeID,
		Available:    availability.Available,
		SaleOpen:     availability.SaleOpen,
	})
}
