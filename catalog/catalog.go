package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"boxoffice/clock"
	"boxoffice/entity"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
)

var ErrQuantityBelowAllocated = errors.New("quantity below tickets already sold or held")

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Store interface {
	Add(ctx context.Context, tt entity.TicketType) error
	Update(ctx context.Context, tt entity.TicketType) error
	Get(ctx context.Context, id string) (entity.TicketType, error)
	GetForUpdate(ctx context.Context, id string) (entity.TicketType, error)
	ListByEvent(ctx context.Context, eventID string) ([]entity.TicketType, error)
}

// Definition is the organizer-editable part of a ticket type.
type Definition struct {
	Name        string
	Price       entity.Money
	Quantity    int
	MaxPerOrder int
	SaleStart   time.Time
	SaleEnd     time.Time
}

type Catalog struct {
	tx    Transactor
	store Store
	clock clock.Clock
}

func New(tx Transactor, store Store, c clock.Clock) *Catalog {
	return &Catalog{
		tx:    tx,
		store: store,
		clock: c,
	}
}

func (c *Catalog) Create(ctx context.Context, eventID string, def Definition) (entity.TicketType, error) {
	eventID = entity.CanonicalID(eventID)
	if eventID == "" {
		return entity.TicketType{}, entity.ValidationError{Field: "event_id", Reason: "is required"}
	}
	if def.MaxPerOrder == 0 {
		def.MaxPerOrder = entity.DefaultMaxPerOrder
	}
	def, err := validate(def)
	if err != nil {
		return entity.TicketType{}, err
	}

	now := c.clock.Now()
	tt := entity.TicketType{
		ID:        uuid.NewString(),
		EventID:   eventID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	apply(&tt, def)

	if err := c.store.Add(ctx, tt); err != nil {
		return entity.TicketType{}, fmt.Errorf("adding ticket type: %w", err)
	}

	log.FromContext(ctx).WithField("ticket_type_id", tt.ID).Info("Ticket type created")

	return tt, nil
}

// Update replaces the definition of a ticket type. Capacity may not drop
// below what is already sold or held, and price changes only affect future
// reservations. A zero MaxPerOrder keeps the current limit.
func (c *Catalog) Update(ctx context.Context, id string, def Definition) (entity.TicketType, error) {
	def, err := validate(def)
	if err != nil {
		return entity.TicketType{}, err
	}

	var tt entity.TicketType
	err = c.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := c.store.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if def.Quantity < current.Sold+current.Held {
			return fmt.Errorf("%w: %d allocated, %d requested", ErrQuantityBelowAllocated, current.Sold+current.Held, def.Quantity)
		}

		if def.MaxPerOrder == 0 {
			def.MaxPerOrder = current.MaxPerOrder
		}

		tt = current
		apply(&tt, def)
		tt.UpdatedAt = c.clock.Now()

		return c.store.Update(ctx, tt)
	})
	if err != nil {
		return entity.TicketType{}, err
	}

	return tt, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (entity.TicketType, error) {
	return c.store.Get(ctx, id)
}

func (c *Catalog) ListByEvent(ctx context.Context, eventID string) ([]entity.TicketType, error) {
	return c.store.ListByEvent(ctx, eventID)
}

func (c *Catalog) GetAvailability(ctx context.Context, id string) (entity.Availability, error) {
	tt, err := c.store.Get(ctx, id)
	if err != nil {
		return entity.Availability{}, err
	}

	available := tt.Available()
	if available < 0 {
		available = 0
	}

	return entity.Availability{
		TicketTypeID: tt.ID,
		Available:    available,
		SaleOpen:     tt.SaleOpen(c.clock.Now()),
	}, nil
}

func validate(def Definition) (Definition, error) {
	def.Name = strings.TrimSpace(def.Name)
	def.Price.Currency = strings.ToUpper(strings.TrimSpace(def.Price.Currency))

	switch {
	case def.Name == "":
		return def, entity.ValidationError{Field: "name", Reason: "is required"}
	case def.Quantity <= 0:
		return def, entity.ValidationError{Field: "quantity", Reason: "must be positive"}
	case def.MaxPerOrder < 0:
		return def, entity.ValidationError{Field: "max_per_order", Reason: "must be positive"}
	case def.Price.Amount.IsNegative():
		return def, entity.ValidationError{Field: "price", Reason: "must not be negative"}
	case len(def.Price.Currency) != 3:
		return def, entity.ValidationError{Field: "currency", Reason: "must be a 3 letter code"}
	case def.SaleStart.IsZero() || def.SaleEnd.IsZero():
		return def, entity.ValidationError{Field: "sale_window", Reason: "start and end are required"}
	case !def.SaleStart.Before(def.SaleEnd):
		return def, entity.ValidationError{Field: "sale_window", Reason: "start must be before end"}
	}

	return def, nil
}

func apply(tt *entity.TicketType, def Definition) {
	tt.Name = def.Name
	tt.Price = def.Price
	tt.Quantity = def.Quantity
	tt.MaxPerOrder = def.MaxPerOrder
	tt.SaleStart = def.SaleStart.UTC()
	tt.SaleEnd = def.SaleEnd.UTC()
}
