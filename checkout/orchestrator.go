package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"boxoffice/clock"
	"boxoffice/command"
	"boxoffice/entity"
	"boxoffice/event"
	"boxoffice/inventory"
	"boxoffice/metrics"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
)

var ErrPaymentUnavailable = errors.New("payment provider unavailable")

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Inventory interface {
	TryReserve(ctx context.Context, eventID string, cart []entity.CartLine) (entity.Reservation, error)
	Commit(ctx context.Context, reservationID string) (entity.Reservation, error)
	Release(ctx context.Context, reservationID string) error
	SweepExpired(ctx context.Context) (int, error)
}

type OrderStore interface {
	Add(ctx context.Context, order entity.Order) error
	Get(ctx context.Context, id string) (entity.Order, error)
	GetForUpdate(ctx context.Context, id string) (entity.Order, error)
	GetByReferenceForUpdate(ctx context.Context, reference string) (entity.Order, error)
	SetPaymentReference(ctx context.Context, id, reference, authorizationURL string) error
	Transition(ctx context.Context, id string, from, to entity.OrderStatus, failureReason string) (bool, error)
	RecordConfirmation(ctx context.Context, reference, outcome string, at time.Time) (bool, error)
	ListStalePending(ctx context.Context, now time.Time, limit int) ([]string, error)
}

type TicketLister interface {
	ListByOrder(ctx context.Context, orderID string) ([]entity.Ticket, error)
}

type TicketIssuer interface {
	Issue(ctx context.Context, order entity.Order) ([]entity.Ticket, error)
}

type Authorization struct {
	URL       string
	Reference string
}

type PaymentGateway interface {
	CreateAuthorization(ctx context.Context, order entity.Order, reference string) (Authorization, error)
}

type Outbox interface {
	Publish(ctx context.Context, event any) error
	Send(ctx context.Context, cmd any) error
}

type Request struct {
	EventID  string
	BuyerRef string
	Items    []entity.CartLine
}

type Result struct {
	OrderID          string
	AuthorizationURL string
	Reference        string
	Total            entity.Money
	ExpiresAt        time.Time
}

type Confirmation struct {
	Reference string
	Outcome   Outcome
}

type ConfirmResult struct {
	OrderID         string
	Status          entity.OrderStatus
	Duplicate       bool
	RefundRequested bool
	Tickets         []entity.Ticket
}

type OrderDetails struct {
	Order   entity.Order
	Tickets []entity.Ticket
}

type Orchestrator struct {
	tx        Transactor
	inventory Inventory
	orders    OrderStore
	tickets   TicketLister
	issuer    TicketIssuer
	payments  PaymentGateway
	outbox    Outbox
	clock     clock.Clock
	batchSize int
}

type Deps struct {
	Tx        Transactor
	Inventory Inventory
	Orders    OrderStore
	Tickets   TicketLister
	Issuer    TicketIssuer
	Payments  PaymentGateway
	Outbox    Outbox
	Clock     clock.Clock
	BatchSize int
}

func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.BatchSize <= 0 {
		deps.BatchSize = 100
	}

	return &Orchestrator{
		tx:        deps.Tx,
		inventory: deps.Inventory,
		orders:    deps.Orders,
		tickets:   deps.Tickets,
		issuer:    deps.Issuer,
		payments:  deps.Payments,
		outbox:    deps.Outbox,
		clock:     deps.Clock,
		batchSize: deps.BatchSize,
	}
}

// StartCheckout reserves the cart, records a pending order and asks the
// payment provider for an authorization. No lock is held while the provider
// is called.
func (o *Orchestrator) StartCheckout(ctx context.Context, req Request) (Result, error) {
	if err := validateRequest(req); err != nil {
		return Result{}, err
	}

	now := o.clock.Now()

	var order entity.Order
	var reservation entity.Reservation
	err := o.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		reservation, err = o.inventory.TryReserve(ctx, req.EventID, req.Items)
		if err != nil {
			return err
		}

		order = entity.Order{
			ID:            uuid.NewString(),
			EventID:       req.EventID,
			BuyerRef:      strings.TrimSpace(req.BuyerRef),
			ReservationID: reservation.ID,
			Status:        entity.OrderPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		for _, item := range reservation.Items {
			order.Items = append(order.Items, entity.OrderItem{
				OrderID:      order.ID,
				TicketTypeID: item.TicketTypeID,
				Quantity:     item.Quantity,
				UnitPrice:    item.UnitPrice,
			})
		}

		if err := o.orders.Add(ctx, order); err != nil {
			return fmt.Errorf("adding order: %w", err)
		}

		return o.outbox.Publish(ctx, event.NewOrderPlaced(order, reservation.ExpiresAt))
	})
	if err != nil {
		return Result{}, err
	}

	logger := log.FromContext(ctx).WithField("order_id", order.ID)

	reference := "BX-" + shortuuid.New()
	auth, err := o.payments.CreateAuthorization(ctx, order, reference)
	if err == nil {
		if auth.Reference != "" {
			reference = auth.Reference
		}
		err = o.orders.SetPaymentReference(ctx, order.ID, reference, auth.URL)
	}
	if err != nil {
		logger.WithError(err).Warn("Payment authorization failed, abandoning order")
		if abandonErr := o.abandon(ctx, order.ID, entity.FailureAuthorization); abandonErr != nil {
			return Result{}, errors.Join(err, abandonErr)
		}
		return Result{}, fmt.Errorf("%w: %w", ErrPaymentUnavailable, err)
	}

	logger.WithField("reference", reference).Info("Checkout started")

	return Result{
		OrderID:          order.ID,
		AuthorizationURL: auth.URL,
		Reference:        reference,
		Total:            order.Total(),
		ExpiresAt:        reservation.ExpiresAt,
	}, nil
}

// Confirm applies a payment confirmation. Each reference and outcome pair is
// acted on at most once; repeats return the order's current status. A failure
// reported after the order was paid is stale and has no effect.
func (o *Orchestrator) Confirm(ctx context.Context, c Confirmation) (ConfirmResult, error) {
	if c.Reference == "" {
		return ConfirmResult{}, entity.ValidationError{Field: "reference", Reason: "is required"}
	}
	if c.Outcome != OutcomeSuccess && c.Outcome != OutcomeFailed {
		return ConfirmResult{}, entity.ValidationError{Field: "outcome", Reason: "must be success or failed"}
	}

	now := o.clock.Now()

	var result ConfirmResult
	err := o.tx.WithTx(ctx, func(ctx context.Context) error {
		order, err := o.orders.GetByReferenceForUpdate(ctx, c.Reference)
		if err != nil {
			return err
		}

		first, err := o.orders.RecordConfirmation(ctx, c.Reference, string(c.Outcome), now)
		if err != nil {
			return err
		}

		stale := order.Status == entity.OrderPaid && c.Outcome == OutcomeFailed

		result = ConfirmResult{
			OrderID:   order.ID,
			Status:    order.Status,
			Duplicate: !first || stale,
		}
		if result.Duplicate {
			return nil
		}

		switch {
		case order.Status == entity.OrderPending && c.Outcome == OutcomeSuccess:
			return o.fulfil(ctx, order, &result)
		case order.Status == entity.OrderPending:
			return o.fail(ctx, order, entity.FailurePayment, &result)
		case order.Status == entity.OrderFailed && c.Outcome == OutcomeSuccess:
			return o.refund(ctx, order, order.FailureReason, &result)
		}

		return nil
	})
	if err != nil {
		metrics.ObserveConfirmation(string(c.Outcome), "error")
		return ConfirmResult{}, err
	}

	switch {
	case result.Duplicate:
		metrics.ObserveConfirmation(string(c.Outcome), "duplicate")
	case result.RefundRequested:
		metrics.ObserveConfirmation(string(c.Outcome), "refund")
	default:
		metrics.ObserveConfirmation(string(c.Outcome), string(result.Status))
	}

	log.FromContext(ctx).
		WithField("order_id", result.OrderID).
		WithField("status", result.Status).
		WithField("duplicate", result.Duplicate).
		Info("Payment confirmation processed")

	return result, nil
}

func (o *Orchestrator) fulfil(ctx context.Context, order entity.Order, result *ConfirmResult) error {
	_, err := o.inventory.Commit(ctx, order.ReservationID)
	if errors.Is(err, inventory.ErrReservationExpired) || errors.Is(err, inventory.ErrAlreadyReleased) {
		if err := o.markFailed(ctx, order, entity.FailureReservationExpired); err != nil {
			return err
		}
		result.Status = entity.OrderFailed
		return o.refund(ctx, order, entity.FailureReservationExpired, result)
	}
	if err != nil {
		return fmt.Errorf("committing reservation: %w", err)
	}

	tickets, err := o.issuer.Issue(ctx, order)
	if err != nil {
		return fmt.Errorf("issuing tickets: %w", err)
	}

	ok, err := o.orders.Transition(ctx, order.ID, entity.OrderPending, entity.OrderPaid, "")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("order %s changed status concurrently", order.ID)
	}

	if err := o.outbox.Publish(ctx, event.NewOrderPaid(order, tickets)); err != nil {
		return fmt.Errorf("publishing order paid: %w", err)
	}

	result.Status = entity.OrderPaid
	result.Tickets = tickets

	return nil
}

func (o *Orchestrator) fail(ctx context.Context, order entity.Order, reason string, result *ConfirmResult) error {
	if err := o.inventory.Release(ctx, order.ReservationID); err != nil {
		return fmt.Errorf("releasing reservation: %w", err)
	}
	if err := o.markFailed(ctx, order, reason); err != nil {
		return err
	}
	result.Status = entity.OrderFailed

	return nil
}

func (o *Orchestrator) refund(ctx context.Context, order entity.Order, reason string, result *ConfirmResult) error {
	if err := o.outbox.Send(ctx, command.NewRefundPayment(order, reason)); err != nil {
		return fmt.Errorf("sending refund payment: %w", err)
	}
	result.RefundRequested = true

	log.FromContext(ctx).WithField("order_id", order.ID).Warn("Payment captured for an unfulfillable order, refund requested")

	return nil
}

func (o *Orchestrator) markFailed(ctx context.Context, order entity.Order, reason string) error {
	ok, err := o.orders.Transition(ctx, order.ID, entity.OrderPending, entity.OrderFailed, reason)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("order %s changed status concurrently", order.ID)
	}

	if err := o.outbox.Publish(ctx, event.NewOrderFailed(order, reason)); err != nil {
		return fmt.Errorf("publishing order failed: %w", err)
	}

	return nil
}

// abandon fails a pending order and frees its hold.
func (o *Orchestrator) abandon(ctx context.Context, orderID, reason string) error {
	return o.tx.WithTx(ctx, func(ctx context.Context) error {
		order, err := o.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != entity.OrderPending {
			return nil
		}

		if err := o.inventory.Release(ctx, order.ReservationID); err != nil {
			return fmt.Errorf("releasing reservation: %w", err)
		}

		return o.markFailed(ctx, order, reason)
	})
}

// ExpirePending fails pending orders whose hold has run out.
func (o *Orchestrator) ExpirePending(ctx context.Context) (int, error) {
	ids, err := o.orders.ListStalePending(ctx, o.clock.Now(), o.batchSize)
	if err != nil {
		return 0, err
	}

	var expired int
	var errs []error
	for _, id := range ids {
		if err := o.abandon(ctx, id, entity.FailureReservationExpired); err != nil {
			errs = append(errs, fmt.Errorf("expiring order %s: %w", id, err))
			continue
		}
		expired++
	}

	return expired, errors.Join(errs...)
}

func (o *Orchestrator) GetOrder(ctx context.Context, id string) (OrderDetails, error) {
	order, err := o.orders.Get(ctx, id)
	if err != nil {
		return OrderDetails{}, err
	}

	tickets, err := o.tickets.ListByOrder(ctx, id)
	if err != nil {
		return OrderDetails{}, err
	}

	return OrderDetails{
		Order:   order,
		Tickets: tickets,
	}, nil
}

func validateRequest(req Request) error {
	switch {
	case req.EventID == "":
		return entity.ValidationError{Field: "event_id", Reason: "is required"}
	case strings.TrimSpace(req.BuyerRef) == "":
		return entity.ValidationError{Field: "buyer_ref", Reason: "is required"}
	case len(req.Items) == 0:
		return entity.ValidationError{Field: "items", Reason: "cart is empty"}
	}

	for _, item := range req.Items {
		if item.TicketTypeID == "" {
			return entity.ValidationError{Field: "ticket_type_id", Reason: "is required"}
		}
		if item.Quantity <= 0 {
			return entity.ValidationError{Field: "quantity", Reason: "must be positive"}
		}
	}

	return nil
}
