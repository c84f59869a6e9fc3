package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"boxoffice/clock"
	"boxoffice/entity"
	"boxoffice/metrics"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
)

const DefaultTTL = 15 * time.Minute

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type TicketTypeStore interface {
	LockMany(ctx context.Context, ids []string) ([]entity.TicketType, error)
	AdjustCounters(ctx context.Context, id string, heldDelta, soldDelta int) error
}

type ReservationStore interface {
	Add(ctx context.Context, reservation entity.Reservation) error
	GetForUpdate(ctx context.Context, id string) (entity.Reservation, error)
	Transition(ctx context.Context, id string, from, to entity.ReservationState, at time.Time) (bool, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error)
}

type Config struct {
	TTL            time.Duration
	SweepBatchSize int
}

// Manager owns the sold and held counters of every ticket type. All counter
// movements happen under row locks taken in ascending ticket type order.
type Manager struct {
	tx           Transactor
	ticketTypes  TicketTypeStore
	reservations ReservationStore
	clock        clock.Clock
	config       Config
}

func NewManager(
	tx Transactor,
	ticketTypes TicketTypeStore,
	reservations ReservationStore,
	c clock.Clock,
	config Config,
) *Manager {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.SweepBatchSize <= 0 {
		config.SweepBatchSize = 100
	}

	return &Manager{
		tx:           tx,
		ticketTypes:  ticketTypes,
		reservations: reservations,
		clock:        c,
		config:       config,
	}
}

// TryReserve holds every line of the cart or nothing at all.
func (m *Manager) TryReserve(ctx context.Context, eventID string, cart []entity.CartLine) (entity.Reservation, error) {
	eventID = entity.CanonicalID(eventID)
	if eventID == "" {
		return entity.Reservation{}, entity.ValidationError{Field: "event_id", Reason: "is required"}
	}

	lines, err := normalizeCart(cart)
	if err != nil {
		return entity.Reservation{}, err
	}

	now := m.clock.Now()

	var reservation entity.Reservation
	err = m.tx.WithTx(ctx, func(ctx context.Context) error {
		ids := make([]string, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.TicketTypeID)
		}

		locked, err := m.ticketTypes.LockMany(ctx, ids)
		if err != nil {
			if errors.Is(err, entity.ErrTicketTypeNotFound) {
				return &LineError{TicketTypeID: ids[0], Err: entity.ErrTicketTypeNotFound}
			}
			return fmt.Errorf("locking ticket types: %w", err)
		}

		byID := make(map[string]entity.TicketType, len(locked))
		for _, tt := range locked {
			byID[tt.ID] = tt
		}

		items := make([]entity.ReservationItem, 0, len(lines))
		for _, line := range lines {
			tt, ok := byID[line.TicketTypeID]
			if !ok || tt.EventID != eventID {
				return &LineError{TicketTypeID: line.TicketTypeID, Requested: line.Quantity, Err: entity.ErrTicketTypeNotFound}
			}
			if err := checkLine(tt, line, now); err != nil {
				return err
			}

			items = append(items, entity.ReservationItem{
				TicketTypeID: tt.ID,
				Quantity:     line.Quantity,
				UnitPrice:    tt.Price,
			})
		}

		for _, item := range items {
			if err := m.ticketTypes.AdjustCounters(ctx, item.TicketTypeID, item.Quantity, 0); err != nil {
				return err
			}
		}

		reservation = entity.Reservation{
			ID:        uuid.NewString(),
			EventID:   eventID,
			State:     entity.ReservationActive,
			ExpiresAt: now.Add(m.config.TTL),
			CreatedAt: now,
		}
		for i := range items {
			items[i].ReservationID = reservation.ID
		}
		reservation.Items = items

		return m.reservations.Add(ctx, reservation)
	})
	if err != nil {
		metrics.ObserveReservation(reservationResult(err))
		return entity.Reservation{}, err
	}

	metrics.ObserveReservation("reserved")
	log.FromContext(ctx).
		WithField("reservation_id", reservation.ID).
		WithField("tickets", reservation.TotalQuantity()).
		Info("Reserved tickets")

	return reservation, nil
}

func checkLine(tt entity.TicketType, line entity.CartLine, now time.Time) error {
	available := tt.Available()
	lineErr := func(err error) error {
		return &LineError{TicketTypeID: tt.ID, Requested: line.Quantity, Available: available, Err: err}
	}

	if !tt.SaleOpen(now) {
		return lineErr(ErrSaleWindowClosed)
	}
	if tt.MaxPerOrder > 0 && line.Quantity > tt.MaxPerOrder {
		return lineErr(ErrMaxPerOrderExceeded)
	}
	if line.Quantity > available {
		return lineErr(ErrInsufficientInventory)
	}

	return nil
}

// Commit converts a hold into sold tickets. Committing a committed
// reservation is a no-op that returns the same reservation.
func (m *Manager) Commit(ctx context.Context, reservationID string) (entity.Reservation, error) {
	now := m.clock.Now()

	var reservation entity.Reservation
	var expired bool
	err := m.tx.WithTx(ctx, func(ctx context.Context) error {
		r, err := m.reservations.GetForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}

		switch r.State {
		case entity.ReservationCommitted:
			reservation = r
			return nil
		case entity.ReservationReleased:
			return ErrAlreadyReleased
		}

		if r.Expired(now) {
			// The release is persisted even though the caller gets an error.
			if err := m.release(ctx, r, now, "expired"); err != nil {
				return err
			}
			expired = true
			return nil
		}

		if err := m.moveCounters(ctx, r, -1, 1); err != nil {
			return err
		}

		ok, err := m.reservations.Transition(ctx, r.ID, entity.ReservationActive, entity.ReservationCommitted, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("reservation %s changed state concurrently", r.ID)
		}

		r.State = entity.ReservationCommitted
		r.ResolvedAt = &now
		reservation = r

		return nil
	})
	if err != nil {
		return entity.Reservation{}, err
	}
	if expired {
		return entity.Reservation{}, ErrReservationExpired
	}

	return reservation, nil
}

// Release returns held tickets to the available pool. Releasing a released
// reservation is a no-op.
func (m *Manager) Release(ctx context.Context, reservationID string) error {
	now := m.clock.Now()

	return m.tx.WithTx(ctx, func(ctx context.Context) error {
		r, err := m.reservations.GetForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}

		switch r.State {
		case entity.ReservationReleased:
			return nil
		case entity.ReservationCommitted:
			return ErrAlreadyCommitted
		}

		return m.release(ctx, r, now, "cancelled")
	})
}

// SweepExpired releases holds whose expiry has passed. Each hold is released
// in its own short transaction and re-checked under its row lock.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	now := m.clock.Now()

	ids, err := m.reservations.ListExpired(ctx, now, m.config.SweepBatchSize)
	if err != nil {
		return 0, err
	}

	var released int
	var errs []error
	for _, id := range ids {
		var didRelease bool
		err := m.tx.WithTx(ctx, func(ctx context.Context) error {
			r, err := m.reservations.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if r.State != entity.ReservationActive || !r.Expired(now) {
				return nil
			}

			didRelease = true
			return m.release(ctx, r, now, "expired")
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("releasing reservation %s: %w", id, err))
			continue
		}
		if didRelease {
			released++
		}
	}

	if released > 0 {
		log.FromContext(ctx).WithField("released", released).Info("Released expired reservations")
	}

	return released, errors.Join(errs...)
}

func (m *Manager) release(ctx context.Context, r entity.Reservation, now time.Time, reason string) error {
	if err := m.moveCounters(ctx, r, -1, 0); err != nil {
		return err
	}

	ok, err := m.reservations.Transition(ctx, r.ID, entity.ReservationActive, entity.ReservationReleased, now)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("reservation %s changed state concurrently", r.ID)
	}

	metrics.ObserveRelease(reason)

	return nil
}

// moveCounters locks the reservation's ticket types in ascending order, then
// shifts each item's quantity out of held (and into sold when soldSign is 1).
func (m *Manager) moveCounters(ctx context.Context, r entity.Reservation, heldSign, soldSign int) error {
	if _, err := m.ticketTypes.LockMany(ctx, r.TicketTypeIDs()); err != nil {
		return fmt.Errorf("locking ticket types: %w", err)
	}

	items := append([]entity.ReservationItem(nil), r.Items...)
	sort.Slice(items, func(i, j int) bool {
		return items[i].TicketTypeID < items[j].TicketTypeID
	})

	for _, item := range items {
		if err := m.ticketTypes.AdjustCounters(ctx, item.TicketTypeID, heldSign*item.Quantity, soldSign*item.Quantity); err != nil {
			return err
		}
	}

	return nil
}

func reservationResult(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientInventory):
		return "insufficient_inventory"
	case errors.Is(err, ErrSaleWindowClosed):
		return "sale_window_closed"
	case errors.Is(err, ErrMaxPerOrderExceeded):
		return "max_per_order_exceeded"
	case errors.Is(err, entity.ErrTicketTypeNotFound):
		return "not_found"
	default:
		return "error"
	}
}
