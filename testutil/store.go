// Package testutil provides an in-memory implementation of the repositories
// for exercising the inventory, checkout and check-in flows without Postgres.
// Transactions are serialized behind one mutex and rolled back by restoring a
// snapshot, so concurrent callers observe the same isolation the row locks give.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"boxoffice/entity"
)

type txKey struct{}

type Message struct {
	Command bool
	Payload any
}

type state struct {
	ticketTypes   map[string]entity.TicketType
	reservations  map[string]entity.Reservation
	orders        map[string]entity.Order
	confirmations map[string]string
	tickets       map[string]entity.Ticket
	messages      []Message
}

func (s state) clone() state {
	c := state{
		ticketTypes:   make(map[string]entity.TicketType, len(s.ticketTypes)),
		reservations:  make(map[string]entity.Reservation, len(s.reservations)),
		orders:        make(map[string]entity.Order, len(s.orders)),
		confirmations: make(map[string]string, len(s.confirmations)),
		tickets:       make(map[string]entity.Ticket, len(s.tickets)),
		messages:      append([]Message(nil), s.messages...),
	}
	for k, v := range s.ticketTypes {
		c.ticketTypes[k] = v
	}
	for k, v := range s.reservations {
		v.Items = append([]entity.ReservationItem(nil), v.Items...)
		c.reservations[k] = v
	}
	for k, v := range s.orders {
		v.Items = append([]entity.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	for k, v := range s.confirmations {
		c.confirmations[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}

	return c
}

type Store struct {
	mu    sync.Mutex
	state state
}

func NewStore() *Store {
	return &Store{
		state: state{}.clone(),
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.state = snapshot
		return err
	}

	return nil
}

func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if ctx.Value(txKey{}) == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	return fn(&s.state)
}

func (s *Store) TicketTypes() TicketTypes {
	return TicketTypes{s}
}

func (s *Store) Reservations() Reservations {
	return Reservations{s}
}

func (s *Store) Orders() Orders {
	return Orders{s}
}

func (s *Store) Tickets() Tickets {
	return Tickets{s}
}

func (s *Store) Outbox() Outbox {
	return Outbox{s}
}

// Messages returns everything published through the outbox by committed
// transactions.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Message(nil), s.state.messages...)
}

func MessagesOf[T any](s *Store) []T {
	var out []T
	for _, m := range s.Messages() {
		if v, ok := m.Payload.(T); ok {
			out = append(out, v)
		}
	}

	return out
}

type TicketTypes struct {
	s *Store
}

func (r TicketTypes) Add(ctx context.Context, tt entity.TicketType) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.ticketTypes[tt.ID]; ok {
			return fmt.Errorf("ticket type %s already exists", tt.ID)
		}
		st.ticketTypes[tt.ID] = tt
		return nil
	})
}

func (r TicketTypes) Update(ctx context.Context, tt entity.TicketType) error {
	return r.s.do(ctx, func(st *state) error {
		current, ok := st.ticketTypes[tt.ID]
		if !ok {
			return entity.ErrTicketTypeNotFound
		}
		tt.Sold = current.Sold
		tt.Held = current.Held
		tt.CreatedAt = current.CreatedAt
		st.ticketTypes[tt.ID] = tt
		return nil
	})
}

func (r TicketTypes) Get(ctx context.Context, id string) (entity.TicketType, error) {
	var tt entity.TicketType
	err := r.s.do(ctx, func(st *state) error {
		var ok bool
		tt, ok = st.ticketTypes[id]
		if !ok {
			return entity.ErrTicketTypeNotFound
		}
		return nil
	})

	return tt, err
}

func (r TicketTypes) GetForUpdate(ctx context.Context, id string) (entity.TicketType, error) {
	return r.Get(ctx, id)
}

func (r TicketTypes) ListByEvent(ctx context.Context, eventID string) ([]entity.TicketType, error) {
	var out []entity.TicketType
	err := r.s.do(ctx, func(st *state) error {
		for _, tt := range st.ticketTypes {
			if tt.EventID == eventID {
				out = append(out, tt)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out, err
}

func (r TicketTypes) LockMany(ctx context.Context, ids []string) ([]entity.TicketType, error) {
	var out []entity.TicketType
	err := r.s.do(ctx, func(st *state) error {
		for _, id := range ids {
			if tt, ok := st.ticketTypes[id]; ok {
				out = append(out, tt)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out, err
}

func (r TicketTypes) AdjustCounters(ctx context.Context, id string, heldDelta, soldDelta int) error {
	return r.s.do(ctx, func(st *state) error {
		tt, ok := st.ticketTypes[id]
		if !ok {
			return fmt.Errorf("unexpected exec result: 0 rows affected")
		}
		tt.Held += heldDelta
		tt.Sold += soldDelta
		if tt.Held < 0 || tt.Sold < 0 || tt.Held+tt.Sold > tt.Quantity {
			return fmt.Errorf("ticket type %s allocation out of bounds: sold %d held %d quantity %d", id, tt.Sold, tt.Held, tt.Quantity)
		}
		st.ticketTypes[id] = tt
		return nil
	})
}

type Reservations struct {
	s *Store
}

func (r Reservations) Add(ctx context.Context, reservation entity.Reservation) error {
	return r.s.do(ctx, func(st *state) error {
		reservation.Items = append([]entity.ReservationItem(nil), reservation.Items...)
		st.reservations[reservation.ID] = reservation
		return nil
	})
}

func (r Reservations) Get(ctx context.Context, id string) (entity.Reservation, error) {
	var reservation entity.Reservation
	err := r.s.do(ctx, func(st *state) error {
		var ok bool
		reservation, ok = st.reservations[id]
		if !ok {
			return entity.ErrReservationNotFound
		}
		reservation.Items = append([]entity.ReservationItem(nil), reservation.Items...)
		return nil
	})

	return reservation, err
}

func (r Reservations) GetForUpdate(ctx context.Context, id string) (entity.Reservation, error) {
	return r.Get(ctx, id)
}

func (r Reservations) Transition(ctx context.Context, id string, from, to entity.ReservationState, at time.Time) (bool, error) {
	var ok bool
	err := r.s.do(ctx, func(st *state) error {
		reservation, found := st.reservations[id]
		if !found || reservation.State != from {
			return nil
		}
		reservation.State = to
		reservation.ResolvedAt = &at
		st.reservations[id] = reservation
		ok = true
		return nil
	})

	return ok, err
}

func (r Reservations) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var expired []entity.Reservation
	err := r.s.do(ctx, func(st *state) error {
		for _, reservation := range st.reservations {
			if reservation.State == entity.ReservationActive && reservation.Expired(now) {
				expired = append(expired, reservation)
			}
		}
		return nil
	})
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})

	var ids []string
	for i, reservation := range expired {
		if i == limit {
			break
		}
		ids = append(ids, reservation.ID)
	}

	return ids, err
}

type Orders struct {
	s *Store
}

func (r Orders) Add(ctx context.Context, order entity.Order) error {
	return r.s.do(ctx, func(st *state) error {
		order.Items = append([]entity.OrderItem(nil), order.Items...)
		st.orders[order.ID] = order
		return nil
	})
}

func (r Orders) Get(ctx context.Context, id string) (entity.Order, error) {
	var order entity.Order
	err := r.s.do(ctx, func(st *state) error {
		var ok bool
		order, ok = st.orders[id]
		if !ok {
			return entity.ErrOrderNotFound
		}
		order.Items = append([]entity.OrderItem(nil), order.Items...)
		return nil
	})

	return order, err
}

func (r Orders) GetForUpdate(ctx context.Context, id string) (entity.Order, error) {
	return r.Get(ctx, id)
}

func (r Orders) GetByReferenceForUpdate(ctx context.Context, reference string) (entity.Order, error) {
	var order entity.Order
	err := r.s.do(ctx, func(st *state) error {
		for _, o := range st.orders {
			if o.PaymentReference != "" && o.PaymentReference == reference {
				order = o
				order.Items = append([]entity.OrderItem(nil), o.Items...)
				return nil
			}
		}
		return entity.ErrOrderNotFound
	})

	return order, err
}

func (r Orders) SetPaymentReference(ctx context.Context, id, reference, authorizationURL string) error {
	return r.s.do(ctx, func(st *state) error {
		for _, o := range st.orders {
			if o.ID != id && o.PaymentReference == reference {
				return fmt.Errorf("payment reference %s already in use", reference)
			}
		}
		order, ok := st.orders[id]
		if !ok || order.Status != entity.OrderPending {
			return fmt.Errorf("order %s is no longer pending", id)
		}
		order.PaymentReference = reference
		order.AuthorizationURL = authorizationURL
		st.orders[id] = order
		return nil
	})
}

func (r Orders) Transition(ctx context.Context, id string, from, to entity.OrderStatus, failureReason string) (bool, error) {
	var ok bool
	err := r.s.do(ctx, func(st *state) error {
		order, found := st.orders[id]
		if !found || order.Status != from {
			return nil
		}
		order.Status = to
		order.FailureReason = failureReason
		st.orders[id] = order
		ok = true
		return nil
	})

	return ok, err
}

func (r Orders) RecordConfirmation(ctx context.Context, reference, outcome string, _ time.Time) (bool, error) {
	var first bool
	err := r.s.do(ctx, func(st *state) error {
		key := reference + "/" + outcome
		if _, ok := st.confirmations[key]; ok {
			return nil
		}
		st.confirmations[key] = outcome
		first = true
		return nil
	})

	return first, err
}

func (r Orders) ListStalePending(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	err := r.s.do(ctx, func(st *state) error {
		for _, order := range st.orders {
			if order.Status != entity.OrderPending {
				continue
			}
			if reservation, ok := st.reservations[order.ReservationID]; ok && reservation.Expired(now) {
				ids = append(ids, order.ID)
			}
		}
		return nil
	})
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	return ids, err
}

type Tickets struct {
	s *Store
}

func (r Tickets) Add(ctx context.Context, tickets ...entity.Ticket) error {
	return r.s.do(ctx, func(st *state) error {
		for _, ticket := range tickets {
			for _, existing := range st.tickets {
				if existing.TicketNumber == ticket.TicketNumber {
					return fmt.Errorf("ticket number %s collides with an existing ticket", ticket.TicketNumber)
				}
			}
			st.tickets[ticket.ID] = ticket
		}
		return nil
	})
}

func (r Tickets) Get(ctx context.Context, id string) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := r.s.do(ctx, func(st *state) error {
		var ok bool
		ticket, ok = st.tickets[id]
		if !ok {
			return entity.ErrTicketNotFound
		}
		return nil
	})

	return ticket, err
}

func (r Tickets) GetByNumber(ctx context.Context, ticketNumber string) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := r.s.do(ctx, func(st *state) error {
		for _, t := range st.tickets {
			if t.TicketNumber == ticketNumber {
				ticket = t
				return nil
			}
		}
		return entity.ErrTicketNotFound
	})

	return ticket, err
}

func (r Tickets) ListByOrder(ctx context.Context, orderID string) ([]entity.Ticket, error) {
	var out []entity.Ticket
	err := r.s.do(ctx, func(st *state) error {
		for _, t := range st.tickets {
			if t.OrderID == orderID {
				out = append(out, t)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].TicketNumber < out[j].TicketNumber
	})

	return out, err
}

func (r Tickets) MarkUsed(ctx context.Context, id string, at time.Time) (entity.Ticket, bool, error) {
	return r.transition(ctx, id, func(t *entity.Ticket) {
		t.Status = entity.TicketUsed
		t.CheckedInAt = &at
	})
}

func (r Tickets) MarkCancelled(ctx context.Context, id string, at time.Time) (entity.Ticket, bool, error) {
	return r.transition(ctx, id, func(t *entity.Ticket) {
		t.Status = entity.TicketCancelled
		t.CancelledAt = &at
	})
}

func (r Tickets) transition(ctx context.Context, id string, apply func(t *entity.Ticket)) (entity.Ticket, bool, error) {
	var ticket entity.Ticket
	var ok bool
	err := r.s.do(ctx, func(st *state) error {
		t, found := st.tickets[id]
		if !found || t.Status != entity.TicketConfirmed {
			return nil
		}
		apply(&t)
		st.tickets[id] = t
		ticket = t
		ok = true
		return nil
	})

	return ticket, ok, err
}

type Outbox struct {
	s *Store
}

func (o Outbox) Publish(ctx context.Context, event any) error {
	if ctx.Value(txKey{}) == nil {
		return fmt.Errorf("outbox requires a transaction in context")
	}
	o.s.state.messages = append(o.s.state.messages, Message{Payload: event})

	return nil
}

func (o Outbox) Send(ctx context.Context, cmd any) error {
	if ctx.Value(txKey{}) == nil {
		return fmt.Errorf("outbox requires a transaction in context")
	}
	o.s.state.messages = append(o.s.state.messages, Message{Command: true, Payload: cmd})

	return nil
}
