package inventory

import (
	"sort"

	"boxoffice/entity"
)

// normalizeCart merges repeated ticket types and sorts the lines into lock order.
func normalizeCart(cart []entity.CartLine) ([]entity.CartLine, error) {
	if len(cart) == 0 {
		return nil, entity.ValidationError{Field: "items", Reason: "cart is empty"}
	}

	quantities := make(map[string]int, len(cart))
	for _, line := range cart {
		line.TicketTypeID = entity.CanonicalID(line.TicketTypeID)
		if line.TicketTypeID == "" {
			return nil, entity.ValidationError{Field: "ticket_type_id", Reason: "is required"}
		}
		if line.Quantity <= 0 {
			return nil, entity.ValidationError{Field: "quantity", Reason: "must be positive"}
		}
		quantities[line.TicketTypeID] += line.Quantity
	}

	lines := make([]entity.CartLine, 0, len(quantities))
	for id, quantity := range quantities {
		lines = append(lines, entity.CartLine{TicketTypeID: id, Quantity: quantity})
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].TicketTypeID < lines[j].TicketTypeID
	})

	return lines, nil
}
