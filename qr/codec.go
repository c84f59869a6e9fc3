package qr

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"boxoffice/entity"

	"golang.org/x/crypto/blake2b"
)

const prefix = "BX1."

var ErrInvalidPayload = errors.New("invalid ticket payload")

// Claims is what a printed QR code binds together.
type Claims struct {
	TicketID     string `json:"tid"`
	EventID      string `json:"eid"`
	TicketNumber string `json:"num"`
}

// Codec signs and verifies QR payloads with a keyed BLAKE2b MAC.
type Codec struct {
	key []byte
}

func NewCodec(key []byte) (*Codec, error) {
	if len(key) == 0 || len(key) > blake2b.Size {
		return nil, fmt.Errorf("signing key must be between 1 and %d bytes, got %d", blake2b.Size, len(key))
	}

	return &Codec{
		key: append([]byte(nil), key...),
	}, nil
}

func (c *Codec) Sign(ticket entity.Ticket) (string, error) {
	body, err := json.Marshal(Claims{
		TicketID:     ticket.ID,
		EventID:      ticket.EventID,
		TicketNumber: ticket.TicketNumber,
	})
	if err != nil {
		return "", fmt.Errorf("marshalling claims: %w", err)
	}

	mac, err := c.mac(body)
	if err != nil {
		return "", err
	}

	return prefix + base64.RawURLEncoding.EncodeToString(body) + "." + base64.RawURLEncoding.EncodeToString(mac), nil
}

func (c *Codec) Verify(payload string) (Claims, error) {
	encoded, ok := strings.CutPrefix(payload, prefix)
	if !ok {
		return Claims{}, ErrInvalidPayload
	}

	encodedBody, encodedMAC, ok := strings.Cut(encoded, ".")
	if !ok {
		return Claims{}, ErrInvalidPayload
	}

	body, err := base64.RawURLEncoding.DecodeString(encodedBody)
	if err != nil {
		return Claims{}, ErrInvalidPayload
	}
	got, err := base64.RawURLEncoding.DecodeString(encodedMAC)
	if err != nil {
		return Claims{}, ErrInvalidPayload
	}

	want, err := c.mac(body)
	if err != nil {
		return Claims{}, err
	}
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return Claims{}, ErrInvalidPayload
	}

	var claims Claims
	if err := json.Unmarshal(body, &claims); err != nil || claims.TicketNumber == "" {
		return Claims{}, ErrInvalidPayload
	}

	return claims, nil
}

// Normalize reduces whatever a scanner sent (a signed payload, a ticket URL or
// a typed ticket number) to the canonical ticket number.
func (c *Codec) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	if u, err := url.Parse(raw); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if number := u.Query().Get("ticket_number"); number != "" {
			raw = number
		} else {
			raw = path.Base(strings.TrimRight(u.Path, "/"))
		}
	}

	if strings.HasPrefix(raw, prefix) {
		claims, err := c.Verify(raw)
		if err != nil {
			return "", err
		}
		raw = claims.TicketNumber
	}

	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" || raw == "/" || raw == "." {
		return "", entity.ValidationError{Field: "ticket_number", Reason: "is required"}
	}

	return raw, nil
}

func (c *Codec) mac(body []byte) ([]byte, error) {
	h, err := blake2b.New256(c.key)
	if err != nil {
		return nil, fmt.Errorf("creating mac: %w", err)
	}
	h.Write(body)

	return h.Sum(nil), nil
}
