package clients

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"boxoffice/checkout"
	"boxoffice/entity"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const PaystackSignatureHeader = "X-Paystack-Signature"

var ErrAuthorizationRejected = errors.New("payment provider rejected authorization")

type PaystackConfig struct {
	BaseURL     string
	SecretKey   string
	CallbackURL string
	Timeout     time.Duration
}

// PaystackClient creates hosted payment authorizations. Confirmations arrive
// separately on the payment webhook.
type PaystackClient struct {
	baseURL     string
	secretKey   string
	callbackURL string
	httpClient  *http.Client
}

func NewPaystackClient(cfg PaystackConfig) *PaystackClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &PaystackClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:   cfg.SecretKey,
		callbackURL: cfg.CallbackURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type initializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

func (c *PaystackClient) CreateAuthorization(ctx context.Context, order entity.Order, reference string) (checkout.Authorization, error) {
	total := order.Total()

	body, err := json.Marshal(initializeRequest{
		Email:       order.BuyerRef,
		Amount:      total.MinorUnits(),
		Currency:    total.Currency,
		Reference:   reference,
		CallbackURL: c.callbackURL,
		Metadata: map[string]string{
			"order_id": order.ID,
			"event_id": order.EventID,
		},
	})
	if err != nil {
		return checkout.Authorization{}, fmt.Errorf("marshalling initialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return checkout.Authorization{}, fmt.Errorf("creating initialize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Correlation-ID", log.CorrelationIDFromContext(ctx))

	res, err := c.httpClient.Do(req)
	if err != nil {
		return checkout.Authorization{}, fmt.Errorf("sending initialize request: %w", err)
	}
	defer res.Body.Close()

	var payload initializeResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return checkout.Authorization{}, fmt.Errorf("decoding initialize response (status %d): %w", res.StatusCode, err)
	}

	if res.StatusCode != http.StatusOK || !payload.Status || payload.Data.AuthorizationURL == "" {
		return checkout.Authorization{}, fmt.Errorf("%w: status %d: %s", ErrAuthorizationRejected, res.StatusCode, payload.Message)
	}

	ref := payload.Data.Reference
	if ref == "" {
		ref = reference
	}

	return checkout.Authorization{
		URL:       payload.Data.AuthorizationURL,
		Reference: ref,
	}, nil
}

// VerifyWebhookSignature checks the hex HMAC-SHA512 of body under secret.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	expected, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(expected) == 0 {
		return false
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)

	return hmac.Equal(mac.Sum(nil), expected)
}

func SignWebhook(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}
