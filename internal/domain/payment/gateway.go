// internal/domain/payment/gateway.go
package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/your-org/checkout-backend/internal/config"
)

var (
	// ErrGatewayUnavailable is returned when the gateway cannot be reached;
	// distinct from a rejection so callers can offer a retry
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayRejected is returned when the gateway refused the request
	ErrGatewayRejected = errors.New("payment gateway rejected the request")
)

// Intent is a payment attempt opened with the gateway. Its amount equals the
// order's final amount exactly; the client widget charges what the intent says.
type Intent struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway is the payment provider contract. Implementations must keep
// CreateIntent side-effect free on our side; the order is only touched after
// the intent id comes back.
type Gateway interface {
	CreateIntent(amount int64, receipt string) (*Intent, error)
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	ClientKeyID() string
}

// RazorpayGateway talks to the Razorpay orders API over basic auth
type RazorpayGateway struct {
	keyID      string
	keySecret  string
	baseURL    string
	currency   string
	httpClient *http.Client
}

// NewRazorpayGateway creates a gateway client from configuration
func NewRazorpayGateway(cfg *config.Config) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:     cfg.Payment.KeyID,
		keySecret: cfg.Payment.KeySecret,
		baseURL:   cfg.Payment.BaseURL,
		currency:  cfg.Payment.Currency,
		httpClient: &http.Client{
			Timeout: cfg.Payment.Timeout,
		},
	}
}

type createIntentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// CreateIntent opens a payment attempt for the given amount in minor units
func (g *RazorpayGateway) CreateIntent(amount int64, receipt string) (*Intent, error) {
	req := createIntentRequest{
		Amount:   amount,
		Currency: g.currency,
		Receipt:  receipt,
	}

	respBody, err := g.makeAPICall("POST", "/orders", req)
	if err != nil {
		return nil, err
	}

	var intent Intent
	if err := json.Unmarshal(respBody, &intent); err != nil {
		return nil, fmt.Errorf("failed to parse gateway order response: %w", err)
	}
	return &intent, nil
}

// VerifySignature checks the callback signature: HMAC-SHA256 over
// "<gatewayOrderID>|<gatewayPaymentID>" keyed with the API secret, compared in
// constant time.
func (g *RazorpayGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return VerifySignature(g.keySecret, gatewayOrderID, gatewayPaymentID, signature)
}

// ClientKeyID returns the publishable key the checkout widget needs
func (g *RazorpayGateway) ClientKeyID() string {
	return g.keyID
}

// VerifySignature is the raw signature check, exported for webhook handling
func VerifySignature(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// makeAPICall makes HTTP calls to the gateway API
func (g *RazorpayGateway) makeAPICall(method, endpoint string, data interface{}) ([]byte, error) {
	var reqBody []byte
	var err error

	if data != nil {
		reqBody, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
	}

	req, err := http.NewRequest(method, g.baseURL+endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrGatewayRejected, resp.StatusCode, respBody.String())
	}
	return respBody.Bytes(), nil
}
