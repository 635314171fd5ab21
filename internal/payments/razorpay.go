package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type RazorpayAdapter struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

func NewRazorpayAdapter(keyID, keySecret string) *RazorpayAdapter {
	return &RazorpayAdapter{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   "https://api.razorpay.com",
		// Every gateway call is bounded; on expiry the caller sees
		// ErrGatewayUnavailable.
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateOrder opens a Razorpay order. Amounts are converted to paise at this
// boundary; everywhere else in the system they are whole rupees.
func (r *RazorpayAdapter) CreateOrder(ctx context.Context, amount int64, receipt string) (string, error) {
	payload := map[string]any{
		"amount":   amount * 100,
		"currency": "INR",
		"receipt":  receipt,
		"notes": map[string]string{
			"receipt": receipt,
		},
	}

	body, _ := json.Marshal(payload)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/orders", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("razorpay order request: %w", err)
	}
	httpReq.SetBasicAuth(r.keyID, r.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: order create failed http=%d body=%s", ErrGatewayUnavailable, resp.StatusCode, string(raw))
	}

	var res struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("%w: order decode: %v body=%s", ErrGatewayUnavailable, err, string(raw))
	}
	if res.ID == "" {
		return "", fmt.Errorf("%w: order response missing id body=%s", ErrGatewayUnavailable, string(raw))
	}

	return res.ID, nil
}

// VerifySignature checks the callback signature Razorpay computes as
// HMAC-SHA256 hex over "orderID|paymentID" with the key secret. A mismatch is
// a normal false, never an error.
func (r *RazorpayAdapter) VerifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(r.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
