// Package notify delivers transaction status changes to user webhooks.
package notify

import (
	"bytes"                         // Request body
	"context"                       // Request cancellation
	"encoding/json"                 // Payload encoding
	"fmt"                           // Error wrapping
	"io"                            // Response draining
	"ledger_system/internal/domain" // Transaction model
	"net/http"                      // Webhook client
	"time"                          // Request timeout

	"github.com/sirupsen/logrus" // Logging library
)

// Outcome is the result of one delivery attempt.
type Outcome int

const (
	Delivered Outcome = iota // Webhook answered 2xx
	Skipped                  // Owner has no webhook
	Failed                   // Transport error or non-2xx answer
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Payload is the JSON body posted to a webhook.
type Payload struct {
	UserID        uint                     `json:"user_id"`        // Owner
	TransactionID uint                     `json:"transaction_id"` // Transaction ID
	Status        domain.TransactionStatus `json:"status"`         // New status
}

// Dispatcher posts a single best-effort notification per call. It never retries and
// never returns an error; failures are logged and reported as Failed.
type Dispatcher struct {
	client *http.Client       // Bounded, redirect-free client
	log    logrus.FieldLogger // Delivery logger
}

// NewDispatcher creates a Dispatcher whose requests are bounded by timeout.
func NewDispatcher(timeout time.Duration, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		client: &http.Client{
			Timeout: timeout,
			// A redirect would be a second call; report it as a failed delivery instead
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: log,
	}
}

// Notify posts the transaction's current status to its owner's webhook URL.
// Transactions whose owner has no webhook are skipped without a network call.
func (d *Dispatcher) Notify(ctx context.Context, tx domain.Transaction) Outcome {
	log := d.log.WithFields(logrus.Fields{
		"transaction_id": tx.ID,     // Transaction ID
		"user_id":        tx.UserID, // Owner
		"status":         tx.Status, // Reported status
	})

	url := tx.User.Webhook() // Empty when the owner registered none
	if url == "" {
		log.Info("No webhook registered, notification skipped")
		return Skipped
	}

	payload := Payload{UserID: tx.UserID, TransactionID: tx.ID, Status: tx.Status}
	if err := d.post(ctx, url, payload); err != nil {
		log.WithField("error", err.Error()).Warn("Webhook delivery failed")
		return Failed
	}
	log.Info("Webhook delivered")
	return Delivered
}

func (d *Dispatcher) post(ctx context.Context, url string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json") // JSON body

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()                                       // Close response body
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10)) // Drain so the connection is reused

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
