// Package notifications delivers transactional messages to customers. Order
// confirmation delivery is best-effort: failures are logged and never alter
// the outcome of the checkout that triggered them.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/audiophile-commerce/storefront-backend/pkg/config"
	pkgerrors "github.com/audiophile-commerce/storefront-backend/pkg/errors"
	"github.com/audiophile-commerce/storefront-backend/pkg/logger"
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

// OrderConfirmation is the payload sent to the customer after checkout.
type OrderConfirmation struct {
	CustomerName    string            `json:"customer_name"`
	CustomerEmail   string            `json:"customer_email"`
	OrderID         string            `json:"order_id"`
	Items           []types.CartItem  `json:"items"`
	Totals          types.OrderTotals `json:"totals"`
	ShippingAddress types.Address     `json:"shipping_address"`
}

// Service sends order confirmations.
type Service interface {
	SendOrderConfirmation(ctx context.Context, confirmation OrderConfirmation) error
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type gateway struct {
	client      httpDoer
	url         string
	fromAddress string
	maxAttempts int
	logg        *logger.Logger
}

// NewGateway builds a notification service that posts confirmations to the
// configured email gateway.
func NewGateway(cfg config.NotifierConfig, logg *logger.Logger) (Service, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("notifier gateway url required")
	}
	return &gateway{
		client:      &http.Client{Timeout: cfg.Timeout},
		url:         cfg.GatewayURL,
		fromAddress: cfg.FromAddress,
		maxAttempts: cfg.MaxAttempts,
		logg:        logg,
	}, nil
}

type gatewayPayload struct {
	From    string            `json:"from"`
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	Order   OrderConfirmation `json:"order"`
}

func (g *gateway) SendOrderConfirmation(ctx context.Context, confirmation OrderConfirmation) error {
	if confirmation.CustomerEmail == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email required")
	}

	body, err := json.Marshal(gatewayPayload{
		From:    g.fromAddress,
		To:      confirmation.CustomerEmail,
		Subject: fmt.Sprintf("Order confirmation %s", confirmation.OrderID),
		Order:   confirmation,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotification, err, "encode confirmation")
	}

	attempts := g.maxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(200*time.Millisecond))

	var attemptErrs error
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := g.post(ctx, body); err != nil {
			attemptErrs = multierr.Append(attemptErrs, err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		wrapped := pkgerrors.Wrap(pkgerrors.CodeNotification, attemptErrs, "send order confirmation")
		if g.logg != nil {
			g.logg.Error(g.logg.WithOrderID(ctx, confirmation.OrderID), "notifications.delivery.failed", wrapped)
		}
		return wrapped
	}
	return nil
}

func (g *gateway) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway responded %d", resp.StatusCode)
	}
	return nil
}
