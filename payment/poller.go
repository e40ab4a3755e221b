package payment

import (
	"context"
	"fmt"
	"log"
	"time"

	"acquiring-payment-sdk/models"
)

// Polling defaults: this is a short confirmation wait right after a
// synchronous bank call, not a long-lived job, so the bound stays small and
// exceeding it is surfaced instead of silently retried.
const (
	DefaultPollAttempts = 2
	DefaultPollInterval = time.Second
)

type stateFetcher interface {
	GetState(ctx context.Context, paymentID int64) (*models.GetStateResponse, error)
}

// Poller repeatedly queries payment status until a terminal state or the
// attempt budget runs out.
type Poller struct {
	api         stateFetcher
	maxAttempts int
	interval    time.Duration
	logger      *log.Logger
}

// NewPoller builds a poller. Zero maxAttempts or interval selects the
// defaults.
func NewPoller(api stateFetcher, maxAttempts int, interval time.Duration) *Poller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollAttempts
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		api:         api,
		maxAttempts: maxAttempts,
		interval:    interval,
		logger:      log.Default(),
	}
}

// Poll issues GetState until the payment settles. It returns as soon as the
// status is terminal (success or hard failure) or FORM_SHOWED — the payment
// is still awaiting user action and the caller decides whether to re-enter.
// A non-terminal status after the last attempt is a protocol error.
func (p *Poller) Poll(ctx context.Context, paymentID int64) (*models.GetStateResponse, error) {
	var last *models.GetStateResponse

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		resp, err := p.api.GetState(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		last = resp

		if resp.Status.IsTerminal() || resp.Status == models.StatusFormShowed {
			return resp, nil
		}

		if attempt == p.maxAttempts {
			break
		}

		p.logger.Printf("payment %d still %s, retrying in %v", paymentID, resp.Status, p.interval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.interval):
		}
	}

	return last, &models.ProtocolError{
		Reason: fmt.Sprintf("unexpected payment state %s after %d attempts", last.Status, p.maxAttempts),
	}
}
