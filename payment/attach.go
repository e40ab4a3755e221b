package payment

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"acquiring-payment-sdk/models"
	"acquiring-payment-sdk/network"
)

// Check types for AddCard.
const (
	CheckTypeNo      = "NO"
	CheckTypeHold    = "HOLD"
	CheckType3DS     = "3DS"
	CheckType3DSHold = "3DSHOLD"
)

// AttachListener receives the outcome of a card attachment.
type AttachListener interface {
	OnAttached(cardID, rebillID string)
	OnUINeeded(challenge ThreeDsChallenge)
	// OnRandomAmountNeeded fires when the bank has placed a verification
	// hold and is waiting for ConfirmRandomAmount.
	OnRandomAmountNeeded()
	OnError(err error)
}

type attachAPI interface {
	AddCard(ctx context.Context, customerKey, checkType string) (*models.AddCardResponse, error)
	AttachCard(ctx context.Context, requestKey string, src models.CardSource, data map[string]string) (*models.AttachCardResponse, error)
	GetAddCardState(ctx context.Context, requestKey string) (*models.GetAddCardStateResponse, error)
	SubmitRandomAmount(ctx context.Context, requestKey string, amount int64) (*models.Submit3DSAuthorizationResponse, error)
	Submit3DSAuthorization(ctx context.Context, md, paRes string) (*models.Submit3DSAuthorizationResponse, error)
	Submit3DSAuthorizationV2(ctx context.Context, tdsServerTransID string) (*models.Submit3DSAuthorizationResponse, error)
}

var _ attachAPI = (*network.Client)(nil)

// AttachOptions describes one card attachment attempt.
type AttachOptions struct {
	CustomerKey string
	// CheckType selects the attachment verification: NO, HOLD, 3DS or
	// 3DSHOLD.
	CheckType string
	Source    models.CardSource
	Data      map[string]string
}

// AttachProcess orchestrates attaching a card to a customer: AddCard,
// AttachCard, the optional 3-D Secure or random-amount verification, and the
// attachment status check. Single-use, like Process.
type AttachProcess struct {
	api        attachAPI
	listener   AttachListener
	negotiator *Negotiator
	logger     *log.Logger

	disposed  atomic.Bool
	delivered atomic.Bool

	mu         sync.Mutex
	cancel     context.CancelFunc
	requestKey string
	challenge  ThreeDsChallenge
}

// NewAttachProcess builds a card attachment orchestrator.
func NewAttachProcess(client *network.Client, listener AttachListener) *AttachProcess {
	cfg := client.Config()
	return newAttachProcess(client, listener, NewNegotiator(cfg.Fallback3DSVersion, nil))
}

func newAttachProcess(api attachAPI, listener AttachListener, negotiator *Negotiator) *AttachProcess {
	return &AttachProcess{
		api:        api,
		listener:   listener,
		negotiator: negotiator,
		logger:     log.Default(),
	}
}

// Start runs the attachment on its own goroutine.
func (a *AttachProcess) Start(ctx context.Context, o AttachOptions) error {
	if o.Source == nil {
		return &models.ConfigError{Field: "Source", Reason: "required"}
	}
	if o.CheckType == "" {
		o.CheckType = CheckTypeNo
	}

	go a.run(a.attachCancel(ctx), o)
	return nil
}

func (a *AttachProcess) attachCancel(ctx context.Context) context.Context {
	runCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	return runCtx
}

// Stop disposes the attachment; the listener will not be called again.
func (a *AttachProcess) Stop() {
	a.disposed.Store(true)
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (a *AttachProcess) run(ctx context.Context, o AttachOptions) {
	added, err := a.api.AddCard(ctx, o.CustomerKey, o.CheckType)
	if err != nil {
		a.fail(err)
		return
	}

	a.mu.Lock()
	a.requestKey = added.RequestKey
	a.mu.Unlock()

	attached, err := a.api.AttachCard(ctx, added.RequestKey, o.Source, o.Data)
	if err != nil {
		a.fail(err)
		return
	}

	challenge, err := a.negotiator.Inspect(attached.Status, attached.ThreeDsPayload, "", "")
	if err != nil {
		a.fail(err)
		return
	}
	if challenge != nil {
		a.mu.Lock()
		a.challenge = challenge
		a.mu.Unlock()
		if !a.disposed.Load() {
			a.listener.OnUINeeded(challenge)
		}
		return
	}

	// A HOLD check parks the attachment on the verification hold until the
	// customer confirms the amount; suspend instead of polling into a
	// failure.
	if attached.Status == models.StatusAuthorizing &&
		(o.CheckType == CheckTypeHold || o.CheckType == CheckType3DSHold) {
		if !a.disposed.Load() {
			a.listener.OnRandomAmountNeeded()
		}
		return
	}

	a.finish(ctx)
}

// CompleteChallenge resumes an attachment suspended on a 3-D Secure
// challenge.
func (a *AttachProcess) CompleteChallenge(ctx context.Context, result ChallengeResult) error {
	if a.disposed.Load() {
		return models.ErrDisposed
	}
	a.mu.Lock()
	challenge := a.challenge
	a.challenge = nil
	a.mu.Unlock()
	if challenge == nil {
		return fmt.Errorf("no pending challenge")
	}

	runCtx := a.attachCancel(ctx)
	go func() {
		var err error
		switch challenge.(type) {
		case Challenge1x:
			_, err = a.api.Submit3DSAuthorization(runCtx, result.MD, result.PaRes)
		default:
			_, err = a.api.Submit3DSAuthorizationV2(runCtx, result.TdsServerTransID)
		}
		if err != nil {
			a.fail(err)
			return
		}
		a.finish(runCtx)
	}()
	return nil
}

// ConfirmRandomAmount completes a HOLD-type attachment by submitting the
// amount the bank held on the card.
func (a *AttachProcess) ConfirmRandomAmount(ctx context.Context, amount int64) error {
	if a.disposed.Load() {
		return models.ErrDisposed
	}
	a.mu.Lock()
	requestKey := a.requestKey
	a.mu.Unlock()
	if requestKey == "" {
		return fmt.Errorf("attachment has not been started")
	}

	runCtx := a.attachCancel(ctx)
	go func() {
		if _, err := a.api.SubmitRandomAmount(runCtx, requestKey, amount); err != nil {
			a.fail(err)
			return
		}
		a.finish(runCtx)
	}()
	return nil
}

// finish polls GetAddCardState with the same small bound the payment poller
// uses.
func (a *AttachProcess) finish(ctx context.Context) {
	a.mu.Lock()
	requestKey := a.requestKey
	a.mu.Unlock()

	var last *models.GetAddCardStateResponse
	for attempt := 1; attempt <= DefaultPollAttempts; attempt++ {
		state, err := a.api.GetAddCardState(ctx, requestKey)
		if err != nil {
			a.fail(err)
			return
		}
		last = state

		switch {
		case state.Status == models.StatusCompleted || state.Status.IsTerminalSuccess():
			a.succeed(state.CardID, state.RebillID)
			return
		case state.Status.IsFailure():
			a.fail(&models.ProtocolError{Reason: fmt.Sprintf("card attachment ended in state %s", state.Status)})
			return
		}

		if attempt == DefaultPollAttempts {
			break
		}
		select {
		case <-ctx.Done():
			a.fail(ctx.Err())
			return
		case <-time.After(DefaultPollInterval):
		}
	}

	a.fail(&models.ProtocolError{
		Reason: fmt.Sprintf("unexpected card attachment state %s after %d attempts", last.Status, DefaultPollAttempts),
	})
}

func (a *AttachProcess) succeed(cardID, rebillID string) {
	if a.disposed.Load() || !a.delivered.CompareAndSwap(false, true) {
		return
	}
	a.logger.Printf("card %s attached", cardID)
	a.listener.OnAttached(cardID, rebillID)
}

func (a *AttachProcess) fail(err error) {
	if a.disposed.Load() || !a.delivered.CompareAndSwap(false, true) {
		return
	}
	a.logger.Printf("card attachment failed: %v", err)
	a.listener.OnError(err)
}
