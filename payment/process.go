package payment

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"acquiring-payment-sdk/models"
	"acquiring-payment-sdk/network"
)

// State is the orchestrator's current position in the payment flow.
type State int32

const (
	StateCreated State = iota
	StateStarted
	StateThreeDsUINeeded
	StatePolling
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateThreeDsUINeeded:
		return "3ds_ui_needed"
	case StatePolling:
		return "polling"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Listener is the callback surface UI layers subscribe to. Callbacks fire on
// the payment goroutine; each terminal callback is delivered at most once
// and never after Stop.
type Listener interface {
	OnSuccess(paymentID int64, cardID, rebillID string)
	OnUINeeded(challenge ThreeDsChallenge)
	OnError(err error, paymentID int64)
}

// StateError is a payment that reached a hard failure state on the bank
// side.
type StateError struct {
	PaymentID int64
	Status    models.PaymentStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("payment %d reached failure state %s", e.PaymentID, e.Status)
}

// api is the slice of the client the orchestrator drives.
type api interface {
	Init(ctx context.Context, o models.InitOptions) (*models.InitResponse, error)
	Check3DSVersion(ctx context.Context, paymentID int64, src models.CardSource) (*models.Check3DSVersionResponse, error)
	FinishAuthorize(ctx context.Context, o models.FinishAuthorizeOptions) (*models.FinishAuthorizeResponse, error)
	Charge(ctx context.Context, paymentID int64, rebillID string) (*models.ChargeResponse, error)
	GetState(ctx context.Context, paymentID int64) (*models.GetStateResponse, error)
	Submit3DSAuthorization(ctx context.Context, md, paRes string) (*models.Submit3DSAuthorizationResponse, error)
	Submit3DSAuthorizationV2(ctx context.Context, tdsServerTransID string) (*models.Submit3DSAuthorizationResponse, error)
}

var _ api = (*network.Client)(nil)

// PaymentOptions describes one payment attempt.
type PaymentOptions struct {
	OrderID     string
	// Amount is in minor currency units.
	Amount      int64
	CustomerKey string
	Description string
	// PaymentID, when non-zero, reuses an Init performed by a third party
	// (combined init flow) and skips the Init call.
	PaymentID int64
	// Source supplies card data; mutually exclusive with
	// EncryptedPaymentData.
	Source models.CardSource
	// EncryptedPaymentData is an opaque wallet token.
	EncryptedPaymentData string
	Email                string
	// Data is merged with device-fingerprint data collected during 3-D
	// Secure version negotiation.
	Data map[string]string
	// Recurrent registers a rebill token during Init.
	Recurrent bool
}

// RecurrentOptions describes a follow-up charge against a previously
// authorized rebill token. No card entry, no 3-D Secure.
type RecurrentOptions struct {
	OrderID     string
	Amount      int64
	CustomerKey string
	RebillID    string
}

// session is the ephemeral state of one payment attempt.
type session struct {
	paymentID     int64
	version       string
	paymentSystem string
	challenge     ThreeDsChallenge
	cardID        string
	rebillID      string
}

// Process orchestrates one payment attempt end to end: Init, 3-D Secure
// negotiation, FinishAuthorize, the challenge suspension point and status
// polling. A Process is single-use; run independent payments on independent
// Process instances.
type Process struct {
	api        api
	listener   Listener
	negotiator *Negotiator
	poller     *Poller
	logger     *log.Logger

	state     atomic.Int32
	disposed  atomic.Bool
	delivered atomic.Bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	session *session
}

// NewProcess builds a payment orchestrator on top of a client.
func NewProcess(client *network.Client, listener Listener) *Process {
	cfg := client.Config()
	return newProcess(client, listener, NewNegotiator(cfg.Fallback3DSVersion, nil))
}

func newProcess(a api, listener Listener, negotiator *Negotiator) *Process {
	return &Process{
		api:        a,
		listener:   listener,
		negotiator: negotiator,
		poller:     NewPoller(a, 0, 0),
		logger:     log.Default(),
	}
}

// SetThreeDsDataCollector installs the device-fingerprint collector used on
// the 2.x negotiation path. Call before Start.
func (p *Process) SetThreeDsDataCollector(c ThreeDsDataCollector) {
	p.negotiator.collector = c
}

// Negotiator exposes the 3-D Secure negotiator for capability configuration.
func (p *Process) Negotiator() *Negotiator { return p.negotiator }

// State returns the orchestrator's current state.
func (p *Process) State() State { return State(p.state.Load()) }

// Start runs the payment on its own goroutine. Results arrive through the
// listener.
func (p *Process) Start(ctx context.Context, o PaymentOptions) error {
	if !p.state.CompareAndSwap(int32(StateCreated), int32(StateStarted)) {
		return fmt.Errorf("payment already started (state %s)", p.State())
	}
	runCtx := p.attachCancel(ctx)
	go p.run(runCtx, o)
	return nil
}

// StartRecurrent runs the recurrent charge variant: Init then Charge, no
// card data and no 3-D Secure.
func (p *Process) StartRecurrent(ctx context.Context, o RecurrentOptions) error {
	if !p.state.CompareAndSwap(int32(StateCreated), int32(StateStarted)) {
		return fmt.Errorf("payment already started (state %s)", p.State())
	}
	runCtx := p.attachCancel(ctx)
	go p.runRecurrent(runCtx, o)
	return nil
}

// Stop disposes the payment: pending callbacks are suppressed and in-flight
// I/O is cancelled. Safe to call at any point, from any goroutine.
func (p *Process) Stop() {
	p.disposed.Store(true)
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (p *Process) attachCancel(ctx context.Context) context.Context {
	runCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	return runCtx
}

func (p *Process) run(ctx context.Context, o PaymentOptions) {
	s := &session{paymentID: o.PaymentID}
	p.setSession(s)

	if s.paymentID == 0 {
		initResp, err := p.api.Init(ctx, models.InitOptions{
			OrderID:     o.OrderID,
			Amount:      o.Amount,
			CustomerKey: o.CustomerKey,
			Description: o.Description,
			Recurrent:   o.Recurrent,
			Data:        o.Data,
		})
		if err != nil {
			p.fail(err, 0)
			return
		}
		s.paymentID = initResp.PaymentID
		p.logger.Printf("payment initialized: order %s, payment id %d", o.OrderID, s.paymentID)
	}

	data := make(map[string]string, len(o.Data))
	for k, v := range o.Data {
		data[k] = v
	}

	if o.Source != nil {
		check, err := p.api.Check3DSVersion(ctx, s.paymentID, o.Source)
		if err != nil {
			p.fail(err, s.paymentID)
			return
		}
		version, collected, err := p.negotiator.NegotiateVersion(ctx, check)
		if err != nil {
			p.fail(err, s.paymentID)
			return
		}
		s.version = version
		s.paymentSystem = check.PaymentSystem
		for k, v := range collected {
			data[k] = v
		}
	}

	fa, err := p.api.FinishAuthorize(ctx, models.FinishAuthorizeOptions{
		PaymentID:            s.paymentID,
		Source:               o.Source,
		EncryptedPaymentData: o.EncryptedPaymentData,
		SendEmail:            o.Email != "",
		InfoEmail:            o.Email,
		Data:                 data,
	})
	if err != nil {
		p.fail(err, s.paymentID)
		return
	}
	s.cardID = fa.CardID
	s.rebillID = fa.RebillID

	challenge, err := p.negotiator.Inspect(fa.Status, fa.ThreeDsPayload, s.version, s.paymentSystem)
	if err != nil {
		p.fail(err, s.paymentID)
		return
	}

	if challenge != nil {
		s.challenge = challenge
		p.state.Store(int32(StateThreeDsUINeeded))
		p.emitUINeeded(challenge)
		return
	}

	if fa.Status.IsTerminalSuccess() {
		p.succeed(s)
		return
	}
	p.pollAndFinish(ctx, s)
}

func (p *Process) runRecurrent(ctx context.Context, o RecurrentOptions) {
	s := &session{}
	p.setSession(s)

	initResp, err := p.api.Init(ctx, models.InitOptions{
		OrderID:     o.OrderID,
		Amount:      o.Amount,
		CustomerKey: o.CustomerKey,
	})
	if err != nil {
		p.fail(err, 0)
		return
	}
	s.paymentID = initResp.PaymentID

	charge, err := p.api.Charge(ctx, s.paymentID, o.RebillID)
	if err != nil {
		p.fail(err, s.paymentID)
		return
	}
	s.cardID = charge.CardID
	s.rebillID = charge.RebillID

	if charge.Status.IsTerminalSuccess() {
		p.succeed(s)
		return
	}
	p.pollAndFinish(ctx, s)
}

// ChallengeResult is the external 3-D Secure completion signal: the browser
// redirect result for 1.x, or the server transaction id for 2.x.
type ChallengeResult struct {
	// MD and PaRes are set for 1.x challenges.
	MD    string
	PaRes string
	// TdsServerTransID is set for 2.x challenges.
	TdsServerTransID string
}

// CompleteChallenge resumes a payment suspended on a 3-D Secure challenge.
// It submits the challenge result and re-enters status polling.
func (p *Process) CompleteChallenge(ctx context.Context, result ChallengeResult) error {
	if p.disposed.Load() {
		return models.ErrDisposed
	}
	if !p.state.CompareAndSwap(int32(StateThreeDsUINeeded), int32(StatePolling)) {
		return fmt.Errorf("no pending challenge (state %s)", p.State())
	}

	s := p.getSession()
	runCtx := p.attachCancel(ctx)
	go func() {
		var err error
		switch s.challenge.(type) {
		case Challenge1x:
			_, err = p.api.Submit3DSAuthorization(runCtx, result.MD, result.PaRes)
		default:
			_, err = p.api.Submit3DSAuthorizationV2(runCtx, result.TdsServerTransID)
		}
		if err != nil {
			p.fail(err, s.paymentID)
			return
		}
		p.pollAndFinish(runCtx, s)
	}()
	return nil
}

func (p *Process) pollAndFinish(ctx context.Context, s *session) {
	p.state.Store(int32(StatePolling))

	resp, err := p.poller.Poll(ctx, s.paymentID)
	if err != nil {
		p.fail(err, s.paymentID)
		return
	}

	switch {
	case resp.Status.IsTerminalSuccess():
		p.succeed(s)
	case resp.Status == models.StatusFormShowed:
		p.fail(&models.ProtocolError{Reason: "payment form is still awaiting user action"}, s.paymentID)
	default:
		p.fail(&StateError{PaymentID: s.paymentID, Status: resp.Status}, s.paymentID)
	}
}

func (p *Process) setSession(s *session) {
	p.mu.Lock()
	p.session = s
	p.mu.Unlock()
}

func (p *Process) getSession() *session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

func (p *Process) succeed(s *session) {
	if p.disposed.Load() || !p.delivered.CompareAndSwap(false, true) {
		return
	}
	p.state.Store(int32(StateSucceeded))
	p.logger.Printf("payment %d succeeded", s.paymentID)
	p.listener.OnSuccess(s.paymentID, s.cardID, s.rebillID)
}

func (p *Process) fail(err error, paymentID int64) {
	if p.disposed.Load() || !p.delivered.CompareAndSwap(false, true) {
		return
	}
	p.state.Store(int32(StateFailed))
	p.logger.Printf("payment %d failed: %v", paymentID, err)
	p.listener.OnError(err, paymentID)
}

func (p *Process) emitUINeeded(challenge ThreeDsChallenge) {
	if p.disposed.Load() {
		return
	}
	p.listener.OnUINeeded(challenge)
}
