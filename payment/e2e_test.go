package payment_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acquiring-payment-sdk/config"
	"acquiring-payment-sdk/mockbank"
	"acquiring-payment-sdk/models"
	"acquiring-payment-sdk/network"
	"acquiring-payment-sdk/payment"
)

const (
	testTerminalKey = "TestSDK"
	testPassword    = "12345678"
	eventWait       = 10 * time.Second
)

// jsonCardSource mimics the production tokenizer: the card fields travel
// base64-encoded, keyed off the terminal's public key.
type jsonCardSource struct {
	card models.CardData
}

func (s jsonCardSource) Encode(publicKey string) (string, error) {
	if err := s.card.Validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(map[string]string{
		"PAN":     s.card.Pan,
		"ExpDate": s.card.ExpDate,
		"CVV":     s.card.SecurityCode,
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func testCard() jsonCardSource {
	return jsonCardSource{card: models.CardData{
		Pan:          "4300000000000777",
		ExpDate:      "12/29",
		SecurityCode: "111",
	}}
}

type paymentResult struct {
	paymentID int64
	cardID    string
	rebillID  string
}

type recordedEvents struct {
	success chan paymentResult
	ui      chan payment.ThreeDsChallenge
	failure chan error
}

func newRecordedEvents() *recordedEvents {
	return &recordedEvents{
		success: make(chan paymentResult, 1),
		ui:      make(chan payment.ThreeDsChallenge, 1),
		failure: make(chan error, 1),
	}
}

func (e *recordedEvents) OnSuccess(paymentID int64, cardID, rebillID string) {
	e.success <- paymentResult{paymentID, cardID, rebillID}
}

func (e *recordedEvents) OnUINeeded(challenge payment.ThreeDsChallenge) { e.ui <- challenge }

func (e *recordedEvents) OnError(err error, paymentID int64) { e.failure <- err }

type recordedAttachEvents struct {
	attached     chan [2]string
	ui           chan payment.ThreeDsChallenge
	randomAmount chan struct{}
	failure      chan error
}

func newRecordedAttachEvents() *recordedAttachEvents {
	return &recordedAttachEvents{
		attached:     make(chan [2]string, 1),
		ui:           make(chan payment.ThreeDsChallenge, 1),
		randomAmount: make(chan struct{}, 1),
		failure:      make(chan error, 1),
	}
}

func (e *recordedAttachEvents) OnAttached(cardID, rebillID string) {
	e.attached <- [2]string{cardID, rebillID}
}

func (e *recordedAttachEvents) OnUINeeded(challenge payment.ThreeDsChallenge) { e.ui <- challenge }

func (e *recordedAttachEvents) OnRandomAmountNeeded() { e.randomAmount <- struct{}{} }

func (e *recordedAttachEvents) OnError(err error) { e.failure <- err }

func startBank(t *testing.T) (*mockbank.Bank, *network.Client) {
	t.Helper()
	bank := mockbank.New(testTerminalKey, testPassword)
	server := httptest.NewServer(bank.Router())
	t.Cleanup(server.Close)

	client := network.NewClient(config.ClientConfig{
		TerminalKey:   testTerminalKey,
		Password:      testPassword,
		PublicKey:     "test-public-key",
		DeveloperMode: true,
		CustomAPIURL:  server.URL,
	})
	return bank, client
}

func awaitSuccess(t *testing.T, events *recordedEvents) paymentResult {
	t.Helper()
	select {
	case ev := <-events.success:
		return ev
	case err := <-events.failure:
		t.Fatalf("unexpected failure: %v", err)
	case <-time.After(eventWait):
		t.Fatal("no terminal event")
	}
	return paymentResult{}
}

func TestEndToEndFrictionlessPayment(t *testing.T) {
	_, client := startBank(t)
	events := newRecordedEvents()
	p := payment.NewProcess(client, events)

	require.NoError(t, p.Start(context.Background(), payment.PaymentOptions{
		OrderID: "order-e2e-1",
		Amount:  2000,
		Source:  testCard(),
	}))

	ev := awaitSuccess(t, events)
	assert.Equal(t, "881900", ev.cardID)
	assert.Equal(t, payment.StateSucceeded, p.State())
}

func TestEndToEnd3DS1xChallenge(t *testing.T) {
	bank, client := startBank(t)
	bank.ThreeDsMode = mockbank.Mode3DS1x

	events := newRecordedEvents()
	p := payment.NewProcess(client, events)

	require.NoError(t, p.Start(context.Background(), payment.PaymentOptions{
		OrderID: "order-e2e-2",
		Amount:  2000,
		Source:  testCard(),
	}))

	var challenge payment.ThreeDsChallenge
	select {
	case challenge = <-events.ui:
	case err := <-events.failure:
		t.Fatalf("unexpected failure: %v", err)
	case <-time.After(eventWait):
		t.Fatal("no challenge event")
	}

	c1, ok := challenge.(payment.Challenge1x)
	require.True(t, ok, "expected a 1.x challenge, got %#v", challenge)
	assert.NotEmpty(t, c1.ACSUrl)
	assert.NotEmpty(t, c1.MD)
	assert.NotEmpty(t, c1.PaReq)

	require.NoError(t, p.CompleteChallenge(context.Background(), payment.ChallengeResult{
		MD:    c1.MD,
		PaRes: "pares-from-acs",
	}))
	awaitSuccess(t, events)
}

func TestEndToEnd2xBrowserChallenge(t *testing.T) {
	bank, client := startBank(t)
	bank.ThreeDsMode = mockbank.Mode3DS2x

	events := newRecordedEvents()
	p := payment.NewProcess(client, events)

	require.NoError(t, p.Start(context.Background(), payment.PaymentOptions{
		OrderID: "order-e2e-3",
		Amount:  2000,
		Source:  testCard(),
	}))

	var challenge payment.ThreeDsChallenge
	select {
	case challenge = <-events.ui:
	case err := <-events.failure:
		t.Fatalf("unexpected failure: %v", err)
	case <-time.After(eventWait):
		t.Fatal("no challenge event")
	}

	c2, ok := challenge.(payment.Challenge2xBrowser)
	require.True(t, ok, "expected a 2.x browser challenge, got %#v", challenge)
	assert.Equal(t, "2", c2.Version)
	assert.NotEmpty(t, c2.TdsServerTransID)

	require.NoError(t, p.CompleteChallenge(context.Background(), payment.ChallengeResult{
		TdsServerTransID: c2.TdsServerTransID,
	}))
	awaitSuccess(t, events)
}

func TestEndToEndRejectedPayment(t *testing.T) {
	bank, client := startBank(t)
	bank.RejectCode = "104"

	events := newRecordedEvents()
	p := payment.NewProcess(client, events)

	require.NoError(t, p.Start(context.Background(), payment.PaymentOptions{
		OrderID: "order-e2e-4",
		Amount:  2000,
		Source:  testCard(),
	}))

	select {
	case err := <-events.failure:
		var apiErr *models.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "104", apiErr.Code)
		assert.False(t, apiErr.UserVisible())
	case <-events.success:
		t.Fatal("rejected payment reported success")
	case <-time.After(eventWait):
		t.Fatal("no terminal event")
	}
}

func TestEndToEndRecurrentCharge(t *testing.T) {
	_, client := startBank(t)

	// First payment registers the rebill token.
	events := newRecordedEvents()
	p := payment.NewProcess(client, events)
	require.NoError(t, p.Start(context.Background(), payment.PaymentOptions{
		OrderID:     "order-e2e-5",
		Amount:      2000,
		CustomerKey: "customer-1",
		Source:      testCard(),
		Recurrent:   true,
	}))
	first := awaitSuccess(t, events)
	require.NotEmpty(t, first.rebillID, "recurrent payment must yield a rebill token")

	// Follow-up charge against the token, no card entry.
	events2 := newRecordedEvents()
	p2 := payment.NewProcess(client, events2)
	require.NoError(t, p2.StartRecurrent(context.Background(), payment.RecurrentOptions{
		OrderID:     "order-e2e-6",
		Amount:      3000,
		CustomerKey: "customer-1",
		RebillID:    first.rebillID,
	}))
	awaitSuccess(t, events2)
}

func TestEndToEndCardAttachment(t *testing.T) {
	_, client := startBank(t)
	ctx := context.Background()

	// A customer the bank has never seen has an empty list, not an error.
	cards, err := client.GetCardList(ctx, "customer-2")
	require.NoError(t, err)
	assert.Empty(t, cards)

	events := newRecordedAttachEvents()
	a := payment.NewAttachProcess(client, events)
	require.NoError(t, a.Start(ctx, payment.AttachOptions{
		CustomerKey: "customer-2",
		CheckType:   payment.CheckTypeNo,
		Source:      testCard(),
	}))

	var cardID string
	select {
	case ev := <-events.attached:
		cardID = ev[0]
		require.NotEmpty(t, cardID)
	case err := <-events.failure:
		t.Fatalf("unexpected failure: %v", err)
	case <-time.After(eventWait):
		t.Fatal("no attachment event")
	}

	cards, err = client.GetCardList(ctx, "customer-2")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, cardID, cards[0].CardID)

	_, err = client.RemoveCard(ctx, "customer-2", cardID)
	require.NoError(t, err)

	cards, err = client.GetCardList(ctx, "customer-2")
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestEndToEndCardAttachmentWith3DS(t *testing.T) {
	_, client := startBank(t)

	events := newRecordedAttachEvents()
	a := payment.NewAttachProcess(client, events)
	require.NoError(t, a.Start(context.Background(), payment.AttachOptions{
		CustomerKey: "customer-3",
		CheckType:   payment.CheckType3DS,
		Source:      testCard(),
	}))

	var challenge payment.ThreeDsChallenge
	select {
	case challenge = <-events.ui:
	case err := <-events.failure:
		t.Fatalf("unexpected failure: %v", err)
	case <-time.After(eventWait):
		t.Fatal("no challenge event")
	}

	c1, ok := challenge.(payment.Challenge1x)
	require.True(t, ok, "expected a 1.x challenge, got %#v", challenge)

	require.NoError(t, a.CompleteChallenge(context.Background(), payment.ChallengeResult{
		MD:    c1.MD,
		PaRes: "pares-from-acs",
	}))

	select {
	case ev := <-events.attached:
		assert.NotEmpty(t, ev[0])
	case err := <-events.failure:
		t.Fatalf("unexpected failure: %v", err)
	case <-time.After(eventWait):
		t.Fatal("no attachment event")
	}
}

func TestEndToEndCardAttachmentWithHold(t *testing.T) {
	bank, client := startBank(t)
	ctx := context.Background()

	events := newRecordedAttachEvents()
	a := payment.NewAttachProcess(client, events)
	require.NoError(t, a.Start(ctx, payment.AttachOptions{
		CustomerKey: "customer-4",
		CheckType:   payment.CheckTypeHold,
		Source:      testCard(),
	}))

	// The flow suspends on the verification hold instead of failing.
	select {
	case <-events.randomAmount:
	case err := <-events.failure:
		t.Fatalf("unexpected failure: %v", err)
	case <-time.After(eventWait):
		t.Fatal("no random-amount event")
	}

	require.NoError(t, a.ConfirmRandomAmount(ctx, bank.HoldAmount))

	select {
	case ev := <-events.attached:
		assert.NotEmpty(t, ev[0])
	case err := <-events.failure:
		t.Fatalf("unexpected failure: %v", err)
	case <-time.After(eventWait):
		t.Fatal("no attachment event")
	}
}

func TestEndToEndWrongRandomAmount(t *testing.T) {
	bank, client := startBank(t)
	ctx := context.Background()

	added, err := client.AddCard(ctx, "customer-5", payment.CheckTypeHold)
	require.NoError(t, err)
	require.NotEmpty(t, added.RequestKey)

	attached, err := client.AttachCard(ctx, added.RequestKey, testCard(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAuthorizing, attached.Status)

	// A wrong amount is a user-visible domain error.
	_, err = client.SubmitRandomAmount(ctx, added.RequestKey, bank.HoldAmount+1)
	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "225", apiErr.Code)
	assert.True(t, apiErr.UserVisible())

	// The held amount still completes the attachment afterwards.
	_, err = client.SubmitRandomAmount(ctx, added.RequestKey, bank.HoldAmount)
	require.NoError(t, err)

	state, err := client.GetAddCardState(ctx, added.RequestKey)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, state.Status)
	assert.NotEmpty(t, state.CardID)
}

func TestEndToEndCancel(t *testing.T) {
	_, client := startBank(t)
	ctx := context.Background()

	initResp, err := client.Init(ctx, models.InitOptions{
		OrderID: "order-e2e-7",
		Amount:  2000,
	})
	require.NoError(t, err)

	resp, err := client.Cancel(ctx, initResp.PaymentID, 0)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, resp.Status)
	assert.Equal(t, int64(2000), resp.OriginalAmount)

	// Partial cancellation leaves the remainder on the payment.
	initResp, err = client.Init(ctx, models.InitOptions{
		OrderID: "order-e2e-8",
		Amount:  2000,
	})
	require.NoError(t, err)

	resp, err = client.Cancel(ctx, initResp.PaymentID, 500)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartialRefunded, resp.Status)
	assert.Equal(t, int64(1500), resp.NewAmount)
}
