package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acquiring-payment-sdk/models"
)

type mapCollector map[string]string

func (c mapCollector) Collect(ctx context.Context, check *models.Check3DSVersionResponse) (map[string]string, error) {
	return c, nil
}

type failingCollector struct{}

func (failingCollector) Collect(ctx context.Context, check *models.Check3DSVersionResponse) (map[string]string, error) {
	return nil, errors.New("fingerprint unavailable")
}

func TestInspectChallenge1x(t *testing.T) {
	n := NewNegotiator("2", nil)

	challenge, err := n.Inspect(models.Status3DSChecking, models.ThreeDsPayload{
		ACSUrl: "https://acs.example",
		MD:     "m1",
		PaReq:  "p1",
	}, "1", "")
	require.NoError(t, err)

	c1, ok := challenge.(Challenge1x)
	require.True(t, ok, "expected a 1.x challenge, got %#v", challenge)
	assert.Equal(t, "https://acs.example", c1.ACSUrl)
	assert.Equal(t, "m1", c1.MD)
	assert.Equal(t, "p1", c1.PaReq)
}

func TestInspectChallenge2xBrowser(t *testing.T) {
	n := NewNegotiator("2", nil)

	challenge, err := n.Inspect(models.Status3DSChecking, models.ThreeDsPayload{
		ACSUrl:           "https://acs.example",
		TdsServerTransID: "tds-1",
		AcsTransID:       "acs-1",
	}, "2", "")
	require.NoError(t, err)

	c2, ok := challenge.(Challenge2xBrowser)
	require.True(t, ok, "expected a 2.x browser challenge, got %#v", challenge)
	assert.Equal(t, "tds-1", c2.TdsServerTransID)
	assert.Equal(t, "2", c2.Version)
}

func TestInspectChallenge2xAppBased(t *testing.T) {
	payload := models.ThreeDsPayload{
		TdsServerTransID: "tds-1",
		AcsTransID:       "acs-1",
		AcsRefNumber:     "ref-1",
		AcsSignedContent: "signed",
	}

	// Without an app-based capability the same payload degrades to a
	// browser challenge.
	n := NewNegotiator("2", nil)
	challenge, err := n.Inspect(models.Status3DSChecking, payload, "2", "MC")
	require.NoError(t, err)
	_, ok := challenge.(Challenge2xBrowser)
	assert.True(t, ok)

	n.SupportAppBased(func(paymentSystem string) bool { return paymentSystem == "MC" })
	challenge, err = n.Inspect(models.Status3DSChecking, payload, "2", "MC")
	require.NoError(t, err)
	app, ok := challenge.(Challenge2xApp)
	require.True(t, ok, "expected an app-based challenge, got %#v", challenge)
	assert.Equal(t, "signed", app.AcsSignedContent)

	// Unsupported payment system falls back to browser.
	challenge, err = n.Inspect(models.Status3DSChecking, payload, "2", "VISA")
	require.NoError(t, err)
	_, ok = challenge.(Challenge2xBrowser)
	assert.True(t, ok)
}

func TestInspectNoChallengeOnTerminalStatus(t *testing.T) {
	n := NewNegotiator("2", nil)

	// Confirmed/authorized yields no challenge regardless of field
	// population.
	for _, status := range []models.PaymentStatus{models.StatusConfirmed, models.StatusAuthorized} {
		challenge, err := n.Inspect(status, models.ThreeDsPayload{MD: "m1", PaReq: "p1"}, "1", "")
		require.NoError(t, err)
		assert.Nil(t, challenge)
	}
}

func TestInspectUnrecognizedShapeIsProtocolError(t *testing.T) {
	n := NewNegotiator("2", nil)

	_, err := n.Inspect(models.Status3DSChecking, models.ThreeDsPayload{}, "2", "")
	var protoErr *models.ProtocolError
	require.ErrorAs(t, err, &protoErr)

	// A lone MD without PaReq is equally unrecognizable.
	_, err = n.Inspect(models.Status3DSChecking, models.ThreeDsPayload{MD: "m1"}, "2", "")
	require.ErrorAs(t, err, &protoErr)
}

func TestNegotiateVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("declared version beats the fallback", func(t *testing.T) {
		n := NewNegotiator("1", nil)
		version, _, err := n.NegotiateVersion(ctx, &models.Check3DSVersionResponse{Version: "2.1.0"})
		require.NoError(t, err)
		assert.Equal(t, "2", version)

		n = NewNegotiator("2", nil)
		version, _, err = n.NegotiateVersion(ctx, &models.Check3DSVersionResponse{Version: "1.0.2"})
		require.NoError(t, err)
		assert.Equal(t, "1", version)
	})

	t.Run("absent version uses the configured fallback", func(t *testing.T) {
		n := NewNegotiator("1", nil)
		version, _, err := n.NegotiateVersion(ctx, &models.Check3DSVersionResponse{})
		require.NoError(t, err)
		assert.Equal(t, "1", version)

		n = NewNegotiator("2", nil)
		version, _, err = n.NegotiateVersion(ctx, &models.Check3DSVersionResponse{Version: "weird"})
		require.NoError(t, err)
		assert.Equal(t, "2", version)
	})

	t.Run("2.x path with server trans id collects device data", func(t *testing.T) {
		n := NewNegotiator("2", mapCollector{"screen_width": "1080"})
		version, data, err := n.NegotiateVersion(ctx, &models.Check3DSVersionResponse{
			Version:          "2.1.0",
			TdsServerTransID: "tds-1",
		})
		require.NoError(t, err)
		assert.Equal(t, "2", version)
		assert.Equal(t, map[string]string{"screen_width": "1080"}, data)
	})

	t.Run("no server trans id skips collection", func(t *testing.T) {
		n := NewNegotiator("2", mapCollector{"k": "v"})
		_, data, err := n.NegotiateVersion(ctx, &models.Check3DSVersionResponse{Version: "2.1.0"})
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("collector failure is a protocol error", func(t *testing.T) {
		n := NewNegotiator("2", failingCollector{})
		_, _, err := n.NegotiateVersion(ctx, &models.Check3DSVersionResponse{
			Version:          "2.1.0",
			TdsServerTransID: "tds-1",
		})
		var protoErr *models.ProtocolError
		require.ErrorAs(t, err, &protoErr)
	})
}
