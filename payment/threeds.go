package payment

import (
	"context"

	"acquiring-payment-sdk/models"
)

// ThreeDsChallenge describes the 3-D Secure step the caller's UI layer has
// to render. A nil challenge means the flow proceeds without one.
type ThreeDsChallenge interface {
	threeDsChallenge()
}

// Challenge1x is a 1.x browser redirect to the ACS.
type Challenge1x struct {
	ACSUrl string
	MD     string
	PaReq  string
}

// Challenge2xBrowser is a 2.x browser-based challenge.
type Challenge2xBrowser struct {
	ACSUrl           string
	TdsServerTransID string
	AcsTransID       string
	Version          string
}

// Challenge2xApp is a 2.x app-based challenge driven by the card scheme's
// SDK.
type Challenge2xApp struct {
	TdsServerTransID string
	AcsTransID       string
	AcsRefNumber     string
	AcsSignedContent string
	Version          string
}

func (Challenge1x) threeDsChallenge()        {}
func (Challenge2xBrowser) threeDsChallenge() {}
func (Challenge2xApp) threeDsChallenge()     {}

// ThreeDsDataCollector is the externally supplied device-fingerprint
// capability. It is invoked only when version negotiation lands on the 2.x
// path and the bank returned a server transaction id; its result is merged
// into the FinishAuthorize data map.
type ThreeDsDataCollector interface {
	Collect(ctx context.Context, check *models.Check3DSVersionResponse) (map[string]string, error)
}

// Negotiator decides which 3-D Secure protocol variant applies to a
// response.
type Negotiator struct {
	fallbackVersion string
	collector       ThreeDsDataCollector
	// appBasedSupported reports whether an app-based transaction can be
	// constructed for the given payment system on this device. Nil means
	// app-based challenges are unsupported.
	appBasedSupported func(paymentSystem string) bool
}

// NewNegotiator builds a negotiator. fallbackVersion is the major version
// assumed when the bank omits or returns an unrecognized version string.
func NewNegotiator(fallbackVersion string, collector ThreeDsDataCollector) *Negotiator {
	if fallbackVersion == "" {
		fallbackVersion = "2"
	}
	return &Negotiator{
		fallbackVersion: fallbackVersion,
		collector:       collector,
	}
}

// SupportAppBased installs the device's app-based capability check.
func (n *Negotiator) SupportAppBased(f func(paymentSystem string) bool) {
	n.appBasedSupported = f
}

// NegotiateVersion resolves the major protocol version from a
// Check3dsVersion response and, on the 2.x path, collects device data for
// the subsequent FinishAuthorize call.
func (n *Negotiator) NegotiateVersion(ctx context.Context, check *models.Check3DSVersionResponse) (string, map[string]string, error) {
	version := n.fallbackVersion
	if check.Version != "" && check.Version[0] == '2' {
		version = "2"
	} else if check.Version != "" && check.Version[0] == '1' {
		version = "1"
	}

	if version != "2" || check.TdsServerTransID == "" || n.collector == nil {
		return version, nil, nil
	}

	data, err := n.collector.Collect(ctx, check)
	if err != nil {
		return "", nil, &models.ProtocolError{Reason: "device data collection failed: " + err.Error()}
	}
	return version, data, nil
}

// Inspect decides which challenge, if any, a payment or attachment response
// demands. A confirmed/authorized status never yields a challenge; a
// checking status with neither the 1.x nor the 2.x field pair populated is a
// protocol error.
func (n *Negotiator) Inspect(status models.PaymentStatus, p models.ThreeDsPayload, version, paymentSystem string) (ThreeDsChallenge, error) {
	if status != models.Status3DSChecking {
		return nil, nil
	}

	if p.MD != "" && p.PaReq != "" {
		return Challenge1x{ACSUrl: p.ACSUrl, MD: p.MD, PaReq: p.PaReq}, nil
	}

	if p.TdsServerTransID != "" && p.AcsTransID != "" {
		if p.AcsSignedContent != "" && paymentSystem != "" &&
			n.appBasedSupported != nil && n.appBasedSupported(paymentSystem) {
			return Challenge2xApp{
				TdsServerTransID: p.TdsServerTransID,
				AcsTransID:       p.AcsTransID,
				AcsRefNumber:     p.AcsRefNumber,
				AcsSignedContent: p.AcsSignedContent,
				Version:          version,
			}, nil
		}
		return Challenge2xBrowser{
			ACSUrl:           p.ACSUrl,
			TdsServerTransID: p.TdsServerTransID,
			AcsTransID:       p.AcsTransID,
			Version:          version,
		}, nil
	}

	return nil, &models.ProtocolError{Reason: "no known 3-D Secure challenge shape in response"}
}
