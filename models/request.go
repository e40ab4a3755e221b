package models

// API method names understood by the acquiring backend.
const (
	MethodInit                    = "Init"
	MethodFinishAuthorize         = "FinishAuthorize"
	MethodCheck3DSVersion         = "Check3dsVersion"
	MethodCharge                  = "Charge"
	MethodGetState                = "GetState"
	MethodCancel                  = "Cancel"
	MethodAddCard                 = "AddCard"
	MethodAttachCard              = "AttachCard"
	MethodGetAddCardState         = "GetAddCardState"
	MethodGetCardList             = "GetCardList"
	MethodRemoveCard              = "RemoveCard"
	MethodSubmitRandomAmount      = "SubmitRandomAmount"
	MethodSubmit3DSAuthorization  = "Submit3DSAuthorization"
	MethodSubmit3DSAuthorization2 = "Submit3DSAuthorizationV2"
)

// Fields that never participate in token computation. The bank's signing
// scheme only covers scalar top-level fields.
var tokenExcludedFields = map[string]struct{}{
	"Receipt":  {},
	"Receipts": {},
	"Shops":    {},
	"DATA":     {},
}

// Request is a typed, immutable description of one API operation. It is
// constructed by one of the New*Request builders, consumed once by the
// transport and then discarded.
type Request struct {
	apiMethod string
	fields    map[string]interface{}
	signed    bool
}

func newRequest(apiMethod string, signed bool) *Request {
	return &Request{
		apiMethod: apiMethod,
		fields:    make(map[string]interface{}),
		signed:    signed,
	}
}

// APIMethod returns the operation name, e.g. "Init".
func (r *Request) APIMethod() string { return r.apiMethod }

// SignRequired reports whether the transport must attach a Token field.
func (r *Request) SignRequired() bool { return r.signed }

// Fields returns a copy of the request's field map.
func (r *Request) Fields() map[string]interface{} {
	out := make(map[string]interface{}, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// Field returns one field's value.
func (r *Request) Field(name string) (interface{}, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// TokenInputFields returns the fields that participate in token computation:
// everything except nested/array fields and the Token field itself. Nil
// values are dropped, not stringified.
func (r *Request) TokenInputFields() map[string]interface{} {
	out := make(map[string]interface{}, len(r.fields))
	for k, v := range r.fields {
		if _, excluded := tokenExcludedFields[k]; excluded {
			continue
		}
		if k == "Token" || v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// SetToken attaches the computed token. Called by the transport immediately
// before dispatch; the request is not otherwise mutated after construction.
func (r *Request) SetToken(token string) {
	r.fields["Token"] = token
}

func (r *Request) set(name string, value interface{}) {
	if value == nil {
		return
	}
	if s, ok := value.(string); ok && s == "" {
		return
	}
	r.fields[name] = value
}

// Receipt is a fiscalization payload forwarded to the bank untouched. It is
// excluded from token computation.
type Receipt map[string]interface{}

// InitOptions describes an Init call.
type InitOptions struct {
	TerminalKey string
	OrderID     string
	// Amount is in minor currency units (kopecks).
	Amount      int64
	CustomerKey string
	Description string
	Recurrent   bool
	PayType     string
	Language    string
	// Data is merchant free-form data, excluded from signing.
	Data    map[string]string
	Receipt Receipt
}

// NewInitRequest builds an Init request.
func NewInitRequest(o InitOptions) (*Request, error) {
	if o.TerminalKey == "" {
		return nil, &ConfigError{Field: "TerminalKey", Reason: "required"}
	}
	if o.OrderID == "" {
		return nil, &ConfigError{Field: "OrderId", Reason: "required"}
	}
	if o.Amount < 0 {
		return nil, &ConfigError{Field: "Amount", Reason: "must be non-negative"}
	}

	r := newRequest(MethodInit, true)
	r.set("TerminalKey", o.TerminalKey)
	r.set("OrderId", o.OrderID)
	r.set("Amount", o.Amount)
	r.set("CustomerKey", o.CustomerKey)
	r.set("Description", o.Description)
	r.set("PayType", o.PayType)
	r.set("Language", o.Language)
	if o.Recurrent {
		r.set("Recurrent", "Y")
	}
	if len(o.Data) > 0 {
		r.set("DATA", o.Data)
	}
	if len(o.Receipt) > 0 {
		r.set("Receipt", map[string]interface{}(o.Receipt))
	}
	return r, nil
}

// FinishAuthorizeOptions describes a FinishAuthorize call. Exactly one of
// Source (card data via the external encoder) or EncryptedPaymentData (a
// wallet token) must be supplied.
type FinishAuthorizeOptions struct {
	TerminalKey string
	PaymentID   int64
	// Source encodes card data with PublicKey before dispatch.
	Source    CardSource
	PublicKey string
	// EncryptedPaymentData is an opaque wallet token.
	EncryptedPaymentData string
	SendEmail            bool
	InfoEmail            string
	// Data carries the device-fingerprint map merged in by 3-D Secure
	// version negotiation, plus any merchant extras.
	Data map[string]string
}

// NewFinishAuthorizeRequest builds a FinishAuthorize request.
func NewFinishAuthorizeRequest(o FinishAuthorizeOptions) (*Request, error) {
	if o.TerminalKey == "" {
		return nil, &ConfigError{Field: "TerminalKey", Reason: "required"}
	}
	if o.PaymentID <= 0 {
		return nil, &ConfigError{Field: "PaymentId", Reason: "required"}
	}
	if (o.Source == nil) == (o.EncryptedPaymentData == "") {
		return nil, &ConfigError{Field: "CardData", Reason: "exactly one of card source or encrypted payment data is required"}
	}

	r := newRequest(MethodFinishAuthorize, true)
	r.set("TerminalKey", o.TerminalKey)
	r.set("PaymentId", o.PaymentID)
	if o.Source != nil {
		encoded, err := o.Source.Encode(o.PublicKey)
		if err != nil {
			return nil, &ConfigError{Field: "CardData", Reason: "card source encoding failed: " + err.Error()}
		}
		r.set("CardData", encoded)
	} else {
		r.set("EncryptedPaymentData", o.EncryptedPaymentData)
	}
	if o.SendEmail {
		r.set("SendEmail", true)
		r.set("InfoEmail", o.InfoEmail)
	}
	if len(o.Data) > 0 {
		r.set("DATA", o.Data)
	}
	return r, nil
}

// NewCheck3DSVersionRequest builds a Check3dsVersion request.
func NewCheck3DSVersionRequest(terminalKey string, paymentID int64, src CardSource, publicKey string) (*Request, error) {
	if terminalKey == "" {
		return nil, &ConfigError{Field: "TerminalKey", Reason: "required"}
	}
	if paymentID <= 0 {
		return nil, &ConfigError{Field: "PaymentId", Reason: "required"}
	}
	if src == nil {
		return nil, &ConfigError{Field: "CardData", Reason: "required"}
	}
	encoded, err := src.Encode(publicKey)
	if err != nil {
		return nil, &ConfigError{Field: "CardData", Reason: "card source encoding failed: " + err.Error()}
	}

	r := newRequest(MethodCheck3DSVersion, true)
	r.set("TerminalKey", terminalKey)
	r.set("PaymentId", paymentID)
	r.set("CardData", encoded)
	return r, nil
}

// NewChargeRequest builds a recurrent Charge request against a previously
// authorized rebill token.
func NewChargeRequest(terminalKey string, paymentID int64, rebillID string) (*Request, error) {
	if terminalKey == "" {
		return nil, &ConfigError{Field: "TerminalKey", Reason: "required"}
	}
	if paymentID <= 0 {
		return nil, &ConfigError{Field: "PaymentId", Reason: "required"}
	}
	if rebillID == "" {
		return nil, &ConfigError{Field: "RebillId", Reason: "required"}
	}

	r := newRequest(MethodCharge, true)
	r.set("TerminalKey", terminalKey)
	r.set("PaymentId", paymentID)
	r.set("RebillId", rebillID)
	return r, nil
}

// NewGetStateRequest builds a GetState status check. Status checks are GET
// endpoints and opt out of signing.
func NewGetStateRequest(terminalKey string, paymentID int64) (*Request, error) {
	if terminalKey == "" {
		return nil, &ConfigError{Field: "TerminalKey", Reason: "required"}
	}
	if paymentID <= 0 {
		return nil, &ConfigError{Field: "PaymentId", Reason: "required"}
	}

	r := newRequest(MethodGetState, false)
	r.set("TerminalKey", terminalKey)
	r.set("PaymentId", paymentID)
	return r, nil
}

// NewCancelRequest builds a Cancel request. A zero amount cancels the full
// payment; a positive amount performs a partial cancel.
func NewCancelRequest(terminalKey string, paymentID int64, amount int64) (*Request, error) {
	if terminalKey == "" {
		return nil, &ConfigError{Field: "TerminalKey", Reason: "required"}
	}
	if paymentID <= 0 {
		return nil, &ConfigError{Field: "PaymentId", Reason: "required"}
	}
	if amount < 0 {
		return nil, &ConfigError{Field: "Amount", Reason: "must be non-negative"}
	}

	r := newRequest(MethodCancel, true)
	r.set("TerminalKey", terminalKey)
	r.set("PaymentId", paymentID)
	if amount > 0 {
		r.set("Amount", amount)
	}
	return r, nil
}

// NewAddCardRequest begins a card attachment for a customer. checkType is
// NO, HOLD, 3DS or 3DSHOLD.
func NewAddCardRequest(terminalKey, customerKey, checkType string) (*Request, error) {
	if terminalKey == "" {
		return nil, &ConfigError{Field: "TerminalKey", Reason: "required"}
	}
	if customerKey == "" {
		return nil, &ConfigError{Field: "CustomerKey", Reason: "required"}
	}

	r := newRequest(MethodAddCard, true)
	r.set("TerminalKey", terminalKey)
	r.set("CustomerKey", customerKey)
	r.set("CheckType", checkType)
	return r, nil
}

// NewAttachCardRequest submits card data for a pending attachment.
func NewAttachCardRequest(terminalKey, requestKey string, src CardSource, publicKey string, data map[string]string) (*Request, error) {
	if terminalKey == "" {
		return nil, &ConfigError{Field: "TerminalKey", Reason: "required"}
	}
	if requestKey == "" {
		return nil, &ConfigError{Field: "RequestKey", Reason: "required"}
	}
	if src == nil {
		return nil, &ConfigError{Field: "CardData", Reason: "required"}
	}
	encoded, err := src.Encode(publicKey)
	if err != nil {
		return nil, &ConfigError{Field: "CardData", Reason: "card source encoding failed: " + err.Error()}
	}

	r := newRequest(MethodAttachCard, true)
	r.set("TerminalKey", terminalKey)
	r.set("RequestKey", requestKey)
	r.set("CardData", encoded)
	if len(data) > 0 {
		r.set("DATA", data)
	}
	return r, nil
}

// NewGetAddCardStateRequest builds a GetAddCardState status check. Like
// GetState it is a GET endpoint and opts out of signing.
func NewGetAddCardStateRequest(terminalKey, requestKey string) (*Request, error) {
	if terminalKey == "" {
		return nil, &ConfigError{Field: "TerminalKey", Reason: "required"}
	}
	if requestKey == "" {
		return nil, &ConfigError{Field: "RequestKey", Reason: "required"}
	}

	r := newRequest(MethodGetAddCardState, false)
	r.set("TerminalKey", terminalKey)
	r.set("RequestKey", requestKey)
	return r, nil
}

// NewGetCardListRequest builds a GetCardList request.
func NewGetCardListRequest(terminalKey, customerKey string) (*Request, error) {
	if terminalKey == "" {
		return nil, &ConfigError{Field: "TerminalKey", Reason: "required"}
	}
	if customerKey == "" {
		return nil, &ConfigError{Field: "CustomerKey", Reason: "required"}
	}

	r := newRequest(MethodGetCardList, true)
	r.set("TerminalKey", terminalKey)
	r.set("CustomerKey", customerKey)
	return r, nil
}

// NewRemoveCardRequest builds a RemoveCard request.
func NewRemoveCardRequest(terminalKey, customerKey, cardID string) (*Request, error) {
	if terminalKey == "" {
		return nil, &ConfigError{Field: "TerminalKey", Reason: "required"}
	}
	if customerKey == "" {
		return nil, &ConfigError{Field: "CustomerKey", Reason: "required"}
	}
	if cardID == "" {
		return nil, &ConfigError{Field: "CardId", Reason: "required"}
	}

	r := newRequest(MethodRemoveCard, true)
	r.set("TerminalKey", terminalKey)
	r.set("CustomerKey", customerKey)
	r.set("CardId", cardID)
	return r, nil
}

// NewSubmitRandomAmountRequest confirms a card attachment by submitting the
// random hold amount. Legacy (form-encoded) endpoint.
func NewSubmitRandomAmountRequest(terminalKey, requestKey string, amount int64) (*Request, error) {
	if terminalKey == "" {
		return nil, &ConfigError{Field: "TerminalKey", Reason: "required"}
	}
	if requestKey == "" {
		return nil, &ConfigError{Field: "RequestKey", Reason: "required"}
	}
	if amount <= 0 {
		return nil, &ConfigError{Field: "Amount", Reason: "must be positive"}
	}

	r := newRequest(MethodSubmitRandomAmount, true)
	r.set("TerminalKey", terminalKey)
	r.set("RequestKey", requestKey)
	r.set("Amount", amount)
	return r, nil
}

// NewSubmit3DSAuthorizationRequest completes a 3-D Secure 1.x challenge with
// the ACS redirect result. Legacy (form-encoded) endpoint.
func NewSubmit3DSAuthorizationRequest(terminalKey, md, paRes string) (*Request, error) {
	if terminalKey == "" {
		return nil, &ConfigError{Field: "TerminalKey", Reason: "required"}
	}
	if md == "" {
		return nil, &ConfigError{Field: "MD", Reason: "required"}
	}
	if paRes == "" {
		return nil, &ConfigError{Field: "PaRes", Reason: "required"}
	}

	r := newRequest(MethodSubmit3DSAuthorization, true)
	r.set("TerminalKey", terminalKey)
	r.set("MD", md)
	r.set("PaRes", paRes)
	return r, nil
}

// NewSubmit3DSAuthorizationV2Request completes a 3-D Secure 2.x challenge.
// The transport encodes the challenge result as a base64 "cres" form field;
// the CRes payload identifies the transaction by its server transaction id
// alone and carries no terminal credentials.
func NewSubmit3DSAuthorizationV2Request(tdsServerTransID, transStatus string) (*Request, error) {
	if tdsServerTransID == "" {
		return nil, &ConfigError{Field: "threeDSServerTransID", Reason: "required"}
	}
	if transStatus == "" {
		transStatus = "Y"
	}

	r := newRequest(MethodSubmit3DSAuthorization2, false)
	r.set("threeDSServerTransID", tdsServerTransID)
	r.set("transStatus", transStatus)
	return r, nil
}
