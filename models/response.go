package models

import (
	"encoding/json"
)

// BaseResponse is the uniform envelope every API operation returns.
type BaseResponse struct {
	Success     *bool  `json:"Success"`
	ErrorCode   string `json:"ErrorCode"`
	Message     string `json:"Message,omitempty"`
	Details     string `json:"Details,omitempty"`
	TerminalKey string `json:"TerminalKey,omitempty"`
}

// IsSuccessful reports whether the bank accepted the operation. It is true
// iff the error code is "0" and the success flag is present and true; any
// other combination is a domain failure.
func (r BaseResponse) IsSuccessful() bool {
	return r.ErrorCode == SuccessErrorCode && r.Success != nil && *r.Success
}

// Err returns the response's domain error, or nil for a successful response.
func (r BaseResponse) Err() error {
	if r.IsSuccessful() {
		return nil
	}
	return &APIError{Code: r.ErrorCode, Message: r.Message, Details: r.Details}
}

// ThreeDsPayload holds the challenge fields a response may carry when a
// payment or card attachment requires 3-D Secure. Exactly one of the 1.x
// pair (MD, PaReq) or the 2.x pair (TdsServerTransID, AcsTransID) is
// populated when a challenge is indicated.
type ThreeDsPayload struct {
	ACSUrl string `json:"ACSUrl,omitempty"`

	// 1.x browser redirect fields.
	MD    string `json:"MD,omitempty"`
	PaReq string `json:"PaReq,omitempty"`

	// 2.x fields, browser- or app-based.
	TdsServerTransID string `json:"TdsServerTransId,omitempty"`
	AcsTransID       string `json:"AcsTransId,omitempty"`
	AcsRefNumber     string `json:"AcsReferenceNumber,omitempty"`
	AcsSignedContent string `json:"AcsSignedContent,omitempty"`
}

// InitResponse is the result of Init.
type InitResponse struct {
	BaseResponse
	PaymentID  int64         `json:"PaymentId,string"`
	OrderID    string        `json:"OrderId,omitempty"`
	Amount     int64         `json:"Amount,omitempty"`
	Status     PaymentStatus `json:"Status,omitempty"`
	PaymentURL string        `json:"PaymentURL,omitempty"`
}

// FinishAuthorizeResponse is the result of FinishAuthorize.
type FinishAuthorizeResponse struct {
	BaseResponse
	ThreeDsPayload
	PaymentID int64         `json:"PaymentId,string"`
	OrderID   string        `json:"OrderId,omitempty"`
	Amount    int64         `json:"Amount,omitempty"`
	Status    PaymentStatus `json:"Status,omitempty"`
	CardID    string        `json:"CardId,omitempty"`
	RebillID  string        `json:"RebillId,omitempty"`
}

// Check3DSVersionResponse is the result of Check3dsVersion.
type Check3DSVersionResponse struct {
	BaseResponse
	// Version is the protocol version declared by the directory server,
	// e.g. "2.1.0".
	Version          string `json:"Version,omitempty"`
	TdsServerTransID string `json:"TdsServerTransId,omitempty"`
	ThreeDsMethodURL string `json:"ThreeDsMethodUrl,omitempty"`
	// PaymentSystem identifies the card scheme's directory server; app-based
	// challenges are only constructible when it is present.
	PaymentSystem string `json:"PaymentSystem,omitempty"`
}

// ChargeResponse is the result of a recurrent Charge.
type ChargeResponse struct {
	BaseResponse
	PaymentID int64         `json:"PaymentId,string"`
	OrderID   string        `json:"OrderId,omitempty"`
	Amount    int64         `json:"Amount,omitempty"`
	Status    PaymentStatus `json:"Status,omitempty"`
	CardID    string        `json:"CardId,omitempty"`
	RebillID  string        `json:"RebillId,omitempty"`
}

// GetStateResponse is the result of a GetState status check.
type GetStateResponse struct {
	BaseResponse
	PaymentID int64         `json:"PaymentId,string"`
	OrderID   string        `json:"OrderId,omitempty"`
	Amount    int64         `json:"Amount,omitempty"`
	Status    PaymentStatus `json:"Status,omitempty"`
}

// CancelResponse is the result of Cancel.
type CancelResponse struct {
	BaseResponse
	PaymentID      int64         `json:"PaymentId,string"`
	OrderID        string        `json:"OrderId,omitempty"`
	Status         PaymentStatus `json:"Status,omitempty"`
	OriginalAmount int64         `json:"OriginalAmount,omitempty"`
	NewAmount      int64         `json:"NewAmount,omitempty"`
}

// AddCardResponse is the result of AddCard.
type AddCardResponse struct {
	BaseResponse
	RequestKey string `json:"RequestKey,omitempty"`
	PaymentURL string `json:"PaymentURL,omitempty"`
}

// AttachCardResponse is the result of AttachCard. It feeds the same 3-D
// Secure negotiation as FinishAuthorize.
type AttachCardResponse struct {
	BaseResponse
	ThreeDsPayload
	RequestKey  string        `json:"RequestKey,omitempty"`
	CustomerKey string        `json:"CustomerKey,omitempty"`
	CardID      string        `json:"CardId,omitempty"`
	RebillID    string        `json:"RebillId,omitempty"`
	Status      PaymentStatus `json:"Status,omitempty"`
}

// GetAddCardStateResponse is the result of a GetAddCardState status check.
type GetAddCardStateResponse struct {
	BaseResponse
	RequestKey string        `json:"RequestKey,omitempty"`
	Status     PaymentStatus `json:"Status,omitempty"`
	CardID     string        `json:"CardId,omitempty"`
	RebillID   string        `json:"RebillId,omitempty"`
}

// GetCardListResponse is the result of GetCardList. The backend returns a
// bare JSON array on success and the usual envelope on error, so this type
// accepts both shapes.
type GetCardListResponse struct {
	BaseResponse
	Cards []Card
}

func (r *GetCardListResponse) UnmarshalJSON(data []byte) error {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '[', 'n':
			// A bare array, or JSON null for a customer with no cards.
			ok := true
			r.Success = &ok
			r.ErrorCode = SuccessErrorCode
			return json.Unmarshal(data, &r.Cards)
		}
		break
	}
	return json.Unmarshal(data, &r.BaseResponse)
}

// RemoveCardResponse is the result of RemoveCard.
type RemoveCardResponse struct {
	BaseResponse
	CardID      string        `json:"CardId,omitempty"`
	CustomerKey string        `json:"CustomerKey,omitempty"`
	Status      PaymentStatus `json:"Status,omitempty"`
}

// Submit3DSAuthorizationResponse is the result of either 3-D Secure
// challenge submission endpoint.
type Submit3DSAuthorizationResponse struct {
	BaseResponse
	PaymentID int64         `json:"PaymentId,string"`
	OrderID   string        `json:"OrderId,omitempty"`
	Status    PaymentStatus `json:"Status,omitempty"`
}
