package network

import (
	"context"
	"encoding/json"

	"acquiring-payment-sdk/models"
)

func unmarshalResponse(data []byte, out interface{}) error {
	return json.Unmarshal(data, out)
}

// The typed operation surface. Each method builds the signed request with
// the client's terminal credentials, executes it and returns the parsed
// response. A well-formed response with a non-zero error code comes back as
// (response, *models.APIError) so callers can inspect both.

// Init begins a payment. The options' TerminalKey is filled in from the
// client configuration.
func (c *Client) Init(ctx context.Context, o models.InitOptions) (*models.InitResponse, error) {
	o.TerminalKey = c.cfg.TerminalKey
	req, err := models.NewInitRequest(o)
	if err != nil {
		return nil, err
	}
	var resp models.InitResponse
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, resp.Err()
}

// Check3DSVersion asks the directory server which 3-D Secure version applies
// to the card.
func (c *Client) Check3DSVersion(ctx context.Context, paymentID int64, src models.CardSource) (*models.Check3DSVersionResponse, error) {
	req, err := models.NewCheck3DSVersionRequest(c.cfg.TerminalKey, paymentID, src, c.cfg.PublicKey)
	if err != nil {
		return nil, err
	}
	var resp models.Check3DSVersionResponse
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, resp.Err()
}

// FinishAuthorize submits the payment source for an initialized payment.
func (c *Client) FinishAuthorize(ctx context.Context, o models.FinishAuthorizeOptions) (*models.FinishAuthorizeResponse, error) {
	o.TerminalKey = c.cfg.TerminalKey
	o.PublicKey = c.cfg.PublicKey
	req, err := models.NewFinishAuthorizeRequest(o)
	if err != nil {
		return nil, err
	}
	var resp models.FinishAuthorizeResponse
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, resp.Err()
}

// Charge performs a recurrent charge against a rebill token.
func (c *Client) Charge(ctx context.Context, paymentID int64, rebillID string) (*models.ChargeResponse, error) {
	req, err := models.NewChargeRequest(c.cfg.TerminalKey, paymentID, rebillID)
	if err != nil {
		return nil, err
	}
	var resp models.ChargeResponse
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, resp.Err()
}

// GetState fetches the current payment status.
func (c *Client) GetState(ctx context.Context, paymentID int64) (*models.GetStateResponse, error) {
	req, err := models.NewGetStateRequest(c.cfg.TerminalKey, paymentID)
	if err != nil {
		return nil, err
	}
	var resp models.GetStateResponse
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, resp.Err()
}

// Cancel cancels or refunds a payment. amount of zero cancels in full.
func (c *Client) Cancel(ctx context.Context, paymentID int64, amount int64) (*models.CancelResponse, error) {
	req, err := models.NewCancelRequest(c.cfg.TerminalKey, paymentID, amount)
	if err != nil {
		return nil, err
	}
	var resp models.CancelResponse
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, resp.Err()
}

// AddCard begins attaching a card to a customer.
func (c *Client) AddCard(ctx context.Context, customerKey, checkType string) (*models.AddCardResponse, error) {
	req, err := models.NewAddCardRequest(c.cfg.TerminalKey, customerKey, checkType)
	if err != nil {
		return nil, err
	}
	var resp models.AddCardResponse
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, resp.Err()
}

// AttachCard submits card data for a pending attachment.
func (c *Client) AttachCard(ctx context.Context, requestKey string, src models.CardSource, data map[string]string) (*models.AttachCardResponse, error) {
	req, err := models.NewAttachCardRequest(c.cfg.TerminalKey, requestKey, src, c.cfg.PublicKey, data)
	if err != nil {
		return nil, err
	}
	var resp models.AttachCardResponse
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, resp.Err()
}

// GetAddCardState fetches the current card attachment status.
func (c *Client) GetAddCardState(ctx context.Context, requestKey string) (*models.GetAddCardStateResponse, error) {
	req, err := models.NewGetAddCardStateRequest(c.cfg.TerminalKey, requestKey)
	if err != nil {
		return nil, err
	}
	var resp models.GetAddCardStateResponse
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, resp.Err()
}

// GetCardList lists the customer's saved cards.
func (c *Client) GetCardList(ctx context.Context, customerKey string) ([]models.Card, error) {
	req, err := models.NewGetCardListRequest(c.cfg.TerminalKey, customerKey)
	if err != nil {
		return nil, err
	}
	var resp models.GetCardListResponse
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Cards, nil
}

// RemoveCard detaches a saved card.
func (c *Client) RemoveCard(ctx context.Context, customerKey, cardID string) (*models.RemoveCardResponse, error) {
	req, err := models.NewRemoveCardRequest(c.cfg.TerminalKey, customerKey, cardID)
	if err != nil {
		return nil, err
	}
	var resp models.RemoveCardResponse
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, resp.Err()
}

// SubmitRandomAmount confirms a card attachment with the random hold amount.
func (c *Client) SubmitRandomAmount(ctx context.Context, requestKey string, amount int64) (*models.Submit3DSAuthorizationResponse, error) {
	req, err := models.NewSubmitRandomAmountRequest(c.cfg.TerminalKey, requestKey, amount)
	if err != nil {
		return nil, err
	}
	var resp models.Submit3DSAuthorizationResponse
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, resp.Err()
}

// Submit3DSAuthorization completes a 1.x challenge with the ACS redirect
// result.
func (c *Client) Submit3DSAuthorization(ctx context.Context, md, paRes string) (*models.Submit3DSAuthorizationResponse, error) {
	req, err := models.NewSubmit3DSAuthorizationRequest(c.cfg.TerminalKey, md, paRes)
	if err != nil {
		return nil, err
	}
	var resp models.Submit3DSAuthorizationResponse
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, resp.Err()
}

// Submit3DSAuthorizationV2 completes a 2.x challenge.
func (c *Client) Submit3DSAuthorizationV2(ctx context.Context, tdsServerTransID string) (*models.Submit3DSAuthorizationResponse, error) {
	req, err := models.NewSubmit3DSAuthorizationV2Request(tdsServerTransID, "")
	if err != nil {
		return nil, err
	}
	var resp models.Submit3DSAuthorizationResponse
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, resp.Err()
}
