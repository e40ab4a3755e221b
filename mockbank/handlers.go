package mockbank

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"acquiring-payment-sdk/models"
)

func (b *Bank) handleInit(w http.ResponseWriter, r *http.Request) {
	fields := b.decodeSigned(w, r)
	if fields == nil {
		return
	}
	orderID := fieldString(fields, "OrderId")
	if orderID == "" {
		writeJSON(w, errorResponse("9999", "OrderId is required"))
		return
	}

	b.mu.Lock()
	b.nextID++
	p := &paymentRecord{
		id:        b.nextID,
		orderID:   orderID,
		amount:    fieldInt64(fields, "Amount"),
		status:    models.StatusNew,
		recurrent: fieldString(fields, "Recurrent") == "Y",
	}
	b.payments[p.id] = p
	b.mu.Unlock()

	writeJSON(w, models.InitResponse{
		BaseResponse: okResponse(b.terminalKey),
		PaymentID:    p.id,
		OrderID:      p.orderID,
		Amount:       p.amount,
		Status:       p.status,
		PaymentURL:   fmt.Sprintf("https://securepay.tinkoff.ru/pay/%d", p.id),
	})
}

func (b *Bank) handleCheck3DSVersion(w http.ResponseWriter, r *http.Request) {
	fields := b.decodeSigned(w, r)
	if fields == nil {
		return
	}
	paymentID := fieldInt64(fields, "PaymentId")

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.payments[paymentID]; !ok {
		writeJSON(w, errorResponse("335", "payment not found"))
		return
	}

	resp := models.Check3DSVersionResponse{BaseResponse: okResponse(b.terminalKey)}
	switch b.ThreeDsMode {
	case Mode3DS2x, Mode3DS2xApp:
		resp.Version = "2.1.0"
		resp.TdsServerTransID = fmt.Sprintf("tds-%d", paymentID)
		b.byTransID[resp.TdsServerTransID] = paymentID
		if b.ThreeDsMode == Mode3DS2xApp {
			resp.PaymentSystem = "MC"
		}
	default:
		resp.Version = "1.0.2"
	}
	writeJSON(w, resp)
}

func (b *Bank) handleFinishAuthorize(w http.ResponseWriter, r *http.Request) {
	fields := b.decodeSigned(w, r)
	if fields == nil {
		return
	}
	if fieldString(fields, "CardData") == "" && fieldString(fields, "EncryptedPaymentData") == "" {
		writeJSON(w, errorResponse("9999", "payment source is required"))
		return
	}
	if b.RejectCode != "" {
		writeJSON(w, errorResponse(b.RejectCode, "payment rejected"))
		return
	}
	paymentID := fieldInt64(fields, "PaymentId")

	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.payments[paymentID]
	if !ok {
		writeJSON(w, errorResponse("335", "payment not found"))
		return
	}

	resp := models.FinishAuthorizeResponse{
		BaseResponse: okResponse(b.terminalKey),
		PaymentID:    p.id,
		OrderID:      p.orderID,
		Amount:       p.amount,
	}

	switch b.ThreeDsMode {
	case Mode3DS1x:
		p.status = models.Status3DSChecking
		md := fmt.Sprintf("md-%d", p.id)
		b.byMD[md] = p.id
		resp.Status = p.status
		resp.ACSUrl = "https://acs.example/challenge"
		resp.MD = md
		resp.PaReq = fmt.Sprintf("pareq-%d", p.id)
	case Mode3DS2x, Mode3DS2xApp:
		p.status = models.Status3DSChecking
		transID := fmt.Sprintf("tds-%d", p.id)
		b.byTransID[transID] = p.id
		resp.Status = p.status
		resp.ACSUrl = "https://acs.example/challenge"
		resp.TdsServerTransID = transID
		resp.AcsTransID = fmt.Sprintf("acs-%d", p.id)
		if b.ThreeDsMode == Mode3DS2xApp {
			resp.AcsRefNumber = "3DS_LOA_ACS_201_13579"
			resp.AcsSignedContent = "eyJhbGciOiJQUzI1NiJ9.signed"
		}
	default:
		p.cardID = "881900"
		if p.recurrent {
			p.rebillID = fmt.Sprintf("rebill-%d", p.id)
		}
		if b.SettleAfter > 0 {
			p.status = models.StatusAuthorizing
		} else {
			p.status = models.StatusConfirmed
		}
		resp.Status = p.status
		resp.CardID = p.cardID
		resp.RebillID = p.rebillID
	}
	writeJSON(w, resp)
}

func (b *Bank) handleCharge(w http.ResponseWriter, r *http.Request) {
	fields := b.decodeSigned(w, r)
	if fields == nil {
		return
	}
	if b.RejectCode != "" {
		writeJSON(w, errorResponse(b.RejectCode, "charge rejected"))
		return
	}
	paymentID := fieldInt64(fields, "PaymentId")
	if fieldString(fields, "RebillId") == "" {
		writeJSON(w, errorResponse("9999", "RebillId is required"))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.payments[paymentID]
	if !ok {
		writeJSON(w, errorResponse("335", "payment not found"))
		return
	}
	p.status = models.StatusConfirmed
	p.cardID = "881900"

	writeJSON(w, models.ChargeResponse{
		BaseResponse: okResponse(b.terminalKey),
		PaymentID:    p.id,
		OrderID:      p.orderID,
		Amount:       p.amount,
		Status:       p.status,
		CardID:       p.cardID,
	})
}

func (b *Bank) handleCancel(w http.ResponseWriter, r *http.Request) {
	fields := b.decodeSigned(w, r)
	if fields == nil {
		return
	}
	paymentID := fieldInt64(fields, "PaymentId")
	amount := fieldInt64(fields, "Amount")

	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.payments[paymentID]
	if !ok {
		writeJSON(w, errorResponse("335", "payment not found"))
		return
	}

	original := p.amount
	newAmount := int64(0)
	if amount > 0 && amount < original {
		newAmount = original - amount
		p.amount = newAmount
		p.status = models.StatusPartialRefunded
	} else {
		p.status = models.StatusCanceled
	}

	writeJSON(w, models.CancelResponse{
		BaseResponse:   okResponse(b.terminalKey),
		PaymentID:      p.id,
		OrderID:        p.orderID,
		Status:         p.status,
		OriginalAmount: original,
		NewAmount:      newAmount,
	})
}

func (b *Bank) handleGetState(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("TerminalKey") != b.terminalKey {
		writeJSON(w, errorResponse("202", "terminal not found"))
		return
	}
	paymentID := parseID(q.Get("PaymentId"))

	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.payments[paymentID]
	if !ok {
		writeJSON(w, errorResponse("335", "payment not found"))
		return
	}

	p.stateCalls++
	if p.status == models.StatusAuthorizing && p.stateCalls > b.SettleAfter {
		p.status = models.StatusConfirmed
	}

	writeJSON(w, models.GetStateResponse{
		BaseResponse: okResponse(b.terminalKey),
		PaymentID:    p.id,
		OrderID:      p.orderID,
		Amount:       p.amount,
		Status:       p.status,
	})
}

func (b *Bank) handleSubmit3DS(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, errorResponse("9999", "malformed form body"))
		return
	}
	fields := make(map[string]interface{}, len(r.PostForm))
	for name := range r.PostForm {
		fields[name] = r.PostForm.Get(name)
	}
	if fieldString(fields, "TerminalKey") != b.terminalKey {
		writeJSON(w, errorResponse("202", "terminal not found"))
		return
	}
	if !b.verifyToken(fields) {
		writeJSON(w, errorResponse("204", "invalid token"))
		return
	}

	md := fieldString(fields, "MD")
	if fieldString(fields, "PaRes") == "" || md == "" {
		writeJSON(w, errorResponse("9999", "MD and PaRes are required"))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if requestKey, ok := b.attachByMD[md]; ok {
		a := b.attachments[requestKey]
		b.completeAttachment(a)
		writeJSON(w, models.Submit3DSAuthorizationResponse{
			BaseResponse: okResponse(b.terminalKey),
			Status:       a.status,
		})
		return
	}

	paymentID, ok := b.byMD[md]
	if !ok {
		writeJSON(w, errorResponse("335", "payment not found"))
		return
	}
	p := b.payments[paymentID]
	p.status = models.StatusConfirmed
	p.cardID = "881900"

	writeJSON(w, models.Submit3DSAuthorizationResponse{
		BaseResponse: okResponse(b.terminalKey),
		PaymentID:    p.id,
		OrderID:      p.orderID,
		Status:       p.status,
	})
}

func (b *Bank) handleSubmit3DSV2(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, errorResponse("9999", "malformed form body"))
		return
	}
	raw, err := base64.StdEncoding.DecodeString(r.PostForm.Get("cres"))
	if err != nil {
		writeJSON(w, errorResponse("9999", "cres is not valid base64"))
		return
	}
	var cres struct {
		TransID string `json:"threeDSServerTransID"`
	}
	if err := json.Unmarshal(raw, &cres); err != nil {
		writeJSON(w, errorResponse("9999", "cres is not valid JSON"))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	paymentID, ok := b.byTransID[cres.TransID]
	if !ok {
		writeJSON(w, errorResponse("335", "payment not found"))
		return
	}
	p := b.payments[paymentID]
	p.status = models.StatusConfirmed
	p.cardID = "881900"

	writeJSON(w, models.Submit3DSAuthorizationResponse{
		BaseResponse: okResponse(b.terminalKey),
		PaymentID:    p.id,
		OrderID:      p.orderID,
		Status:       p.status,
	})
}

func (b *Bank) handleAddCard(w http.ResponseWriter, r *http.Request) {
	fields := b.decodeSigned(w, r)
	if fields == nil {
		return
	}
	customerKey := fieldString(fields, "CustomerKey")
	if customerKey == "" {
		writeJSON(w, errorResponse("9999", "CustomerKey is required"))
		return
	}

	a := &attachRecord{
		requestKey:  uuid.NewString(),
		customerKey: customerKey,
		checkType:   fieldString(fields, "CheckType"),
		status:      models.StatusNew,
	}

	b.mu.Lock()
	b.attachments[a.requestKey] = a
	b.mu.Unlock()

	writeJSON(w, models.AddCardResponse{
		BaseResponse: okResponse(b.terminalKey),
		RequestKey:   a.requestKey,
	})
}

func (b *Bank) handleAttachCard(w http.ResponseWriter, r *http.Request) {
	fields := b.decodeSigned(w, r)
	if fields == nil {
		return
	}
	if fieldString(fields, "CardData") == "" {
		writeJSON(w, errorResponse("9999", "CardData is required"))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.attachments[fieldString(fields, "RequestKey")]
	if !ok {
		writeJSON(w, errorResponse("9999", "attachment not found"))
		return
	}

	resp := models.AttachCardResponse{
		BaseResponse: okResponse(b.terminalKey),
		RequestKey:   a.requestKey,
	}

	switch {
	case a.checkType == "3DS" || a.checkType == "3DSHOLD":
		a.status = models.Status3DSChecking
		md := "md-attach-" + a.requestKey
		b.attachByMD[md] = a.requestKey
		resp.Status = a.status
		resp.ACSUrl = "https://acs.example/challenge"
		resp.MD = md
		resp.PaReq = "pareq-attach-" + a.requestKey
	case a.checkType == "HOLD":
		a.status = models.StatusAuthorizing
		resp.Status = a.status
	default:
		b.completeAttachment(a)
		resp.Status = a.status
		resp.CardID = a.cardID
		resp.RebillID = a.rebillID
	}
	writeJSON(w, resp)
}

// completeAttachment marks the attachment done and registers the saved card.
// Callers hold b.mu.
func (b *Bank) completeAttachment(a *attachRecord) {
	a.status = models.StatusCompleted
	a.cardID = uuid.NewString()
	a.rebillID = uuid.NewString()
	b.cards[a.customerKey] = append(b.cards[a.customerKey], models.Card{
		CardID:   a.cardID,
		Pan:      "430000******0777",
		ExpDate:  "1229",
		RebillID: a.rebillID,
	})
}

func (b *Bank) handleGetAddCardState(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("TerminalKey") != b.terminalKey {
		writeJSON(w, errorResponse("202", "terminal not found"))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.attachments[q.Get("RequestKey")]
	if !ok {
		writeJSON(w, errorResponse("9999", "attachment not found"))
		return
	}

	writeJSON(w, models.GetAddCardStateResponse{
		BaseResponse: okResponse(b.terminalKey),
		RequestKey:   a.requestKey,
		Status:       a.status,
		CardID:       a.cardID,
		RebillID:     a.rebillID,
	})
}

func (b *Bank) handleSubmitRandomAmount(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, errorResponse("9999", "malformed form body"))
		return
	}
	fields := make(map[string]interface{}, len(r.PostForm))
	for name := range r.PostForm {
		fields[name] = r.PostForm.Get(name)
	}
	if fieldString(fields, "TerminalKey") != b.terminalKey {
		writeJSON(w, errorResponse("202", "terminal not found"))
		return
	}
	if !b.verifyToken(fields) {
		writeJSON(w, errorResponse("204", "invalid token"))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.attachments[fieldString(fields, "RequestKey")]
	if !ok {
		writeJSON(w, errorResponse("9999", "attachment not found"))
		return
	}
	if fieldInt64(fields, "Amount") != b.HoldAmount {
		writeJSON(w, errorResponse("225", "wrong amount"))
		return
	}
	b.completeAttachment(a)

	writeJSON(w, models.Submit3DSAuthorizationResponse{
		BaseResponse: okResponse(b.terminalKey),
		Status:       a.status,
	})
}

func (b *Bank) handleGetCardList(w http.ResponseWriter, r *http.Request) {
	fields := b.decodeSigned(w, r)
	if fields == nil {
		return
	}

	b.mu.Lock()
	cards := append([]models.Card{}, b.cards[fieldString(fields, "CustomerKey")]...)
	b.mu.Unlock()

	// The real backend answers GetCardList with a bare JSON array, empty
	// rather than null when the customer has no cards.
	writeJSON(w, cards)
}

func (b *Bank) handleRemoveCard(w http.ResponseWriter, r *http.Request) {
	fields := b.decodeSigned(w, r)
	if fields == nil {
		return
	}
	customerKey := fieldString(fields, "CustomerKey")
	cardID := fieldString(fields, "CardId")

	b.mu.Lock()
	defer b.mu.Unlock()
	cards := b.cards[customerKey]
	for i, c := range cards {
		if c.CardID == cardID {
			b.cards[customerKey] = append(cards[:i], cards[i+1:]...)
			writeJSON(w, models.RemoveCardResponse{
				BaseResponse: okResponse(b.terminalKey),
				CardID:       cardID,
				CustomerKey:  customerKey,
			})
			return
		}
	}
	writeJSON(w, errorResponse("9999", "card not found"))
}

func parseID(s string) int64 {
	var id int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		id = id*10 + int64(r-'0')
	}
	return id
}
