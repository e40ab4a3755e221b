// Package mockbank is an in-memory emulation of the acquiring API, enough to
// exercise the full payment and card-attachment flows without the real bank.
// It backs the end-to-end tests and runs standalone via cmd/mockbank.
package mockbank

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"acquiring-payment-sdk/models"
)

// ThreeDs scenario modes.
const (
	ModeNo3DS    = ""
	Mode3DS1x    = "1x"
	Mode3DS2x    = "2x-browser"
	Mode3DS2xApp = "2x-app"
)

type paymentRecord struct {
	id         int64
	orderID    string
	amount     int64
	status     models.PaymentStatus
	stateCalls int
	cardID     string
	rebillID   string
	recurrent  bool
}

type attachRecord struct {
	requestKey  string
	customerKey string
	checkType   string
	status      models.PaymentStatus
	cardID      string
	rebillID    string
}

// Bank is one emulated terminal. Scenario knobs are plain fields; set them
// before serving traffic.
type Bank struct {
	// ThreeDsMode selects which challenge shape FinishAuthorize and
	// AttachCard produce.
	ThreeDsMode string
	// RejectCode, when set, makes FinishAuthorize and Charge answer with
	// this error code instead of processing.
	RejectCode string
	// SettleAfter is how many GetState calls an AUTHORIZING payment takes
	// to settle to CONFIRMED.
	SettleAfter int
	// HoldAmount is the random amount expected by SubmitRandomAmount.
	HoldAmount int64

	mu          sync.Mutex
	terminalKey string
	password    string
	nextID      int64
	payments    map[int64]*paymentRecord
	byMD        map[string]int64
	byTransID   map[string]int64
	attachments map[string]*attachRecord
	attachByMD  map[string]string
	cards       map[string][]models.Card
}

// New builds a bank for one terminal.
func New(terminalKey, password string) *Bank {
	return &Bank{
		terminalKey: terminalKey,
		password:    password,
		nextID:      1000,
		HoldAmount:  152,
		payments:    make(map[int64]*paymentRecord),
		byMD:        make(map[string]int64),
		byTransID:   make(map[string]int64),
		attachments: make(map[string]*attachRecord),
		attachByMD:  make(map[string]string),
		cards:       make(map[string][]models.Card),
	}
}

// Router returns the bank's HTTP surface: the /v2 generation plus the legacy
// /rest endpoints.
func (b *Bank) Router() *mux.Router {
	r := mux.NewRouter()

	v2 := r.PathPrefix("/v2").Subrouter()
	v2.HandleFunc("/Init", b.handleInit).Methods(http.MethodPost)
	v2.HandleFunc("/Check3dsVersion", b.handleCheck3DSVersion).Methods(http.MethodPost)
	v2.HandleFunc("/FinishAuthorize", b.handleFinishAuthorize).Methods(http.MethodPost)
	v2.HandleFunc("/Charge", b.handleCharge).Methods(http.MethodPost)
	v2.HandleFunc("/Cancel", b.handleCancel).Methods(http.MethodPost)
	v2.HandleFunc("/GetState", b.handleGetState).Methods(http.MethodGet)
	v2.HandleFunc("/AddCard", b.handleAddCard).Methods(http.MethodPost)
	v2.HandleFunc("/AttachCard", b.handleAttachCard).Methods(http.MethodPost)
	v2.HandleFunc("/GetAddCardState", b.handleGetAddCardState).Methods(http.MethodGet)
	v2.HandleFunc("/GetCardList", b.handleGetCardList).Methods(http.MethodPost)
	v2.HandleFunc("/RemoveCard", b.handleRemoveCard).Methods(http.MethodPost)
	v2.HandleFunc("/Submit3DSAuthorizationV2", b.handleSubmit3DSV2).Methods(http.MethodPost)

	rest := r.PathPrefix("/rest").Subrouter()
	rest.HandleFunc("/Submit3DSAuthorization", b.handleSubmit3DS).Methods(http.MethodPost)
	rest.HandleFunc("/SubmitRandomAmount", b.handleSubmitRandomAmount).Methods(http.MethodPost)

	return r
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(code, message string) models.BaseResponse {
	ok := false
	return models.BaseResponse{Success: &ok, ErrorCode: code, Message: message}
}

func okResponse(terminalKey string) models.BaseResponse {
	ok := true
	return models.BaseResponse{Success: &ok, ErrorCode: models.SuccessErrorCode, TerminalKey: terminalKey}
}

// verifyToken recomputes the request token the same way the real backend
// does: scalar top-level fields minus Token, plus the password, sorted by
// name, SHA-256.
func (b *Bank) verifyToken(fields map[string]interface{}) bool {
	token, _ := fields["Token"].(string)
	if token == "" {
		return false
	}

	input := map[string]string{"Password": b.password}
	for name, v := range fields {
		if name == "Token" || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			input[name] = t
		case bool:
			input[name] = strconv.FormatBool(t)
		case float64:
			input[name] = strconv.FormatFloat(t, 'f', -1, 64)
		}
	}

	names := make([]string, 0, len(input))
	for name := range input {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(input[name]))
	}
	return hex.EncodeToString(h.Sum(nil)) == token
}

// decodeSigned reads a JSON body, checks the terminal key and the token.
// A nil map means the error response has already been written.
func (b *Bank) decodeSigned(w http.ResponseWriter, r *http.Request) map[string]interface{} {
	var fields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, errorResponse("9999", "malformed request body"))
		return nil
	}
	if key, _ := fields["TerminalKey"].(string); key != b.terminalKey {
		writeJSON(w, errorResponse("202", "terminal not found"))
		return nil
	}
	if !b.verifyToken(fields) {
		writeJSON(w, errorResponse("204", "invalid token"))
		return nil
	}
	return fields
}

func fieldString(fields map[string]interface{}, name string) string {
	s, _ := fields[name].(string)
	return s
}

func fieldInt64(fields map[string]interface{}, name string) int64 {
	switch t := fields[name].(type) {
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	return 0
}
