package mockbank

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acquiring-payment-sdk/models"
)

func signFields(t *testing.T, password string, fields map[string]interface{}) {
	t.Helper()
	input := map[string]string{"Password": password}
	for name, v := range fields {
		if s, ok := v.(string); ok {
			input[name] = s
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
	fields["Token"] = hex.EncodeToString(h.Sum(nil))
}

func postJSON(t *testing.T, url string, fields map[string]interface{}) models.BaseResponse {
	t.Helper()
	body, err := json.Marshal(fields)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed models.BaseResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return parsed
}

func TestInitRejectsUnknownTerminal(t *testing.T) {
	bank := New("TestSDK", "12345678")
	server := httptest.NewServer(bank.Router())
	defer server.Close()

	fields := map[string]interface{}{
		"TerminalKey": "SomeoneElse",
		"OrderId":     "order-1",
	}
	signFields(t, "12345678", fields)

	resp := postJSON(t, server.URL+"/v2/Init", fields)
	assert.Equal(t, "202", resp.ErrorCode)
}

func TestInitRejectsBadToken(t *testing.T) {
	bank := New("TestSDK", "12345678")
	server := httptest.NewServer(bank.Router())
	defer server.Close()

	// Signed with the wrong password.
	fields := map[string]interface{}{
		"TerminalKey": "TestSDK",
		"OrderId":     "order-1",
	}
	signFields(t, "wrong-password", fields)

	resp := postJSON(t, server.URL+"/v2/Init", fields)
	assert.Equal(t, "204", resp.ErrorCode)

	// Missing token entirely.
	delete(fields, "Token")
	resp = postJSON(t, server.URL+"/v2/Init", fields)
	assert.Equal(t, "204", resp.ErrorCode)
}

func TestInitAcceptsProperlySignedRequest(t *testing.T) {
	bank := New("TestSDK", "12345678")
	server := httptest.NewServer(bank.Router())
	defer server.Close()

	fields := map[string]interface{}{
		"TerminalKey": "TestSDK",
		"OrderId":     "order-1",
		"Amount":      "2000",
	}
	signFields(t, "12345678", fields)

	body, err := json.Marshal(fields)
	require.NoError(t, err)
	httpResp, err := http.Post(server.URL+"/v2/Init", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer httpResp.Body.Close()

	var resp models.InitResponse
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&resp))
	require.NoError(t, resp.Err())
	assert.NotZero(t, resp.PaymentID)
	assert.Equal(t, models.StatusNew, resp.Status)
}
