package network

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"acquiring-payment-sdk/models"
)

// passwordFieldName is the pseudo-field under which the shared secret joins
// the token input before sorting.
const passwordFieldName = "Password"

// Token computes the request signature: all signable fields plus the shared
// secret, sorted by field name, values concatenated and hashed with SHA-256.
// The hex digest goes out as the Token field.
func Token(r *models.Request, password string) (string, error) {
	if password == "" {
		return "", &models.ConfigError{Field: "Password", Reason: "required for signed requests"}
	}
	if _, ok := r.Field("TerminalKey"); !ok {
		return "", &models.ConfigError{Field: "TerminalKey", Reason: "required for signed requests"}
	}

	fields := r.TokenInputFields()
	fields[passwordFieldName] = password

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(fieldValueString(fields[name])))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// fieldValueString renders a scalar field value exactly the way it appears
// on the wire. Both sides of the protocol must agree on this.
func fieldValueString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
