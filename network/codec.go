package network

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"acquiring-payment-sdk/config"
	"acquiring-payment-sdk/models"
)

// Base URLs for the two coexisting API generations.
const (
	prodAPIURL     = "https://securepay.tinkoff.ru/v2"
	debugAPIURL    = "https://rest-api-test.tinkoff.ru/v2"
	prodLegacyURL  = "https://securepay.tinkoff.ru/rest"
	debugLegacyURL = "https://rest-api-test.tcsbank.ru/rest"

	apiVersionSegment    = "v2"
	legacyVersionSegment = "rest"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// legacyMethods is the fixed allow-list of old-generation methods. They are
// form-url-encoded and resolve against the /rest hosts.
var legacyMethods = map[string]struct{}{
	models.MethodSubmitRandomAmount:     {},
	models.MethodSubmit3DSAuthorization: {},
}

// getMethods are the status-check endpoints issued as GET with query
// parameters.
var getMethods = map[string]struct{}{
	models.MethodGetState:        {},
	models.MethodGetAddCardState: {},
}

// Codec serializes requests and resolves their URLs. It is a pure function
// of the client configuration.
type Codec struct {
	cfg config.ClientConfig
}

// NewCodec builds a codec for the given configuration.
func NewCodec(cfg config.ClientConfig) Codec {
	return Codec{cfg: cfg.Normalized()}
}

// IsGet reports whether the method is one of the GET status-check endpoints.
func (c Codec) IsGet(apiMethod string) bool {
	_, ok := getMethods[apiMethod]
	return ok
}

// ResolveURL returns the full URL for one API method.
func (c Codec) ResolveURL(apiMethod string) (string, error) {
	if apiMethod == "" {
		return "", &models.ConfigError{Field: "apiMethod", Reason: "empty API method"}
	}

	_, legacy := legacyMethods[apiMethod]
	segment := apiVersionSegment
	base := prodAPIURL
	debug := debugAPIURL
	if legacy {
		segment = legacyVersionSegment
		base = prodLegacyURL
		debug = debugLegacyURL
	}

	if c.cfg.DeveloperMode {
		base = debug
		// The custom override replaces the debug host only.
		if c.cfg.CustomAPIURL != "" {
			custom := strings.TrimRight(c.cfg.CustomAPIURL, "/")
			if _, err := url.ParseRequestURI(custom); err != nil {
				return "", &models.ConfigError{Field: "CustomAPIURL", Reason: fmt.Sprintf("malformed URL %q", c.cfg.CustomAPIURL)}
			}
			if !strings.HasSuffix(custom, "/"+segment) {
				custom += "/" + segment
			}
			base = custom
		}
	}

	return base + "/" + apiMethod, nil
}

// Encode serializes the request body and reports its content type. GET
// methods carry no body; use EncodeQuery for them.
func (c Codec) Encode(r *models.Request) (contentType string, body []byte, err error) {
	if r.APIMethod() == models.MethodSubmit3DSAuthorization2 {
		return c.encodeChallengeV2(r)
	}

	if _, legacy := legacyMethods[r.APIMethod()]; legacy {
		return contentTypeForm, []byte(encodeForm(r.Fields())), nil
	}

	payload, err := json.Marshal(r.Fields())
	if err != nil {
		return "", nil, fmt.Errorf("error marshaling request body: %v", err)
	}
	return contentTypeJSON, payload, nil
}

// EncodeQuery renders the request fields as a URL query string for the GET
// status-check endpoints.
func (c Codec) EncodeQuery(r *models.Request) string {
	return encodeForm(r.Fields())
}

// encodeChallengeV2 handles the 3-D Secure 2.x challenge submission quirk:
// the request fields form a small JSON object that is base64-encoded into
// the single form field "cres". Deliberately not unified with the general
// encoder.
func (c Codec) encodeChallengeV2(r *models.Request) (string, []byte, error) {
	payload, err := json.Marshal(r.Fields())
	if err != nil {
		return "", nil, fmt.Errorf("error marshaling challenge result: %v", err)
	}
	values := url.Values{}
	values.Set("cres", base64.StdEncoding.EncodeToString(payload))
	return contentTypeForm, []byte(values.Encode()), nil
}

func encodeForm(fields map[string]interface{}) string {
	values := url.Values{}
	for name, v := range fields {
		if v == nil {
			continue
		}
		values.Set(name, fieldValueString(v))
	}
	return values.Encode()
}
