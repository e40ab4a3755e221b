package network

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"acquiring-payment-sdk/config"
	"acquiring-payment-sdk/models"
)

// Client executes acquiring API calls. One HTTP exchange per call; retry
// policy lives with the status poller, never here.
type Client struct {
	cfg        config.ClientConfig
	codec      Codec
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient builds a client for the given configuration.
func NewClient(cfg config.ClientConfig) *Client {
	cfg = cfg.Normalized()

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		cfg:   cfg,
		codec: NewCodec(cfg),
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		logger: log.Default(),
	}
}

// SetLogger replaces the client's logger. Call before the first request.
func (c *Client) SetLogger(l *log.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Config returns the client's configuration.
func (c *Client) Config() config.ClientConfig { return c.cfg }

// Do executes one request and decodes the 200 body into out. A non-200
// status, an unreadable body or a connection failure comes back as
// *models.NetworkError; out is only touched on a 200 response.
func (c *Client) Do(ctx context.Context, r *models.Request, out interface{}) error {
	apiURL, err := c.codec.ResolveURL(r.APIMethod())
	if err != nil {
		return err
	}

	if r.SignRequired() {
		token, err := Token(r, c.cfg.Password)
		if err != nil {
			return err
		}
		r.SetToken(token)
	}

	var httpReq *http.Request
	if c.codec.IsGet(r.APIMethod()) {
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"?"+c.codec.EncodeQuery(r), nil)
		if err != nil {
			return fmt.Errorf("error creating request: %v", err)
		}
	} else {
		contentType, body, err := c.codec.Encode(r)
		if err != nil {
			return err
		}
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("error creating request: %v", err)
		}
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &models.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.NetworkError{Status: resp.StatusCode, Err: err}
	}

	c.logger.Printf("%s responded %d in %v", r.APIMethod(), resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return &models.NetworkError{Status: resp.StatusCode, Body: string(respBody)}
	}

	cleanBody := strings.TrimPrefix(string(respBody), "\ufeff")
	if err := unmarshalResponse([]byte(cleanBody), out); err != nil {
		return fmt.Errorf("error decoding %s response: %v, response body: %s", r.APIMethod(), err, cleanBody)
	}
	return nil
}
