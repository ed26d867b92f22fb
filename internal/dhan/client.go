package dhan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"options-calendar-bot/internal/chain"
	"options-calendar-bot/internal/config"

	"go.uber.org/zap"
)

const (
	optionChainPath = "/optionchain"
	expiryListPath  = "/optionchain/expirylist"
)

var ErrMissingCredentials = errors.New("dhan access token and client id are required")

// HTTPError is returned for non-2xx broker responses.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("dhan http %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL  string
	token    string
	clientID string
	scrip    int
	segment  string
	http     *http.Client
	log      *zap.Logger
}

func New(cfg config.DhanConfig, log *zap.Logger) *Client {
	return newClient(cfg, log, &http.Client{Timeout: cfg.Timeout})
}

func newClient(cfg config.DhanConfig, log *zap.Logger, httpClient *http.Client) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    strings.TrimSpace(cfg.AccessToken),
		clientID: strings.TrimSpace(cfg.ClientID),
		scrip:    cfg.UnderlyingScrip,
		segment:  cfg.UnderlyingSeg,
		http:     httpClient,
		log:      log,
	}
}

type underlyingRequest struct {
	UnderlyingScrip int    `json:"UnderlyingScrip"`
	UnderlyingSeg   string `json:"UnderlyingSeg"`
	Expiry          string `json:"Expiry,omitempty"`
}

// FetchOptionChain returns the raw option chain of the configured underlying for one expiry.
func (c *Client) FetchOptionChain(ctx context.Context, expiry string) (chain.RawChain, error) {
	var raw chain.RawChain
	req := underlyingRequest{UnderlyingScrip: c.scrip, UnderlyingSeg: c.segment, Expiry: expiry}
	if err := c.post(ctx, optionChainPath, req, &raw); err != nil {
		return chain.RawChain{}, fmt.Errorf("option chain %s: %w", expiry, err)
	}
	return raw, nil
}

// ExpiryList returns the expiry dates the broker lists for the configured underlying.
func (c *Client) ExpiryList(ctx context.Context) ([]string, error) {
	var resp struct {
		Status string   `json:"status"`
		Data   []string `json:"data"`
	}
	req := underlyingRequest{UnderlyingScrip: c.scrip, UnderlyingSeg: c.segment}
	if err := c.post(ctx, expiryListPath, req, &resp); err != nil {
		return nil, fmt.Errorf("expiry list: %w", err)
	}
	if resp.Data == nil {
		return []string{}, nil
	}
	return resp.Data, nil
}

func (c *Client) post(ctx context.Context, path string, req any, out any) error {
	if c.token == "" || c.clientID == "" {
		return ErrMissingCredentials
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("access-token", c.token)
	httpReq.Header.Set("client-id", c.clientID)
	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.log.Debug("dhan request", zap.String("path", path), zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
