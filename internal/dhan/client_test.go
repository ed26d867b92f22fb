package dhan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"options-calendar-bot/internal/config"

	"go.uber.org/zap"
)

func testConfig(baseURL string) config.DhanConfig {
	return config.DhanConfig{
		BaseURL:         baseURL,
		AccessToken:     "token",
		ClientID:        "1100",
		UnderlyingScrip: 13,
		UnderlyingSeg:   "IDX_I",
	}
}

func TestFetchOptionChainPostsExpiry(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	var gotToken, gotClient string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("access-token")
		gotClient = r.Header.Get("client-id")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"last_price":24935.4,"oc":{
			"24900.000000":{"ce":{"last_price":120.5,"top_bid_price":120,"top_ask_price":121,"volume":10,"oi":20,"implied_volatility":11.2,"greeks":{"delta":0.55,"gamma":0.001,"theta":-9.1,"vega":12.3}},
			"pe":{"last_price":80,"greeks":{"delta":-0.45}}}}}}`))
	}))
	defer server.Close()

	client := newClient(testConfig(server.URL), zap.NewNop(), server.Client())
	raw, err := client.FetchOptionChain(context.Background(), "2025-01-09")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/optionchain" {
		t.Fatalf("expected /optionchain, got %s", gotPath)
	}
	if gotToken != "token" || gotClient != "1100" {
		t.Fatalf("expected auth headers, got %q/%q", gotToken, gotClient)
	}
	if gotBody["Expiry"] != "2025-01-09" || gotBody["UnderlyingSeg"] != "IDX_I" || gotBody["UnderlyingScrip"] != float64(13) {
		t.Fatalf("unexpected request body %v", gotBody)
	}
	if raw.Data == nil || raw.Data.LastPrice == nil || *raw.Data.LastPrice != 24935.4 {
		t.Fatalf("unexpected last price in %+v", raw.Data)
	}
	strike, ok := raw.Data.OC["24900.000000"]
	if !ok || strike.CE == nil || strike.PE == nil {
		t.Fatalf("expected both sides for 24900, got %+v", strike)
	}
	if strike.CE.Greeks.Delta != 0.55 || strike.PE.Greeks.Delta != -0.45 {
		t.Fatalf("unexpected deltas %v/%v", strike.CE.Greeks.Delta, strike.PE.Greeks.Delta)
	}
}

func TestFetchOptionChainHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"errorCode":"DH-904"}`))
	}))
	defer server.Close()

	client := newClient(testConfig(server.URL), zap.NewNop(), server.Client())
	_, err := client.FetchOptionChain(context.Background(), "2025-01-09")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", httpErr.StatusCode)
	}
	if httpErr.Body != `{"errorCode":"DH-904"}` {
		t.Fatalf("unexpected body %q", httpErr.Body)
	}
}

func TestMissingCredentials(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.AccessToken = ""
	client := newClient(cfg, zap.NewNop(), nil)
	if _, err := client.ExpiryList(context.Background()); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestExpiryList(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"status":"success","data":["2025-01-09","2025-01-30"]}`))
	}))
	defer server.Close()

	client := newClient(testConfig(server.URL+"/"), zap.NewNop(), server.Client())
	expiries, err := client.ExpiryList(context.Background())
	if err != nil {
		t.Fatalf("expiry list: %v", err)
	}
	if gotPath != "/optionchain/expirylist" {
		t.Fatalf("expected expirylist path, got %s", gotPath)
	}
	if _, ok := gotBody["Expiry"]; ok {
		t.Fatalf("expected no Expiry in expiry list request, got %v", gotBody)
	}
	if len(expiries) != 2 || expiries[0] != "2025-01-09" || expiries[1] != "2025-01-30" {
		t.Fatalf("unexpected expiries %v", expiries)
	}
}
