package netsuite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sgericke98/beacon-l2c-sub000/internal/config"
	"github.com/sgericke98/beacon-l2c-sub000/internal/ingest/domain"
	"go.uber.org/zap"
)

func fixedSigner() *Signer {
	return &Signer{
		Realm:          "123456",
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		TokenID:        "tid",
		TokenSecret:    "ts",
		Nonce:          func() string { return "fixed-nonce" },
		Now:            func() time.Time { return time.Unix(1748736000, 0) },
	}
}

func TestSignerIsDeterministic(t *testing.T) {
	s := fixedSigner()
	first, err := s.Header("POST", "https://123456.suitetalk.api.netsuite.com/services/rest/query/v1/suiteql?limit=1000&offset=0")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	second, err := s.Header("POST", "https://123456.suitetalk.api.netsuite.com/services/rest/query/v1/suiteql?limit=1000&offset=0")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if first != second {
		t.Fatalf("same inputs must sign identically:\n%s\n%s", first, second)
	}
	if !strings.HasPrefix(first, `OAuth realm="123456"`) {
		t.Fatalf("missing realm prefix: %s", first)
	}
	if !strings.Contains(first, `oauth_signature_method="HMAC-SHA256"`) {
		t.Fatalf("missing signature method: %s", first)
	}
}

func TestSignerQueryOrderInvariance(t *testing.T) {
	s := fixedSigner()
	a, err := s.Header("POST", "https://x.example.com/suiteql?limit=1000&offset=0")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	b, err := s.Header("POST", "https://x.example.com/suiteql?offset=0&limit=1000")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if a != b {
		t.Fatalf("parameter order must not change the signature:\n%s\n%s", a, b)
	}
}

func TestSignerSensitivity(t *testing.T) {
	base, err := fixedSigner().Header("POST", "https://x.example.com/suiteql?offset=0")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	changed := fixedSigner()
	changed.TokenSecret = "other"
	other, err := changed.Header("POST", "https://x.example.com/suiteql?offset=0")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if extractSignature(base) == extractSignature(other) {
		t.Fatalf("token secret must affect the signature")
	}

	moved, err := fixedSigner().Header("POST", "https://x.example.com/suiteql?offset=1000")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if extractSignature(base) == extractSignature(moved) {
		t.Fatalf("query parameters must affect the signature")
	}
}

func extractSignature(header string) string {
	for _, part := range strings.Split(header, ", ") {
		if strings.HasPrefix(part, "oauth_signature=") {
			return part
		}
	}
	return ""
}

func newTestNSClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	var cfg config.Config
	cfg.NetSuite.AccountID = "123456"
	cfg.NetSuite.BaseURL = serverURL
	cfg.NetSuite.ConsumerKey = "ck"
	cfg.NetSuite.ConsumerSecret = "cs"
	cfg.NetSuite.TokenID = "tid"
	cfg.NetSuite.TokenSecret = "ts"
	cfg.Ingest.RequestTimeout = 5 * time.Second

	client := New(Params{Config: cfg, Log: zap.NewNop()})
	client.pageLimit = 2
	return client
}

func TestSuiteQLPagination(t *testing.T) {
	pages := map[string]string{
		"0": `{"items":[{"id":"1"},{"id":"2"}],"hasMore":true,"totalResults":3}`,
		"2": `{"items":[{"id":"3"}],"hasMore":false,"totalResults":3}`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth realm=") {
			t.Errorf("missing OAuth header: %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Prefer") != "transient" {
			t.Errorf("missing Prefer header")
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["q"] == "" {
			t.Errorf("missing query body: %v", err)
		}
		page, ok := pages[r.URL.Query().Get("offset")]
		if !ok {
			t.Errorf("unexpected offset %s", r.URL.Query().Get("offset"))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	client := newTestNSClient(t, server.URL)
	rows, err := client.Query(context.Background(), "SELECT id FROM transaction WHERE type = 'CustInvc'")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[2]["id"] != "3" {
		t.Fatalf("pages out of order: %+v", rows)
	}
}

func TestSuiteQLRejectsWrites(t *testing.T) {
	client := newTestNSClient(t, "http://localhost:0")
	if _, err := client.Query(context.Background(), "DELETE FROM transaction"); !errors.Is(err, domain.ErrReadOnlyQuery) {
		t.Fatalf("expected read-only rejection, got %v", err)
	}
}
