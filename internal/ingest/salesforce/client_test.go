package salesforce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sgericke98/beacon-l2c-sub000/internal/config"
	"github.com/sgericke98/beacon-l2c-sub000/internal/ingest/domain"
	"github.com/sgericke98/beacon-l2c-sub000/internal/retry"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	var cfg config.Config
	cfg.Salesforce.InstanceURL = serverURL
	cfg.Salesforce.TokenURL = serverURL + "/services/oauth2/token"
	cfg.Salesforce.ClientID = "client"
	cfg.Salesforce.ClientSecret = "secret"
	cfg.Salesforce.APIVersion = "v59.0"
	cfg.Ingest.RequestTimeout = 5 * time.Second

	client := New(Params{Config: cfg, Log: zap.NewNop()})
	client.policy = retry.Policy{
		MaxAttempts: 3,
		Backoff:     func(int) time.Duration { return 0 },
		Retryable:   domain.IsBadGateway,
	}
	return client
}

func serveToken(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"access_token":"tkn","token_type":"Bearer","expires_in":3600}`)
}

func TestQueryFollowsNextRecordsURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/services/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		serveToken(w)
	})
	mux.HandleFunc("/services/data/v59.0/query", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer tkn" {
			t.Errorf("unexpected authorization header: %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"totalSize": 3,
			"done": false,
			"nextRecordsUrl": "/services/data/v59.0/query/next-page",
			"records": [
				{"attributes": {"type": "Opportunity"}, "Id": "a"},
				{"attributes": {"type": "Opportunity"}, "Id": "b"}
			]
		}`)
	})
	mux.HandleFunc("/services/data/v59.0/query/next-page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"totalSize": 3, "done": true, "records": [{"Id": "c"}]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	rows, err := client.Query(context.Background(), "SELECT Id FROM Opportunity")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if _, ok := rows[0]["attributes"]; ok {
		t.Fatalf("attributes envelope should be stripped: %+v", rows[0])
	}
	if rows[2]["Id"] != "c" {
		t.Fatalf("pages out of order: %+v", rows)
	}
}

func TestQueryRetriesBadGateway(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/services/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		serveToken(w)
	})
	mux.HandleFunc("/services/data/v59.0/query", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"totalSize": 1, "done": true, "records": [{"Id": "a"}]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	rows, err := client.Query(context.Background(), "SELECT Id FROM Opportunity")
	if err != nil {
		t.Fatalf("query after retries: %v", err)
	}
	if len(rows) != 1 || calls.Load() != 3 {
		t.Fatalf("expected success on third attempt, rows=%d calls=%d", len(rows), calls.Load())
	}
}

func TestQueryRejectsWrites(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")
	for _, soql := range []string{
		"DELETE FROM Opportunity",
		"UPDATE Opportunity SET Name = 'x'",
		"  insert into Opportunity values (1)",
	} {
		if _, err := client.Query(context.Background(), soql); !errors.Is(err, domain.ErrReadOnlyQuery) {
			t.Fatalf("expected read-only rejection for %q, got %v", soql, err)
		}
	}
	if _, err := client.Query(context.Background(), "select Id from Opportunity"); errors.Is(err, domain.ErrReadOnlyQuery) {
		t.Fatalf("lowercase select should pass the guard")
	}
}
