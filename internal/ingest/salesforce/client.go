package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sgericke98/beacon-l2c-sub000/internal/config"
	"github.com/sgericke98/beacon-l2c-sub000/internal/ingest/domain"
	"github.com/sgericke98/beacon-l2c-sub000/internal/observability/tracing"
	"github.com/sgericke98/beacon-l2c-sub000/internal/retry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
)

// Client reads Salesforce records through the SOQL query API using an
// OAuth2 client-credentials token source.
type Client struct {
	http    *http.Client
	base    string
	version string
	log     *zap.Logger
	policy  retry.Policy
}

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

func New(p Params) *Client {
	oauth := &clientcredentials.Config{
		ClientID:     p.Config.Salesforce.ClientID,
		ClientSecret: p.Config.Salesforce.ClientSecret,
		TokenURL:     p.Config.Salesforce.TokenURL,
	}
	httpClient := oauth.Client(context.Background())
	httpClient.Timeout = p.Config.Ingest.RequestTimeout

	return &Client{
		http:    tracing.WrapHTTPClient(httpClient),
		base:    strings.TrimRight(p.Config.Salesforce.InstanceURL, "/"),
		version: p.Config.Salesforce.APIVersion,
		log:     p.Log.Named("ingest.salesforce"),
		policy: retry.Policy{
			MaxAttempts: 3,
			Backoff:     retry.LinearBackoff(time.Second),
			Retryable:   domain.IsBadGateway,
		},
	}
}

type queryResponse struct {
	TotalSize      int              `json:"totalSize"`
	Done           bool             `json:"done"`
	NextRecordsURL string           `json:"nextRecordsUrl"`
	Records        []map[string]any `json:"records"`
}

// Query runs a read-only SOQL query and follows nextRecordsUrl pagination
// until the final page. Non-SELECT queries are rejected before any call
// leaves the process.
func (c *Client) Query(ctx context.Context, soql string) ([]map[string]any, error) {
	if !isReadOnly(soql) {
		return nil, domain.ErrReadOnlyQuery
	}

	path := fmt.Sprintf("/services/data/%s/query?q=%s", c.version, url.QueryEscape(soql))
	var rows []map[string]any
	for page := 1; ; page++ {
		resp, err := c.fetchPage(ctx, path)
		if err != nil {
			return nil, err
		}
		for _, record := range resp.Records {
			delete(record, "attributes")
			rows = append(rows, record)
		}
		c.log.Debug("fetched page",
			zap.Int("page", page),
			zap.Int("records", len(resp.Records)),
			zap.Int("total", resp.TotalSize),
		)
		if resp.Done || resp.NextRecordsURL == "" {
			return rows, nil
		}
		path = resp.NextRecordsURL
	}
}

func (c *Client) fetchPage(ctx context.Context, path string) (*queryResponse, error) {
	var out *queryResponse
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return &domain.SourceError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		var decoded queryResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return err
		}
		out = &decoded
		return nil
	})
	return out, err
}

func isReadOnly(query string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT")
}
