package netsuite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sgericke98/beacon-l2c-sub000/internal/config"
	"github.com/sgericke98/beacon-l2c-sub000/internal/ingest/domain"
	"github.com/sgericke98/beacon-l2c-sub000/internal/observability/tracing"
	"github.com/sgericke98/beacon-l2c-sub000/internal/retry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultPageLimit = 1000

// Client reads NetSuite records through the SuiteQL REST endpoint with
// token-based OAuth1 authentication and offset pagination.
type Client struct {
	http      *http.Client
	base      string
	signer    *Signer
	log       *zap.Logger
	policy    retry.Policy
	pageLimit int
}

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

func New(p Params) *Client {
	ns := p.Config.NetSuite
	return &Client{
		http: tracing.WrapHTTPClient(&http.Client{Timeout: p.Config.Ingest.RequestTimeout}),
		base: strings.TrimRight(ns.BaseURL, "/"),
		signer: &Signer{
			Realm:          ns.AccountID,
			ConsumerKey:    ns.ConsumerKey,
			ConsumerSecret: ns.ConsumerSecret,
			TokenID:        ns.TokenID,
			TokenSecret:    ns.TokenSecret,
		},
		log: p.Log.Named("ingest.netsuite"),
		policy: retry.Policy{
			MaxAttempts: 3,
			Backoff:     retry.LinearBackoff(time.Second),
			Retryable:   domain.IsBadGateway,
		},
		pageLimit: defaultPageLimit,
	}
}

type suiteQLResponse struct {
	Items        []map[string]any `json:"items"`
	HasMore      bool             `json:"hasMore"`
	TotalResults int              `json:"totalResults"`
}

// Query runs a read-only SuiteQL query, advancing the offset until the
// API reports no more pages.
func (c *Client) Query(ctx context.Context, suiteql string) ([]map[string]any, error) {
	if !isReadOnly(suiteql) {
		return nil, domain.ErrReadOnlyQuery
	}

	var rows []map[string]any
	for offset := 0; ; offset += c.pageLimit {
		resp, err := c.fetchPage(ctx, suiteql, offset)
		if err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			delete(item, "links")
			rows = append(rows, item)
		}
		c.log.Debug("fetched page",
			zap.Int("offset", offset),
			zap.Int("records", len(resp.Items)),
			zap.Int("total", resp.TotalResults),
		)
		if !resp.HasMore {
			return rows, nil
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, suiteql string, offset int) (*suiteQLResponse, error) {
	endpoint := fmt.Sprintf("%s/services/rest/query/v1/suiteql?limit=%d&offset=%d", c.base, c.pageLimit, offset)

	body, err := json.Marshal(map[string]string{"q": suiteql})
	if err != nil {
		return nil, err
	}

	var out *suiteQLResponse
	err = c.policy.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		auth, err := c.signer.Header(http.MethodPost, endpoint)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", auth)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "transient")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return &domain.SourceError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		}

		var decoded suiteQLResponse
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
