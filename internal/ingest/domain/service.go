package domain

import (
	"context"
	"errors"
	"fmt"
)

// Source pulls every record a read query matches, paginating internally.
type Source interface {
	Query(ctx context.Context, query string) ([]map[string]any, error)
}

const (
	SourceSalesforce = "salesforce"
	SourceNetSuite   = "netsuite"
)

// Salesforce entities.
const (
	EntityOpportunity = "opportunity"
	EntityQuote       = "quote"
	EntityOrder       = "order"
	EntityPricebook   = "pricebook"
	EntityProduct     = "product"
)

// NetSuite entities.
const (
	EntityInvoice    = "invoice"
	EntityCreditMemo = "credit_memo"
	EntityPayment    = "payment"
)

// Progress is one frame of an ingestion run, emitted after every batch.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
	Success   int `json:"success"`
	Errors    int `json:"errors"`
}

type ProgressFunc func(Progress)

// Result is the final accounting of one ingestion run. Success and Errors
// are reported even when some batches failed.
type Result struct {
	Source     string `json:"source"`
	Entity     string `json:"entity"`
	Total      int    `json:"total"`
	Processed  int    `json:"processed"`
	Success    int    `json:"success"`
	Errors     int    `json:"errors"`
	Duplicates int    `json:"duplicates"`
}

// Service runs one ingestion pass for a named source entity.
type Service interface {
	Sync(ctx context.Context, source, entity string, progress ProgressFunc) (*Result, error)
}

var (
	ErrUnknownEntity = errors.New("unknown_entity")
	ErrReadOnlyQuery = errors.New("read_only_query_required")
)

// SourceError is a non-2xx reply from the upstream CRM/ERP API.
type SourceError struct {
	Status int
	Body   string
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source_status_%d: %s", e.Status, e.Body)
}

// IsBadGateway reports whether the error is an upstream 502, the transient
// class worth retrying.
func IsBadGateway(err error) bool {
	var se *SourceError
	return errors.As(err, &se) && se.Status == 502
}
