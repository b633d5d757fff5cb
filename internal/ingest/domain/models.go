package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Opportunity is a CRM opportunity row keyed by its source-system id.
// Re-syncs overwrite the row in place.
type Opportunity struct {
	SourceID        string            `gorm:"column:source_id;primaryKey"`
	Name            string            `gorm:"column:name"`
	Amount          *float64          `gorm:"column:amount"`
	Currency        string            `gorm:"column:currency"`
	AmountUSD       *float64          `gorm:"column:amount_usd"`
	Stage           string            `gorm:"column:stage"`
	OpportunityType string            `gorm:"column:opportunity_type"`
	LeadSource      string            `gorm:"column:lead_source"`
	CustomerTier    string            `gorm:"column:customer_tier"`
	MarketSegment   string            `gorm:"column:market_segment"`
	CustomerCountry string            `gorm:"column:customer_country"`
	AutoRenewal     bool              `gorm:"column:auto_renewal"`
	CreatedDate     time.Time         `gorm:"column:created_date"`
	CloseDate       *time.Time        `gorm:"column:close_date"`
	Raw             datatypes.JSONMap `gorm:"column:raw"`
	SyncedAt        time.Time         `gorm:"column:synced_at"`
}

func (Opportunity) TableName() string { return "salesforce_opportunities" }

// Quote belongs to an opportunity. One opportunity may carry many quotes;
// exactly one per opportunity is flagged primary (latest created wins).
type Quote struct {
	SourceID       string            `gorm:"column:source_id;primaryKey"`
	OpportunityID  string            `gorm:"column:opportunity_id"`
	Status         string            `gorm:"column:status"`
	Amount         *float64          `gorm:"column:amount"`
	Currency       string            `gorm:"column:currency"`
	AmountUSD      *float64          `gorm:"column:amount_usd"`
	IsPrimary      bool              `gorm:"column:is_primary"`
	IsRenewal      bool              `gorm:"column:is_renewal"`
	IsAmendment    bool              `gorm:"column:is_amendment"`
	CreatedDate    time.Time         `gorm:"column:created_date"`
	ExpirationDate *time.Time        `gorm:"column:expiration_date"`
	EndDate        *time.Time        `gorm:"column:end_date"`
	Raw            datatypes.JSONMap `gorm:"column:raw"`
	SyncedAt       time.Time         `gorm:"column:synced_at"`
}

func (Quote) TableName() string { return "salesforce_quotes" }

type Order struct {
	SourceID      string            `gorm:"column:source_id;primaryKey"`
	OpportunityID string            `gorm:"column:opportunity_id"`
	QuoteID       string            `gorm:"column:quote_id"`
	Status        string            `gorm:"column:status"`
	Amount        *float64          `gorm:"column:amount"`
	Currency      string            `gorm:"column:currency"`
	AmountUSD     *float64          `gorm:"column:amount_usd"`
	CreatedDate   time.Time         `gorm:"column:created_date"`
	Raw           datatypes.JSONMap `gorm:"column:raw"`
	SyncedAt      time.Time         `gorm:"column:synced_at"`
}

func (Order) TableName() string { return "salesforce_orders" }

type Pricebook struct {
	SourceID    string    `gorm:"column:source_id;primaryKey"`
	Name        string    `gorm:"column:name"`
	IsActive    bool      `gorm:"column:is_active"`
	CreatedDate time.Time `gorm:"column:created_date"`
	SyncedAt    time.Time `gorm:"column:synced_at"`
}

func (Pricebook) TableName() string { return "pricebook_raw" }

type Product struct {
	SourceID    string    `gorm:"column:source_id;primaryKey"`
	Code        string    `gorm:"column:code"`
	Name        string    `gorm:"column:name"`
	IsActive    bool      `gorm:"column:is_active"`
	CreatedDate time.Time `gorm:"column:created_date"`
	SyncedAt    time.Time `gorm:"column:synced_at"`
}

func (Product) TableName() string { return "products_raw" }

// Invoice is an ERP invoice. OrderID is resolved during ingestion by a
// point lookup against salesforce_orders; it stays empty when the parent
// has not been ingested yet.
type Invoice struct {
	SourceID  string            `gorm:"column:source_id;primaryKey"`
	OrderID   string            `gorm:"column:order_id"`
	Status    string            `gorm:"column:status"`
	Amount    *float64          `gorm:"column:amount"`
	Currency  string            `gorm:"column:currency"`
	AmountUSD *float64          `gorm:"column:amount_usd"`
	TranDate  time.Time         `gorm:"column:tran_date"`
	Raw       datatypes.JSONMap `gorm:"column:raw"`
	SyncedAt  time.Time         `gorm:"column:synced_at"`
}

func (Invoice) TableName() string { return "netsuite_invoices" }

type CreditMemo struct {
	SourceID  string            `gorm:"column:source_id;primaryKey"`
	InvoiceID string            `gorm:"column:invoice_id"`
	Amount    *float64          `gorm:"column:amount"`
	TranDate  time.Time         `gorm:"column:tran_date"`
	Raw       datatypes.JSONMap `gorm:"column:raw"`
	SyncedAt  time.Time         `gorm:"column:synced_at"`
}

func (CreditMemo) TableName() string { return "netsuite_credit_memos" }

type Payment struct {
	SourceID  string            `gorm:"column:source_id;primaryKey"`
	InvoiceID string            `gorm:"column:invoice_id"`
	Amount    *float64          `gorm:"column:amount"`
	TranDate  time.Time         `gorm:"column:tran_date"`
	Raw       datatypes.JSONMap `gorm:"column:raw"`
	SyncedAt  time.Time         `gorm:"column:synced_at"`
}

func (Payment) TableName() string { return "netsuite_payments" }

// SyncRun records one ingestion run for a single entity.
type SyncRun struct {
	ID         snowflake.ID      `gorm:"column:id;primaryKey"`
	Source     string            `gorm:"column:source"`
	Entity     string            `gorm:"column:entity"`
	Status     string            `gorm:"column:status"`
	Stats      datatypes.JSONMap `gorm:"column:stats"`
	StartedAt  time.Time         `gorm:"column:started_at"`
	FinishedAt *time.Time        `gorm:"column:finished_at"`
}

func (SyncRun) TableName() string { return "sync_runs" }

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)
