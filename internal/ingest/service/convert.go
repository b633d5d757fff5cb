package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sgericke98/beacon-l2c-sub000/internal/ingest/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Read queries per entity. All of them must stay SELECT-only; the source
// clients reject anything else.
const (
	soqlOpportunities = `SELECT Id, Name, Amount, CurrencyIsoCode, StageName, Type, LeadSource,
		CreatedDate, CloseDate, Customer_Tier__c, Market_Segment__c, Customer_Country__c,
		Auto_Renewal__c FROM Opportunity`
	soqlQuotes = `SELECT Id, OpportunityId, Status, TotalPrice, CurrencyIsoCode, CreatedDate,
		ExpirationDate, End_Date__c, Is_Renewal__c, Is_Amendment__c FROM Quote`
	soqlOrders = `SELECT Id, OpportunityId, QuoteId, Status, TotalAmount, CurrencyIsoCode,
		CreatedDate FROM Order`
	soqlPricebooks = `SELECT Id, Name, IsActive, CreatedDate FROM Pricebook2`
	soqlProducts   = `SELECT Id, ProductCode, Name, IsActive, CreatedDate FROM Product2`

	suiteqlInvoices = `SELECT id, tranid, trandate, foreigntotal, currency, status, createdfrom
		FROM transaction WHERE type = 'CustInvc'`
	suiteqlCreditMemos = `SELECT id, tranid, trandate, foreigntotal, createdfrom
		FROM transaction WHERE type = 'CustCred'`
	suiteqlPayments = `SELECT id, tranid, trandate, foreigntotal, createdfrom
		FROM transaction WHERE type = 'CustPymt'`
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006",
}

func getString(row map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := row[key]; ok && value != nil {
			switch v := value.(type) {
			case string:
				return strings.TrimSpace(v)
			case float64:
				return strconv.FormatFloat(v, 'f', -1, 64)
			case bool:
				return strconv.FormatBool(v)
			}
		}
	}
	return ""
}

func getFloat(row map[string]any, keys ...string) *float64 {
	for _, key := range keys {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case float64:
			out := v
			return &out
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return &parsed
			}
		}
	}
	return nil
}

func getBool(row map[string]any, keys ...string) bool {
	for _, key := range keys {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case bool:
			return v
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "t", "yes", "1":
				return true
			case "false", "f", "no", "0":
				return false
			}
		case float64:
			return v != 0
		}
	}
	return false
}

func getTime(row map[string]any, keys ...string) *time.Time {
	for _, key := range keys {
		raw := getString(row, key)
		if raw == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, raw); err == nil {
				utc := parsed.UTC()
				return &utc
			}
		}
	}
	return nil
}

func rawPayload(row map[string]any) datatypes.JSONMap {
	payload := datatypes.JSONMap{}
	for key, value := range row {
		payload[key] = value
	}
	return payload
}

// usd stamps the USD-converted amount at ingestion write. A missing rate
// is a warning, not a record failure.
func (s *Service) usd(ctx context.Context, amount *float64, currencyCode string) *float64 {
	if amount == nil || currencyCode == "" {
		return nil
	}
	converted, err := s.currency.ToUSD(ctx, *amount, currencyCode)
	if err != nil {
		s.log.Warn("usd conversion skipped",
			zap.String("currency", currencyCode),
			zap.Error(err),
		)
		return nil
	}
	return &converted
}

func (s *Service) convertOpportunity(ctx context.Context, row map[string]any, now time.Time) domain.Opportunity {
	amount := getFloat(row, "Amount")
	currencyCode := getString(row, "CurrencyIsoCode")
	created := getTime(row, "CreatedDate")
	if created == nil {
		created = &now
	}
	return domain.Opportunity{
		SourceID:        getString(row, "Id"),
		Name:            getString(row, "Name"),
		Amount:          amount,
		Currency:        currencyCode,
		AmountUSD:       s.usd(ctx, amount, currencyCode),
		Stage:           getString(row, "StageName"),
		OpportunityType: getString(row, "Type"),
		LeadSource:      getString(row, "LeadSource"),
		CustomerTier:    getString(row, "Customer_Tier__c"),
		MarketSegment:   getString(row, "Market_Segment__c"),
		CustomerCountry: getString(row, "Customer_Country__c"),
		AutoRenewal:     getBool(row, "Auto_Renewal__c"),
		CreatedDate:     *created,
		CloseDate:       getTime(row, "CloseDate"),
		Raw:             rawPayload(row),
		SyncedAt:        now,
	}
}

func (s *Service) convertQuote(ctx context.Context, row map[string]any, now time.Time) domain.Quote {
	amount := getFloat(row, "TotalPrice")
	currencyCode := getString(row, "CurrencyIsoCode")
	created := getTime(row, "CreatedDate")
	if created == nil {
		created = &now
	}
	return domain.Quote{
		SourceID:       getString(row, "Id"),
		OpportunityID:  s.resolveParent(ctx, "salesforce_opportunities", getString(row, "OpportunityId")),
		Status:         getString(row, "Status"),
		Amount:         amount,
		Currency:       currencyCode,
		AmountUSD:      s.usd(ctx, amount, currencyCode),
		IsRenewal:      getBool(row, "Is_Renewal__c"),
		IsAmendment:    getBool(row, "Is_Amendment__c"),
		CreatedDate:    *created,
		ExpirationDate: getTime(row, "ExpirationDate"),
		EndDate:        getTime(row, "End_Date__c"),
		Raw:            rawPayload(row),
		SyncedAt:       now,
	}
}

func (s *Service) convertOrder(ctx context.Context, row map[string]any, now time.Time) domain.Order {
	amount := getFloat(row, "TotalAmount")
	currencyCode := getString(row, "CurrencyIsoCode")
	created := getTime(row, "CreatedDate")
	if created == nil {
		created = &now
	}
	return domain.Order{
		SourceID:      getString(row, "Id"),
		OpportunityID: s.resolveParent(ctx, "salesforce_opportunities", getString(row, "OpportunityId")),
		QuoteID:       s.resolveParent(ctx, "salesforce_quotes", getString(row, "QuoteId")),
		Status:        getString(row, "Status"),
		Amount:        amount,
		Currency:      currencyCode,
		AmountUSD:     s.usd(ctx, amount, currencyCode),
		CreatedDate:   *created,
		Raw:           rawPayload(row),
		SyncedAt:      now,
	}
}

func (s *Service) convertPricebook(row map[string]any, now time.Time) domain.Pricebook {
	created := getTime(row, "CreatedDate")
	if created == nil {
		created = &now
	}
	return domain.Pricebook{
		SourceID:    getString(row, "Id"),
		Name:        getString(row, "Name"),
		IsActive:    getBool(row, "IsActive"),
		CreatedDate: *created,
		SyncedAt:    now,
	}
}

func (s *Service) convertProduct(row map[string]any, now time.Time) domain.Product {
	created := getTime(row, "CreatedDate")
	if created == nil {
		created = &now
	}
	return domain.Product{
		SourceID:    getString(row, "Id"),
		Code:        getString(row, "ProductCode"),
		Name:        getString(row, "Name"),
		IsActive:    getBool(row, "IsActive"),
		CreatedDate: *created,
		SyncedAt:    now,
	}
}

func (s *Service) convertInvoice(ctx context.Context, row map[string]any, now time.Time) domain.Invoice {
	amount := getFloat(row, "foreigntotal")
	currencyCode := getString(row, "currency")
	tranDate := getTime(row, "trandate")
	if tranDate == nil {
		tranDate = &now
	}
	return domain.Invoice{
		SourceID:  getString(row, "id"),
		OrderID:   s.resolveParent(ctx, "salesforce_orders", getString(row, "createdfrom")),
		Status:    getString(row, "status"),
		Amount:    amount,
		Currency:  currencyCode,
		AmountUSD: s.usd(ctx, amount, currencyCode),
		TranDate:  *tranDate,
		Raw:       rawPayload(row),
		SyncedAt:  now,
	}
}

func (s *Service) convertCreditMemo(ctx context.Context, row map[string]any, now time.Time) domain.CreditMemo {
	tranDate := getTime(row, "trandate")
	if tranDate == nil {
		tranDate = &now
	}
	return domain.CreditMemo{
		SourceID:  getString(row, "id"),
		InvoiceID: s.resolveParent(ctx, "netsuite_invoices", getString(row, "createdfrom")),
		Amount:    getFloat(row, "foreigntotal"),
		TranDate:  *tranDate,
		Raw:       rawPayload(row),
		SyncedAt:  now,
	}
}

func (s *Service) convertPayment(ctx context.Context, row map[string]any, now time.Time) domain.Payment {
	tranDate := getTime(row, "trandate")
	if tranDate == nil {
		tranDate = &now
	}
	return domain.Payment{
		SourceID:  getString(row, "id"),
		InvoiceID: s.resolveParent(ctx, "netsuite_invoices", getString(row, "createdfrom")),
		Amount:    getFloat(row, "foreigntotal"),
		TranDate:  *tranDate,
		Raw:       rawPayload(row),
		SyncedAt:  now,
	}
}
