package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	flowdomain "github.com/sgericke98/beacon-l2c-sub000/internal/flow/domain"
	"github.com/sgericke98/beacon-l2c-sub000/internal/period"
)

const defaultPeriodDays = 90

// parseFlowRequest accepts the filter payload either as a JSON body
// (POST) or as query parameters (GET).
func (s *Server) parseFlowRequest(c *gin.Context) (flowdomain.Request, error) {
	var req flowdomain.Request

	if c.Request.Method == "POST" && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, invalidRequestError()
		}
	} else {
		req.PeriodDays = queryInt(c, "period_days", 0)
		req.Filters = flowdomain.Filters{
			CustomerTiers:    c.QueryArray("customer_tiers"),
			Countries:        c.QueryArray("countries"),
			MarketSegments:   c.QueryArray("market_segments"),
			Stages:           c.QueryArray("stages"),
			LeadSources:      c.QueryArray("lead_sources"),
			OpportunityTypes: c.QueryArray("opportunity_types"),
			DealSize:         strings.TrimSpace(c.Query("deal_size")),
			QuoteSpeed:       strings.TrimSpace(c.Query("quote_speed")),
		}
		from := strings.TrimSpace(c.Query("from"))
		to := strings.TrimSpace(c.Query("to"))
		if from != "" || to != "" {
			req.Period = &period.Period{From: from, To: to}
		}
	}

	if req.PeriodDays == 0 {
		req.PeriodDays = defaultPeriodDays
	}
	if err := validatePeriod(req.Period); err != nil {
		return req, err
	}
	return req, nil
}

// validatePeriod requires both bounds as ISO dates in order when an
// explicit window is given.
func validatePeriod(p *period.Period) error {
	if p == nil {
		return nil
	}
	from, err := period.Parse(p.From)
	if err != nil {
		return newValidationError("from", "invalid_date", "from must be an ISO date")
	}
	to, err := period.Parse(p.To)
	if err != nil {
		return newValidationError("to", "invalid_date", "to must be an ISO date")
	}
	if to.Before(from) {
		return newValidationError("to", "invalid_range", "to must not precede from")
	}
	return nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
