package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	kpidomain "github.com/sgericke98/beacon-l2c-sub000/internal/kpi/domain"
	"github.com/sgericke98/beacon-l2c-sub000/internal/period"
)

type metricRequest struct {
	PeriodDays int            `json:"period_days"`
	Period     *period.Period `json:"period,omitempty"`
}

func (s *Server) GetMetric(c *gin.Context) {
	if s.kpiSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		AbortWithError(c, newValidationError("name", "invalid_metric", "metric name is required"))
		return
	}

	var req metricRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	if req.PeriodDays == 0 {
		req.PeriodDays = defaultPeriodDays
	}
	if err := validatePeriod(req.Period); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.kpiSvc.GetMetric(c.Request.Context(), kpidomain.Request{
		Metric:     name,
		Period:     req.Period,
		PeriodDays: req.PeriodDays,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
