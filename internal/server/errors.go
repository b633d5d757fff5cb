package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	flowdomain "github.com/sgericke98/beacon-l2c-sub000/internal/flow/domain"
	ingestdomain "github.com/sgericke98/beacon-l2c-sub000/internal/ingest/domain"
	kpidomain "github.com/sgericke98/beacon-l2c-sub000/internal/kpi/domain"
	obscontext "github.com/sgericke98/beacon-l2c-sub000/internal/observability/context"
)

// apiError carries an HTTP status plus the machine-readable error code
// and optional per-field details rendered in the response body.
type apiError struct {
	status  int
	code    string
	details gin.H
}

func (e *apiError) Error() string { return e.code }

// ErrServiceUnavailable is returned when a handler's backing service was
// not wired, which only happens in partial test setups.
var ErrServiceUnavailable = &apiError{status: http.StatusServiceUnavailable, code: "service_unavailable"}

func invalidRequestError() error {
	return &apiError{status: http.StatusBadRequest, code: "invalid_request"}
}

func newValidationError(field, code, message string) error {
	return &apiError{
		status: http.StatusBadRequest,
		code:   code,
		details: gin.H{
			"field":   field,
			"message": message,
		},
	}
}

// AbortWithError maps an error to its HTTP status and writes the error
// envelope. Domain sentinels become 400s; anything unmapped is a 500
// without internal detail. The request id assigned by the logging
// middleware rides along so clients can quote it in support tickets.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		body := errorBody(c, apiErr.code)
		if apiErr.details != nil {
			body["details"] = apiErr.details
		}
		c.AbortWithStatusJSON(apiErr.status, body)
		return
	}

	switch {
	case errors.Is(err, flowdomain.ErrInvalidPeriod),
		errors.Is(err, flowdomain.ErrInvalidDealSize),
		errors.Is(err, flowdomain.ErrInvalidQuoteSpeed),
		errors.Is(err, kpidomain.ErrInvalidPeriod),
		errors.Is(err, ingestdomain.ErrReadOnlyQuery):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(c, err.Error()))
	case errors.Is(err, kpidomain.ErrUnknownMetric),
		errors.Is(err, ingestdomain.ErrUnknownEntity):
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody(c, err.Error()))
	case errors.Is(err, flowdomain.ErrQueryTimeout):
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, errorBody(c, err.Error()))
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(c, "internal_error"))
	}
}

func errorBody(c *gin.Context, code string) gin.H {
	body := gin.H{"error": code}
	if requestID := obscontext.RequestIDFromGin(c); requestID != "" {
		body["request_id"] = requestID
	}
	return body
}
