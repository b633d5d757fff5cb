package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	ingestdomain "github.com/sgericke98/beacon-l2c-sub000/internal/ingest/domain"
)

func (s *Server) SyncSalesforce(c *gin.Context) {
	s.runSync(c, ingestdomain.SourceSalesforce)
}

func (s *Server) SyncNetSuite(c *gin.Context) {
	s.runSync(c, ingestdomain.SourceNetSuite)
}

// runSync executes one ingestion pass. With ?stream=true the response is
// a server-sent event stream of progress frames ending in a complete
// frame; otherwise the final result is returned as plain JSON.
func (s *Server) runSync(c *gin.Context, source string) {
	if s.ingestSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	entity := strings.TrimSpace(c.Param("entity"))
	if entity == "" {
		AbortWithError(c, newValidationError("entity", "invalid_entity", "entity is required"))
		return
	}

	ctx := c.Request.Context()
	if s.cfg.Ingest.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Ingest.RequestTimeout)
		defer cancel()
	}

	stream, _ := strconv.ParseBool(c.Query("stream"))
	if !stream {
		result, err := s.ingestSvc.Sync(ctx, source, entity, nil)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	progress := func(p ingestdomain.Progress) {
		c.SSEvent("message", gin.H{"type": "progress", "data": p})
		c.Writer.Flush()
	}

	result, err := s.ingestSvc.Sync(ctx, source, entity, progress)
	if err != nil {
		c.SSEvent("message", gin.H{"type": "error", "data": gin.H{"error": err.Error()}})
		c.Writer.Flush()
		return
	}

	c.SSEvent("message", gin.H{"type": "complete", "data": result})
	c.Writer.Flush()
}
