package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetFlowMetrics(c *gin.Context) {
	if s.flowSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	req, err := s.parseFlowRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.flowSvc.GetFlowMetrics(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
