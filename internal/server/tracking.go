package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	trackingdomain "github.com/careops/mealtrack/internal/tracking/domain"
)

func (s *Server) AddTrackingPoint(c *gin.Context) {
	var req trackingdomain.AppendPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.DeliveryID = strings.TrimSpace(c.Param("id"))

	resp, err := s.trackingSvc.Append(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetTrackingTrail(c *gin.Context) {
	resp, err := s.trackingSvc.Trail(c.Request.Context(), trackingdomain.TrailRequest{
		DeliveryID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
