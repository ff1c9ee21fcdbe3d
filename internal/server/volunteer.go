package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	deliverydomain "github.com/careops/mealtrack/internal/delivery/domain"
	performancedomain "github.com/careops/mealtrack/internal/performance/domain"
	volunteerdomain "github.com/careops/mealtrack/internal/volunteer/domain"
)

func (s *Server) ListVolunteers(c *gin.Context) {
	activeOnly, err := parseOptionalBool(c.Query("active"))
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.volunteerSvc.List(c.Request.Context(), volunteerdomain.ListVolunteerRequest{
		ActiveOnly: activeOnly != nil && *activeOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetVolunteerByID(c *gin.Context) {
	resp, err := s.volunteerSvc.GetByID(c.Request.Context(), volunteerdomain.GetVolunteerRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListVolunteerDeliveries(c *gin.Context) {
	resp, err := s.deliverySvc.ListByVolunteer(c.Request.Context(), deliverydomain.ListByVolunteerRequest{
		VolunteerID: strings.TrimSpace(c.Param("id")),
		Status:      strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetVolunteerPerformance(c *gin.Context) {
	resp, err := s.performanceSvc.ComputeVolunteer(c.Request.Context(), performancedomain.ComputeVolunteerRequest{
		VolunteerID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAllVolunteersPerformance(c *gin.Context) {
	resp, err := s.performanceSvc.ComputeAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
