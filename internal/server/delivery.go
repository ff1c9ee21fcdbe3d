package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	deliverydomain "github.com/careops/mealtrack/internal/delivery/domain"
	"github.com/careops/mealtrack/pkg/db/pagination"
)

func (s *Server) CreateDelivery(c *gin.Context) {
	var req deliverydomain.CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.deliverySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) CreateDeliveryBatch(c *gin.Context) {
	var req deliverydomain.CreateDeliveryBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.deliverySvc.CreateBatch(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListDeliveries(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status      string `form:"status"`
		VolunteerID string `form:"volunteer_id"`
		DateFrom    string `form:"date_from"`
		DateTo      string `form:"date_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dateFrom, err := parseOptionalTime(query.DateFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("date_from", "invalid_date_from", "invalid date_from"))
		return
	}

	dateTo, err := parseOptionalTime(query.DateTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("date_to", "invalid_date_to", "invalid date_to"))
		return
	}

	resp, err := s.deliverySvc.List(c.Request.Context(), deliverydomain.ListDeliveryRequest{
		PageToken:   query.PageToken,
		PageSize:    int32(query.PageSize),
		Status:      strings.TrimSpace(query.Status),
		VolunteerID: strings.TrimSpace(query.VolunteerID),
		DateFrom:    dateFrom,
		DateTo:      dateTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDeliveryByID(c *gin.Context) {
	resp, err := s.deliverySvc.GetByID(c.Request.Context(), deliverydomain.GetDeliveryRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AssignVolunteer(c *gin.Context) {
	var req deliverydomain.AssignVolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.deliverySvc.AssignVolunteer(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) StartDelivery(c *gin.Context) {
	resp, err := s.deliverySvc.Start(c.Request.Context(), deliverydomain.StartDeliveryRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CompleteDelivery(c *gin.Context) {
	var req deliverydomain.CompleteDeliveryRequest
	// Proof artifacts are optional, an empty body is a valid completion.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.deliverySvc.Complete(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelDelivery(c *gin.Context) {
	var req deliverydomain.CancelDeliveryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.deliverySvc.Cancel(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// VerifyCode is the side-effect-free pre-flight check a client UI runs
// before handing the code to the recipient.
func (s *Server) VerifyCode(c *gin.Context) {
	resp, err := s.deliverySvc.Verify(c.Request.Context(), deliverydomain.VerifyCodeRequest{
		ID:   strings.TrimSpace(c.Param("id")),
		Code: strings.TrimSpace(c.Query("code")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
