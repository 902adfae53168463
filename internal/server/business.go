package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	businessdomain "github.com/smallbiznis/receptionist/internal/business/domain"
	"go.uber.org/zap"
)

type createBusinessRequest struct {
	Name        string `json:"name"`
	Industry    string `json:"industry"`
	Description string `json:"description"`
	Timezone    string `json:"timezone"`
}

type updateBusinessRequest struct {
	Name                *string               `json:"name"`
	Industry            *string               `json:"industry"`
	Description         *string               `json:"description"`
	PhoneNumber         *string               `json:"phone_number"`
	Timezone            *string               `json:"timezone"`
	GreetingStyle       *string               `json:"greeting_style"`
	BusinessHours       *string               `json:"business_hours"`
	CommonServices      *string               `json:"common_services"`
	FAQs                *[]businessdomain.FAQ `json:"faqs"`
	ReceptionistEnabled *bool                 `json:"receptionist_enabled"`
}

func (r updateBusinessRequest) toDomain(id string) businessdomain.UpdateRequest {
	return businessdomain.UpdateRequest{
		ID:                  id,
		Name:                r.Name,
		Industry:            r.Industry,
		Description:         r.Description,
		PhoneNumber:         r.PhoneNumber,
		Timezone:            r.Timezone,
		GreetingStyle:       r.GreetingStyle,
		BusinessHours:       r.BusinessHours,
		CommonServices:      r.CommonServices,
		FAQs:                r.FAQs,
		ReceptionistEnabled: r.ReceptionistEnabled,
	}
}

type toggleReceptionistRequest struct {
	Enabled *bool `json:"enabled"`
}

type updateBusinessStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

func (s *Server) CreateBusiness(c *gin.Context) {
	var req createBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.businessSvc.Create(c.Request.Context(), businessdomain.CreateRequest{
		Name:        req.Name,
		Industry:    strings.TrimSpace(req.Industry),
		Description: strings.TrimSpace(req.Description),
		Timezone:    strings.TrimSpace(req.Timezone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.businessView(c.Request.Context(), resp)})
}

func (s *Server) GetMyBusiness(c *gin.Context) {
	resp, err := s.businessSvc.GetMine(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusOK, gin.H{"data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.businessView(c.Request.Context(), *resp)})
}

func (s *Server) GetBusinessByID(c *gin.Context) {
	resp, err := s.businessSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.businessView(c.Request.Context(), resp)})
}

func (s *Server) UpdateBusiness(c *gin.Context) {
	var req updateBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.businessSvc.Update(c.Request.Context(), req.toDomain(strings.TrimSpace(c.Param("id"))))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.businessView(c.Request.Context(), resp)})
}

func (s *Server) UpdateMyBusiness(c *gin.Context) {
	var req updateBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.businessSvc.UpdateMine(c.Request.Context(), req.toDomain(""))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.businessView(c.Request.Context(), resp)})
}

func (s *Server) ToggleReceptionist(c *gin.Context) {
	var req toggleReceptionistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	resp, err := s.businessSvc.SetReceptionistEnabled(c.Request.Context(), enabled)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.businessView(c.Request.Context(), resp)})
}

func (s *Server) UpdateBusinessStatus(c *gin.Context) {
	var req updateBusinessStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		AbortWithError(c, newValidationError("is_active", "invalid_is_active", "is_active is required"))
		return
	}

	resp, err := s.businessSvc.SetActive(c.Request.Context(), strings.TrimSpace(c.Param("id")), *req.IsActive)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.businessView(c.Request.Context(), resp)})
}

func (s *Server) businessView(ctx context.Context, b businessdomain.Business) businessdomain.View {
	view := businessdomain.View{
		Business:         b,
		SubscriptionPlan: s.plans.Get().NameForLimit(b.MinutesLimit),
	}
	if s.calendarSvc == nil {
		return view
	}
	connected, err := s.calendarSvc.IsConnected(ctx, b.ID.String())
	if err != nil {
		s.log.Warn("calendar status lookup failed", zap.String("business_id", b.ID.String()), zap.Error(err))
		return view
	}
	view.GoogleCalendarConnected = connected
	return view
}
