package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	phonedomain "github.com/smallbiznis/receptionist/internal/phonenumber/domain"
)

type purchaseNumberRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	BusinessID  string `json:"businessId"`
}

type releaseNumberRequest struct {
	BusinessID string `json:"businessId"`
}

func (s *Server) SearchNumbers(c *gin.Context) {
	var query struct {
		AreaCode string `form:"area_code"`
		Region   string `form:"region"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.numberSvc.Search(c.Request.Context(), phonedomain.SearchQuery{
		AreaCode: strings.TrimSpace(query.AreaCode),
		Region:   strings.TrimSpace(query.Region),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp == nil {
		resp = []phonedomain.Candidate{}
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PurchaseNumber(c *gin.Context) {
	var req purchaseNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.numberSvc.Purchase(c.Request.Context(), phonedomain.PurchaseRequest{
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		BusinessID:  strings.TrimSpace(req.BusinessID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReleaseNumber(c *gin.Context) {
	var req releaseNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.numberSvc.Release(c.Request.Context(), phonedomain.ReleaseRequest{
		BusinessID: strings.TrimSpace(req.BusinessID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
