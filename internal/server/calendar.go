package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	calendardomain "github.com/smallbiznis/receptionist/internal/calendar/domain"
)

func (s *Server) StartCalendarAuthorization(c *gin.Context) {
	resp, err := s.calendarSvc.Start(c.Request.Context(), strings.TrimSpace(c.Query("business_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !resp.Available {
		c.JSON(http.StatusOK, resp)
		return
	}

	c.Redirect(http.StatusFound, resp.URL)
}

func (s *Server) CalendarCallback(c *gin.Context) {
	target := s.calendarSvc.Callback(c.Request.Context(), calendardomain.CallbackRequest{
		Code:  c.Query("code"),
		Error: c.Query("error"),
		State: c.Query("state"),
	})

	c.Redirect(http.StatusFound, target)
}

func (s *Server) CalendarStatus(c *gin.Context) {
	resp, err := s.calendarSvc.Status(c.Request.Context(), strings.TrimSpace(c.Query("business_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DisconnectCalendar only acts on a business the caller owns.
func (s *Server) DisconnectCalendar(c *gin.Context) {
	business, err := s.businessSvc.Get(c.Request.Context(), strings.TrimSpace(c.Query("business_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.calendarSvc.Disconnect(c.Request.Context(), business.ID.String()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Google Calendar disconnected"})
}
