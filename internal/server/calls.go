package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	calldomain "github.com/smallbiznis/receptionist/internal/call/domain"
	"github.com/smallbiznis/receptionist/internal/phonenumber/provider/twilio"
	"go.uber.org/zap"
)

type upsertContactRequest struct {
	PhoneNumber string  `json:"phone_number"`
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Notes       *string `json:"notes"`
	IsBlocked   *bool   `json:"is_blocked"`
}

// TwilioCallStatus receives the voice StatusCallback for calls to business
// numbers.
func (s *Server) TwilioCallStatus(c *gin.Context) {
	if err := s.verifyTwilio(c); err != nil {
		AbortWithError(c, err)
		return
	}

	seconds, _ := strconv.Atoi(strings.TrimSpace(c.PostForm("CallDuration")))
	_, err := s.callSvc.RecordStatus(c.Request.Context(), calldomain.StatusUpdate{
		CallSID:         c.PostForm("CallSid"),
		From:            c.PostForm("From"),
		To:              c.PostForm("To"),
		Status:          c.PostForm("CallStatus"),
		DurationSeconds: seconds,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.String(http.StatusOK, "OK")
}

// TwilioRecordingStatus stores the recording url once Twilio has it. Unknown
// calls are acknowledged so Twilio stops retrying.
func (s *Server) TwilioRecordingStatus(c *gin.Context) {
	if err := s.verifyTwilio(c); err != nil {
		AbortWithError(c, err)
		return
	}

	callSID := c.PostForm("CallSid")
	err := s.callSvc.RecordRecording(c.Request.Context(), callSID, c.PostForm("RecordingUrl"))
	switch {
	case errors.Is(err, calldomain.ErrCallNotFound):
		s.log.Warn("recording for unknown call", zap.String("call_sid", callSID))
	case err != nil:
		AbortWithError(c, err)
		return
	}

	c.String(http.StatusOK, "OK")
}

// verifyTwilio checks the request signature against the public callback url.
func (s *Server) verifyTwilio(c *gin.Context) error {
	if !s.cfg.Twilio.Configured() {
		return calldomain.ErrCallbackNotEnabled
	}
	if err := c.Request.ParseForm(); err != nil {
		return invalidRequestError()
	}
	fullURL := s.cfg.PublicHost + c.Request.URL.RequestURI()
	if !twilio.ValidSignature(s.cfg.Twilio.AuthToken, fullURL, c.Request.PostForm, c.GetHeader(twilio.SignatureHeader)) {
		return calldomain.ErrInvalidSignature
	}
	return nil
}

func (s *Server) ListCalls(c *gin.Context) {
	calls, err := s.callSvc.ListRecent(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": calls})
}

func (s *Server) SearchContact(c *gin.Context) {
	contact, err := s.callSvc.SearchContact(c.Request.Context(), c.Query("phone"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if contact == nil {
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"found":      true,
		"id":         contact.ID,
		"name":       contact.Name,
		"email":      contact.Email,
		"notes":      contact.Notes,
		"is_blocked": contact.IsBlocked,
	})
}

func (s *Server) UpsertContact(c *gin.Context) {
	var req upsertContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	contact, err := s.callSvc.UpsertContact(c.Request.Context(), calldomain.ContactUpsert{
		PhoneNumber: req.PhoneNumber,
		Name:        req.Name,
		Email:       req.Email,
		Notes:       req.Notes,
		IsBlocked:   req.IsBlocked,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": contact})
}
