package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	GoogleCalendarScope = "https://www.googleapis.com/auth/calendar"
	DefaultTokenType    = "Bearer"
)

// Codes carried back to the dashboard in the error query parameter.
const (
	CodeConnected           = "calendar_connected"
	CodeCancelled           = "calendar_cancelled"
	CodeFailed              = "calendar_failed"
	CodeConfigurationError  = "calendar_configuration_error"
	CodeTokenExchangeFailed = "calendar_token_exchange_failed"
	CodeNoAccessToken       = "calendar_no_access_token"
	CodeNetworkError        = "calendar_network_error"
	CodeInternalError       = "calendar_internal_error"
)

// Token is the sealed OAuth grant for one business calendar.
type Token struct {
	ID                    snowflake.ID `gorm:"primaryKey"`
	BusinessID            string       `gorm:"not null;uniqueIndex"`
	AccessTokenEncrypted  string       `gorm:"not null"`
	RefreshTokenEncrypted string       `gorm:"not null;default:''"`
	TokenType             string       `gorm:"not null;default:'Bearer'"`
	Scope                 string       `gorm:"not null;default:''"`
	ExpiresAt             time.Time    `gorm:"not null"`
	IsConnected           bool         `gorm:"not null;default:true"`
	CreatedAt             time.Time    `gorm:"not null"`
	UpdatedAt             time.Time    `gorm:"not null"`
}

func (Token) TableName() string { return "calendar_tokens" }

type StartResult struct {
	Available bool   `json:"available"`
	URL       string `json:"url,omitempty"`
	Error     string `json:"error,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

type CallbackRequest struct {
	Code  string
	Error string
	State string
}

type Status struct {
	Connected  bool       `json:"connected"`
	Message    string     `json:"message"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsExpired  bool       `json:"is_expired,omitempty"`
	CanRefresh bool       `json:"can_refresh,omitempty"`
	Scope      string     `json:"scope,omitempty"`
}
