package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Twilio call statuses. Only the terminal ones end a call record.
const (
	StatusQueued     = "queued"
	StatusRinging    = "ringing"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusBusy       = "busy"
	StatusFailed     = "failed"
	StatusNoAnswer   = "no-answer"
	StatusCanceled   = "canceled"
)

const (
	DefaultIntent     = "Inquiry"
	UnknownCallerName = "Unknown"
	RecentCallsLimit  = 50
)

// NormalizeStatus lowercases a Twilio status and reports whether it is one
// the service understands.
func NormalizeStatus(raw string) (string, bool) {
	status := strings.ToLower(strings.TrimSpace(raw))
	switch status {
	case StatusQueued, StatusRinging, StatusInProgress,
		StatusCompleted, StatusBusy, StatusFailed, StatusNoAnswer, StatusCanceled:
		return status, true
	}
	return "", false
}

var TerminalStatuses = []string{StatusCompleted, StatusBusy, StatusFailed, StatusNoAnswer, StatusCanceled}

func IsTerminal(status string) bool {
	return slices.Contains(TerminalStatuses, status)
}

// Call is one inbound call answered on a business number.
type Call struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	BusinessID        snowflake.ID `gorm:"not null;index" json:"business_id"`
	CallSID           string       `gorm:"column:call_sid;not null;uniqueIndex" json:"call_sid"`
	FromNumber        string       `gorm:"not null;default:''" json:"from_number"`
	ToNumber          string       `gorm:"not null;default:''" json:"to_number"`
	Status            string       `gorm:"not null;default:'in-progress'" json:"status"`
	Duration          int          `gorm:"not null;default:0" json:"duration"`
	MinutesBilled     int          `gorm:"not null;default:0" json:"minutes_billed"`
	RecordingURL      string       `gorm:"not null;default:''" json:"recording_url"`
	Transcript        string       `gorm:"not null;default:''" json:"transcript"`
	Summary           string       `gorm:"not null;default:''" json:"summary"`
	Intent            string       `gorm:"not null;default:''" json:"intent"`
	AppointmentBooked bool         `gorm:"not null;default:false" json:"appointment_booked"`
	CreatedAt         time.Time    `gorm:"not null;index" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null" json:"updated_at"`
}

func (Call) TableName() string { return "calls" }

// Contact is a caller the business has named or blocked.
type Contact struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	BusinessID  snowflake.ID `gorm:"not null;uniqueIndex:idx_contacts_business_phone" json:"business_id"`
	PhoneNumber string       `gorm:"not null;uniqueIndex:idx_contacts_business_phone" json:"phone_number"`
	Name        string       `gorm:"not null;default:''" json:"name"`
	Email       string       `gorm:"not null;default:''" json:"email"`
	Notes       string       `gorm:"not null;default:''" json:"notes"`
	IsBlocked   bool         `gorm:"not null;default:false" json:"is_blocked"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (Contact) TableName() string { return "contacts" }

// CallView is a call as the dashboard lists it.
type CallView struct {
	ID                snowflake.ID `json:"id"`
	CallSID           string       `gorm:"column:call_sid" json:"call_sid"`
	FromNumber        string       `json:"from_number"`
	CallerName        string       `json:"caller_name"`
	Status            string       `json:"status"`
	Duration          int          `json:"duration"`
	CreatedAt         time.Time    `json:"created_at"`
	AppointmentBooked bool         `json:"appointment_booked"`
	Intent            string       `json:"intent"`
	Transcript        string       `json:"transcript"`
	Summary           string       `json:"summary"`
	RecordingURL      string       `json:"recording_url,omitempty"`
}

// BilledMinutes rounds a call's length up to whole minutes.
func BilledMinutes(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	return (seconds + 59) / 60
}
