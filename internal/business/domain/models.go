package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	PhoneStatusPending   = "pending"
	PhoneStatusActive    = "active"
	PhoneStatusCancelled = "cancelled"
)

const (
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

const (
	GreetingProfessional = "professional"
	GreetingFriendly     = "friendly"
	GreetingCasual       = "casual"
)

const (
	DefaultTimezone     = "America/New_York"
	DefaultMinutesLimit = 100
)

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// PruneFAQs drops entries whose question or answer is blank after trimming.
func PruneFAQs(faqs []FAQ) []FAQ {
	out := make([]FAQ, 0, len(faqs))
	for _, f := range faqs {
		q := strings.TrimSpace(f.Question)
		a := strings.TrimSpace(f.Answer)
		if q == "" || a == "" {
			continue
		}
		out = append(out, FAQ{Question: q, Answer: a})
	}
	return out
}

type Business struct {
	ID                  snowflake.ID             `gorm:"primaryKey" json:"id"`
	OwnerEmail          string                   `gorm:"not null;uniqueIndex" json:"owner_email"`
	Name                string                   `gorm:"not null" json:"name"`
	Slug                string                   `gorm:"not null" json:"slug"`
	Industry            string                   `gorm:"not null;default:''" json:"industry"`
	Description         string                   `gorm:"not null;default:''" json:"description"`
	PhoneNumber         string                   `gorm:"not null;default:''" json:"phone_number"`
	PhoneNumberSID      string                   `gorm:"column:phone_number_sid;not null;default:''" json:"-"`
	PhoneNumberStatus   string                   `gorm:"not null;default:'pending'" json:"phone_number_status"`
	ReceptionistEnabled bool                     `gorm:"not null;default:true" json:"receptionist_enabled"`
	IsActive            bool                     `gorm:"not null;default:true" json:"is_active"`
	GreetingStyle       string                   `gorm:"not null;default:'professional'" json:"greeting_style"`
	BusinessHours       string                   `gorm:"not null;default:''" json:"business_hours"`
	CommonServices      string                   `gorm:"not null;default:''" json:"common_services"`
	Timezone            string                   `gorm:"not null;default:'America/New_York'" json:"timezone"`
	FAQs                datatypes.JSONSlice[FAQ] `gorm:"column:faqs" json:"faqs"`
	StripeCustomerID    string                   `gorm:"not null;default:''" json:"stripe_customer_id"`
	SubscriptionStatus  string                   `gorm:"not null;default:'active'" json:"subscription_status"`
	MinutesUsed         int                      `gorm:"not null;default:0" json:"minutes_used"`
	MinutesLimit        int                      `gorm:"not null;default:100" json:"minutes_limit"`
	CreatedAt           time.Time                `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time                `gorm:"not null" json:"updated_at"`
}

func (Business) TableName() string { return "businesses" }

func (b Business) HasPhoneNumber() bool {
	return strings.TrimSpace(b.PhoneNumber) != ""
}

// SubscriptionAllowsCalls reports whether the plan currently permits answering.
func (b Business) SubscriptionAllowsCalls() bool {
	switch b.SubscriptionStatus {
	case SubscriptionActive, SubscriptionTrialing:
		return true
	default:
		return false
	}
}

// View is the dashboard representation of a business.
type View struct {
	Business
	SubscriptionPlan        string `json:"subscription_plan"`
	GoogleCalendarConnected bool   `json:"google_calendar_connected"`
}
