package onboarding

import (
	"net/url"
	"strings"
)

// Query parameters and values set by the payment and calendar redirects.
const (
	paramSuccess = "success"
	paramError   = "error"
	paramDetails = "details"

	successSubscription = "sub_active"
	successCalendar     = "calendar_connected"
	errorCalendarPrefix = "calendar_"
)

// Signals are the one-shot indicators left in the landing URL by an external
// redirect.
type Signals struct {
	PaymentConfirmed  bool
	CalendarConnected bool
	// CalendarError is the error code without its prefix, e.g. "cancelled".
	CalendarError string
	Details       string
}

func (s Signals) Empty() bool {
	return !s.PaymentConfirmed && !s.CalendarConnected && s.CalendarError == ""
}

// ParseSignals extracts the resumption signals from landing and returns the
// URL with those parameters removed, so a reload does not replay them.
// Unparseable input yields no signals and is returned unchanged.
func ParseSignals(landing string) (Signals, string) {
	u, err := url.Parse(landing)
	if err != nil {
		return Signals{}, landing
	}

	q := u.Query()
	var sig Signals
	switch q.Get(paramSuccess) {
	case successSubscription:
		sig.PaymentConfirmed = true
	case successCalendar:
		sig.CalendarConnected = true
	}
	if code := q.Get(paramError); strings.HasPrefix(code, errorCalendarPrefix) {
		sig.CalendarError = strings.TrimPrefix(code, errorCalendarPrefix)
		sig.Details = q.Get(paramDetails)
	}
	if sig.Empty() {
		return sig, landing
	}

	q.Del(paramSuccess)
	q.Del(paramError)
	q.Del(paramDetails)
	u.RawQuery = q.Encode()
	return sig, u.String()
}

func calendarErrorMessage(code string) string {
	switch code {
	case "cancelled":
		return "Google Calendar connection was cancelled"
	case "configuration_error":
		return "Google Calendar is not configured"
	default:
		return "Google Calendar connection failed"
	}
}
