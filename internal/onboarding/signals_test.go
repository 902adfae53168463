package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSignals(t *testing.T) {
	tests := []struct {
		name    string
		landing string
		want    Signals
		clean   string
	}{
		{
			name:    "no signals",
			landing: "https://app.example.com/onboarding?step=2",
			clean:   "https://app.example.com/onboarding?step=2",
		},
		{
			name:    "payment",
			landing: "https://app.example.com/app?success=sub_active",
			want:    Signals{PaymentConfirmed: true},
			clean:   "https://app.example.com/app",
		},
		{
			name:    "calendar connected keeps other params",
			landing: "https://app.example.com/app?tab=settings&success=calendar_connected",
			want:    Signals{CalendarConnected: true},
			clean:   "https://app.example.com/app?tab=settings",
		},
		{
			name:    "calendar error with details",
			landing: "https://app.example.com/app?error=calendar_failed&details=missing_code",
			want:    Signals{CalendarError: "failed", Details: "missing_code"},
			clean:   "https://app.example.com/app",
		},
		{
			name:    "unrelated error is left alone",
			landing: "https://app.example.com/app?error=other",
			clean:   "https://app.example.com/app?error=other",
		},
		{
			name:    "unparseable",
			landing: "://bad",
			clean:   "://bad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clean := ParseSignals(tt.landing)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.clean, clean)
		})
	}
}

func TestCalendarErrorMessage(t *testing.T) {
	assert.Contains(t, calendarErrorMessage("cancelled"), "cancelled")
	assert.Equal(t, "Google Calendar connection failed", calendarErrorMessage("network_error"))
}
