package mock

import (
	"context"
	"testing"

	"github.com/smallbiznis/receptionist/internal/phonenumber/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		query    domain.SearchQuery
		first    string
		friendly string
		locality string
	}{
		{name: "empty", query: domain.SearchQuery{}, first: "+15555550100", friendly: "(555) 555-0100", locality: "Test City"},
		{name: "area code", query: domain.SearchQuery{AreaCode: "212"}, first: "+12125550100", friendly: "(212) 555-0100", locality: "Area 212"},
		{name: "postal code", query: domain.SearchQuery{AreaCode: "30301"}, first: "+13035550100", friendly: "(303) 555-0100", locality: "Zip 30301"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Generate(tt.query)
			require.Len(t, out, 5)
			assert.Equal(t, tt.first, out[0].PhoneNumber)
			assert.Equal(t, tt.friendly, out[0].FriendlyName)
			assert.Equal(t, tt.locality, out[0].Locality)
			assert.Equal(t, "US", out[0].Region)
			assert.Equal(t, "+1"+tt.first[2:5]+"5550104", out[4].PhoneNumber)
		})
	}
}

func TestFallback(t *testing.T) {
	out := Fallback(domain.SearchQuery{AreaCode: "40404", Region: "us"})
	require.Len(t, out, 5)
	assert.Equal(t, "+14045550100", out[0].PhoneNumber)
	assert.Equal(t, "Fallback City", out[0].Locality)
	assert.Equal(t, "US", out[0].Region)
}

func TestPurchaseReturnsMockSID(t *testing.T) {
	purchased, err := New().Purchase(context.Background(), " +12125550100 ", "")
	require.NoError(t, err)
	assert.Equal(t, "+12125550100", purchased.PhoneNumber)
	assert.Equal(t, "PN_MOCK_+12125550100", purchased.SID)
	assert.True(t, domain.IsMockSID(purchased.SID))
}
