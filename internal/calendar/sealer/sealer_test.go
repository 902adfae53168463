package sealer

import (
	"strings"
	"testing"
	"time"

	"github.com/smallbiznis/receptionist/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealRoundTrip(t *testing.T) {
	s, err := New("top-secret", nil)
	require.NoError(t, err)

	sealed, err := s.Seal("ya29.access-token")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, "v1."))
	assert.NotContains(t, sealed, "ya29")

	again, err := s.Seal("ya29.access-token")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again)

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ya29.access-token", opened)

	empty, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOpenRejectsTampering(t *testing.T) {
	s, err := New("top-secret", nil)
	require.NoError(t, err)
	other, err := New("other-secret", nil)
	require.NoError(t, err)

	sealed, err := s.Seal("refresh")
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = s.Open("plain")
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = s.Open("v1.AAAA")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(" ", nil)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestStateSignAndVerify(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	s, err := New("top-secret", clk)
	require.NoError(t, err)

	state, err := s.SignState("1234567890")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(state, "1234567890."))

	businessID, err := s.VerifyState(state)
	require.NoError(t, err)
	assert.Equal(t, "1234567890", businessID)

	tampered := strings.Replace(state, "1234567890", "9999999999", 1)
	_, err = s.VerifyState(tampered)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.VerifyState("1234567890")
	assert.ErrorIs(t, err, ErrInvalidState)

	clk.Advance(16 * time.Minute)
	_, err = s.VerifyState(state)
	assert.ErrorIs(t, err, ErrStateExpired)

	_, err = s.SignState("bad.id")
	assert.ErrorIs(t, err, ErrInvalidState)
}
