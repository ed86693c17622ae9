package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mochoudhry5/WeddingServices-sub001/app/models"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "active", want: models.BillingStatusActive},
		{in: " PAST_DUE ", want: models.BillingStatusPastDue},
		{in: "Paused", want: models.BillingStatusPaused},
		{in: "", want: models.BillingStatusIncomplete},
		{in: "some_future_state", want: "some_future_state"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeStatus(tt.in), "normalizeStatus(%q)", tt.in)
	}
}

func TestParseBool(t *testing.T) {
	for _, raw := range []string{"true", "TRUE", "1", " t "} {
		assert.True(t, parseBool(raw), raw)
	}
	for _, raw := range []string{"false", "0", "", "yes"} {
		assert.False(t, parseBool(raw), raw)
	}
}

func TestUnixTime(t *testing.T) {
	assert.Nil(t, unixTime(0))
	assert.Nil(t, unixTime(-5))

	got := unixTime(1767225600)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), *got)
}
