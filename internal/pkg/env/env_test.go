package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedFile(t *testing.T) {
	Env = map[string]string{"APP_PORT": "4100"}
	t.Cleanup(func() { Env = nil })
	t.Setenv("APP_PORT", "9999")

	assert.Equal(t, "4100", GetEnv("APP_PORT", "4000"))
}

func TestGetEnvFallsBackToProcessEnv(t *testing.T) {
	Env = map[string]string{}
	t.Cleanup(func() { Env = nil })
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_os")

	assert.Equal(t, "whsec_os", GetEnv("STRIPE_WEBHOOK_SECRET", ""))
	assert.Equal(t, "fallback", GetEnv("NOT_SET_ANYWHERE_KEY", "fallback"))
}

func TestGetEnvBool(t *testing.T) {
	Env = map[string]string{
		"FLAG_TRUE":  "true",
		"FLAG_ONE":   "1",
		"FLAG_FALSE": "no",
		"FLAG_JUNK":  "maybe",
	}
	t.Cleanup(func() { Env = nil })

	assert.True(t, GetEnvBool("FLAG_TRUE", false))
	assert.True(t, GetEnvBool("FLAG_ONE", false))
	assert.False(t, GetEnvBool("FLAG_FALSE", true))
	assert.True(t, GetEnvBool("FLAG_JUNK", true))
	assert.False(t, GetEnvBool("FLAG_MISSING_XYZ", false))
}

func TestGetEnvInt(t *testing.T) {
	Env = map[string]string{"PORT_OK": "6380", "PORT_BAD": "abc"}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, 6380, GetEnvInt("PORT_OK", 6379))
	assert.Equal(t, 6379, GetEnvInt("PORT_BAD", 6379))
	assert.Equal(t, 1, GetEnvInt("PORT_MISSING_XYZ", 1))
}
