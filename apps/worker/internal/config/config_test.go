package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := decode(v)
	require.NoError(t, err)
	assert.Equal(t, "dashboard:tasks", cfg.Redis.Stream)
	assert.Equal(t, "dashboard-workers", cfg.Redis.Group)
	assert.Equal(t, 2*time.Minute, cfg.Queues.VisibilityTimeout)
	assert.Equal(t, 10*time.Second, cfg.Queues.ClaimInterval)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Empty(t, cfg.Mail.Host)
}

func TestDecodeRequiresSender(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("mail.host", "smtp.example.com")

	_, err := decode(v)
	assert.Error(t, err)

	v.Set("mail.from", "dashboard@example.com")
	cfg, err := decode(v)
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", cfg.Mail.Host)
}
