package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Auth:   AuthConfig{JWTSecret: "0123456789abcdef0123", AccessTokenTTL: 15 * time.Minute},
		Lab: LabConfig{
			Timezone:          "Asia/Manila",
			MinSessionMinutes: 180,
			MaxSessionMinutes: 300,
			TapGraceMinutes:   10,
			DefaultOpen:       "07:00",
			DefaultClose:      "21:00",
		},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"短密钥":   func(c *Config) { c.Auth.JWTSecret = "short" },
		"端口越界":  func(c *Config) { c.Server.Port = 70000 },
		"时长倒置":  func(c *Config) { c.Lab.MinSessionMinutes = 400 },
		"负宽限":   func(c *Config) { c.Lab.TapGraceMinutes = -1 },
		"未知时区":  func(c *Config) { c.Lab.Timezone = "Mars/Base" },
		"开放时间错": func(c *Config) { c.Lab.DefaultOpen = "7am" },
		"开闭倒置":  func(c *Config) { c.Lab.DefaultOpen, c.Lab.DefaultClose = "21:00", "07:00" },
	}
	for name, mutate := range cases {
		c := validConfig()
		mutate(c)
		assert.Error(t, c.Validate(), name)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SMARTLAB_AUTH_JWT_SECRET", "env-secret-0123456789")
	t.Setenv("SMARTLAB_LAB_TAP_GRACE_MINUTES", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Lab.TapGraceMinutes)
	assert.Equal(t, 180, cfg.Lab.MinSessionMinutes)
	assert.Equal(t, 30, cfg.RateLimit.TapLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.TapWindow)
	assert.Equal(t, 5*time.Minute, cfg.Lab.SweepInterval)
}
