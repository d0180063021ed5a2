package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "local", cfg.StorageType)
	assert.Equal(t, "http://localhost:8000", cfg.StickerGenerationURL)
	assert.Equal(t, "http://localhost:8000", cfg.LogoGenerationURL)
	assert.Equal(t, 5*time.Minute, cfg.BackendTimeout)
	assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 5*time.Second, cfg.LedgerTimeout)
	assert.Equal(t, 8, cfg.MaxImageCount)
	assert.Equal(t, 15*time.Minute, cfg.StaleGeneratingAfter)
}

func TestParseConfigFromEnv(t *testing.T) {
	t.Setenv("LOCAL_STICKER_GENERATION_URL", "http://gpu-box:9000")
	t.Setenv("FETCH_TIMEOUT", "15s")
	t.Setenv("MAX_IMAGE_COUNT", "2")
	t.Setenv("STORAGE_TYPE", "gcs")
	t.Setenv("STORAGE_GCS_BUCKET", "demo.appspot.com")

	cfg, err := ParseConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:9000", cfg.StickerGenerationURL)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 2, cfg.MaxImageCount)
	assert.Equal(t, "gcs", cfg.StorageType)
	assert.Equal(t, "demo.appspot.com", cfg.StorageGCSBucket)
}

func TestParseConfigInvalidDuration(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT", "soon")

	_, err := ParseConfig()
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, Config{LogLevel: "debug"}.ParseLogLevel())
	assert.Equal(t, logrus.InfoLevel, Config{LogLevel: "loud"}.ParseLogLevel())
}
