package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg := Load()

	assert.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.DBPath)
	assert.Equal(t, "auto", cfg.AnnotationBackend)
	assert.Equal(t, 15*time.Second, cfg.ImageTimeout)
	assert.Equal(t, 300*time.Second, cfg.VideoTimeout)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 30, cfg.FrameStride)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DB_PATH", "/custom/db.sqlite")
	t.Setenv("ANNOTATION_BACKEND", "gcp-rest")
	t.Setenv("GCP_API_KEY", "AIza-test")
	t.Setenv("IMAGE_TIMEOUT", "20")
	t.Setenv("VIDEO_TIMEOUT", "2m")
	t.Setenv("FRAME_STRIDE", "10")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("TESSERACT_PREPROCESS", "false")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/custom/db.sqlite", cfg.DBPath)
	assert.Equal(t, "gcp-rest", cfg.AnnotationBackend)
	assert.Equal(t, "AIza-test", cfg.GCPAPIKey)
	assert.Equal(t, 20*time.Second, cfg.ImageTimeout)
	assert.Equal(t, 2*time.Minute, cfg.VideoTimeout)
	assert.Equal(t, 10, cfg.FrameStride)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes())
	assert.False(t, cfg.TesseractPrep)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("FRAME_STRIDE", "-3")
	t.Setenv("POLL_INTERVAL", "soon")
	t.Setenv("TESSERACT_PREPROCESS", "maybe")

	cfg := Load()

	assert.Equal(t, 30, cfg.FrameStride)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.True(t, cfg.TesseractPrep)
}

func TestCredentialsFallback(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/secrets/sa.json")

	assert.Equal(t, "/secrets/sa.json", Load().GCPCredentialsFile)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), EnvFileName)
	require.NoError(t, os.WriteFile(path, []byte("INVENTORY_NAME=Freezer 3\nLOG_LEVEL=debug\n"), 0600))
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("INVENTORY_NAME", "")
	require.NoError(t, os.Unsetenv("INVENTORY_NAME"))

	require.NoError(t, LoadEnvFile(path))
	t.Cleanup(func() { _ = os.Unsetenv("INVENTORY_NAME") })

	cfg := Load()
	assert.Equal(t, "Freezer 3", cfg.InventoryName)
	assert.Equal(t, "warn", cfg.LogLevel, "existing environment wins")
}

func TestLoadEnvFileMissing(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "nope.env")))
}
