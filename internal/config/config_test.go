package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "videos/sample.mkv", cfg.EntryVideo)
	assert.Equal(t, "videos/sample.mkv", cfg.ExitVideo)
	assert.InDelta(t, 0.5, cfg.DetectionThreshold, 1e-9)
	assert.Equal(t, []string{"person"}, cfg.TrackLabels)
	assert.Equal(t, 5, cfg.TrackerMinInertia)
	assert.Equal(t, 5, cfg.TrackerDeregisterFrames)
	assert.InDelta(t, 50.0, cfg.TrackerMaxDistance, 1e-9)
	assert.Equal(t, 100, cfg.GalleryLimit)
	assert.Equal(t, DropRandom, cfg.GalleryDropMethod)
	assert.False(t, cfg.NatsEnabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENTRY_VIDEO", "videos/entry.mp4")
	t.Setenv("TRACK_LABELS", " person , bicycle,,")
	t.Setenv("TRACKER_MAX_DISTANCE", "75.5")
	t.Setenv("GALLERY_DROP_METHOD", DropOldest)
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("GALLERY_LIMIT", "not-a-number")

	cfg := Load()

	assert.Equal(t, "videos/entry.mp4", cfg.EntryVideo)
	assert.Equal(t, []string{"person", "bicycle"}, cfg.TrackLabels)
	assert.InDelta(t, 75.5, cfg.TrackerMaxDistance, 1e-9)
	assert.Equal(t, DropOldest, cfg.GalleryDropMethod)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	// unparsable values fall back to the default
	assert.Equal(t, 100, cfg.GalleryLimit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad confidence", func(c *Config) { c.DetectionThreshold = 1.5 }, "DETECTION_CONFIDENCE"},
		{"no labels", func(c *Config) { c.TrackLabels = nil }, "TRACK_LABELS"},
		{"zero inertia", func(c *Config) { c.TrackerMinInertia = 0 }, "TRACKER_MIN_INERTIA"},
		{"zero distance", func(c *Config) { c.TrackerMaxDistance = 0 }, "TRACKER_MAX_DISTANCE"},
		{"zero gallery", func(c *Config) { c.GalleryLimit = 0 }, "GALLERY_LIMIT"},
		{"drop method", func(c *Config) { c.GalleryDropMethod = "drop_all" }, "GALLERY_DROP_METHOD"},
		{"missing video", func(c *Config) { c.ExitVideo = "" }, "EXIT_VIDEO"},
		{"quality", func(c *Config) { c.OutputQuality = 0 }, "OUTPUT_QUALITY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
