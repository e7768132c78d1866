package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	c := FromEnv(envMap(nil))

	assert.Equal(t, ":8080", c.Addr())
	assert.Equal(t, DefaultImagesDir, c.ImagesDir)
	assert.Equal(t, DefaultDBPath, c.DBPath)
	assert.Equal(t, DefaultSDURL, c.SD.URL)
	assert.Equal(t, 120*time.Second, c.SD.Timeout)
	assert.Equal(t, DefaultRetries, c.SD.Retries)
	assert.Equal(t, 1, c.SD.MaxConcurrent)
	assert.Equal(t, DefaultControlNet, c.SD.ControlNetModel)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
}

func TestFromEnvOverrides(t *testing.T) {
	c := FromEnv(envMap(map[string]string{
		"PORT":               "9000",
		"SD_URL":             "http://gpu-box:7860/",
		"SD_TIMEOUT_SECONDS": "30",
		"SD_RETRIES":         "0",
		"SD_MAX_CONCURRENT":  "4",
		"LOG_FORMAT":         "JSON",
	}))

	assert.Equal(t, ":9000", c.Addr())
	assert.Equal(t, "http://gpu-box:7860", c.SD.URL)
	assert.Equal(t, 30*time.Second, c.SD.Timeout)
	assert.Equal(t, 0, c.SD.Retries)
	assert.Equal(t, 4, c.SD.MaxConcurrent)
	assert.Equal(t, "json", c.LogFormat)
}

func TestFromEnvInvalidNumbers(t *testing.T) {
	c := FromEnv(envMap(map[string]string{
		"SD_TIMEOUT_SECONDS": "soon",
		"SD_RETRIES":         "-3",
		"SD_MAX_CONCURRENT":  "0",
	}))

	assert.Equal(t, 120*time.Second, c.SD.Timeout)
	assert.Equal(t, DefaultRetries, c.SD.Retries)
	assert.Equal(t, DefaultMaxConcurrent, c.SD.MaxConcurrent)
}
