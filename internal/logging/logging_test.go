package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"warn":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"bogus":   logrus.InfoLevel,
		"":        logrus.InfoLevel,
		"info":    logrus.InfoLevel,
		"warning": logrus.WarnLevel,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			l := New(in, "text", &bytes.Buffer{})
			assert.Equal(t, want, l.GetLevel())
		})
	}
}

func TestComponentJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", "json", &buf)
	Component(l, "artbatch").Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "artbatch", line["component"])
	assert.Equal(t, "hello", line["msg"])
}
