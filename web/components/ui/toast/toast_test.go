package toast

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariant(t *testing.T) {
	for in, want := range map[string]Variant{
		"destructive": VariantError,
		"warning":     VariantWarning,
		"info":        VariantInfo,
		"default":     VariantDefault,
		"":            VariantSuccess,
	} {
		assert.Equal(t, want, ParseVariant(in), in)
	}
}

func TestParsePosition(t *testing.T) {
	assert.Equal(t, PositionTopRight, ParsePosition("top-right"))
	assert.Equal(t, PositionBottomLeft, ParsePosition("bottom-left"))
	assert.Equal(t, PositionBottomRight, ParsePosition("middle"))
}

func TestToastRender(t *testing.T) {
	var buf bytes.Buffer
	err := Toast(Props{
		Title:       "<b>Saved</b>",
		Variant:     VariantWarning,
		Position:    PositionBottomLeft,
		Duration:    1500,
		Dismissible: true,
		Icon:        true,
	}).Render(context.Background(), &buf)
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, `id="toast"`)
	assert.Contains(t, html, `data-duration="1500"`)
	assert.Contains(t, html, "bottom-4 left-4")
	assert.Contains(t, html, "&lt;b&gt;Saved&lt;/b&gt;")
	assert.Contains(t, html, "setTimeout")

	buf.Reset()
	require.NoError(t, Toast(Props{ID: "t1", Title: "x"}).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), `id="t1"`)
	assert.NotContains(t, buf.String(), "setTimeout")
	assert.NotContains(t, buf.String(), "<button")
}
