package pages

import (
	"bytes"
	"context"
	"net/url"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristianadrielbraun/qrart/internal/artbatch"
	"github.com/cristianadrielbraun/qrart/internal/qr"
	"github.com/cristianadrielbraun/qrart/internal/store"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestQRFormFromDefaults(t *testing.T) {
	f := QRFormFrom(url.Values{"kind": {"bogus"}})
	assert.Equal(t, qr.KindText, f.Kind)
	assert.Equal(t, "#000000", f.Color)
}

func TestFormatParams(t *testing.T) {
	p := map[string]any{"weight": 1.5, "steps": "20", "guidance_end": nil, "extra": true}
	got := FormatParams([]string{"steps", "weight", "guidance_end"}, p)
	assert.Equal(t, "steps=20, weight=1.5, guidance_end=default, extra=true", got)

	assert.Equal(t, "extra=true, guidance_end=default, steps=20, weight=1.5", FormatParams(nil, p))
}

func TestSettingsFrom(t *testing.T) {
	s := SettingsFrom(url.Values{"steps": {"20,30"}, "enable_hr": {"on"}})
	assert.Equal(t, artbatch.Settings{Steps: "20,30", EnableHR: true}, s)
}

func TestAIPageSources(t *testing.T) {
	prompts := []store.Prompt{{ID: 7, Text: "<b>forest</b>"}}

	html := render(t, AIPage(AIView{Prompts: prompts, Source: SourceUpload, Settings: artbatch.DefaultSettings()}))
	assert.Contains(t, html, `action="/ai/prompts/7/delete"`)
	assert.Contains(t, html, "&lt;b&gt;forest&lt;/b&gt;")
	assert.Contains(t, html, `type="file"`)
	assert.Contains(t, html, "Process Images")

	html = render(t, AIPage(AIView{Source: SourceGenerated, Form: QRFormFrom(nil)}))
	assert.Contains(t, html, "No prompts yet.")
	assert.Contains(t, html, `action="/ai/qr"`)
	assert.Contains(t, html, `<div class="flex gap-4" data-autosubmit>`)
	assert.NotContains(t, html, "Process Images")
}

func TestQRFieldsFollowKind(t *testing.T) {
	cases := map[qr.Kind]string{
		qr.KindText:    `name="text"`,
		qr.KindURL:     `name="url"`,
		qr.KindEmail:   `name="subject"`,
		qr.KindWiFi:    `name="encryption"`,
		qr.KindContact: `name="full_name"`,
		qr.KindOTP:     `name="issuer"`,
	}
	for kind, want := range cases {
		html := render(t, qrFields(QRForm{Kind: kind}))
		assert.Contains(t, html, want, kind)
	}
}

func TestRunsPageEmpty(t *testing.T) {
	assert.Contains(t, render(t, RunsPage(nil)), "No batches yet")
}

func TestRunPageKeepsParamOrder(t *testing.T) {
	run := store.Run{Folder: "lantern", Source: "upload", Status: store.StatusFailed, Error: "backend down"}
	images := []store.Image{{
		Prompt:    "NYC skyline",
		Params:    map[string]any{"weight": "1", "steps": "20", "guidance_start": "0"},
		ParamKeys: []string{"steps", "weight", "guidance_start"},
		File:      "gen_image_0_0.png",
	}}
	html := render(t, RunPage(run, images))
	assert.Contains(t, html, "NYC skyline steps=20, weight=1, guidance_start=0")
	assert.Contains(t, html, `src="/runs/lantern/gen_image_0_0.png"`)
	assert.Contains(t, html, `src="/runs/lantern/_starting_image.png"`)
	assert.Contains(t, html, "<pre")
}

func TestAIResultPage(t *testing.T) {
	html := render(t, AIResultPage(AIResultView{
		Folder: "ember",
		Images: []artbatch.Output{{
			Prompt: "forest",
			Params: map[string]any{"steps": "10", "weight": "2"},
			Keys:   []string{"weight", "steps"},
			File:   "gen_image_0_0.png",
		}},
	}))
	assert.Contains(t, html, "Processing complete!")
	assert.Contains(t, html, "Images saved to folder: ember")
	assert.Contains(t, html, "forest weight=2, steps=10")
	assert.Contains(t, html, `href="/runs/ember"`)
}

func TestDecodePageListsEveryCode(t *testing.T) {
	html := render(t, DecodePage(DecodeView{
		Results:  []qr.Result{{Text: "first"}, {Text: "second", OTP: &qr.OTPInfo{Type: "totp", Issuer: "Example", AccountName: "alice"}}},
		ImageURL: "data:image/png;base64,AAAA",
	}))
	assert.Contains(t, html, "Decoded Data: first")
	assert.Contains(t, html, "Decoded Data: second")
	assert.Contains(t, html, "Issuer: Example")
	assert.Contains(t, html, `src="data:image/png;base64,AAAA"`)
}
