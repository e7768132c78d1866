package components

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestClassMergesConflicts(t *testing.T) {
	assert.Equal(t, "rounded p-4", Class("rounded p-2", "p-4"))
}

func TestEscaping(t *testing.T) {
	html := render(t, Paragraph(`<script>alert("x")</script>`))
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")

	html = render(t, Input("q", "Query", `" onfocus="x`, ""))
	assert.Contains(t, html, `value="&#34; onfocus=&#34;x"`)
}

func TestLinkSanitizesURL(t *testing.T) {
	html := render(t, Link("javascript:alert(1)", "Go", false))
	assert.NotContains(t, html, "javascript:")

	html = render(t, Link("/api/qr?kind=text&payload=a", "Download", true))
	assert.Contains(t, html, `href="/api/qr?kind=text&amp;payload=a"`)
	assert.Contains(t, html, " download>Download</a>")
}

func TestLayoutMarksActiveItem(t *testing.T) {
	ctx := templ.WithChildren(context.Background(), Heading("body"))
	var buf bytes.Buffer
	require.NoError(t, Layout("Decode QR Code", "/decode").Render(ctx, &buf))
	html := buf.String()

	assert.Contains(t, html, `aria-current="page">Decode QR Code</a>`)
	assert.Equal(t, 1, strings.Count(html, `aria-current`))
	assert.Contains(t, html, "<title>Decode QR Code · AI Embedded QR Code Generator and Decoder</title>")
	assert.Contains(t, html, ">body</h2>")
	for _, item := range Menu {
		assert.Contains(t, html, `href="`+item.Href+`"`)
	}
}

func TestSelectAutoSubmit(t *testing.T) {
	html := render(t, Select("kind", "Kind", []Option{{Value: "a", Label: "A"}, {Value: "b", Label: "B", Selected: true}}, true))
	assert.Contains(t, html, " data-autosubmit>")
	assert.Contains(t, html, `<option value="b" selected>B</option>`)

	html = render(t, Select("kind", "Kind", nil, false))
	assert.NotContains(t, html, "data-autosubmit")
}

func TestFormEncoding(t *testing.T) {
	ctx := templ.WithChildren(context.Background(), Submit("Go"))
	var buf bytes.Buffer
	require.NoError(t, Form("post", "/decode", true).Render(ctx, &buf))
	assert.Contains(t, buf.String(), `enctype="multipart/form-data"`)
	assert.Contains(t, buf.String(), ">Go</button></form>")
}
