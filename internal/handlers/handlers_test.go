package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristianadrielbraun/qrart/internal/artbatch"
	"github.com/cristianadrielbraun/qrart/internal/controlnet"
	"github.com/cristianadrielbraun/qrart/internal/qr"
	"github.com/cristianadrielbraun/qrart/internal/store"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeGen struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (f *fakeGen) Txt2Img(_ context.Context, _ *controlnet.Request) (*controlnet.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	return &controlnet.Response{Images: []string{base64.StdEncoding.EncodeToString(solidPNG(color.White))}}, nil
}

func solidPNG(c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

type testApp struct {
	router *gin.Engine
	store  *store.Store
	gen    *fakeGen
	dir    string
	cookie []*http.Cookie
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log, _ := logtest.NewNullLogger()
	dir := t.TempDir()
	gen := &fakeGen{}
	runner := artbatch.New(artbatch.Options{
		Generator: gen,
		Recorder:  st,
		ImagesDir: dir,
		Names:     func() string { return "testrun" },
		Logger:    log,
	})
	h := New(Options{Store: st, Batcher: runner, ImagesDir: dir, Logger: log})
	r := gin.New()
	h.Register(r)
	return &testApp{router: r, store: st, gen: gen, dir: dir}
}

// do sends req, carrying the session cookie between calls.
func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range a.cookie {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	if cs := w.Result().Cookies(); len(cs) > 0 {
		a.cookie = cs
	}
	return w
}

func (a *testApp) get(path string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (a *testApp) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

func (a *testApp) postFile(t *testing.T, path string, fields map[string]string, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if data != nil {
		fw, err := mw.CreateFormFile("image", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req)
}

func TestStaticPages(t *testing.T) {
	a := newTestApp(t)
	for path, want := range map[string]string{
		"/":      "Welcome to the AI Embedded QR Code Web App!",
		"/about": "QR code decoding",
	} {
		w := a.get(path)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), want)
	}
}

func TestSitemapXML(t *testing.T) {
	a := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil)
	req.Host = "qr.example.com"
	w := a.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<loc>https://qr.example.com/generate</loc>")

	req = httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil)
	req.Host = "localhost:9000"
	w = a.do(req)
	assert.Contains(t, w.Body.String(), "<loc>http://localhost:9000/</loc>")
}

func TestQRCodeHandler(t *testing.T) {
	a := newTestApp(t)

	w := a.get("/api/qr?kind=text&text=hello")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get("Content-Disposition"))
	res, err := qr.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", res[0].Text)

	w = a.get("/api/qr?type=url&url=example.com&download=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=qrcode.png", w.Header().Get("Content-Disposition"))
	res, err = qr.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", res[0].Text)

	w = a.get("/api/qr?text=vector&format=svg")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<svg")
}

func TestQRCodeHandlerBadInput(t *testing.T) {
	a := newTestApp(t)
	for _, path := range []string{
		"/api/qr?kind=text",
		"/api/qr?kind=wifi&password=x",
		"/api/qr?kind=url&url=ftp://example.com",
		"/api/qr?text=a&size=99",
	} {
		w := a.get(path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Contains(t, w.Body.String(), `"error"`, path)
	}
}

func TestGeneratePage(t *testing.T) {
	a := newTestApp(t)

	w := a.get("/generate?kind=wifi")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="ssid"`)
	assert.NotContains(t, w.Body.String(), "Download QR Code")

	w = a.get("/generate?kind=otp&issuer=Acme&account=ann&generate=1")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "/api/qr?")
	assert.Contains(t, body, "Download QR Code")
	assert.Contains(t, body, "otpauth")

	w = a.get("/generate?kind=email&generate=1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), qr.ErrEmptyPayload.Error())
}

func TestDecode(t *testing.T) {
	a := newTestApp(t)

	w := a.get("/decode")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `enctype="multipart/form-data"`)

	code, err := qr.Encode("decode me", qr.DefaultOptions())
	require.NoError(t, err)
	w = a.postFile(t, "/decode", nil, "code.png", code)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Decoded Data: decode me")
	assert.Contains(t, w.Body.String(), "data:image/png;base64,")

	w = a.postFile(t, "/decode", nil, "blank.png", solidPNG(color.White))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "No valid QR code")

	w = a.postFile(t, "/decode", nil, "junk.png", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.postFile(t, "/decode", nil, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPromptManagement(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	w := a.postForm("/ai/prompts", url.Values{"prompt": {"Neon city"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/ai", w.Header().Get("Location"))

	ps, err := a.store.Prompts(ctx)
	require.NoError(t, err)
	require.Equal(t, "Neon city", ps[0].Text)

	w = a.get("/ai")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Neon city")

	w = a.postForm("/ai/prompts/"+strconv.FormatInt(ps[0].ID, 10)+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	texts, err := a.store.PromptTexts(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultPrompts, texts)

	w = a.postForm("/ai/prompts/"+strconv.FormatInt(ps[0].ID, 10)+"/delete", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.postForm("/ai/prompts/abc/delete", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/ai/prompts/999/delete", nil)
	req.Header.Set("HX-Request", "true")
	w = a.do(req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `data-variant="error"`)
}

func TestAIGeneratedRun(t *testing.T) {
	a := newTestApp(t)

	w := a.postForm("/ai/qr", url.Values{"kind": {"url"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.NotEmpty(t, a.cookie)
	w = a.get("/ai")
	assert.Contains(t, w.Body.String(), `name="url"`)
	assert.NotContains(t, w.Body.String(), "Process Images")

	w = a.postForm("/ai/qr", url.Values{"kind": {"text"}, "text": {"hello"}, "generate": {"1"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	w = a.get("/ai")
	body := w.Body.String()
	assert.Contains(t, body, "data:image/png;base64,")
	assert.Contains(t, body, "Process Images")

	w = a.postForm("/ai/run", url.Values{
		"source":         {"generated"},
		"steps":          {"10,20"},
		"weight":         {"1"},
		"guidance_start": {"0"},
		"guidance_end":   {"1"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = w.Body.String()
	assert.Contains(t, body, "Images saved to folder: testrun")
	assert.Contains(t, body, "/runs/testrun/gen_image_3_1.png")
	assert.Equal(t, 2*len(store.DefaultPrompts), a.gen.calls)

	_, err := os.Stat(filepath.Join(a.dir, "testrun", artbatch.StartImageName))
	require.NoError(t, err)

	w = a.get("/runs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "testrun")

	w = a.get("/runs/testrun")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gen_image_0_0.png")
	assert.Contains(t, w.Body.String(), "steps=10, weight=1, guidance_start=0, guidance_end=1, hr_second_pass_steps=0")

	w = a.get("/runs/testrun/gen_image_0_0.png")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, a.get("/runs/missing").Code)
	assert.Equal(t, http.StatusNotFound, a.get("/runs/testrun/..").Code)
	assert.Equal(t, http.StatusNotFound, a.get("/runs/testrun/notes.txt").Code)
}

func TestAIRunRequiresQRCode(t *testing.T) {
	a := newTestApp(t)
	w := a.postForm("/ai/run", url.Values{"source": {"generated"}, "steps": {"20"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), errNoStartImage.Error())
	assert.Zero(t, a.gen.calls)
}

func TestAIRunRejectsBadSettings(t *testing.T) {
	a := newTestApp(t)
	code, err := qr.Encode("x", qr.DefaultOptions())
	require.NoError(t, err)

	w := a.postFile(t, "/ai/run", map[string]string{"source": "upload", "steps": "20,abc"}, "qr.png", code)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, a.gen.calls)
	entries, err := os.ReadDir(a.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	w = a.postFile(t, "/ai/run", map[string]string{"source": "upload", "steps": "20"}, "qr.png", []byte("garbage"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.postFile(t, "/ai/run", map[string]string{"source": "upload"}, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAIRunUpload(t *testing.T) {
	a := newTestApp(t)
	code, err := qr.Encode("x", qr.DefaultOptions())
	require.NoError(t, err)

	w := a.postFile(t, "/ai/run", map[string]string{"source": "upload", "steps": "20"}, "qr.png", code)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, len(store.DefaultPrompts), a.gen.calls)

	run, images, err := a.store.RunByFolder(context.Background(), "testrun")
	require.NoError(t, err)
	assert.Equal(t, "upload", run.Source)
	assert.Equal(t, store.StatusDone, run.Status)
	assert.Len(t, images, len(store.DefaultPrompts))
}

func TestAIRunBackendFailure(t *testing.T) {
	a := newTestApp(t)
	a.gen.fail = errors.New("backend down")
	code, err := qr.Encode("x", qr.DefaultOptions())
	require.NoError(t, err)

	w := a.postFile(t, "/ai/run", map[string]string{"source": "upload"}, "qr.png", code)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "backend down")

	run, _, err := a.store.RunByFolder(context.Background(), "testrun")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, run.Status)
}

func TestGenericToast(t *testing.T) {
	a := newTestApp(t)
	w := a.postForm("/api/htmx/toast", url.Values{"title": {"Saved"}, "variant": {"error"}, "dismissible": {"on"}})
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Saved")
	assert.Contains(t, body, `data-variant="error"`)
	assert.Contains(t, body, "this.parentElement.remove()")
	assert.Contains(t, body, "bottom-4 right-4")

	w = a.postForm("/api/htmx/toast", url.Values{"title": {"Note"}, "variant": {"default"}, "position": {"top-right"}})
	require.Equal(t, http.StatusOK, w.Code)
	body = w.Body.String()
	assert.Contains(t, body, `data-variant="default"`)
	assert.Contains(t, body, "top-4 right-4")
	assert.NotContains(t, body, "this.parentElement.remove()")
}

func TestRequestLogger(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, "/ok", entries[0].Data["path"])
	assert.Equal(t, http.StatusOK, entries[0].Data["status"])
	assert.Equal(t, logrus.ErrorLevel, entries[1].Level)
	assert.Equal(t, "http", entries[1].Data["component"])
}

func TestSafeName(t *testing.T) {
	for name, want := range map[string]bool{
		"run":       true,
		"gen_1.png": true,
		"":          false,
		".":         false,
		"..":        false,
		"a/b":       false,
		`a\b`:       false,
		"../etc":    false,
	} {
		assert.Equal(t, want, safeName(name), name)
	}
}

func TestSessionsStayBounded(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	h := New(Options{Logger: log})

	h.saveSession("stale", session{})
	for i := 0; i < maxSessions; i++ {
		h.saveSession("s"+strconv.Itoa(i), session{})
	}
	require.NotContains(t, h.sessions.m, "stale")

	// a request that loaded "stale" before it was evicted saves it back
	h.saveSession("stale", session{qr: []byte("png")})
	assert.Len(t, h.sessions.m, maxSessions)
	assert.Len(t, h.sessions.order, maxSessions)
	assert.Contains(t, h.sessions.m, "stale")
	assert.NotContains(t, h.sessions.m, "s0")
}
