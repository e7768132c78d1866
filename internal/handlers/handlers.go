// Package handlers holds the gin handlers for the web UI and the image API.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrart/internal/artbatch"
	"github.com/cristianadrielbraun/qrart/internal/store"
	"github.com/cristianadrielbraun/qrart/web/pages"
)

// Store is the persistence the handlers need.
type Store interface {
	Prompts(ctx context.Context) ([]store.Prompt, error)
	PromptTexts(ctx context.Context) ([]string, error)
	AddPrompt(ctx context.Context, text string) (store.Prompt, error)
	RemovePrompt(ctx context.Context, id int64) error
	Runs(ctx context.Context, limit int) ([]store.Run, error)
	RunByFolder(ctx context.Context, folder string) (store.Run, []store.Image, error)
}

// Batcher runs AI QR batches.
type Batcher interface {
	Run(ctx context.Context, in artbatch.Input) (*artbatch.Result, error)
}

// Options wires a Handler.
type Options struct {
	Store     Store
	Batcher   Batcher
	ImagesDir string
	Logger    logrus.FieldLogger
}

// Handler carries the dependencies of the HTTP handlers.
type Handler struct {
	store     Store
	batcher   Batcher
	imagesDir string
	log       logrus.FieldLogger
	sessions  *sessions
}

// New returns a Handler.
func New(opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		store:     opts.Store,
		batcher:   opts.Batcher,
		imagesDir: opts.ImagesDir,
		log:       log.WithField("component", "handlers"),
		sessions:  newSessions(),
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", h.page(pages.HomePage))
	r.GET("/about", h.page(pages.AboutPage))
	r.GET("/sitemap.xml", h.SitemapXML)

	r.GET("/generate", h.GeneratePage)
	r.GET("/decode", h.DecodePage)
	r.POST("/decode", h.Decode)

	ai := r.Group("/ai")
	{
		ai.GET("", h.AIPage)
		ai.POST("/prompts", h.AddPrompt)
		ai.POST("/prompts/:id/delete", h.RemovePrompt)
		ai.POST("/qr", h.AIQRCode)
		ai.POST("/run", h.AIRun)
	}

	r.GET("/runs", h.Runs)
	r.GET("/runs/:folder", h.Run)
	r.GET("/runs/:folder/:file", h.RunFile)

	api := r.Group("/api")
	{
		api.GET("/qr", h.QRCodeHandler)
		api.POST("/htmx/toast", h.GenericToast)
	}
}

func (h *Handler) page(fn func() templ.Component) gin.HandlerFunc {
	return func(c *gin.Context) { h.render(c, http.StatusOK, fn()) }
}

// render writes a templ component as the HTML response.
func (h *Handler) render(c *gin.Context, status int, comp templ.Component) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := comp.Render(c.Request.Context(), c.Writer); err != nil {
		h.log.WithError(err).Error("rendering page")
		_ = c.Error(err)
	}
}

// sitemapPages are the public pages listed in the sitemap.
var sitemapPages = []struct {
	path, freq, priority string
}{
	{"/", "weekly", "1.0"},
	{"/generate", "monthly", "0.8"},
	{"/decode", "monthly", "0.8"},
	{"/ai", "monthly", "0.7"},
	{"/about", "monthly", "0.6"},
}

// SitemapXML serves a minimal sitemap for the site.
func (h *Handler) SitemapXML(c *gin.Context) {
	c.Header("Content-Type", "application/xml; charset=utf-8")
	scheme := "https"
	host := c.Request.Host
	if xf := c.Request.Header.Get("X-Forwarded-Proto"); xf != "" {
		scheme = xf
	} else if c.Request.TLS == nil && isLocal(host) {
		scheme = "http"
	}
	base := scheme + "://" + host
	xml := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n" +
		"<urlset xmlns=\"http://www.sitemaps.org/schemas/sitemap/0.9\">\n"
	for _, p := range sitemapPages {
		xml += "  <url>\n" +
			"    <loc>" + base + p.path + "</loc>\n" +
			"    <changefreq>" + p.freq + "</changefreq>\n" +
			"    <priority>" + p.priority + "</priority>\n" +
			"  </url>\n"
	}
	xml += "</urlset>\n"
	c.String(http.StatusOK, xml)
}

func isLocal(host string) bool {
	for _, prefix := range []string{"localhost", "127.0.0.1", "[::1]"} {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}
