package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrart/internal/qr"
	"github.com/cristianadrielbraun/qrart/web/pages"
)

var errInvalidURL = errors.New("invalid URL")

// normalizeHTTPURL validates and normalizes a URL string for QR generation.
// It ensures an http/https scheme and a non-empty hostname.
func normalizeHTTPURL(s string) (string, error) {
	v := strings.TrimSpace(s)
	if !strings.Contains(v, "://") {
		v = "https://" + v
	}
	u, err := url.ParseRequestURI(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: only http and https URLs are supported", errInvalidURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: URL must include a valid host", errInvalidURL)
	}
	if len(v) > 4096 {
		return "", fmt.Errorf("%w: URL is too long", errInvalidURL)
	}
	return u.String(), nil
}

// resolvePayload turns the form into the text to encode.
func resolvePayload(f pages.QRForm) (string, error) {
	fields := f.Fields
	if f.Kind == qr.KindURL && strings.TrimSpace(fields.URL) != "" {
		u, err := normalizeHTTPURL(fields.URL)
		if err != nil {
			return "", err
		}
		fields.URL = u
	}
	return qr.Payload(f.Kind, fields)
}

func isBadInput(err error) bool {
	return errors.Is(err, qr.ErrEmptyPayload) || errors.Is(err, errInvalidURL)
}

// imageQuery is the /api/qr query for an already resolved payload. Encoding
// the payload instead of the form keeps generated secrets stable between
// the preview and the download.
func imageQuery(payload, color string) url.Values {
	return url.Values{
		"kind":  {string(qr.KindText)},
		"text":  {payload},
		"color": {color},
	}
}

// QRCodeHandler renders a QR code image from query parameters.
//
//	kind (or type)  text|url|email|wifi|contact|otp, plus that kind's fields
//	color, bg       hex colors; bg also accepts "transparent"
//	format          png (default), jpg or svg
//	size            module size in pixels, 1-40
//	shape           square (default) or circle
//	download        any value sets Content-Disposition: attachment
func (h *Handler) QRCodeHandler(c *gin.Context) {
	q := c.Request.URL.Query()
	if q.Get("kind") == "" && q.Get("type") != "" {
		q.Set("kind", q.Get("type"))
	}
	form := pages.QRFormFrom(q)
	payload, err := resolvePayload(form)
	if err != nil {
		status := http.StatusInternalServerError
		if isBadInput(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	opts := qr.DefaultOptions()
	opts.Format = qr.ParseFormat(c.DefaultQuery("format", "png"))
	opts.Fg = qr.ParseColor(form.Color, opts.Fg)
	opts.Bg = qr.ParseColor(c.Query("bg"), opts.Bg)
	opts.Circle = c.Query("shape") == "circle"
	if size := c.Query("size"); size != "" {
		var n int
		if _, err := fmt.Sscan(size, &n); err != nil || n < 1 || n > 40 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 1 and 40"})
			return
		}
		opts.ModuleSize = uint8(n)
	}

	data, err := qr.Encode(payload, opts)
	if err != nil {
		h.log.WithError(err).Error("encoding QR code")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create QR code"})
		return
	}

	if c.Query("download") != "" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=qrcode.%s", opts.Format.Ext()))
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, opts.Format.ContentType(), data)

	h.log.WithFields(logrus.Fields{
		"kind":   form.Kind,
		"format": opts.Format,
		"bytes":  len(data),
	}).Debug("sent QR code")
}

// GeneratePage renders the Generate QR Code page. The form submits to
// itself; only the named generate button produces an image.
func (h *Handler) GeneratePage(c *gin.Context) {
	q := c.Request.URL.Query()
	view := pages.GenerateView{Form: pages.QRFormFrom(q)}
	status := http.StatusOK
	if q.Get("generate") != "" {
		payload, err := resolvePayload(view.Form)
		switch {
		case err == nil:
			img := imageQuery(payload, view.Form.Color).Encode()
			view.ImageURL = "/api/qr?" + img
			view.DownloadURL = "/api/qr?" + img + "&download=1"
		case isBadInput(err):
			view.Error = err.Error()
			status = http.StatusBadRequest
		default:
			h.log.WithError(err).Error("building QR payload")
			view.Error = "Could not build the QR code: " + err.Error()
			status = http.StatusInternalServerError
		}
	}
	h.render(c, status, pages.GeneratePage(view))
}
