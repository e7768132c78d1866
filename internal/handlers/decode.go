package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/qrart/internal/qr"
	"github.com/cristianadrielbraun/qrart/web/pages"
)

// maxUpload caps uploaded images.
const maxUpload = 10 << 20

// DecodePage renders the empty upload form.
func (h *Handler) DecodePage(c *gin.Context) {
	h.render(c, http.StatusOK, pages.DecodePage(pages.DecodeView{}))
}

// Decode reads the uploaded image and shows every QR code found in it.
func (h *Handler) Decode(c *gin.Context) {
	data, name, err := readUpload(c, "image")
	if err != nil {
		h.render(c, http.StatusBadRequest, pages.DecodePage(pages.DecodeView{Error: err.Error()}))
		return
	}

	results, err := qr.Decode(bytes.NewReader(data))
	switch {
	case errors.Is(err, qr.ErrNoQRCode):
		h.render(c, http.StatusUnprocessableEntity, pages.DecodePage(pages.DecodeView{Error: "No valid QR code found in the image."}))
		return
	case err != nil:
		h.log.WithError(err).WithField("file", name).Info("unreadable upload")
		h.render(c, http.StatusBadRequest, pages.DecodePage(pages.DecodeView{Error: "Could not read the image: " + err.Error()}))
		return
	}

	h.log.WithField("codes", len(results)).Debug("decoded upload")
	h.render(c, http.StatusOK, pages.DecodePage(pages.DecodeView{
		Results:  results,
		ImageURL: dataURL(data, name),
	}))
}

// readUpload returns the content and file name of a multipart file field.
func readUpload(c *gin.Context, field string) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, "", errors.New("please choose an image to upload")
	}
	if fh.Size > maxUpload {
		return nil, "", errors.New("the image is larger than 10 MB")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUpload))
	if err != nil {
		return nil, "", err
	}
	return data, fh.Filename, nil
}

func dataURL(data []byte, name string) string {
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data)
}
