package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrart/internal/artbatch"
	"github.com/cristianadrielbraun/qrart/internal/params"
	"github.com/cristianadrielbraun/qrart/internal/qr"
	"github.com/cristianadrielbraun/qrart/internal/store"
	"github.com/cristianadrielbraun/qrart/web/pages"
)

var errNoStartImage = errors.New("generate a QR code first")

// AIPage renders the New AI QR page from the session state.
func (h *Handler) AIPage(c *gin.Context) {
	_, sess := h.session(c)
	h.renderAI(c, http.StatusOK, sess, c.Query("source"), "")
}

func (h *Handler) renderAI(c *gin.Context, status int, sess session, source, msg string) {
	prompts, err := h.store.Prompts(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("loading prompts")
		msg = "Could not load prompts: " + err.Error()
		status = http.StatusInternalServerError
	}
	view := pages.AIView{
		Prompts:  prompts,
		Source:   source,
		Form:     sess.form,
		Settings: sess.settings,
		Error:    msg,
	}
	if len(sess.qr) > 0 {
		view.QRImage = dataURL(sess.qr, "qr.png")
	}
	h.render(c, status, pages.AIPage(view))
}

// AddPrompt puts a new prompt at the front of the list.
func (h *Handler) AddPrompt(c *gin.Context) {
	p, err := h.store.AddPrompt(c.Request.Context(), c.PostForm("prompt"))
	if err != nil {
		h.log.WithError(err).Error("adding prompt")
		_, sess := h.session(c)
		h.renderAI(c, http.StatusInternalServerError, sess, "", "Could not add the prompt.")
		return
	}
	if p.ID != 0 {
		h.log.WithField("prompt", p.Text).Info("prompt added")
	}
	c.Redirect(http.StatusSeeOther, "/ai")
}

// RemovePrompt deletes a prompt by id.
func (h *Handler) RemovePrompt(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "Remove prompt", errors.New("invalid prompt id"))
		return
	}
	if err := h.store.RemovePrompt(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.fail(c, http.StatusNotFound, "Remove prompt", err)
			return
		}
		h.log.WithError(err).Error("removing prompt")
		h.fail(c, http.StatusInternalServerError, "Remove prompt", errors.New("could not remove the prompt"))
		return
	}
	c.Redirect(http.StatusSeeOther, "/ai")
}

// AIQRCode stores the QR form in the session and, when the generate button
// was used, renders the starting QR code.
func (h *Handler) AIQRCode(c *gin.Context) {
	id, sess := h.session(c)
	if err := c.Request.ParseForm(); err != nil {
		h.renderAI(c, http.StatusBadRequest, sess, pages.SourceGenerated, err.Error())
		return
	}
	sess.form = pages.QRFormFrom(c.Request.PostForm)
	if c.PostForm("generate") != "" {
		payload, err := resolvePayload(sess.form)
		if err != nil {
			status := http.StatusInternalServerError
			if isBadInput(err) {
				status = http.StatusBadRequest
			}
			h.saveSession(id, sess)
			h.renderAI(c, status, sess, pages.SourceGenerated, err.Error())
			return
		}
		opts := qr.DefaultOptions()
		opts.Fg = qr.ParseColor(sess.form.Color, opts.Fg)
		img, err := qr.Encode(payload, opts)
		if err != nil {
			h.log.WithError(err).Error("encoding starting QR code")
			h.renderAI(c, http.StatusInternalServerError, sess, pages.SourceGenerated, "Could not create the QR code.")
			return
		}
		sess.qr = img
		h.log.WithField("kind", sess.form.Kind).Info("starting QR code generated")
	}
	h.saveSession(id, sess)
	c.Redirect(http.StatusSeeOther, "/ai?source="+pages.SourceGenerated)
}

// AIRun runs a batch over every prompt with the session QR code or an
// uploaded image as the control image.
func (h *Handler) AIRun(c *gin.Context) {
	id, sess := h.session(c)
	source := c.PostForm("source")
	sess.settings = pages.SettingsFrom(c.Request.PostForm)
	h.saveSession(id, sess)

	var image []byte
	switch source {
	case pages.SourceUpload:
		data, _, err := readUpload(c, "image")
		if err != nil {
			h.renderAI(c, http.StatusBadRequest, sess, source, err.Error())
			return
		}
		image = data
	default:
		source = pages.SourceGenerated
		if len(sess.qr) == 0 {
			h.renderAI(c, http.StatusBadRequest, sess, source, errNoStartImage.Error())
			return
		}
		image = sess.qr
	}

	ctx := c.Request.Context()
	prompts, err := h.store.PromptTexts(ctx)
	if err != nil {
		h.log.WithError(err).Error("loading prompts")
		h.renderAI(c, http.StatusInternalServerError, sess, source, "Could not load prompts.")
		return
	}

	log := h.log.WithField("source", source)
	res, err := h.batcher.Run(ctx, artbatch.Input{
		Prompts:  prompts,
		Settings: sess.settings,
		Image:    image,
		Source:   source,
		OnProgress: func(p artbatch.Progress) {
			log.WithFields(logrus.Fields{
				"completed": p.Completed,
				"total":     p.Total,
				"percent":   p.Percent(),
			}).Info("batch progress")
		},
	})
	if err != nil {
		if res == nil {
			status := http.StatusInternalServerError
			if errors.Is(err, artbatch.ErrNoPrompts) || errors.Is(err, artbatch.ErrBadImage) ||
				errors.Is(err, params.ErrInvalidParameterValue) {
				status = http.StatusBadRequest
			}
			h.renderAI(c, status, sess, source, err.Error())
			return
		}
		h.render(c, http.StatusBadGateway, pages.AIResultPage(pages.AIResultView{
			Folder: res.Folder,
			Images: res.Images,
			Error:  "Processing stopped: " + err.Error(),
		}))
		return
	}
	h.render(c, http.StatusOK, pages.AIResultPage(pages.AIResultView{
		Folder: res.Folder,
		Images: res.Images,
	}))
}
