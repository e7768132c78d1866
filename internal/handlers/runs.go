package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/qrart/internal/store"
	"github.com/cristianadrielbraun/qrart/web/pages"
)

const runsPageLimit = 50

// Runs lists the most recent batches.
func (h *Handler) Runs(c *gin.Context) {
	runs, err := h.store.Runs(c.Request.Context(), runsPageLimit)
	if err != nil {
		h.log.WithError(err).Error("listing runs")
		h.fail(c, http.StatusInternalServerError, "Runs", errors.New("could not list runs"))
		return
	}
	h.render(c, http.StatusOK, pages.RunsPage(runs))
}

// Run shows one batch.
func (h *Handler) Run(c *gin.Context) {
	run, images, err := h.store.RunByFolder(c.Request.Context(), c.Param("folder"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.fail(c, http.StatusNotFound, "Runs", err)
			return
		}
		h.log.WithError(err).Error("loading run")
		h.fail(c, http.StatusInternalServerError, "Runs", errors.New("could not load run"))
		return
	}
	h.render(c, http.StatusOK, pages.RunPage(run, images))
}

// RunFile serves an image saved in a run folder.
func (h *Handler) RunFile(c *gin.Context) {
	folder, file := c.Param("folder"), c.Param("file")
	if !safeName(folder) || !safeName(file) || !strings.EqualFold(filepath.Ext(file), ".png") {
		c.String(http.StatusNotFound, "not found")
		return
	}
	c.File(filepath.Join(h.imagesDir, folder, file))
}

// safeName rejects anything that could leave the images directory.
func safeName(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`) && filepath.Base(s) == s
}
