package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/qrart/web/components/ui/toast"
)

// GenericToast returns a Toast component rendered as HTML for HTMX swaps.
func (h *Handler) GenericToast(c *gin.Context) {
	h.render(c, http.StatusOK, toast.Toast(toast.Props{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Variant:     toast.ParseVariant(c.PostForm("variant")),
		Position:    toast.ParsePosition(c.PostForm("position")),
		Duration:    2000,
		Dismissible: c.PostForm("dismissible") == "on",
		Icon:        true,
	}))
}

// fail reports an error as a toast fragment to HTMX requests and as plain
// text otherwise.
func (h *Handler) fail(c *gin.Context, status int, title string, err error) {
	if c.GetHeader("HX-Request") != "true" {
		c.String(status, err.Error())
		return
	}
	h.render(c, status, toast.Toast(toast.Props{
		Title:       title,
		Description: err.Error(),
		Variant:     toast.VariantError,
		Position:    toast.PositionBottomRight,
		Duration:    5000,
		Dismissible: true,
		Icon:        true,
	}))
}
