package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RefreshRunner triggers a full insight rebuild.
type RefreshRunner interface {
	Refresh(ctx context.Context) error
}

// AdminHandler serves operational endpoints.
type AdminHandler struct {
	refresher RefreshRunner
}

func NewAdminHandler(refresher RefreshRunner) *AdminHandler {
	return &AdminHandler{refresher: refresher}
}

// Refresh handles POST /api/v1/admin/refresh.  Runs synchronously; a
// concurrent run surfaces as 409.
func (h *AdminHandler) Refresh(c *gin.Context) {
	if err := h.refresher.Refresh(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}
