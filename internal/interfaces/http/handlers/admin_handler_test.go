package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/geoinsight/geoinsight/pkg/errors"
)

type stubRefresher struct {
	err   error
	calls int
}

func (s *stubRefresher) Refresh(context.Context) error {
	s.calls++
	return s.err
}

func newAdminRouter(refresher *stubRefresher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/admin/refresh", NewAdminHandler(refresher).Refresh)
	return r
}

func TestAdminRefreshCompletes(t *testing.T) {
	refresher := &stubRefresher{}
	r := newAdminRouter(refresher)

	req := httptest.NewRequest(http.MethodPost, "/admin/refresh", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, refresher.calls)
}

func TestAdminRefreshConflictsWhileRunning(t *testing.T) {
	refresher := &stubRefresher{err: errors.New(errors.ErrCodeRefreshInProgress, "refresh already running")}
	r := newAdminRouter(refresher)

	req := httptest.NewRequest(http.MethodPost, "/admin/refresh", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
