package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestAdvisoryHandlerRequestRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAdvisoryHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/asesorias", strings.NewReader(`{"matricula_asesor":"P0001"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Request(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdvisoryHandlerResolveRejectsBadID(t *testing.T) {
	handler := NewAdvisoryHandler(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/asesorias/abc/resolver", strings.NewReader(`{"aceptar":true}`))
	req.Header.Set("Content-Type", "application/json")
	c := authedContext(t, rec, req)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.Resolve(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdvisoryHandlerCloseRejectsBadID(t *testing.T) {
	handler := NewAdvisoryHandler(nil)

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, httptest.NewRequest(http.MethodDelete, "/asesorias/xyz", nil))
	c.Params = gin.Params{{Key: "id", Value: "xyz"}}

	handler.Close(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
