package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/bekarysoff/avtoservice-backend/internal/http/middleware"
)

func TestPartnerHandler_CreatePartnerAccount_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &PartnerHandler{partners: nil}
	r.POST("/admin/create-partner-account", handler.CreatePartnerAccount)

	req, _ := http.NewRequest("POST", "/admin/create-partner-account", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPartnerHandler_CreatePartnerAccount_InvalidApplicationID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &PartnerHandler{partners: nil}
	r.POST("/admin/create-partner-account", func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, uuid.New())
		handler.CreatePartnerAccount(c)
	})

	body := bytes.NewBufferString(`{"applicationId": "not-a-uuid", "password": "secret123"}`)
	req, _ := http.NewRequest("POST", "/admin/create-partner-account", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "неверный идентификатор заявки")
}

func TestPartnerHandler_CreatePartnerAccount_MissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &PartnerHandler{partners: nil}
	r.POST("/admin/create-partner-account", func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, uuid.New())
		handler.CreatePartnerAccount(c)
	})

	req, _ := http.NewRequest("POST", "/admin/create-partner-account", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPartnerHandler_RejectPartnerApplication_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &PartnerHandler{partners: nil}
	r.POST("/admin/reject-partner-application", handler.RejectPartnerApplication)

	req, _ := http.NewRequest("POST", "/admin/reject-partner-application", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPartnerHandler_CreateTestPartner_MissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &PartnerHandler{partners: nil}
	r.POST("/dev/create-test-partner", handler.CreateTestPartner)

	req, _ := http.NewRequest("POST", "/dev/create-test-partner", bytes.NewBufferString(`{"phone": "+77001234567"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
