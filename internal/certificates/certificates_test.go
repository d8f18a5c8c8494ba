package certificates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inr99/academy/internal/models"
)

type stubFinder map[string]models.CertificateVerification

func (s stubFinder) FindByNumber(_ context.Context, number string) (*models.CertificateVerification, error) {
	if number == "BOOM" {
		return nil, errors.New("db down")
	}
	v, ok := s[number]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func TestVerify(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issued := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	finder := stubFinder{"INR99-2025-0001": {Number: "INR99-2025-0001", IssuedAt: issued, StudentName: "Ravi", CourseTitle: "Budgeting 101"}}
	r := gin.New()
	NewHandler(finder, nil).Register(r.Group("/api"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/certificates/verify/INR99-2025-0001", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var ok struct {
		Success bool         `json:"success"`
		Data    Verification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	assert.True(t, ok.Data.Valid)
	assert.Equal(t, "Ravi", ok.Data.Certificate.StudentName)
	assert.Equal(t, "Budgeting 101", ok.Data.Certificate.CourseTitle)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/certificates/verify/NOPE", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"data":{"valid":false},"error":"certificate not found"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/certificates/verify/BOOM", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
