package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/school-results-api/internal/middleware"
	"github.com/noah-isme/school-results-api/internal/models"
)

func staffContext(rec *httptest.ResponseRecorder) (*gin.Context, *models.JWTClaims) {
	c, _ := gin.CreateTestContext(rec)
	claims := &models.JWTClaims{UserID: "user-1", SchoolID: "school-1", Role: models.RoleStaff}
	c.Set(middleware.ContextUserKey, claims)
	return c, claims
}

func TestResultHandlerUpsertRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewResultHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/results", strings.NewReader(`{}`))

	handler.Upsert(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResultHandlerUpsertRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewResultHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := staffContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/results", strings.NewReader(`{"student_id":`))

	handler.Upsert(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResultHandlerListRequiresPeriodParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewResultHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := staffContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/results/stu-1?termId=term-1", nil)
	c.Params = gin.Params{{Key: "studentId", Value: "stu-1"}}

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportHandlerRequiresPeriodParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(nil, nil)

	rec := httptest.NewRecorder()
	c, _ := staffContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/reports/students/stu-1", nil)
	c.Params = gin.Params{{Key: "studentId", Value: "stu-1"}}

	handler.Report(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGradingHandlerReplaceRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewGradingHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := staffContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/grading/scale", strings.NewReader(`{"bands": [`))

	handler.Replace(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
