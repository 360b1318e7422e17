package rest_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inair/warehouse/api/rest"
	"github.com/inair/warehouse/audit"
	"github.com/inair/warehouse/config"
	mw "github.com/inair/warehouse/middleware"
	"github.com/inair/warehouse/model"
	"github.com/inair/warehouse/scan"
	"github.com/inair/warehouse/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type nopHub struct{}

func (nopHub) BroadcastEvent(string, interface{}) {}

// fixedRecognizer always reports the same count (or error).
type fixedRecognizer struct {
	count int
	err   error
}

func (f fixedRecognizer) Recognize(context.Context, []byte) (int, error) {
	return f.count, f.err
}

type invFixture struct {
	router *gin.Engine
	db     *gorm.DB
	token  string
}

func newInvFixture(t *testing.T, rec scan.Recognizer) *invFixture {
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: time.Hour}

	svc := scan.New(db, nopHub{}, 5, "", zap.NewNop())
	auditSvc := audit.New(db, zap.NewNop())
	t.Cleanup(func() { auditSvc.Stop(context.Background()) })

	h := rest.NewInventoryHandler(svc, rec, auditSvc, 1000, zap.NewNop())
	authH := rest.NewAuthHandler(db, c, sec)

	r := gin.New()
	r.POST("/api/auth/login", authH.Login)
	g := r.Group("/api/inventory")
	g.Use(mw.Auth(sec, c))
	g.GET("", h.List)
	g.GET("/stats", h.Stats)
	g.GET("/alerts", h.Alerts)
	g.POST("/add", h.Add)
	g.POST("/scan_barcode", h.ScanBarcode)
	g.POST("/scan_photo", h.ScanPhoto)
	g.POST("/upload", h.Upload)

	f := &invFixture{router: r, db: db}
	f.token = loginToken(t, r, "operator1")
	return f
}

func (f *invFixture) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return postJSON(f.router, path, body, "Authorization", "Bearer "+f.token)
}

func (f *invFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+f.token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestInventoryRequiresAuth(t *testing.T) {
	f := newInvFixture(t, fixedRecognizer{})

	req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAddAndList(t *testing.T) {
	f := newInvFixture(t, fixedRecognizer{})

	w := f.post(t, "/api/inventory/add", map[string]interface{}{
		"name": "Widget", "quantity": 3, "location": "A1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.get(t, "/api/inventory")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Inventory []scan.Row `json:"inventory"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Inventory, 1)
	assert.Equal(t, "Widget", resp.Inventory[0].Name)
	assert.Equal(t, 3, resp.Inventory[0].Quantity)
}

func TestAddValidation(t *testing.T) {
	f := newInvFixture(t, fixedRecognizer{})

	w := f.post(t, "/api/inventory/add", map[string]interface{}{"quantity": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.post(t, "/api/inventory/add", map[string]interface{}{"name": "X", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanBarcodeNotFound(t *testing.T) {
	f := newInvFixture(t, fixedRecognizer{})

	w := f.post(t, "/api/inventory/scan_barcode", map[string]string{"code": "NOPE"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestScanBarcodeFound(t *testing.T) {
	f := newInvFixture(t, fixedRecognizer{})
	require.NoError(t, f.db.Create(&model.Product{Barcode: "111", Name: "Cola", SKU: "C1"}).Error)

	w := f.post(t, "/api/inventory/scan_barcode", map[string]string{"code": "111"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"found"`)
	assert.Contains(t, w.Body.String(), "Cola")
}

func TestScanPhotoSuccess(t *testing.T) {
	f := newInvFixture(t, fixedRecognizer{count: 12})

	photo := base64.StdEncoding.EncodeToString([]byte("fake-jpeg"))
	w := f.post(t, "/api/inventory/scan_photo", map[string]string{"photo": photo})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success"`)
	assert.Contains(t, w.Body.String(), "12")
}

func TestScanPhotoFailureIsNotAnError(t *testing.T) {
	f := newInvFixture(t, fixedRecognizer{err: errors.New("no objects")})

	photo := base64.StdEncoding.EncodeToString([]byte("fake-jpeg"))
	w := f.post(t, "/api/inventory/scan_photo", map[string]string{"photo": photo})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"failure"`)
}

func uploadFile(t *testing.T, f *invFixture, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	part, err := mp.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mp.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/inventory/upload", &buf)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+f.token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestUploadCSV(t *testing.T) {
	f := newInvFixture(t, fixedRecognizer{})

	csvBody := "barcode,name,sku,quantity,location\n111,Widget,W1,10,A1\n222,Gadget,G1,2,B2\n"
	w := uploadFile(t, f, "stock.csv", csvBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"applied":2`)

	var count int64
	f.db.Model(&model.InventoryItem{}).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestUploadRejectsOtherTypes(t *testing.T) {
	f := newInvFixture(t, fixedRecognizer{})

	w := uploadFile(t, f, "stock.pdf", "not a spreadsheet")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRejectsBadRows(t *testing.T) {
	f := newInvFixture(t, fixedRecognizer{})

	w := uploadFile(t, f, "stock.csv", "barcode,name,sku,quantity,location\n111,Widget,W1,lots,A1\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsAndAlerts(t *testing.T) {
	f := newInvFixture(t, fixedRecognizer{})

	f.post(t, "/api/inventory/add", map[string]interface{}{"name": "Low", "quantity": 2})
	f.post(t, "/api/inventory/add", map[string]interface{}{"name": "Plenty", "quantity": 99})

	w := f.get(t, "/api/inventory/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var stats scan.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 2, stats.TotalItems)
	assert.EqualValues(t, 1, stats.LowStock)

	w = f.get(t, "/api/inventory/alerts")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Low")
	assert.NotContains(t, w.Body.String(), "Plenty")
}
