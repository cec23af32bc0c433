package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/featuretoggle/featuretoggle/internal/toggle"
	"github.com/featuretoggle/featuretoggle/internal/toggle/service"
	"github.com/featuretoggle/featuretoggle/pkg/logger"
	"github.com/featuretoggle/featuretoggle/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newRouter(svc service.Service, exp Exporter) *gin.Engine {
	g := gin.New()
	NewHandler(svc, exp).Register(g)
	return g
}

func do(g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func createToggle(t *testing.T, g *gin.Engine, pkg, name, b, e string) string {
	t.Helper()
	body := fmt.Sprintf(`{"package_name":%q,"name":%q,"description":"about %s","beginning_date":%q,"expiration_date":%q}`, pkg, name, name, b, e)
	w := do(g, http.MethodPost, "/feature-toggle", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cr map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cr))
	require.Equal(t, "Feature toggle created successfully", cr["message"])
	require.NotEmpty(t, cr["_id"])
	return cr["_id"]
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	return list
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestToggleHandler_CRUD(t *testing.T) {
	g := newRouter(service.NewMemoryService(service.WithClock(func() time.Time { return now })), nil)

	id := createToggle(t, g, "shop", "dark-mode", "2024-01-10 00:00:00", "2024-01-20 00:00:00")
	createToggle(t, g, "shop", "legacy", "2023-01-01 00:00:00", "2023-02-01 00:00:00")

	// list round trip
	list := decodeList(t, do(g, http.MethodGet, "/feature-toggles/shop", ""))
	require.Len(t, list, 2)
	var found map[string]any
	for _, it := range list {
		if it["_id"] == id {
			found = it
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "dark-mode", found["name"])
	assert.Equal(t, "about dark-mode", found["description"])
	assert.Equal(t, "2024-01-10 00:00:00", found["beginning_date"])
	assert.Equal(t, "2024-01-20 00:00:00", found["expiration_date"])

	list = decodeList(t, do(g, http.MethodGet, "/feature-toggles/shop/by-date?date=2024-01-10", ""))
	require.Len(t, list, 1)

	list = decodeList(t, do(g, http.MethodGet, "/feature-toggles/shop/active", ""))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0]["_id"])

	list = decodeList(t, do(g, http.MethodGet, "/feature-toggles/shop/active-in-range?start_date=2023-01-15&end_date=2024-01-10", ""))
	require.Len(t, list, 2)

	list = decodeList(t, do(g, http.MethodGet, "/feature-toggles/shop/recent", ""))
	require.Len(t, list, 2)

	// statistics
	w := do(g, http.MethodGet, "/feature-toggles/shop/statistics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, map[string]int{"total_features": 2, "active_features": 1}, stats)

	// update info
	w = do(g, http.MethodPut, "/feature-toggles/shop/"+id+"/update-info", `{"name":"night-mode"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// update dates, combined edit accepted past the stored expiration
	w = do(g, http.MethodPut, "/feature-toggles/shop/"+id+"/update-dates", `{"beginning_date":"2024-01-25 00:00:00","expiration_date":"2024-01-30 00:00:00"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list = decodeList(t, do(g, http.MethodGet, "/feature-toggles/shop/by-date?date=2024-01-27", ""))
	require.Len(t, list, 1)
	assert.Equal(t, "night-mode", list[0]["name"])

	// delete one
	w = do(g, http.MethodDelete, "/feature-toggles/shop/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(g, http.MethodDelete, "/feature-toggles/shop/"+id, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Feature toggle not found", errorOf(t, w))

	// delete all keeps the package addressable
	w = do(g, http.MethodDelete, "/feature-toggles/shop", "")
	require.Equal(t, http.StatusOK, w.Code)
	list = decodeList(t, do(g, http.MethodGet, "/feature-toggles/shop", ""))
	require.Empty(t, list)
}

func TestToggleHandler_CreateValidation(t *testing.T) {
	g := newRouter(service.NewMemoryService(), nil)

	cases := []struct {
		name, body, want string
	}{
		{"missing field", `{"package_name":"p","name":"n","beginning_date":"2024-01-10 00:00:00","expiration_date":"2024-01-20 00:00:00"}`, "Invalid request"},
		{"not json", `nope`, "Invalid request"},
		{"bad format", `{"package_name":"p","name":"n","description":"","beginning_date":"2024-01-10","expiration_date":"2024-01-20 00:00:00"}`, "Invalid date format. Please use YYYY-MM-DD HH:MM:SS"},
		{"padded date", `{"package_name":"p","name":"n","description":"","beginning_date":" 2024-01-10 00:00:00 ","expiration_date":"2024-01-20 00:00:00"}`, "Invalid date format. Please use YYYY-MM-DD HH:MM:SS"},
		{"ordering", `{"expiration_date":"2024-01-10 00:00:00","beginning_date":"2024-01-20 00:00:00","package_name":"p","name":"n","description":""}`, "Beginning date must be before expiration date"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := do(g, http.MethodPost, "/feature-toggle", c.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, c.want, errorOf(t, w))
		})
	}
}

func TestToggleHandler_NotFound(t *testing.T) {
	g := newRouter(service.NewMemoryService(), nil)
	id := createToggle(t, g, "known", "n", "2024-01-10 00:00:00", "2024-01-20 00:00:00")

	for _, r := range []struct{ method, path, body string }{
		{http.MethodGet, "/feature-toggles/unknown", ""},
		{http.MethodGet, "/feature-toggles/unknown/by-date?date=bad", ""},
		{http.MethodGet, "/feature-toggles/unknown/active", ""},
		{http.MethodGet, "/feature-toggles/unknown/active-in-range", ""},
		{http.MethodGet, "/feature-toggles/unknown/recent", ""},
		{http.MethodGet, "/feature-toggles/unknown/statistics", ""},
		{http.MethodDelete, "/feature-toggles/unknown", ""},
		{http.MethodDelete, "/feature-toggles/unknown/" + id, ""},
		{http.MethodDelete, "/feature-toggles/known/missing", ""},
		{http.MethodPut, "/feature-toggles/unknown/" + id + "/update-dates", ""},
		{http.MethodPut, "/feature-toggles/known/missing/update-dates", `{"beginning_date":"2024-01-12 00:00:00"}`},
		{http.MethodPut, "/feature-toggles/unknown/" + id + "/update-info", `{"name":"x"}`},
		{http.MethodPut, "/feature-toggles/known/missing/update-info", `{"name":"x"}`},
	} {
		w := do(g, r.method, r.path, r.body)
		assert.Equalf(t, http.StatusNotFound, w.Code, "%s %s", r.method, r.path)
	}
}

func TestToggleHandler_BadRequests(t *testing.T) {
	g := newRouter(service.NewMemoryService(), nil)
	id := createToggle(t, g, "p", "n", "2024-01-10 00:00:00", "2024-01-20 00:00:00")

	for _, r := range []struct{ method, path, body, want string }{
		{http.MethodGet, "/feature-toggles/p/by-date?date=2024/01/10", "", "Invalid date format. Please use YYYY-MM-DD"},
		{http.MethodGet, "/feature-toggles/p/active-in-range?start_date=2024-01-10", "", "Both start_date and end_date are required"},
		{http.MethodGet, "/feature-toggles/p/active-in-range?start_date=2024-01-10&end_date=2024-01-01", "", "Start date must be before end date"},
		{http.MethodPut, "/feature-toggles/p/" + id + "/update-dates", `{}`, "No dates provided to update"},
		{http.MethodPut, "/feature-toggles/p/" + id + "/update-dates", `{"expiration_date":"2024-01-05 00:00:00"}`, "Beginning date must be before expiration date"},
		{http.MethodPut, "/feature-toggles/p/" + id + "/update-dates", `{"beginning_date":"2024-01-25 00:00:00"}`, "Beginning date must be before expiration date"},
		{http.MethodPut, "/feature-toggles/p/" + id + "/update-dates", `{"beginning_date":"2024-01-25 00:00:00","expiration_date":"2024-01-05 00:00:00"}`, "Beginning date must be before expiration date"},
		{http.MethodPut, "/feature-toggles/p/" + id + "/update-info", `{"name":""}`, "No valid fields provided to update"},
	} {
		w := do(g, r.method, r.path, r.body)
		require.Equalf(t, http.StatusBadRequest, w.Code, "%s %s %s", r.method, r.path, r.body)
		assert.Equal(t, r.want, errorOf(t, w))
	}
}

type downService struct {
	service.Service
}

func (downService) List(context.Context, string) ([]*toggle.Toggle, error) {
	return nil, fmt.Errorf("%w: server selection timeout", toggle.ErrStoreUnavailable)
}

func TestToggleHandler_StoreUnavailable(t *testing.T) {
	g := newRouter(downService{}, nil)
	before := testutil.ToFloat64(metrics.ToggleOperations.WithLabelValues("list", "error"))

	w := do(g, http.MethodGet, "/feature-toggles/p", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Could not connect to the database", errorOf(t, w))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ToggleOperations.WithLabelValues("list", "error")))
}

type fakeExporter struct {
	pkg   string
	count int
}

func (f *fakeExporter) Export(_ context.Context, pkg string, toggles []*toggle.Toggle) (string, string, error) {
	f.pkg = pkg
	f.count = len(toggles)
	return pkg + "/snapshot.json", "http://minio.local/" + pkg + "/snapshot.json", nil
}

func TestToggleHandler_Export(t *testing.T) {
	svc := service.NewMemoryService()

	w := do(newRouter(svc, nil), http.MethodPost, "/feature-toggles/p/export", "")
	require.Equal(t, http.StatusNotImplemented, w.Code)

	exp := &fakeExporter{}
	g := newRouter(svc, exp)
	w = do(g, http.MethodPost, "/feature-toggles/p/export", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	createToggle(t, g, "p", "a", "2024-01-10 00:00:00", "2024-01-20 00:00:00")
	createToggle(t, g, "p", "b", "2024-01-10 00:00:00", "2024-01-20 00:00:00")
	w = do(g, http.MethodPost, "/feature-toggles/p/export", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "p/snapshot.json", body["key"])
	assert.Equal(t, "p", exp.pkg)
	assert.Equal(t, 2, exp.count)
}

func TestToggleHandler_UnreadableUpdateBodyIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger.Init("debug")
	logger.SetOutput(&buf)
	t.Cleanup(func() {
		logger.Init("info")
		logger.SetOutput(os.Stdout)
	})

	g := newRouter(service.NewMemoryService(), nil)
	id := createToggle(t, g, "p", "n", "2024-01-10 00:00:00", "2024-01-20 00:00:00")

	w := do(g, http.MethodPut, "/feature-toggles/p/"+id+"/update-dates", `{"beginning_date":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No dates provided to update", errorOf(t, w))
	assert.Contains(t, buf.String(), "update_dates p/"+id+": ignoring unreadable body")

	w = do(g, http.MethodPut, "/feature-toggles/p/"+id+"/update-info", `{"name": 5}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No valid fields provided to update", errorOf(t, w))
	assert.Contains(t, buf.String(), "update_info p/"+id+": ignoring unreadable body")

	// unknown records still win over the bad body
	w = do(g, http.MethodPut, "/feature-toggles/p/missing/update-info", `{"name": 5}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}
