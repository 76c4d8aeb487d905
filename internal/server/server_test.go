package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	ct "github.com/agentic-research/faultcat/internal/catalog/catalogtest"
	"github.com/agentic-research/faultcat/internal/codepath"
	"github.com/agentic-research/faultcat/internal/navigator"
)

var battery = codepath.Path{0, 0, codepath.Unused, codepath.Unused}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newServer(t *testing.T) (*Server, *catalog.Store) {
	t.Helper()
	s := ct.Store()
	for _, lang := range api.Languages {
		ct.Put(t, s, "", ct.Doc(codepath.Root, lang, ct.E{Desc: "Batterie", Exp: true}, ct.E{Desc: "Arrêt d'urgence"}))
		ct.Put(t, s, "bat", ct.Doc(battery, lang, ct.E{Desc: "Tension basse"}))
	}
	return New(navigator.New(s, nil)), s
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t)
	w := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv, _ := newServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestColumns(t *testing.T) {
	srv, _ := newServer(t)

	w := do(t, srv, http.MethodGet, "/api/columns?path=0,0,255,255&lang=en", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp ColumnsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Columns, 2)
	assert.Equal(t, 0, resp.Columns[0].Selected)
	assert.Equal(t, "0,0,255,255", resp.Columns[1].ID)
	assert.Equal(t, "Tension basse", resp.Columns[1].Entries[0].Description)
	assert.Empty(t, resp.Error)

	// default path is the top file
	w = do(t, srv, http.MethodGet, "/api/columns", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Columns, 1)
}

func TestColumns_Errors(t *testing.T) {
	srv, _ := newServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/columns?lang=de", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/columns?path=1,x", "").Code)

	// missing leaf: partial columns with an error
	w := do(t, srv, http.MethodGet, "/api/columns?path=0,0,0,255", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp ColumnsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Columns, 2)
	assert.NotEmpty(t, resp.Error)

	// missing top file
	w = do(t, srv, http.MethodGet, "/api/columns?path=3,255,255,255", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearch(t *testing.T) {
	srv, _ := newServer(t)

	w := do(t, srv, http.MethodGet, "/api/search?q=arret&lang=es", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Hits []navigator.Hit `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "0.1", resp.Hits[0].Code)

	w = do(t, srv, http.MethodGet, "/api/search?q=nothing", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hits":[]}`, w.Body.String())
}

func TestEdit(t *testing.T) {
	srv, store := newServer(t)

	w := do(t, srv, http.MethodPut, "/api/entries",
		`{"path":"0,0,255,255","lang":"en","index":0,"description":"Low voltage"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res navigator.EditResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Changed)
	assert.Equal(t, "Low voltage", ct.Get(t, store, "bat/"+battery.Filename(api.English)).FaultDetailList[0].Description)

	w = do(t, srv, http.MethodPut, "/api/entries", `{"path":"0,0,255,255","lang":"en","index":4,"description":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, srv, http.MethodPut, "/api/entries", `{"path":"0,0,255,255","lang":"en"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPut, "/api/entries", `{"path":"0,0,255,255","lang":"xx","index":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheck(t *testing.T) {
	srv, store := newServer(t)

	w := do(t, srv, http.MethodGet, "/api/check", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		OK     bool   `json:"ok"`
		Report struct {
			Sets   int `json:"sets"`
			Issues []struct {
				Kind string `json:"kind"`
			} `json:"issues"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, 2, resp.Report.Sets)

	require.NoError(t, store.FS().Remove("bat/"+battery.Filename(api.Spanish)))
	w = do(t, srv, http.MethodGet, "/api/check", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.OK)
	require.NotEmpty(t, resp.Report.Issues)
	assert.Equal(t, "missing-file", resp.Report.Issues[0].Kind)
}

func TestMetrics(t *testing.T) {
	srv, _ := newServer(t)
	do(t, srv, http.MethodGet, "/healthz", "")
	w := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "faultcat_http_request_duration_seconds")
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(*gin.Context) { panic("boom") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal")
}
