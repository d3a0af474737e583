package web_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/freezerinv/internal/annotation"
	"github.com/vbonduro/freezerinv/internal/db"
	"github.com/vbonduro/freezerinv/internal/domain"
	"github.com/vbonduro/freezerinv/internal/service"
	"github.com/vbonduro/freezerinv/internal/session"
	"github.com/vbonduro/freezerinv/internal/store"
	"github.com/vbonduro/freezerinv/internal/web"
	"github.com/vbonduro/freezerinv/internal/web/templates"
)

// minimalJPEG is 512 bytes with the JPEG magic bytes header followed by zeros.
var minimalJPEG = func() []byte {
	b := make([]byte, 512)
	b[0] = 0xFF
	b[1] = 0xD8
	b[2] = 0xFF
	b[3] = 0xE0
	return b
}()

// recordingAnnotator returns the same texts for every upload and remembers
// how many bytes it received.
type recordingAnnotator struct {
	mu        sync.Mutex
	texts     []string
	lastBytes int
}

func (r *recordingAnnotator) Name() string { return "recording" }

func (r *recordingAnnotator) Annotate(_ context.Context, m domain.Media) (<-chan annotation.Event, error) {
	r.mu.Lock()
	r.lastBytes = len(m.Data)
	r.mu.Unlock()
	return annotation.Batch(r.texts), nil
}

func (r *recordingAnnotator) LastBytes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastBytes
}

func newTestServer(t *testing.T, a annotation.Annotator, maxUpload int64) *httptest.Server {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	svc := service.NewInventoryService(a, store.NewCallStore(database), service.Options{
		InventoryName: "Freezer 3",
		Timeouts:      service.Timeouts{Image: time.Second, Video: time.Second},
	}, slog.Default())
	sessions := session.NewManager(time.Hour, slog.Default())
	srv := httptest.NewServer(web.NewServer(svc, sessions, templates.FS, web.Options{MaxUploadBytes: maxUpload}, slog.Default()))
	t.Cleanup(func() {
		srv.Close()
		_ = database.Close()
	})
	return srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func buildMultipartBody(t *testing.T, coordinate string, files ...[]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("coordinate", coordinate))
	for i, data := range files {
		fw, err := w.CreateFormFile("media", "label"+string(rune('0'+i))+".jpg")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func do(t *testing.T, c *http.Client, method, target string, form url.Values) *http.Response {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestIntegration_Index(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, &recordingAnnotator{}, 0)
	c := newClient(t)

	resp := do(t, c, http.MethodGet, srv.URL+"/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "Freezer 3")
	assert.Contains(t, string(b), "No samples recorded yet.")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	var found bool
	for _, ck := range resp.Cookies() {
		if ck.Name == "freezerinv_session" {
			found = true
			assert.True(t, ck.HttpOnly)
		}
	}
	assert.True(t, found, "session cookie issued")
}

func TestIntegration_LedgerLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, &recordingAnnotator{}, 0)
	c := newClient(t)

	resp := do(t, c, http.MethodPost, srv.URL+"/entries", url.Values{"coordinate": {"A1"}, "description": {"Sample X"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, c, http.MethodPost, srv.URL+"/entries", url.Values{"coordinate": {"a1"}, "description": {"Sample Y"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, c, http.MethodPut, srv.URL+"/entries/A1", url.Values{"description": {"Sample Y"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, c, http.MethodPut, srv.URL+"/entries/B9", url.Values{"description": {"Sample Z"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, c, http.MethodPost, srv.URL+"/entries", url.Values{"coordinate": {"B2"}, "description": {"  "}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	entries := decode[[]domain.Entry](t, do(t, c, http.MethodGet, srv.URL+"/entries", nil))
	require.Len(t, entries, 1)
	assert.Equal(t, "A1", entries[0].Coordinate)
	assert.Equal(t, "Sample Y", entries[0].Description)

	resp = do(t, c, http.MethodDelete, srv.URL+"/entries/last", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	removed := decode[domain.Entry](t, resp)
	assert.Equal(t, "A1", removed.Coordinate)

	resp = do(t, c, http.MethodDelete, srv.URL+"/entries/last", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	entries = decode[[]domain.Entry](t, do(t, c, http.MethodGet, srv.URL+"/entries", nil))
	assert.Empty(t, entries)
}

func TestIntegration_UpdateFreeFormCoordinate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, &recordingAnnotator{texts: []string{"serum lot 9"}}, 0)
	c := newClient(t)

	resp := do(t, c, http.MethodPost, srv.URL+"/entries", url.Values{"coordinate": {"rack 2/box 3?a1"}, "description": {"Sample X"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body, contentType := buildMultipartBody(t, "RACK 2/BOX 3?A1", minimalJPEG)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/recognize", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("HX-Request", "true")
	resp, err = c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), `hx-put="/entries/RACK%202%2FBOX%203%3FA1"`)

	resp = do(t, c, http.MethodPut, srv.URL+"/entries/RACK%202%2FBOX%203%3FA1", url.Values{"description": {"serum lot 9"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[domain.Entry](t, resp)
	assert.Equal(t, "RACK 2/BOX 3?A1", updated.Coordinate)
	assert.Equal(t, "serum lot 9", updated.Description)
}

func TestIntegration_SessionsAreIsolated(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, &recordingAnnotator{}, 0)
	alice, bob := newClient(t), newClient(t)

	resp := do(t, alice, http.MethodPost, srv.URL+"/entries", url.Values{"coordinate": {"C3"}, "description": {"plasma"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Len(t, decode[[]domain.Entry](t, do(t, alice, http.MethodGet, srv.URL+"/entries", nil)), 1)
	assert.Empty(t, decode[[]domain.Entry](t, do(t, bob, http.MethodGet, srv.URL+"/entries", nil)))
}

func TestIntegration_ClearAndSort(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, &recordingAnnotator{}, 0)
	c := newClient(t)

	for _, coord := range []string{"B1", "A2", "A1"} {
		resp := do(t, c, http.MethodPost, srv.URL+"/entries", url.Values{"coordinate": {coord}, "description": {"s-" + coord}})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	entries := decode[[]domain.Entry](t, do(t, c, http.MethodGet, srv.URL+"/entries?sort=coordinate", nil))
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"A1", "A2", "B1"}, []string{entries[0].Coordinate, entries[1].Coordinate, entries[2].Coordinate})

	resp := do(t, c, http.MethodDelete, srv.URL+"/entries", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, c, http.MethodDelete, srv.URL+"/entries", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, decode[[]domain.Entry](t, do(t, c, http.MethodGet, srv.URL+"/entries", nil)))
}

func TestIntegration_Recognize(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	a := &recordingAnnotator{texts: []string{"PBMC  donor 12", "2024-01-05"}}
	srv := newTestServer(t, a, 0)
	c := newClient(t)

	body, contentType := buildMultipartBody(t, "d4", minimalJPEG)
	resp, err := c.Post(srv.URL+"/recognize", contentType, body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rec struct {
		Coordinate  string `json:"coordinate"`
		Description string `json:"description"`
		HasText     bool   `json:"has_text"`
		Exists      bool   `json:"exists"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, "D4", rec.Coordinate)
	assert.Equal(t, "PBMC donor 12 2024-01-05", rec.Description)
	assert.True(t, rec.HasText)
	assert.False(t, rec.Exists)
	assert.Equal(t, len(minimalJPEG), a.LastBytes())

	stats := decode[[]domain.BackendStats](t, do(t, c, http.MethodGet, srv.URL+"/stats", nil))
	require.Len(t, stats, 1)
	assert.Equal(t, "recording", stats[0].Backend)
	assert.Equal(t, 1, stats[0].WithText)

	recent := decode[[]domain.AnnotationCall](t, do(t, c, http.MethodGet, srv.URL+"/stats/recent?limit=5", nil))
	require.Len(t, recent, 1)
	assert.Equal(t, "recording", recent[0].Backend)
	assert.Equal(t, domain.OutcomeText, recent[0].Outcome)
	assert.Equal(t, len(minimalJPEG), recent[0].Bytes)

	resp = do(t, c, http.MethodGet, srv.URL+"/stats/recent?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntegration_RecognizeNoTextRendersNoAddForm(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, &recordingAnnotator{texts: []string{"   "}}, 0)
	c := newClient(t)

	body, contentType := buildMultipartBody(t, "A1", minimalJPEG)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/recognize", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("HX-Request", "true")
	resp, err := c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "No text detected")
	assert.NotContains(t, string(b), "hx-post=\"/entries\"")
}

func TestIntegration_RecognizeRejectsBadUploads(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, &recordingAnnotator{}, 4096)
	c := newClient(t)

	body, contentType := buildMultipartBody(t, "A1", []byte("%PDF-1.4 not a label"))
	resp, err := c.Post(srv.URL+"/recognize", contentType, body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, contentType = buildMultipartBody(t, "A1")
	resp, err = c.Post(srv.URL+"/recognize", contentType, body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	big := append(append([]byte{}, minimalJPEG...), make([]byte, 8192)...)
	body, contentType = buildMultipartBody(t, "A1", big)
	resp, err = c.Post(srv.URL+"/recognize", contentType, body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestIntegration_ExportCSV(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, &recordingAnnotator{}, 0)
	c := newClient(t)

	for _, e := range [][2]string{{"B1", "plasma"}, {"A1", "serum, lot 7"}} {
		resp := do(t, c, http.MethodPost, srv.URL+"/entries", url.Values{"coordinate": {e[0]}, "description": {e[1]}})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := do(t, c, http.MethodGet, srv.URL+"/export.csv?sort=coordinate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="Freezer_3.csv"`, resp.Header.Get("Content-Disposition"))

	rows, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Coordinate", "Description"},
		{"A1", "serum, lot 7"},
		{"B1", "plasma"},
	}, rows)

	resp = do(t, c, http.MethodGet, srv.URL+"/export.xlsx?columns=coordinate,timestamp", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))

	resp = do(t, c, http.MethodGet, srv.URL+"/export.csv?columns=weight", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
