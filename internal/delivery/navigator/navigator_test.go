package navigator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tree_nav/internal/bootstrap"
	"tree_nav/internal/domain/tree"
	errs "tree_nav/internal/errors"
	"tree_nav/internal/repository"
	"tree_nav/internal/usecase/navigation"
)

var weather = dedent.Dedent(`
	if outlook sunny
	  if humidity high
	    class: no
	    class: yes
	if outlook rain
	  class: yes
`)

type envelope struct {
	Status int             `json:"Status"`
	Body   json.RawMessage `json:"Body"`
}

func newTestRouter(t *testing.T, maxUpload int64) http.Handler {
	t.Helper()
	cfg := bootstrap.Config{MaxUploadBytes: maxUpload, MaxRequestBytes: 1 << 10}
	return newRouterWithStore(t, cfg, repository.NewTreeMapStorage())
}

func newRouterWithStore(t *testing.T, cfg bootstrap.Config, trees navigation.TreeStore) http.Handler {
	t.Helper()
	log := zap.NewNop().Sugar()
	uc := navigation.NewUseCase(log, trees, repository.NewSessionMapStorage(), repository.NewLocalParser(), "auto")
	h := NewNavigatorHandler(cfg, log, uc)
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) navigation.View {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, rec.Code, env.Status)
	var v navigation.View
	require.NoError(t, json.Unmarshal(env.Body, &v))
	return v
}

func upload(t *testing.T, h http.Handler) navigation.View {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/trees?name=weather.txt", strings.NewReader(weather), "text/plain")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeView(t, rec)
}

func TestUploadAndChoose(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	v := upload(t, h)
	assert.Equal(t, "weather.txt", v.FileName)
	assert.Equal(t, "outlook", v.Question)

	rec := do(t, h, http.MethodPost, "/sessions/"+v.SessionID+"/choose", strings.NewReader(`{"value":"sunny"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "humidity", decodeView(t, rec).Question)

	rec = do(t, h, http.MethodPost, "/sessions/"+v.SessionID+"/choose", strings.NewReader(`{"option":1}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	v = decodeView(t, rec)
	assert.Equal(t, "at_result", v.Status)
	assert.Equal(t, "yes", v.Result)
	assert.Len(t, v.Path, 2)

	rec = do(t, h, http.MethodGet, "/sessions/"+v.SessionID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, v, decodeView(t, rec))
}

func TestChooseRejections(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	v := upload(t, h)
	target := "/sessions/" + v.SessionID + "/choose"

	cases := []struct {
		name string
		body string
		code int
	}{
		{"unknown value", `{"value":"snow"}`, http.StatusUnprocessableEntity},
		{"index out of range", `{"option":9}`, http.StatusUnprocessableEntity},
		{"negative index", `{"option":-1}`, http.StatusBadRequest},
		{"nothing chosen", `{}`, http.StatusBadRequest},
		{"broken json", `{"value":`, http.StatusBadRequest},
		{"unknown field", `{"answer":"sunny"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, target, strings.NewReader(tc.body), "application/json")
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}

	rec := do(t, h, http.MethodGet, "/sessions/"+v.SessionID, nil, "")
	assert.Equal(t, v, decodeView(t, rec))
}

func TestResetAndUnknownSession(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	v := upload(t, h)

	do(t, h, http.MethodPost, "/sessions/"+v.SessionID+"/choose", strings.NewReader(`{"value":"rain"}`), "application/json")
	rec := do(t, h, http.MethodPost, "/sessions/"+v.SessionID+"/reset", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, v, decodeView(t, rec))

	rec = do(t, h, http.MethodPost, "/sessions/nope/reset", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartSessionOnStoredTree(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	v := upload(t, h)

	rec := do(t, h, http.MethodPost, "/sessions", strings.NewReader(`{"tree_id":"`+v.TreeID+`"}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)
	other := decodeView(t, rec)
	assert.NotEqual(t, v.SessionID, other.SessionID)
	assert.Equal(t, v.TreeID, other.TreeID)

	rec = do(t, h, http.MethodPost, "/sessions", strings.NewReader(`{"tree_id":"not-a-uuid"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTreeExports(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	v := upload(t, h)

	rec := do(t, h, http.MethodGet, "/trees/"+v.TreeID+"?format=yaml", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "question: outlook")

	rec = do(t, h, http.MethodGet, "/trees/"+v.TreeID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"question":"humidity"`)
	assert.NotContains(t, rec.Body.String(), "class:")

	rec = do(t, h, http.MethodGet, "/trees/"+v.TreeID+"?format=xml", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/trees/"+v.TreeID+"/outline", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "outlook?\n"))

	rec = do(t, h, http.MethodGet, "/trees/missing/outline", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadLimits(t *testing.T) {
	h := newTestRouter(t, 16)

	rec := do(t, h, http.MethodPost, "/trees", strings.NewReader(weather), "text/plain")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRequestBodyLimit(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	v := upload(t, h)

	padded := `{"value":"sunny","padding":"` + strings.Repeat("x", 2<<10) + `"}`
	rec := do(t, h, http.MethodPost, "/sessions/"+v.SessionID+"/choose", strings.NewReader(padded), "application/json")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/sessions", strings.NewReader(`{"tree_id":"`+strings.Repeat("a", 2<<10)+`"}`), "application/json")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/sessions/"+v.SessionID, nil, "")
	assert.Equal(t, v, decodeView(t, rec))
}

// shallowTrees refuses trees the way the Mongo store refuses deep documents.
type shallowTrees struct {
	*repository.TreeMapStorage
	maxDepth int
}

func (s shallowTrees) SaveTree(ctx context.Context, upload tree.Upload) error {
	if upload.Stats.Depth > s.maxDepth {
		return fmt.Errorf("%w: depth %d", errs.ErrTreeTooDeep, upload.Stats.Depth)
	}
	return s.TreeMapStorage.SaveTree(ctx, upload)
}

func TestUploadTooDeep(t *testing.T) {
	cfg := bootstrap.Config{MaxUploadBytes: 1 << 20, MaxRequestBytes: 1 << 10}
	h := newRouterWithStore(t, cfg, shallowTrees{TreeMapStorage: repository.NewTreeMapStorage(), maxDepth: 1})

	rec := do(t, h, http.MethodPost, "/trees", strings.NewReader(weather), "text/plain")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "nested too deeply")

	rec = do(t, h, http.MethodPost, "/trees", strings.NewReader("if outlook sunny\n  class: yes\n"), "text/plain")
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestMultipartUpload(t *testing.T) {
	h := newTestRouter(t, 1<<20)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "forecast.txt")
	require.NoError(t, err)
	_, _ = io.WriteString(fw, weather)
	require.NoError(t, mw.Close())

	rec := do(t, h, http.MethodPost, "/trees", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "forecast.txt", decodeView(t, rec).FileName)

	body.Reset()
	mw = multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	rec = do(t, h, http.MethodPost, "/trees", &body, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplaceTreeAndReport(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	v := upload(t, h)

	rec := do(t, h, http.MethodPut, "/sessions/"+v.SessionID+"/tree?name=pet.txt", strings.NewReader("if pet cat\n  class: meow\n"), "text/plain")
	require.Equal(t, http.StatusOK, rec.Code)
	replaced := decodeView(t, rec)
	assert.Equal(t, v.SessionID, replaced.SessionID)
	assert.Equal(t, "pet", replaced.Question)

	rec = do(t, h, http.MethodGet, "/sessions/"+v.SessionID+"/report", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestCloseSession(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	v := upload(t, h)

	rec := do(t, h, http.MethodDelete, "/sessions/"+v.SessionID, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/sessions/"+v.SessionID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWatchBroadcastsChanges(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	srv := httptest.NewServer(h)
	defer srv.Close()
	v := upload(t, h)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + v.SessionID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var got navigation.View
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "outlook", got.Question)

	require.NoError(t, conn.WriteJSON(map[string]any{"value": "sunny"}))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "humidity", got.Question)

	require.NoError(t, conn.WriteJSON(map[string]any{"option": 7}))
	var failure map[string]string
	require.NoError(t, conn.ReadJSON(&failure))
	assert.Contains(t, failure["error"], "not an option")

	// changes made over HTTP reach the watcher too
	rec := do(t, h, http.MethodPost, "/sessions/"+v.SessionID+"/reset", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "outlook", got.Question)
	assert.Empty(t, got.Path)
}

func TestWatchUnknownSession(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	srv := httptest.NewServer(h)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/sessions/nope/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
