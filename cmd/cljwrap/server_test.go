package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/caffeineduck/cljwrap/language/clojure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestServer(t *testing.T, defaultLang string) (*server, *sessionManager) {
	t.Helper()

	sessions := newSessionManager(15 * time.Minute)
	t.Cleanup(sessions.closeAll)

	return &server{
		defaultLang: defaultLang,
		defaultNS:   clojure.DefaultNamespace,
		sessions:    sessions,
		log:         zap.NewNop(),
	}, sessions
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t, "clj")
	w := do(t, srv.routes(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestBootstrapEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t, "cljs")
	w := do(t, srv.routes(), http.MethodGet, "/bootstrap", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp bootstrapResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, clojure.Bootstrap(), resp.Code)

	w = do(t, srv.routes(), http.MethodPost, "/bootstrap", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestWrapEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t, "clj")
	h := srv.routes()

	w := do(t, h, http.MethodPost, "/wrap", `{"code":"(+ 1 2)","lang":"cljs"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp wrapResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "(clojure.core/in-ns 'user) (+ 1 2)", resp.Code)
	assert.Equal(t, "cljs", resp.Lang)
	assert.Equal(t, "user", resp.NS)
}

func TestWrapEndpointDefaults(t *testing.T) {
	srv, _ := setupTestServer(t, "clj")

	w := do(t, srv.routes(), http.MethodPost, "/wrap", `{"code":"(+ 1 2)","ns":"app.core"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp wrapResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, clojure.Eval("(+ 1 2)", "app.core", clojure.Clojure), resp.Code)
	assert.Equal(t, "clj", resp.Lang)
}

func TestWrapEndpointErrors(t *testing.T) {
	srv, _ := setupTestServer(t, "")
	h := srv.routes()

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"bad method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "{", http.StatusBadRequest},
		{"no code", http.MethodPost, `{"lang":"clj"}`, http.StatusBadRequest},
		{"unknown lang", http.MethodPost, `{"code":"1","lang":"python"}`, http.StatusBadRequest},
		{"no lang and no default", http.MethodPost, `{"code":"1"}`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, tc.method, "/wrap", tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func createSession(t *testing.T, h http.Handler, body string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/sessions", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp createSessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestSessionWrap(t *testing.T) {
	srv, _ := setupTestServer(t, "clj")
	h := srv.routes()

	id := createSession(t, h, `{"lang":"cljs","ns":"app.core"}`)

	w := do(t, h, http.MethodPost, "/sessions/"+id+"/wrap", `{"code":"(inc 1)"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp wrapResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "(clojure.core/in-ns 'app.core) (inc 1)", resp.Code)
	assert.Equal(t, "cljs", resp.Lang)
	assert.Equal(t, "app.core", resp.NS)
}

func TestSessionSwitchNamespace(t *testing.T) {
	srv, sessions := setupTestServer(t, "cljs")
	h := srv.routes()

	id := createSession(t, h, "")

	w := do(t, h, http.MethodPost, "/sessions/"+id+"/wrap", `{"code":"x","ns":"other"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The switch sticks for later requests.
	w = do(t, h, http.MethodPost, "/sessions/"+id+"/wrap", `{"code":"y"}`)
	var resp wrapResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "(clojure.core/in-ns 'other) y", resp.Code)

	ss, ok := sessions.get(id)
	require.True(t, ok)
	assert.Equal(t, "other", ss.ns)
}

func TestCreateSessionErrors(t *testing.T) {
	srv, _ := setupTestServer(t, "")
	h := srv.routes()

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/sessions", `{"lang":"rb"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/sessions", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/sessions", "").Code)
}

func TestSessionClose(t *testing.T) {
	srv, _ := setupTestServer(t, "clj")
	h := srv.routes()

	id := createSession(t, h, "")

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/sessions/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/sessions/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/sessions/"+id+"/wrap", `{"code":"1"}`).Code)
}

func TestSessionNotFound(t *testing.T) {
	_, sessions := setupTestServer(t, "clj")

	_, ok := sessions.get("nonexistent-session-id")
	assert.False(t, ok)

	_, ok, err := sessions.wrap("nonexistent-session-id", "1", "")
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestMultipleSessions(t *testing.T) {
	_, sessions := setupTestServer(t, "clj")

	id1, err := sessions.create("clj", "one")
	require.NoError(t, err)
	id2, err := sessions.create("cljs", "two")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2, "session IDs should be unique")

	out1, _, _ := sessions.wrap(id1, "x", "")
	out2, _, _ := sessions.wrap(id2, "x", "")
	assert.Equal(t, clojure.Eval("x", "one", clojure.Clojure), out1)
	assert.Equal(t, "(clojure.core/in-ns 'two) x", out2)
}

func TestSessionEviction(t *testing.T) {
	_, sessions := setupTestServer(t, "clj")

	id, err := sessions.create("clj", "user")
	require.NoError(t, err)

	assert.Equal(t, 0, sessions.evictIdle(time.Now()))
	assert.Equal(t, 1, sessions.evictIdle(time.Now().Add(16*time.Minute)))

	_, ok := sessions.get(id)
	assert.False(t, ok)
}

func TestSessionConcurrentWrap(t *testing.T) {
	_, sessions := setupTestServer(t, "clj")

	id, err := sessions.create("cljs", "user")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, ok, err := sessions.wrap(id, "(+ 1 2)", "")
			assert.True(t, ok)
			assert.NoError(t, err)
			assert.Equal(t, "(clojure.core/in-ns 'user) (+ 1 2)", out)
		}()
	}
	wg.Wait()
}
