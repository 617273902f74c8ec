package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/weprixetechnologies/cly-user-sub000/session"
)

// fakeBackend accepts one access token at a time and rotates it on refresh.
type fakeBackend struct {
	server *httptest.Server

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	next         session.TokenPair
	rejectStatus int  // status for a bad bearer, 401 by default
	refreshFails int  // non-zero: the refresh endpoint answers with this status
	alwaysReject bool // reject even the rotated token
	open         bool // skip the bearer check entirely
	authHeaders  []string

	refreshCalls atomic.Int32
	// refreshGate, when set, holds the refresh handler until it is closed.
	refreshGate chan struct{}

	routes map[string]http.HandlerFunc
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		accessToken:  "A1",
		refreshToken: "R1",
		next:         session.TokenPair{AccessToken: "A2", RefreshToken: "R2"},
		rejectStatus: http.StatusUnauthorized,
		routes:       map[string]http.HandlerFunc{},
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) baseURL() string { return b.server.URL + "/api" }

func (b *fakeBackend) handle(pattern string, h http.HandlerFunc) {
	b.mu.Lock()
	b.routes[pattern] = h
	b.mu.Unlock()
}

func (b *fakeBackend) headers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authHeaders...)
}

func (b *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	if path == RefreshPath {
		b.serveRefresh(w, r)
		return
	}

	b.mu.Lock()
	auth := r.Header.Get("Authorization")
	b.authHeaders = append(b.authHeaders, auth)
	ok := auth == "Bearer "+b.accessToken && !b.alwaysReject
	status := b.rejectStatus
	h := b.routes[r.Method+" "+path]
	open := b.open
	b.mu.Unlock()

	if open || strings.HasPrefix(path, "/auth/") {
		ok = true
	}
	if !ok {
		writeJSON(w, status, map[string]any{"success": false, "message": "token expired"})
		return
	}
	if h == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{"path": path}})
		return
	}
	h(w, r)
}

func (b *fakeBackend) serveRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	if b.refreshGate != nil {
		<-b.refreshGate
	}
	var body refreshRequest
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refreshFails != 0 {
		writeJSON(w, b.refreshFails, map[string]any{"success": false, "message": "refresh rejected"})
		return
	}
	if body.RefreshToken != b.refreshToken {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "invalid refresh token"})
		return
	}
	b.accessToken, b.refreshToken = b.next.AccessToken, b.next.RefreshToken
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"accessToken":  b.next.AccessToken,
		"refreshToken": b.next.RefreshToken,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type hookRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (h *hookRecorder) record(err error) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
}

func (h *hookRecorder) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.errs)
}

func newTestClient(t *testing.T, b *fakeBackend, store session.Store, hook *hookRecorder) *Client {
	t.Helper()
	cfg := Config{BaseURL: b.baseURL(), Store: store}
	if hook != nil {
		cfg.OnUnauthenticated = hook.record
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func loggedInStore(t *testing.T) *session.MemoryStore {
	t.Helper()
	store := session.NewMemoryStore()
	require.NoError(t, store.Set(testContext(t), session.TokenPair{AccessToken: "A1", RefreshToken: "R1"}))
	require.NoError(t, store.SetUserID(testContext(t), "u-1"))
	return store
}
