package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weprixetechnologies/cly-user-sub000/client"
	"github.com/weprixetechnologies/cly-user-sub000/config"
	"github.com/weprixetechnologies/cly-user-sub000/db"
	"github.com/weprixetechnologies/cly-user-sub000/pkg/clierr"
	"github.com/weprixetechnologies/cly-user-sub000/session"
)

// storefront is a scripted backend. Requests must carry "Bearer <token>"
// unless the route is public.
type storefront struct {
	*httptest.Server
	mux   *http.ServeMux
	token string
}

func newStorefront(t *testing.T) *storefront {
	t.Helper()
	s := &storefront{mux: http.NewServeMux(), token: "A1"}
	s.Server = httptest.NewServer(s.mux)
	t.Cleanup(s.Close)
	s.mux.HandleFunc("POST /api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.RefreshToken != "R1" {
			reply(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "invalid refresh token"})
			return
		}
		s.token = "A2"
		reply(w, http.StatusOK, map[string]any{"success": true, "accessToken": "A2", "refreshToken": "R2"})
	})
	return s
}

// data registers an authenticated route answering with the {success, data} envelope.
func (s *storefront) data(pattern string, v any) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			reply(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "jwt expired"})
			return
		}
		reply(w, http.StatusOK, map[string]any{"success": true, "data": v})
	})
}

// public registers a route that needs no credentials.
func (s *storefront) public(pattern string, v any) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]any{"success": true, "data": v})
	})
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func useTestDeps(t *testing.T, apiURL string) *deps {
	t.Helper()
	conn, err := db.OpenInMemory()
	require.NoError(t, err)
	cfg := config.Default()
	cfg.APIURL = apiURL
	cfg.SessionBackend = config.BackendMemory
	d := &deps{
		cfg:     &cfg,
		store:   session.NewMemoryStore(),
		catalog: db.NewCatalogRepository(conn),
	}
	require.NoError(t, d.connect())

	current = nil
	buildDeps = func(*cobra.Command) (*deps, error) { return d, nil }
	t.Cleanup(func() {
		current = nil
		buildDeps = newDeps
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return d
}

func logIn(t *testing.T, d *deps) {
	t.Helper()
	require.NoError(t, d.store.Set(testContext(t), session.TokenPair{AccessToken: "A1", RefreshToken: "R1"}))
	require.NoError(t, d.store.SetUserID(testContext(t), "u-1"))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := createRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(testContext(t))
	current = nil
	return buf.String(), err
}

// TestCreateRootCmd checks that createRootCmd returns a root command
// with the expected use string, subcommands, and a replaced help command.
func TestCreateRootCmd(t *testing.T) {
	rootCmd := createRootCmd()
	assert.Equal(t, "cly", rootCmd.Use)

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
		assert.NotEqual(t, "help", c.Use, "expected help command to be replaced")
	}
	for _, want := range []string{"login", "logout", "session", "cart", "order", "address", "catalog", "products", "policy", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("api-url"))
}

func TestVersionSkipsDependencies(t *testing.T) {
	buildDeps = func(*cobra.Command) (*deps, error) { return nil, errors.New("should not be called") }
	t.Cleanup(func() { buildDeps = newDeps })

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cly version:")
	assert.Contains(t, out, "Go version:")
	assert.Contains(t, out, "Platform:")
}

func TestNewDeps_UsesConfigAndFlag(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvConfigFile, filepath.Join(dir, "none.yaml"))
	t.Setenv(config.EnvDBPath, filepath.Join(dir, "cly.db"))
	t.Setenv(config.EnvSessionBackend, config.BackendDB)
	apiURLFlag = "https://flag.example/api"
	t.Cleanup(func() { apiURLFlag = "" })

	d, err := newDeps(&cobra.Command{})
	require.NoError(t, err)
	current = d
	t.Cleanup(closeDeps)

	assert.Equal(t, "https://flag.example/api", d.api.BaseURL())
	assert.IsType(t, &session.DBStore{}, d.store)
	_, err = os.Stat(filepath.Join(dir, "cly.db"))
	assert.NoError(t, err)
}

func TestNewDeps_InvalidFlag(t *testing.T) {
	t.Setenv(config.EnvConfigFile, filepath.Join(t.TempDir(), "none.yaml"))
	t.Setenv(config.EnvSessionBackend, config.BackendMemory)
	apiURLFlag = "not a url"
	t.Cleanup(func() { apiURLFlag = "" })

	_, err := newDeps(&cobra.Command{})
	require.Error(t, err)
	assert.Equal(t, 2, clierr.ExitCode(userError(err)))
}

func TestUserError(t *testing.T) {
	apiErr := &client.APIError{Method: "GET", Path: "/x", StatusCode: http.StatusBadRequest, Message: "cart is empty"}
	notFound := &client.APIError{Method: "GET", Path: "/x", StatusCode: http.StatusNotFound, Message: "order not found"}
	tests := []struct {
		name     string
		err      error
		wantType clierr.Type
		wantMsg  string
		wantCode int
	}{
		{"no session", fmt.Errorf("wrap: %w", client.ErrNoSession), clierr.Auth, "You are not logged in.", 3},
		{"refresh failed", fmt.Errorf("%w: boom", client.ErrRefreshFailed), clierr.Auth, "Your session has expired.", 3},
		{"no uid", client.ErrNoUserID, clierr.Auth, "Your session has no user account attached.", 3},
		{"not found", notFound, clierr.NotFound, "order not found", 1},
		{"backend", apiErr, clierr.Backend, "cart is empty", 1},
		{"empty response", fmt.Errorf("GET /x: %w", client.ErrEmptyResponse), clierr.Backend, "The server returned an empty response.", 1},
		{"validation", clierr.New(clierr.Validation, "bad", nil), clierr.Validation, "bad", 2},
		{"other", errors.New("disk full"), clierr.Internal, "disk full", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ue := userError(tt.err)
			assert.Equal(t, tt.wantType, ue.Type)
			assert.Equal(t, tt.wantMsg, ue.Message)
			assert.Equal(t, tt.wantCode, clierr.ExitCode(ue))
		})
	}
}

func TestPrintErrorSuggestsLogin(t *testing.T) {
	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetErr(buf)
	printError(cmd, client.ErrNoSession)
	assert.Contains(t, buf.String(), "Error: You are not logged in.")
	assert.Contains(t, buf.String(), "cly login")

	buf.Reset()
	printError(cmd, errors.New("disk full"))
	assert.NotContains(t, buf.String(), "cly login")
}

func TestLoginLogoutAndSession(t *testing.T) {
	s := newStorefront(t)
	s.mux.HandleFunc("POST /api/auth/login/user", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]any{
			"success": true, "accessToken": "A1", "refreshToken": "R1",
			"user": map[string]string{"uid": "u-1", "name": "Asha"},
		})
	})
	var revoked bool
	s.mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		revoked = true
		reply(w, http.StatusOK, map[string]any{"success": true})
	})
	d := useTestDeps(t, s.URL+"/api")

	promptForPassword = func(*cobra.Command, string) string { return "secret" }
	t.Cleanup(func() { promptForPassword = readPassword })

	out, err := execute(t, "login", "--email", "asha@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome, Asha")

	sess, err := session.Load(testContext(t), d.store)
	require.NoError(t, err)
	assert.Equal(t, session.Session{AccessToken: "A1", RefreshToken: "R1", UserID: "u-1"}, sess)

	out, err = execute(t, "session")
	require.NoError(t, err)
	assert.Contains(t, out, "User ID: u-1")
	assert.Contains(t, out, "Refresh token: present")

	out, err = execute(t, "session", "--refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Access token: present")
	at, _, _ := d.store.Get(testContext(t), session.AccessTokenName)
	assert.Equal(t, "A2", at)

	out, err = execute(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")
	assert.True(t, revoked)

	out, err = execute(t, "session")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestLoginRejectsInvalidEmail(t *testing.T) {
	s := newStorefront(t)
	useTestDeps(t, s.URL+"/api")
	promptForPassword = func(*cobra.Command, string) string { return "secret" }
	t.Cleanup(func() { promptForPassword = readPassword })

	_, err := execute(t, "login", "--email", "nope")
	require.Error(t, err)
	assert.Equal(t, 2, clierr.ExitCode(userError(err)))

	promptForPassword = func(*cobra.Command, string) string { return "" }
	_, err = execute(t, "login", "--email", "asha@example.com")
	require.Error(t, err)
	assert.Equal(t, 2, clierr.ExitCode(userError(err)))
}

func TestCartRefreshesExpiredSession(t *testing.T) {
	s := newStorefront(t)
	s.token = "" // the stored A1 is already stale
	s.data("GET /api/cart/u-1", client.Cart{UserID: "u-1", Items: []client.CartItem{
		{ProductID: "p1", Name: "Kurta", Price: 499, Quantity: 2},
	}})
	d := useTestDeps(t, s.URL+"/api")
	logIn(t, d)

	out, err := execute(t, "cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Kurta")
	assert.Contains(t, out, "Total: ₹998.00")

	at, _, _ := d.store.Get(testContext(t), session.AccessTokenName)
	assert.Equal(t, "A2", at)
}

func TestCartWithoutSessionNeedsLogin(t *testing.T) {
	s := newStorefront(t)
	s.data("GET /api/cart/u-1", client.Cart{})
	d := useTestDeps(t, s.URL+"/api")
	require.NoError(t, d.store.SetUserID(testContext(t), "u-1"))

	_, err := execute(t, "cart", "show")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrNoSession)
	assert.Equal(t, 3, clierr.ExitCode(userError(err)))
	assert.True(t, d.loginRequired)
}

func TestCartValidation(t *testing.T) {
	s := newStorefront(t)
	useTestDeps(t, s.URL+"/api")

	_, err := execute(t, "cart", "add", "p1", "--quantity", "0")
	require.Error(t, err)
	assert.Equal(t, 2, clierr.ExitCode(userError(err)))

	_, err = execute(t, "policy", "cookies")
	require.Error(t, err)
	assert.Equal(t, 2, clierr.ExitCode(userError(err)))

	_, err = execute(t, "order", "place", "--address", "a1", "--payment", "upi")
	require.Error(t, err)
	assert.Equal(t, 2, clierr.ExitCode(userError(err)))

	_, err = execute(t, "address", "add", "--name", "Home", "--phone", "123")
	require.Error(t, err)
	assert.Equal(t, 2, clierr.ExitCode(userError(err)))
}

func TestOrderCommands(t *testing.T) {
	s := newStorefront(t)
	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.data("GET /api/order/user/u-1/orders", []client.Order{{ID: "o1", Total: 998, Status: "SHIPPED", CreatedAt: placedAt}})
	s.data("POST /api/order/user/u-1/place-order", client.Order{ID: "o2", Status: "PLACED", PaymentMethod: "ONLINE", Total: 250})
	d := useTestDeps(t, s.URL+"/api")
	logIn(t, d)

	out, err := execute(t, "order", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "o1")
	assert.Contains(t, out, "SHIPPED")

	out, err = execute(t, "order", "place", "--address", "a1", "--payment", "online")
	require.NoError(t, err)
	assert.Contains(t, out, "Order o2 placed.")
	assert.Contains(t, out, "Payment: ONLINE")
}

func TestContentCommands(t *testing.T) {
	s := newStorefront(t)
	s.public("GET /api/faq", []client.FAQ{{Question: "Do you ship abroad?", Answer: "Not yet."}})
	s.public("GET /api/policies/type/refund", client.Policy{Type: "refund", Title: "Refund Policy", Content: "Within 7 days."})
	s.public("GET /api/contact/active", client.Contact{Email: "help@shop.example", Phone: "9876543210"})
	useTestDeps(t, s.URL+"/api")

	out, err := execute(t, "faq")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Do you ship abroad?")

	out, err = execute(t, "policy", "REFUND")
	require.NoError(t, err)
	assert.Contains(t, out, "Refund Policy")
	assert.Contains(t, out, "Within 7 days.")

	out, err = execute(t, "contact")
	require.NoError(t, err)
	assert.Contains(t, out, "help@shop.example")
}

func TestCatalogSyncAndSearch(t *testing.T) {
	s := newStorefront(t)
	s.public("GET /api/categories", []client.Category{{ID: "c1", Name: "Apparel"}})
	s.public("GET /api/products/list", client.ProductPage{
		Products: []client.Product{{ID: "p1", Name: "Blue Kurta", Price: 499}, {ID: "p2", Name: "Red Saree", Price: 1299}},
		Page:     1, Limit: 20, Total: 2,
	})
	s.public("GET /api/products/p1", client.Product{ID: "p1", Name: "Blue Kurta", Price: 499, SalePrice: 399, CategoryID: "c1"})
	s.public("GET /api/products/p2", client.Product{ID: "p2", Name: "Red Saree", Price: 1299, CategoryID: "c1"})
	useTestDeps(t, s.URL+"/api")

	out, err := execute(t, "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "cly catalog sync")

	out, err = execute(t, "catalog", "sync", "--threads", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "1 categories, 2 products")

	out, err = execute(t, "catalog", "search", "--term", "kurta")
	require.NoError(t, err)
	assert.Contains(t, out, "Blue Kurta")
	assert.Contains(t, out, "₹399.00")
	assert.NotContains(t, out, "Red Saree")

	out, err = execute(t, "catalog", "search", "--id", "p2")
	require.NoError(t, err)
	assert.Contains(t, out, "Red Saree")

	_, err = execute(t, "catalog", "search")
	assert.Error(t, err)

	dir := t.TempDir()
	out, err = execute(t, "catalog", "export", "--dir", dir, "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 products")
	files, err := filepath.Glob(filepath.Join(dir, "cly_catalog_*.csv"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,name,category_id,price\n"))

	_, err = execute(t, "catalog", "sync", "--threads", "50")
	assert.Error(t, err)
}

func TestEmptyResponsesAreReported(t *testing.T) {
	s := newStorefront(t)
	s.public("GET /api/contact/active", nil)
	s.public("GET /api/products/p1", nil)
	s.public("GET /api/categories", []client.Category{{ID: "c1", Name: "Apparel"}})
	s.public("GET /api/products/list", client.ProductPage{
		Products: []client.Product{{ID: "p1", Name: "Blue Kurta", Price: 499}},
		Page:     1, Limit: 20, Total: 1,
	})
	useTestDeps(t, s.URL+"/api")

	for _, args := range [][]string{{"contact"}, {"products", "show", "p1"}} {
		var err error
		assert.NotPanics(t, func() { _, err = execute(t, args...) }, "%v", args)
		require.ErrorIs(t, err, client.ErrEmptyResponse, "%v", args)
		assert.Equal(t, 1, clierr.ExitCode(userError(err)))
	}

	var out string
	var err error
	assert.NotPanics(t, func() { out, err = execute(t, "catalog", "sync", "--threads", "2") })
	require.NoError(t, err)
	assert.Contains(t, out, "1 categories, 1 products")

	out, err = execute(t, "catalog", "search", "--id", "p1")
	require.NoError(t, err)
	assert.Contains(t, out, "Blue Kurta")
}
