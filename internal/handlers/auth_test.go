package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/garuda-portal/apiserver/config"
	"github.com/garuda-portal/apiserver/internal/services"
	"github.com/garuda-portal/apiserver/internal/store"
	"github.com/garuda-portal/apiserver/types"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T) (*chi.Mux, *store.MemoryUserStore) {
	t.Helper()

	userStore := store.NewMemoryUserStore()
	authCfg := config.AuthConfig{
		JWTSecret:  "test-secret",
		TokenTTL:   5 * time.Minute,
		BcryptCost: bcrypt.MinCost,
	}
	authService := services.NewAuthService(userStore, authCfg, nil)
	directory := services.NewDirectoryService(userStore, nil)
	export := services.NewExportService(userStore, nil, nil)
	authHandler := NewAuthHandler(authService)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, authService)
	})
	router.Route("/admin", func(r chi.Router) {
		AdminRouter(r, directory, export, authHandler.RequireAuth)
	})
	return router, userStore
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func registerAndLogin(t *testing.T, router http.Handler, username, email string) string {
	t.Helper()

	resp := doJSON(t, router, http.MethodPost, "/auth/register", "", RegisterRequest{
		Username: username,
		Email:    email,
		FullName: "Test Person",
		Password: "secret1",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register status %d: %s", resp.Code, resp.Body)
	}

	resp = doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    email,
		Password: "secret1",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", resp.Code, resp.Body)
	}

	var parsed LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if parsed.Token == "" {
		t.Fatal("missing token")
	}
	return parsed.Token
}

func seedPrivileged(t *testing.T, userStore *store.MemoryUserStore, email string, role types.Role) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	_, err = userStore.Create(context.Background(), types.User{
		Username:     strings.SplitN(email, "@", 2)[0],
		Email:        email,
		FullName:     "Privileged Person",
		Role:         role,
		IsActive:     true,
		PasswordHash: string(hash),
	})
	if err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
}

func login(t *testing.T, router http.Handler, email string) string {
	t.Helper()

	resp := doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{Email: email, Password: "secret1"})
	if resp.Code != http.StatusOK {
		t.Fatalf("login %s status %d: %s", email, resp.Code, resp.Body)
	}
	var parsed LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return parsed.Token
}

func errorKind(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()

	var parsed ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("decode error body %q: %v", resp.Body, err)
	}
	return parsed.Kind
}

func TestRegisterEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/auth/register", "", RegisterRequest{
		Username: "alice",
		Email:    "alice@x.com",
		FullName: "Alice A",
		Password: "secret1",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", resp.Code, resp.Body)
	}
	if strings.Contains(strings.ToLower(resp.Body.String()), "password") {
		t.Errorf("register response mentions password: %s", resp.Body)
	}

	// Same email again is a conflict.
	resp = doJSON(t, router, http.MethodPost, "/auth/register", "", RegisterRequest{
		Username: "alice2",
		Email:    "alice@x.com",
		FullName: "Alice B",
		Password: "secret1",
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("duplicate status %d: %s", resp.Code, resp.Body)
	}
	if kind := errorKind(t, resp); kind != "conflict" {
		t.Errorf("kind = %q, want conflict", kind)
	}
}

func TestRegisterValidationKind(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/auth/register", "", RegisterRequest{
		Username: "alice",
		Email:    "alice@x.com",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status %d: %s", resp.Code, resp.Body)
	}
	if kind := errorKind(t, resp); kind != "validation" {
		t.Errorf("kind = %q, want validation", kind)
	}
}

func TestLoginFailureBodiesAreIdentical(t *testing.T) {
	router, _ := newTestRouter(t)
	registerAndLogin(t, router, "alice", "alice@x.com")

	wrongPass := doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{Email: "alice@x.com", Password: "nope"})
	unknown := doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{Email: "ghost@x.com", Password: "nope"})

	if wrongPass.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("statuses %d / %d, want 401 / 401", wrongPass.Code, unknown.Code)
	}
	if wrongPass.Body.String() != unknown.Body.String() {
		t.Errorf("bodies differ:\n%s\n%s", wrongPass.Body, unknown.Body)
	}
}

func TestMeEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	token := registerAndLogin(t, router, "alice", "alice@x.com")

	resp := doJSON(t, router, http.MethodGet, "/auth/me", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("status %d: %s", resp.Code, resp.Body)
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["username"] != "alice" || body["email"] != "alice@x.com" {
		t.Errorf("unexpected profile: %v", body)
	}
	for key := range body {
		if strings.Contains(strings.ToLower(key), "password") {
			t.Errorf("profile exposes %q", key)
		}
	}
}

func TestMeRejectsBadTokens(t *testing.T) {
	router, _ := newTestRouter(t)
	registerAndLogin(t, router, "alice", "alice@x.com")

	cases := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-token"},
		{"empty bearer", " "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, router, http.MethodGet, "/auth/me", tc.token, nil)
			if resp.Code != http.StatusUnauthorized {
				t.Fatalf("status %d, want 401", resp.Code)
			}
			if kind := errorKind(t, resp); kind != "authentication" {
				t.Errorf("kind = %q, want authentication", kind)
			}
		})
	}
}

func TestUpdateMeEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	token := registerAndLogin(t, router, "alice", "alice@x.com")

	resp := doJSON(t, router, http.MethodPut, "/auth/me", token, UpdateProfileRequest{FullName: "Alice Renamed"})
	if resp.Code != http.StatusOK {
		t.Fatalf("status %d: %s", resp.Code, resp.Body)
	}

	var user types.User
	if err := json.Unmarshal(resp.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if user.FullName != "Alice Renamed" {
		t.Errorf("full name = %q", user.FullName)
	}
}
