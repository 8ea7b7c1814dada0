package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/garuda-portal/apiserver/config"
	"github.com/garuda-portal/apiserver/internal/services"
	"github.com/garuda-portal/apiserver/internal/storage"
	"github.com/garuda-portal/apiserver/internal/store"
	"github.com/garuda-portal/apiserver/types"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	router, _ := newTestRouter(t)
	token := registerAndLogin(t, router, "alice", "alice@x.com")

	resp := doJSON(t, router, http.MethodGet, "/admin/users", token, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("status %d, want 403", resp.Code)
	}
	if kind := errorKind(t, resp); kind != "forbidden" {
		t.Errorf("kind = %q, want forbidden", kind)
	}

	resp = doJSON(t, router, http.MethodGet, "/admin/users", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status %d, want 401", resp.Code)
	}
}

func TestAdminListUsers(t *testing.T) {
	router, userStore := newTestRouter(t)
	registerAndLogin(t, router, "alice", "alice@x.com")
	seedPrivileged(t, userStore, "admin@x.com", types.RoleAdmin)
	token := login(t, router, "admin@x.com")

	resp := doJSON(t, router, http.MethodGet, "/admin/users?page=1&limit=10", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("status %d: %s", resp.Code, resp.Body)
	}

	var parsed UserListResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parsed.Total != 2 || len(parsed.Items) != 2 {
		t.Errorf("total=%d items=%d, want 2/2", parsed.Total, len(parsed.Items))
	}

	resp = doJSON(t, router, http.MethodGet, "/admin/users?page=0", token, nil)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("bad page status %d, want 400", resp.Code)
	}

	resp = doJSON(t, router, http.MethodGet, "/admin/users/"+itoa(parsed.Items[0].ID), token, nil)
	if resp.Code != http.StatusOK {
		t.Errorf("get user status %d: %s", resp.Code, resp.Body)
	}

	resp = doJSON(t, router, http.MethodGet, "/admin/users/999", token, nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("missing user status %d, want 404", resp.Code)
	}
}

func TestAdminRoleChange(t *testing.T) {
	router, userStore := newTestRouter(t)
	registerAndLogin(t, router, "bob", "bob@x.com")
	seedPrivileged(t, userStore, "admin@x.com", types.RoleAdmin)
	seedPrivileged(t, userStore, "root@x.com", types.RoleSuperAdmin)

	target, err := userStore.GetByEmail(context.Background(), "bob@x.com")
	if err != nil {
		t.Fatalf("lookup target: %v", err)
	}
	path := "/admin/users/" + itoa(target.ID) + "/role"

	adminToken := login(t, router, "admin@x.com")
	superToken := login(t, router, "root@x.com")

	// Admins may grant Admin, but not SuperAdmin.
	resp := doJSON(t, router, http.MethodPut, path, adminToken, SetRoleRequest{Role: "Admin"})
	if resp.Code != http.StatusOK {
		t.Fatalf("admin grant status %d: %s", resp.Code, resp.Body)
	}
	resp = doJSON(t, router, http.MethodPut, path, adminToken, SetRoleRequest{Role: "SuperAdmin"})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("escalation status %d, want 403", resp.Code)
	}

	resp = doJSON(t, router, http.MethodPut, path, superToken, SetRoleRequest{Role: "SuperAdmin"})
	if resp.Code != http.StatusOK {
		t.Fatalf("superadmin grant status %d: %s", resp.Code, resp.Body)
	}

	resp = doJSON(t, router, http.MethodPut, path, superToken, SetRoleRequest{Role: "Root"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unknown role status %d, want 400", resp.Code)
	}

	resp = doJSON(t, router, http.MethodPut, "/admin/users/999/role", superToken, SetRoleRequest{Role: "Admin"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("missing user status %d, want 404", resp.Code)
	}
}

func TestAdminStatusChange(t *testing.T) {
	router, userStore := newTestRouter(t)
	registerAndLogin(t, router, "bob", "bob@x.com")
	seedPrivileged(t, userStore, "admin@x.com", types.RoleAdmin)
	adminToken := login(t, router, "admin@x.com")

	target, err := userStore.GetByEmail(context.Background(), "bob@x.com")
	if err != nil {
		t.Fatalf("lookup target: %v", err)
	}
	path := "/admin/users/" + itoa(target.ID) + "/status"

	active := false
	resp := doJSON(t, router, http.MethodPut, path, adminToken, SetStatusRequest{IsActive: &active})
	if resp.Code != http.StatusOK {
		t.Fatalf("deactivate status %d: %s", resp.Code, resp.Body)
	}

	// A deactivated account can no longer log in.
	loginResp := doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{Email: "bob@x.com", Password: "secret1"})
	if loginResp.Code != http.StatusUnauthorized {
		t.Fatalf("deactivated login status %d, want 401", loginResp.Code)
	}

	resp = doJSON(t, router, http.MethodPut, path, adminToken, map[string]any{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing is_active status %d, want 400", resp.Code)
	}
}

type mapObjectStorage struct {
	objects map[string][]byte
}

func (m *mapObjectStorage) EnsureBucket(ctx context.Context) error { return nil }

func (m *mapObjectStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *mapObjectStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.objects[key])), nil
}

func (m *mapObjectStorage) Delete(ctx context.Context, key string) error { return nil }

func (m *mapObjectStorage) Bucket() string { return "test" }

func TestAdminExport(t *testing.T) {
	userStore := store.NewMemoryUserStore()
	authCfg := config.AuthConfig{JWTSecret: "test-secret", TokenTTL: 5 * time.Minute, BcryptCost: bcrypt.MinCost}
	authService := services.NewAuthService(userStore, authCfg, nil)
	directory := services.NewDirectoryService(userStore, nil)
	backend := &mapObjectStorage{objects: make(map[string][]byte)}
	export := services.NewExportService(userStore, storage.NewStorage(backend), nil)
	authHandler := NewAuthHandler(authService)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) { AuthRouter(r, authService) })
	router.Route("/admin", func(r chi.Router) { AdminRouter(r, directory, export, authHandler.RequireAuth) })

	seedPrivileged(t, userStore, "admin@x.com", types.RoleAdmin)
	token := login(t, router, "admin@x.com")

	resp := doJSON(t, router, http.MethodPost, "/admin/users/export", token, nil)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("status %d: %s", resp.Code, resp.Body)
	}

	var parsed ExportResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := backend.objects[parsed.Key]; !ok {
		t.Errorf("no object stored at %q", parsed.Key)
	}
}

func TestAdminExportDisabled(t *testing.T) {
	router, userStore := newTestRouter(t)
	seedPrivileged(t, userStore, "admin@x.com", types.RoleAdmin)
	token := login(t, router, "admin@x.com")

	resp := doJSON(t, router, http.MethodPost, "/admin/users/export", token, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", resp.Code)
	}
	if kind := errorKind(t, resp); kind != "unavailable" {
		t.Errorf("kind = %q, want unavailable", kind)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
