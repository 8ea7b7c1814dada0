package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/garuda-portal/apiserver/internal/storage"
	"github.com/garuda-portal/apiserver/types"
)

type fakeObjectStorage struct {
	objects map[string][]byte
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: make(map[string][]byte)}
}

func (f *fakeObjectStorage) EnsureBucket(ctx context.Context) error { return nil }

func (f *fakeObjectStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStorage) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStorage) Bucket() string { return "fake" }

func TestExportUsersWritesSnapshot(t *testing.T) {
	svc, userStore := newTestAuth(t)
	backend := newFakeObjectStorage()
	export := NewExportService(userStore, storage.NewStorage(backend), nil)
	ctx := context.Background()

	register(t, svc, "alice", "alice@x.com")
	register(t, svc, "bob", "bob@x.com")

	actor := Identity{UserID: 1, Role: types.RoleAdmin}
	key, err := export.ExportUsers(ctx, actor)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(key, "exports/users-") || !strings.HasSuffix(key, ".csv") {
		t.Errorf("unexpected key %q", key)
	}

	data, ok := backend.objects[key]
	if !ok {
		t.Fatalf("no object written at %q", key)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus two rows, got %d records", len(records))
	}
	if records[0][0] != "id" || records[0][2] != "email" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][2] != "alice@x.com" || records[2][2] != "bob@x.com" {
		t.Errorf("unexpected rows: %v", records[1:])
	}
	if strings.Contains(strings.ToLower(string(data)), "password") || strings.Contains(string(data), "$2a$") {
		t.Error("snapshot contains password material")
	}
}

func TestExportUsersDisabled(t *testing.T) {
	_, userStore := newTestAuth(t)
	export := NewExportService(userStore, nil, nil)

	_, err := export.ExportUsers(context.Background(), Identity{UserID: 1, Role: types.RoleAdmin})
	if !errors.Is(err, ErrExportsDisabled) {
		t.Fatalf("expected ErrExportsDisabled, got %v", err)
	}
}
