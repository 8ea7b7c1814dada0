package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/garuda-portal/apiserver/internal/audit"
	"github.com/garuda-portal/apiserver/internal/storage"
	"github.com/garuda-portal/apiserver/types"
	"github.com/google/uuid"
)

const exportPageSize = 500

// ExportService writes CSV snapshots of the user directory to object
// storage for offline audit. Password hashes are never part of the
// snapshot.
type ExportService struct {
	store   UserStore
	storage *storage.Storage
	audit   *audit.Recorder
	now     func() time.Time
}

// NewExportService constructs an ExportService. A nil storage disables
// exports; ExportUsers then fails with ErrExportsDisabled.
func NewExportService(userStore UserStore, objectStorage *storage.Storage, recorder *audit.Recorder) *ExportService {
	return &ExportService{
		store:   userStore,
		storage: objectStorage,
		audit:   recorder,
		now:     time.Now,
	}
}

// ExportUsers snapshots all users to a CSV object and returns its key.
func (s *ExportService) ExportUsers(ctx context.Context, actor Identity) (string, error) {
	if s.storage == nil {
		return "", ErrExportsDisabled
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"id", "username", "email", "full_name", "role", "is_active", "last_login", "created_at"}); err != nil {
		return "", err
	}

	count := 0
	for offset := 0; ; offset += exportPageSize {
		users, total, err := s.store.List(ctx, offset, exportPageSize)
		if err != nil {
			return "", err
		}
		for _, user := range users {
			lastLogin := ""
			if user.LastLogin != nil {
				lastLogin = user.LastLogin.UTC().Format(time.RFC3339)
			}
			record := []string{
				strconv.FormatInt(user.ID, 10),
				user.Username,
				user.Email,
				user.FullName,
				string(user.Role),
				strconv.FormatBool(user.IsActive),
				lastLogin,
				user.CreatedAt.UTC().Format(time.RFC3339),
			}
			if err := writer.Write(record); err != nil {
				return "", err
			}
			count++
		}
		if offset+len(users) >= total || len(users) == 0 {
			break
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}

	key := fmt.Sprintf("exports/users-%s-%s.csv", s.now().UTC().Format("20060102-150405"), uuid.NewString())
	if err := s.storage.Put(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/csv"); err != nil {
		return "", err
	}

	s.audit.Record(ctx, types.AuditUsersExported, actor.UserID, 0, map[string]string{
		"key":   key,
		"count": strconv.Itoa(count),
	})
	return key, nil
}
