package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (*LocalStorage, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "http://localhost:8080/api/v1/downloads/")
	require.NoError(t, err)
	return s, dir
}

func TestLocalStorage_UploadDownload(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	key, err := s.Upload(ctx, strings.NewReader("xlsx-bytes"), "job-1/Attendance_Report_2024-03-05.xlsx", "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "job-1/Attendance_Report_2024-03-05.xlsx", key)

	rc, err := s.Download(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "xlsx-bytes", string(body))

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	u, err := s.GetURL(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/v1/downloads/job-1/Attendance_Report_2024-03-05.xlsx", u)
}

func TestLocalStorage_Upload_StaysInsideBasePath(t *testing.T) {
	s, dir := newTestStorage(t)
	ctx := context.Background()

	key, err := s.Upload(ctx, strings.NewReader("x"), "../../etc/evil.xlsx", "")
	require.NoError(t, err)
	assert.Equal(t, "etc/evil.xlsx", key)
	_, err = os.Stat(filepath.Join(dir, "etc", "evil.xlsx"))
	assert.NoError(t, err)

	_, err = s.Upload(ctx, strings.NewReader("x"), "", "")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestLocalStorage_Download_Missing(t *testing.T) {
	s, _ := newTestStorage(t)

	_, err := s.Download(context.Background(), "job-404/report.xlsx")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Delete(context.Background(), "job-404/report.xlsx"))
}

func TestLocalStorage_Sweep(t *testing.T) {
	s, dir := newTestStorage(t)
	ctx := context.Background()

	_, err := s.Upload(ctx, strings.NewReader("old"), "old-job/a.xlsx", "")
	require.NoError(t, err)
	_, err = s.Upload(ctx, strings.NewReader("new"), "new-job/b.xlsx", "")
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old-job", "a.xlsx"), past, past))

	removed, err := s.Sweep(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	exists, err := s.Exists(ctx, "old-job/a.xlsx")
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = os.Stat(filepath.Join(dir, "old-job"))
	assert.True(t, os.IsNotExist(err))

	exists, err = s.Exists(ctx, "new-job/b.xlsx")
	require.NoError(t, err)
	assert.True(t, exists)
}
