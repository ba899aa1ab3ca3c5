package backup

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/bagaart/TaskFlow/internal/metrics"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePgDump writes a shell script that mimics pg_dump's --file flag.
func fakePgDump(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "pg_dump")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func backupCount(t *testing.T, status string) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, metrics.BackupsTotal.WithLabelValues(status).Write(metric))
	return metric.Counter.GetValue()
}

const writeDump = `for arg in "$@"; do
  case "$arg" in
    --file=*) out="${arg#--file=}" ;;
  esac
done
echo "-- PostgreSQL database dump" > "$out"`

func TestCreate_Success(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	svc := NewService(Config{DSN: "postgres://localhost/taskflow", Dir: dir, PgDumpBin: fakePgDump(t, writeDump)})
	svc.now = func() time.Time { return time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC) }

	before := backupCount(t, "success")

	path, err := svc.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "backup_20240203_040506.sql"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "PostgreSQL database dump")

	assert.Equal(t, before+1, backupCount(t, "success"))
}

func TestCreate_FailureRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	bin := fakePgDump(t, writeDump+"\necho 'connection refused' >&2\nexit 1")
	svc := NewService(Config{DSN: "postgres://localhost/taskflow", Dir: dir, PgDumpBin: bin})

	before := backupCount(t, "failed")

	_, err := svc.Create(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, before+1, backupCount(t, "failed"))
}

func TestCreate_MissingBinary(t *testing.T) {
	svc := NewService(Config{DSN: "postgres://localhost/taskflow", Dir: t.TempDir(), PgDumpBin: filepath.Join(t.TempDir(), "nope")})

	_, err := svc.Create(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pg_dump failed")
}

func TestCreate_NoDSN(t *testing.T) {
	_, err := NewService(Config{Dir: t.TempDir()}).Create(context.Background())
	assert.ErrorIs(t, err, ErrNoDSN)
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(Config{DSN: "x"})
	assert.Equal(t, DefaultDir, svc.dir)
	assert.Equal(t, DefaultPgDumpBin, svc.bin)
}
