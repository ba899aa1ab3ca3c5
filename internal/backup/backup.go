// Package backup dumps the PostgreSQL database to a timestamped SQL file with pg_dump.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bagaart/TaskFlow/internal/metrics"
)

const (
	DefaultDir       = "instance/backups"
	DefaultPgDumpBin = "pg_dump"
	fileLayout       = "20060102_150405"
)

var ErrNoDSN = errors.New("database DSN is not configured")

type Config struct {
	DSN       string
	Dir       string
	PgDumpBin string
}

type Service struct {
	dsn string
	dir string
	bin string
	now func() time.Time
}

func NewService(cfg Config) *Service {
	s := &Service{dsn: cfg.DSN, dir: cfg.Dir, bin: cfg.PgDumpBin, now: time.Now}
	if s.dir == "" {
		s.dir = DefaultDir
	}
	if s.bin == "" {
		s.bin = DefaultPgDumpBin
	}
	return s
}

// Create runs pg_dump and returns the path of the written dump.
// A failed dump leaves no file behind.
func (s *Service) Create(ctx context.Context) (string, error) {
	path, err := s.create(ctx)
	if err != nil {
		metrics.RecordBackup("failed")
		log.Printf("[Backup] Failed: %v", err)
		return "", err
	}
	metrics.RecordBackup("success")
	log.Printf("[Backup] Written to %s", path)
	return path, nil
}

func (s *Service) create(ctx context.Context) (string, error) {
	if s.dsn == "" {
		return "", ErrNoDSN
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("backup_%s.sql", s.now().Format(fileLayout)))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.bin, "--no-owner", "--no-privileges", "--file="+path, "--dbname="+s.dsn)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("[Backup] Failed to remove partial dump %s: %v", path, rmErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("pg_dump failed: %w: %s", err, msg)
		}
		return "", fmt.Errorf("pg_dump failed: %w", err)
	}

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("pg_dump produced no file: %w", err)
	}
	return path, nil
}
