package database

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"resort/internal/config"

	"github.com/rs/zerolog"
)

// BackupService snapshots the SQLite file. Scheduling lives in the jobs package.
type BackupService struct {
	db     *DB
	config config.BackupConfig
	logger *zerolog.Logger
}

func NewBackupService(db *DB, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

func (s *BackupService) Enabled() bool {
	return s.config.Enabled && s.db.path != ":memory:"
}

// PerformBackup writes a consistent copy of the database and returns its path.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405.000")
	backupPath := filepath.Join(s.config.StoragePath, fmt.Sprintf("backup_%s.db", timestamp))

	s.logger.Info().Str("path", backupPath).Msg("Performing database backup using VACUUM INTO")

	quoted := strings.ReplaceAll(backupPath, "'", "''")
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", quoted)); err != nil {
		s.logger.Warn().Err(err).Msg("VACUUM INTO failed, falling back to file copy")
		if err := s.performBackupFallback(backupPath); err != nil {
			return "", err
		}
		return backupPath, nil
	}

	s.logger.Info().Msg("Backup completed successfully")
	return backupPath, nil
}

func (s *BackupService) performBackupFallback(backupPath string) error {
	source, err := os.Open(s.db.path)
	if err != nil {
		return fmt.Errorf("failed to open database file: %w", err)
	}
	defer source.Close()

	destination, err := os.Create(backupPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer destination.Close()

	// not atomic: concurrent writes may leave the copy inconsistent
	if _, err := io.Copy(destination, source); err != nil {
		return fmt.Errorf("failed to copy database file: %w", err)
	}

	s.logger.Info().Msg("Fallback backup completed successfully")
	return nil
}

// CleanupOldBackups removes backups older than the retention window and
// returns how many files were deleted.
func (s *BackupService) CleanupOldBackups() int {
	if s.config.RetentionDays <= 0 {
		return 0
	}

	files, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return 0
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
	removed := 0

	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), "backup_") {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("Deleting old backup")
			if err := os.Remove(filepath.Join(s.config.StoragePath, file.Name())); err != nil {
				s.logger.Warn().Err(err).Str("file", file.Name()).Msg("Failed to delete old backup")
				continue
			}
			removed++
		}
	}
	return removed
}
