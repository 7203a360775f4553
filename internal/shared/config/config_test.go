package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REMOTE_BACKEND", "postgres")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Sync.Workers != 4 {
		t.Errorf("Sync.Workers = %d, want %d", cfg.Sync.Workers, 4)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Report.InstallmentHorizon != 12 {
		t.Errorf("Report.InstallmentHorizon = %d, want %d", cfg.Report.InstallmentHorizon, 12)
	}
}

func TestLoad_HTTPBackendRequiresBaseURL(t *testing.T) {
	t.Setenv("REMOTE_BACKEND", "http")
	t.Setenv("REMOTE_BASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing REMOTE_BASE_URL, got nil")
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("REMOTE_BACKEND", "ftp")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid REMOTE_BACKEND, got nil")
	}
}

func TestLoad_InvalidEncryptionKeyLength(t *testing.T) {
	t.Setenv("REMOTE_BACKEND", "postgres")
	t.Setenv("ENCRYPTION_KEY", "too-short")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid ENCRYPTION_KEY length, got nil")
	}
}

func TestLoad_ValidEncryptionKey(t *testing.T) {
	t.Setenv("REMOTE_BACKEND", "postgres")
	t.Setenv("ENCRYPTION_KEY", "01234567890123456789012345678901")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(cfg.Encryption.Key) != 32 {
		t.Errorf("Encryption.Key length = %d, want 32", len(cfg.Encryption.Key))
	}
}
