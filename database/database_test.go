package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: MemoryPath, want: MemoryPath},
		{path: "tasks.db", want: "tasks.db?_busy_timeout=5000&_journal_mode=WAL"},
		{path: "file:tasks.db?mode=ro", want: "file:tasks.db?mode=ro"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := dsn(tt.path); got != tt.want {
				t.Errorf("dsn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpenHealthClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "health.db")

	db, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	status := Health(context.Background(), db, path)
	if !status.Healthy {
		t.Errorf("Health().Healthy = false, message = %s", status.Message)
	}
	if status.Details["path"] != path {
		t.Errorf("Health().Details[path] = %v, want %v", status.Details["path"], path)
	}

	if err := Close(db); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	status = Health(context.Background(), db, path)
	if status.Healthy {
		t.Error("Health().Healthy = true after Close, want false")
	}
}

func TestHealth_NilDB(t *testing.T) {
	status := Health(context.Background(), nil, MemoryPath)
	if status.Healthy {
		t.Error("Health().Healthy = true for nil db, want false")
	}
	if err := Close(nil); err != nil {
		t.Errorf("Close(nil) error = %v", err)
	}
}
