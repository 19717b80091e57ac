package connection

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yndnr/jobdesk-go/internal/storage"
)

func TestInstallationID(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryEngine()

	first, err := InstallationID(ctx, kv)
	if err != nil {
		t.Fatalf("InstallationID() error = %v", err)
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Errorf("ID %q is not a UUID", first)
	}

	second, err := InstallationID(ctx, kv)
	if err != nil {
		t.Fatalf("InstallationID() error = %v", err)
	}
	if first != second {
		t.Errorf("ID changed: %q then %q", first, second)
	}
}

func TestInstallationID_ReplacesGarbage(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryEngine()
	_ = kv.Set(ctx, []byte(InstallationKey), []byte("not-a-uuid"))

	id, err := InstallationID(ctx, kv)
	if err != nil {
		t.Fatalf("InstallationID() error = %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("ID %q is not a UUID", id)
	}
}
