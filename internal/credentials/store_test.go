package credentials

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/zjrubin/philips-hue/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "nested", "creds.sqlite"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database.DB)
}

func TestStoreSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, Credential{
		Host:     "10.0.0.79",
		BridgeID: "001788FFFE123456",
		Username: "app-key",
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.ID == "" {
		t.Error("Expected generated ID")
	}

	got, err := store.Get(ctx, "10.0.0.79")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Username != "app-key" || got.BridgeID != "001788FFFE123456" {
		t.Errorf("Get() = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
}

func TestStoreSaveReplacesKeepsID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Save(ctx, Credential{Host: "10.0.0.79", Username: "old"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := store.Save(ctx, Credential{Host: "10.0.0.79", Username: "new"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("ID changed on update: %s -> %s", first.ID, second.ID)
	}
	if second.Username != "new" {
		t.Errorf("Username = %q, want new", second.Username)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 credential, got %d", len(all))
	}
}

func TestStoreSaveValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Save(ctx, Credential{Username: "key"}); err == nil {
		t.Error("Expected error for missing host")
	}
	if _, err := store.Save(ctx, Credential{Host: "h"}); err == nil {
		t.Error("Expected error for missing username")
	}
}

func TestStoreGetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "10.0.0.1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}

	_, err = store.Latest(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest() error = %v, want ErrNotFound", err)
	}
}

func TestStoreLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, host := range []string{"10.0.0.2", "10.0.0.1"} {
		if _, err := store.Save(ctx, Credential{Host: host, Username: "key-" + host}); err != nil {
			t.Fatalf("Save(%s) error = %v", host, err)
		}
	}

	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.Host != "10.0.0.1" {
		t.Errorf("Latest().Host = %q, want 10.0.0.1", latest.Host)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 || all[0].Host != "10.0.0.1" || all[1].Host != "10.0.0.2" {
		t.Errorf("List() = %+v, want ordered by host", all)
	}
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Save(ctx, Credential{Host: "10.0.0.79", Username: "key"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	deleted, err := store.Delete(ctx, "10.0.0.79")
	if err != nil || !deleted {
		t.Fatalf("Delete() = %v, %v", deleted, err)
	}

	deleted, err = store.Delete(ctx, "10.0.0.79")
	if err != nil || deleted {
		t.Errorf("second Delete() = %v, %v; want false, nil", deleted, err)
	}
}
