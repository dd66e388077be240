package device

import (
	"context"
	"errors"
	"testing"

	"hybrid-session-hub/internal/device/domain"
	"hybrid-session-hub/internal/device/repository"
)

func newTestRegistry() *Registry {
	return NewRegistry(repository.NewMemoryRepository())
}

func TestRegister_CreatesDevice(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	d, err := reg.Register(ctx, "fp-1", Attributes{Brand: "Samsung", Model: "A52", Platform: "android"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if d.ID == "" {
		t.Error("device ID should be set")
	}
	if d.Fingerprint != "fp-1" {
		t.Errorf("Fingerprint = %q, want %q", d.Fingerprint, "fp-1")
	}
	if d.OwnerAccountID != nil {
		t.Error("new device should have no owner")
	}
}

func TestRegister_IdempotentByFingerprint(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	first, err := reg.Register(ctx, "fp-1", Attributes{Brand: "Samsung"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	second, err := reg.Register(ctx, "fp-1", Attributes{Brand: "Xiaomi"})
	if err != nil {
		t.Fatalf("Register again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second register returned new device %q, want existing %q", second.ID, first.ID)
	}
	if second.Brand != "Samsung" {
		t.Errorf("Brand = %q; re-registration must not overwrite attributes", second.Brand)
	}
}

func TestSetOwner_Overwrite(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	d, _ := reg.Register(ctx, "fp-1", Attributes{})

	change, err := reg.SetOwner(ctx, d.ID, "alice")
	if err != nil {
		t.Fatalf("SetOwner: %v", err)
	}
	if change.PreviousOwnerID != "" {
		t.Errorf("PreviousOwnerID = %q, want empty for first owner", change.PreviousOwnerID)
	}
	if change.Device.OwnerAccountID == nil || *change.Device.OwnerAccountID != "alice" {
		t.Error("owner pointer should be alice")
	}

	// A different account always wins; no exclusivity check.
	change, err = reg.SetOwner(ctx, d.ID, "bob")
	if err != nil {
		t.Fatalf("SetOwner to bob: %v", err)
	}
	if change.PreviousOwnerID != "alice" {
		t.Errorf("PreviousOwnerID = %q, want %q", change.PreviousOwnerID, "alice")
	}
	if change.Device.Metadata[domain.MetaPreviousOwner] != "alice" {
		t.Errorf("metadata previous owner = %q, want alice", change.Device.Metadata[domain.MetaPreviousOwner])
	}
	if change.Device.Metadata[domain.MetaLastOwnerChange] == "" {
		t.Error("metadata last owner change should be stamped")
	}
}

func TestSetOwner_UnknownDevice(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.SetOwner(context.Background(), "nope", "alice")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDevicesForAccount(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	d1, _ := reg.Register(ctx, "fp-1", Attributes{})
	d2, _ := reg.Register(ctx, "fp-2", Attributes{})
	if _, err := reg.SetOwner(ctx, d1.ID, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.SetOwner(ctx, d2.ID, "bob"); err != nil {
		t.Fatal(err)
	}

	list, err := reg.DevicesForAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("DevicesForAccount: %v", err)
	}
	if len(list) != 1 || list[0].ID != d1.ID {
		t.Errorf("DevicesForAccount(alice) = %v, want [%s]", list, d1.ID)
	}
}
