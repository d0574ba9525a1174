package prefs

import (
	"context"
	"testing"
)

func TestGetDefault(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	if got := s.Get(ctx, "missing", "fallback"); got != "fallback" {
		t.Errorf("Get(missing) = %q, want fallback", got)
	}
}

func TestSetGet(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := s.Get(ctx, "k", ""); got != "v1" {
		t.Errorf("Get = %q, want v1", got)
	}

	if err := s.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if got := s.Get(ctx, "k", ""); got != "v2" {
		t.Errorf("Get after overwrite = %q, want v2", got)
	}
}

func TestEnabledDefaultsTrue(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	if !s.Enabled(ctx) {
		t.Fatal("Enabled() on empty store = false, want true")
	}

	if err := s.SetEnabled(ctx, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if s.Enabled(ctx) {
		t.Error("Enabled() after SetEnabled(false) = true")
	}

	if err := s.SetEnabled(ctx, true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if !s.Enabled(ctx) {
		t.Error("Enabled() after SetEnabled(true) = false")
	}
}

func TestEnabledGarbageValue(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	if err := s.Set(ctx, KeyEnabled, "banana"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !s.Enabled(ctx) {
		t.Error("Enabled() with unparseable value = false, want true")
	}
}

func TestSetBumpsVersion(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	v0, err := s.Version(ctx)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}

	if err := s.Set(ctx, "a", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v1, err := s.Version(ctx)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v1 != v0+1 {
		t.Errorf("version after one Set = %d, want %d", v1, v0+1)
	}

	if err := s.Set(ctx, "a", "2"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v2, err := s.Version(ctx)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v2 != v0+2 {
		t.Errorf("version after two Sets = %d, want %d", v2, v0+2)
	}
}

func TestSnapshot(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	for k, v := range map[string]string{"a": "1", "b": "2"} {
		if err := s.Set(ctx, k, v); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) != 2 || snap["a"] != "1" || snap["b"] != "2" {
		t.Errorf("Snapshot = %v", snap)
	}
}

func TestRecordInstalledVersion(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	if err := s.RecordInstalledVersion(ctx, "1.2.0"); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if got := s.Get(ctx, KeyInstalledVersion, ""); got != "1.2.0" {
		t.Errorf("installed_version = %q, want 1.2.0", got)
	}

	// Upgrade, downgrade, and same-version paths all keep the stored
	// value current.
	for _, v := range []string{"1.3.0", "1.1.0", "1.1.0"} {
		if err := s.RecordInstalledVersion(ctx, v); err != nil {
			t.Fatalf("record %s: %v", v, err)
		}
		if got := s.Get(ctx, KeyInstalledVersion, ""); got != v {
			t.Errorf("installed_version = %q, want %s", got, v)
		}
	}
}
