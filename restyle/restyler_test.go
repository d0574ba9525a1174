package restyle

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hazyhaar/redim/prefs"
)

// fakeSurface records the call sequence so tests can assert ordering.
type fakeSurface struct {
	calls       []string
	failEnsure  bool
	failObserve bool
	observing   bool
}

func (f *fakeSurface) EnsureStylesheets() error {
	f.calls = append(f.calls, "ensure")
	if f.failEnsure {
		return errors.New("inject failed")
	}
	return nil
}

func (f *fakeSurface) RemoveStylesheets() error {
	f.calls = append(f.calls, "remove")
	return nil
}

func (f *fakeSurface) StartObserving(context.Context) error {
	f.calls = append(f.calls, "observe")
	if f.failObserve {
		return errors.New("observe failed")
	}
	f.observing = true
	return nil
}

func (f *fakeSurface) StopObserving() {
	f.calls = append(f.calls, "stop")
	f.observing = false
}

func (f *fakeSurface) ScanAll(context.Context) (int, error) {
	f.calls = append(f.calls, "scan")
	return 3, nil
}

func (f *fakeSurface) RevertAll(context.Context) (int, error) {
	f.calls = append(f.calls, "revert")
	return 3, nil
}

func newTestRestyler(t *testing.T) (*Restyler, *fakeSurface, *prefs.Store) {
	t.Helper()
	surf := &fakeSurface{}
	store := prefs.OpenMemory(t)
	return New(surf, store, nil), surf, store
}

func TestSyncActivatesByDefault(t *testing.T) {
	ryl, surf, _ := newTestRestyler(t)
	ctx := context.Background()

	if err := ryl.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !ryl.Active() {
		t.Fatal("not active after Sync on empty store")
	}

	want := []string{"ensure", "observe", "scan"}
	if !reflect.DeepEqual(surf.calls, want) {
		t.Errorf("activation calls = %v, want %v", surf.calls, want)
	}
}

func TestSyncHonorsStoredDisabled(t *testing.T) {
	ryl, surf, store := newTestRestyler(t)
	ctx := context.Background()

	if err := store.SetEnabled(ctx, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if err := ryl.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if ryl.Active() {
		t.Error("active after Sync with enabled=false")
	}
	if len(surf.calls) != 0 {
		t.Errorf("surface touched while staying inactive: %v", surf.calls)
	}
}

func TestPrefChangeDeactivates(t *testing.T) {
	ryl, surf, _ := newTestRestyler(t)
	ctx := context.Background()

	if err := ryl.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	surf.calls = nil

	ryl.OnPrefChange(ctx, prefs.Event{Key: prefs.KeyEnabled, Old: "true", New: "false"})

	if ryl.Active() {
		t.Fatal("still active after enabled=false")
	}
	want := []string{"remove", "stop", "revert"}
	if !reflect.DeepEqual(surf.calls, want) {
		t.Errorf("deactivation calls = %v, want %v", surf.calls, want)
	}
}

func TestPrefChangeNoOpWhenEqual(t *testing.T) {
	ryl, surf, _ := newTestRestyler(t)
	ctx := context.Background()

	if err := ryl.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	surf.calls = nil

	// Already active; an enabled=true event must not re-run activation.
	ryl.OnPrefChange(ctx, prefs.Event{Key: prefs.KeyEnabled, New: "true"})
	if len(surf.calls) != 0 {
		t.Errorf("surface touched on no-op event: %v", surf.calls)
	}
}

func TestPrefChangeIgnoresOtherKeys(t *testing.T) {
	ryl, surf, _ := newTestRestyler(t)
	ctx := context.Background()

	ryl.OnPrefChange(ctx, prefs.Event{Key: "installed_version", New: "1.2.3"})
	if len(surf.calls) != 0 {
		t.Errorf("surface touched by unrelated key: %v", surf.calls)
	}
}

func TestReactivation(t *testing.T) {
	ryl, surf, _ := newTestRestyler(t)
	ctx := context.Background()

	ryl.OnPrefChange(ctx, prefs.Event{Key: prefs.KeyEnabled, New: "true"})
	ryl.OnPrefChange(ctx, prefs.Event{Key: prefs.KeyEnabled, New: "false"})
	surf.calls = nil

	ryl.OnPrefChange(ctx, prefs.Event{Key: prefs.KeyEnabled, New: "true"})
	if !ryl.Active() {
		t.Fatal("not active after re-enable")
	}
	want := []string{"ensure", "observe", "scan"}
	if !reflect.DeepEqual(surf.calls, want) {
		t.Errorf("reactivation calls = %v, want %v", surf.calls, want)
	}
}

func TestActivateAbortsOnStylesheetFailure(t *testing.T) {
	ryl, surf, _ := newTestRestyler(t)
	surf.failEnsure = true
	ctx := context.Background()

	if err := ryl.Sync(ctx); err == nil {
		t.Fatal("Sync succeeded despite stylesheet failure")
	}
	if ryl.Active() {
		t.Error("active after failed activation")
	}
	// Nothing past the failed injection may run.
	want := []string{"ensure"}
	if !reflect.DeepEqual(surf.calls, want) {
		t.Errorf("calls after failed ensure = %v, want %v", surf.calls, want)
	}
}

func TestActivateRollsBackOnObserverFailure(t *testing.T) {
	ryl, surf, _ := newTestRestyler(t)
	surf.failObserve = true
	ctx := context.Background()

	if err := ryl.Sync(ctx); err == nil {
		t.Fatal("Sync succeeded despite observer failure")
	}
	if ryl.Active() {
		t.Error("active after failed activation")
	}
	want := []string{"ensure", "observe", "remove"}
	if !reflect.DeepEqual(surf.calls, want) {
		t.Errorf("calls = %v, want %v", surf.calls, want)
	}
}

func TestRebindReactivates(t *testing.T) {
	ryl, old, _ := newTestRestyler(t)
	ctx := context.Background()

	if err := ryl.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	old.calls = nil

	fresh := &fakeSurface{}
	if err := ryl.Rebind(ctx, fresh); err != nil {
		t.Fatalf("Rebind: %v", err)
	}
	if !ryl.Active() {
		t.Fatal("not active after Rebind of an active restyler")
	}
	if !reflect.DeepEqual(old.calls, []string{"stop"}) {
		t.Errorf("old surface calls = %v, want [stop]", old.calls)
	}
	want := []string{"ensure", "observe", "scan"}
	if !reflect.DeepEqual(fresh.calls, want) {
		t.Errorf("fresh surface calls = %v, want %v", fresh.calls, want)
	}
}

func TestRebindStaysInactive(t *testing.T) {
	ryl, _, _ := newTestRestyler(t)
	ctx := context.Background()

	fresh := &fakeSurface{}
	if err := ryl.Rebind(ctx, fresh); err != nil {
		t.Fatalf("Rebind: %v", err)
	}
	if ryl.Active() {
		t.Error("active after Rebind of an inactive restyler")
	}
	if len(fresh.calls) != 0 {
		t.Errorf("fresh surface touched: %v", fresh.calls)
	}
}

func TestShutdownRestores(t *testing.T) {
	ryl, surf, _ := newTestRestyler(t)
	ctx := context.Background()

	if err := ryl.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	surf.calls = nil

	ryl.Shutdown(ctx)
	if ryl.Active() {
		t.Error("active after Shutdown")
	}
	want := []string{"remove", "stop", "revert"}
	if !reflect.DeepEqual(surf.calls, want) {
		t.Errorf("shutdown calls = %v, want %v", surf.calls, want)
	}

	// Shutdown while inactive is a no-op.
	surf.calls = nil
	ryl.Shutdown(ctx)
	if len(surf.calls) != 0 {
		t.Errorf("surface touched by idle shutdown: %v", surf.calls)
	}
}
