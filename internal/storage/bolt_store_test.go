package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func TestBoltStoreDetectsChanges(t *testing.T) {
	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "outcomes.db"), normalizeOptions(Options{}))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	changed, err := store.Changed("probe-1", "sig-a")
	if err != nil || !changed {
		t.Fatalf("expected unseen probe to be changed, changed=%v err=%v", changed, err)
	}

	if err := store.Record("probe-1", "sig-a"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	changed, err = store.Changed("probe-1", "sig-a")
	if err != nil || changed {
		t.Fatalf("expected same signature to be unchanged, changed=%v err=%v", changed, err)
	}

	changed, err = store.Changed("probe-1", "sig-b")
	if err != nil || !changed {
		t.Fatalf("expected different signature to be changed, changed=%v err=%v", changed, err)
	}
}

func TestBoltStoreExpiresEntries(t *testing.T) {
	opts := Options{
		OutcomeTTL:      1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	storeRaw, err := openBolt(t.TempDir()+"/outcomes.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	if err := store.Record("probe-1", "sig"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	changed, err := store.Changed("probe-1", "sig")
	if err != nil {
		t.Fatalf("Changed after expiry: %v", err)
	}
	if !changed {
		t.Fatalf("expected expired entry to count as changed")
	}
}

func TestDecodeEntryRejectsShortValues(t *testing.T) {
	if _, _, ok := decodeEntry([]byte{1, 2}); ok {
		t.Fatalf("expected short value to be rejected")
	}
	expiry, sig, ok := decodeEntry(encodeEntry(time.Unix(100, 0), "abc"))
	if !ok || sig != "abc" || expiry.Unix() != 100 {
		t.Fatalf("round trip failed: %v %q %v", expiry, sig, ok)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	changed, err := store.Changed("x", "y")
	if err != nil || !changed {
		t.Fatalf("noop store should always report changes")
	}
	if err := store.Record("x", "y"); err != nil {
		t.Fatalf("noop store Record: %v", err)
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected unsupported type error")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected missing path error")
	}
}
