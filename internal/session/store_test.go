package session

import (
	"context"
	"testing"
	"time"

	"github.com/rpattn/sheetpattern/internal/domain"
	"github.com/rpattn/sheetpattern/internal/recorder"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

func sampleSnapshot() Snapshot {
	steps := []domain.PatternStep{
		domain.NewColumnNameStep("s1", 0, "Name", "Full Name", 1000),
		domain.NewCellValueStep("s2", 3, 1, "a", "b", 1200),
	}
	state := recorder.NewState().
		With(recorder.ColumnTarget(0), recorder.Entry{StepIndex: 0, LastTimestamp: 1000, OriginalFrom: "Name"}).
		With(recorder.CellTarget(domain.StepSetCellValue, 3, 1), recorder.Entry{StepIndex: 1, LastTimestamp: 1200, OriginalFrom: "a"})
	return Snapshot{Steps: steps, State: state, UpdatedAt: time.UnixMilli(1200).UTC()}
}

func assertSnapshotEqual(t *testing.T, want, got Snapshot) {
	t.Helper()
	if diff := cmp.Diff(want.Steps, got.Steps); diff != "" {
		t.Fatalf("steps differ (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.State.Targets(), got.State.Targets()); diff != "" {
		t.Fatalf("state targets differ (-want +got):\n%s", diff)
	}
	for _, target := range want.State.Targets() {
		wantEntry, _ := want.State.Lookup(target)
		gotEntry, ok := got.State.Lookup(target)
		if !ok || wantEntry != gotEntry {
			t.Fatalf("entry for %+v: want %+v, got %+v", target, wantEntry, gotEntry)
		}
	}
	if !want.UpdatedAt.Equal(got.UpdatedAt) {
		t.Fatalf("updatedAt: want %s, got %s", want.UpdatedAt, got.UpdatedAt)
	}
}

func TestMemoryStoreCopiesSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	snapshot := sampleSnapshot()

	if err := store.Save(ctx, "s", snapshot); err != nil {
		t.Fatalf("save: %v", err)
	}
	snapshot.Steps[0] = domain.NewColumnNameStep("mutated", 9, "", "", 0)

	loaded, ok, err := store.Load(ctx, "s")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if loaded.Steps[0].ID != "s1" {
		t.Fatalf("store kept a reference to the caller's slice")
	}

	if err := store.Delete(ctx, "s"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Load(ctx, "s"); ok {
		t.Fatalf("expected session to be gone")
	}
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)
	snapshot := sampleSnapshot()

	if err := store.Save(ctx, "abc", snapshot); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("sheetpattern:session:abc") {
		t.Fatalf("expected key under the session prefix, have %v", mr.Keys())
	}
	if ttl := mr.TTL("sheetpattern:session:abc"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %s", ttl)
	}

	loaded, ok, err := store.Load(ctx, "abc")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	assertSnapshotEqual(t, snapshot, loaded)
}

func TestRedisStoreExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	if err := store.Save(ctx, "idle", sampleSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(30 * time.Second)
	if err := store.Save(ctx, "idle", sampleSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(45 * time.Second)
	if _, ok, _ := store.Load(ctx, "idle"); !ok {
		t.Fatalf("save should have refreshed the ttl")
	}

	mr.FastForward(time.Minute)
	if _, ok, err := store.Load(ctx, "idle"); ok || err != nil {
		t.Fatalf("expected expired session, ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreDefaultsAndDelete(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, 0)
	if store.ttl != DefaultTTL {
		t.Fatalf("expected default ttl, got %s", store.ttl)
	}

	if err := store.Save(ctx, "gone", sampleSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "gone"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("sheetpattern:session:gone") {
		t.Fatalf("key still present after delete")
	}
}

func TestRedisStoreCorruptPayload(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	if err := mr.Set("sheetpattern:session:bad", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := store.Load(context.Background(), "bad"); err == nil {
		t.Fatalf("expected decode error")
	}
}
