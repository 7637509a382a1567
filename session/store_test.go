package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreTest(t *testing.T) (*Store, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "ivs")
	return store, func() {
		rdb.Close()
		mr.Close()
	}
}

func testSession(identityID, sessionID string, createdAt time.Time) *Session {
	return &Session{
		SessionID:  sessionID,
		IdentityID: identityID,
		TokenValue: "tok",
		UserAgent:  "ua/1.0",
		IPAddress:  "192.0.2.1",
		CreatedAt:  createdAt,
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	store, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	sess := testSession("id-1", "sid-1", time.Now())
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !sess.Active {
		t.Fatal("expected Save to mark the session active")
	}

	got, err := store.Get(ctx, "id-1", "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TokenValue != "tok" || got.UserAgent != "ua/1.0" || got.IPAddress != "192.0.2.1" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if !got.Active {
		t.Fatal("expected active session")
	}
}

func TestGetMissing(t *testing.T) {
	store, done := newStoreTest(t)
	defer done()

	if _, err := store.Get(context.Background(), "id-1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTouchOnlyLiveSessions(t *testing.T) {
	store, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	sess := testSession("id-1", "sid-1", time.Now().Add(-time.Hour))
	sess.LastActivity = sess.CreatedAt
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	applied, err := store.Touch(ctx, "id-1", "sid-1")
	if err != nil || !applied {
		t.Fatalf("touch live: applied=%v err=%v", applied, err)
	}
	got, err := store.Get(ctx, "id-1", "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.LastActivity.After(got.CreatedAt) {
		t.Fatalf("expected last activity to advance, got %v", got.LastActivity)
	}

	applied, err = store.Touch(ctx, "id-1", "ghost")
	if err != nil {
		t.Fatalf("touch missing errored: %v", err)
	}
	if applied {
		t.Fatal("expected missing touch to be a no-op")
	}

	if _, err := store.Deactivate(ctx, "id-1", "sid-1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	applied, err = store.Touch(ctx, "id-1", "sid-1")
	if err != nil {
		t.Fatalf("touch revoked errored: %v", err)
	}
	if applied {
		t.Fatal("expected revoked touch to be a no-op")
	}
}

func TestDeactivateIdempotentKeepsRecord(t *testing.T) {
	store, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, testSession("id-1", "sid-1", time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}

	applied, err := store.Deactivate(ctx, "id-1", "sid-1")
	if err != nil || !applied {
		t.Fatalf("first deactivate: applied=%v err=%v", applied, err)
	}
	applied, err = store.Deactivate(ctx, "id-1", "sid-1")
	if err != nil {
		t.Fatalf("second deactivate errored: %v", err)
	}
	if applied {
		t.Fatal("expected second deactivate to report false")
	}
	applied, err = store.Deactivate(ctx, "id-1", "ghost")
	if err != nil || applied {
		t.Fatalf("missing deactivate: applied=%v err=%v", applied, err)
	}

	got, err := store.Get(ctx, "id-1", "sid-1")
	if err != nil {
		t.Fatalf("get after deactivate: %v", err)
	}
	if got.Active {
		t.Fatal("expected inactive session")
	}
}

func TestDeactivateAllCountsOnlyLive(t *testing.T) {
	store, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := store.Save(ctx, testSession("id-1", fmt.Sprintf("sid-%d", i), now)); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	if _, err := store.Deactivate(ctx, "id-1", "sid-0"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	count, err := store.DeactivateAll(ctx, "id-1")
	if err != nil {
		t.Fatalf("deactivate all: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 flips, got %d", count)
	}

	count, err = store.DeactivateAll(ctx, "id-1")
	if err != nil {
		t.Fatalf("second deactivate all: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 on repeat, got %d", count)
	}
}

func TestActiveIteratesAscendingAndSkipsInactive(t *testing.T) {
	store, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		sess := testSession("id-1", fmt.Sprintf("sid-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := store.Save(ctx, sess); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	if _, err := store.Deactivate(ctx, "id-1", "sid-2"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	var got []string
	for sess, err := range store.Active(ctx, "id-1") {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		got = append(got, sess.SessionID)
	}

	want := []string{"sid-0", "sid-1", "sid-3", "sid-4"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestActivePagesPastOnePage(t *testing.T) {
	store, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	base := time.Now().Add(-24 * time.Hour)
	const total = iterPageSize*2 + 7
	for i := 0; i < total; i++ {
		sess := testSession("id-1", fmt.Sprintf("sid-%04d", i), base.Add(time.Duration(i)*time.Second))
		if err := store.Save(ctx, sess); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	count := 0
	for _, err := range store.Active(ctx, "id-1") {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		count++
	}
	if count != total {
		t.Fatalf("expected %d sessions, got %d", total, count)
	}
}

func TestPruneDropsOnlyStaleInactiveIndexEntries(t *testing.T) {
	store, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	old := testSession("id-1", "sid-old", time.Now().Add(-48*time.Hour))
	old.LastActivity = old.CreatedAt
	fresh := testSession("id-1", "sid-fresh", time.Now())

	if err := store.Save(ctx, old); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := store.Save(ctx, fresh); err != nil {
		t.Fatalf("save fresh: %v", err)
	}
	if _, err := store.Deactivate(ctx, "id-1", "sid-old"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	pruned, err := store.Prune(ctx, "id-1", 24*time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned, got %d", pruned)
	}

	// Record retained for audit even though the index entry is gone.
	got, err := store.Get(ctx, "id-1", "sid-old")
	if err != nil {
		t.Fatalf("get pruned record: %v", err)
	}
	if got.Active {
		t.Fatal("expected pruned session inactive")
	}

	count := 0
	for _, err := range store.Active(ctx, "id-1") {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		count++
	}
	if count != 1 {
		t.Fatalf("expected 1 remaining active session, got %d", count)
	}

	if pruned, err := store.Prune(ctx, "id-1", 0); err != nil || pruned != 0 {
		t.Fatalf("expected zero-retention prune to no-op, got pruned=%d err=%v", pruned, err)
	}
}
