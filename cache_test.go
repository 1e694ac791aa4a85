package idmap

import (
	"context"
	"testing"
	"time"
)

func TestExampleScenario(t *testing.T) {
	cc := newTestCache(t, Options{})
	users := wrapUsers(t, cc, "T")
	ctx := context.Background()

	a := mustNew(t, users, Attrs{"id": 5})
	b := mustNew(t, users, Attrs{"id": 5, "name": "x"})
	if a != b || a.get("name") != "x" {
		t.Fatalf("a and b must be one updated instance")
	}
	a.Release()
	b.Release()
	if n := count(t, cc, users, 5); n != 0 {
		t.Fatalf("count=%d want 0", n)
	}
	if removed := cc.Purge(ctx); removed != 1 {
		t.Fatalf("Purge removed %d, want 1", removed)
	}
	k, _ := users.Key(5)
	s := cc.Inspect()
	if _, ok := s.Entries[k]; ok {
		t.Fatalf("key still cached after purge")
	}
	if _, ok := s.Counts[k]; ok {
		t.Fatalf("counter kept after purge")
	}
}

func TestCountAccountingAllowsNegative(t *testing.T) {
	h := &recHooks{}
	cc := newTestCache(t, Options{Hooks: h})
	users := wrapUsers(t, cc, "user")

	const acquired, released = 3, 5
	var u *user
	for i := 0; i < acquired; i++ {
		u = mustNew(t, users, Attrs{"id": 1})
	}
	for i := 0; i < released; i++ {
		u.Release()
	}
	if n := count(t, cc, users, 1); n != acquired-released {
		t.Fatalf("count=%d want %d", n, acquired-released)
	}
	if len(h.overReleased) != 2 || h.overReleased[0] != -1 || h.overReleased[1] != -2 {
		t.Fatalf("OverReleased hook saw %v, want [-1 -2]", h.overReleased)
	}
	if cc.Purge(context.Background()) != 1 {
		t.Fatalf("negative count must be purgeable")
	}
}

func TestPurgeKeepsHeldEntries(t *testing.T) {
	h := &recHooks{}
	cc := newTestCache(t, Options{Hooks: h})
	users := wrapUsers(t, cc, "user")
	ctx := context.Background()

	held := mustNew(t, users, Attrs{"id": "held"})
	for _, id := range []string{"a", "b", "c"} {
		mustNew(t, users, Attrs{"id": id}).Release()
	}

	if removed := cc.Purge(ctx); removed != 3 {
		t.Fatalf("Purge removed %d, want 3", removed)
	}
	s := cc.Inspect()
	for k, n := range s.Counts {
		if n <= 0 {
			t.Fatalf("key %v with count %d survived purge", k, n)
		}
	}
	k, _ := users.Key("held")
	if s.Entries[k] != Entity(held) {
		t.Fatalf("held entry was purged")
	}
	if cc.Purge(ctx) != 0 {
		t.Fatalf("second purge should find nothing")
	}
	if h.purged != 3 {
		t.Fatalf("Purged hook total=%d want 3", h.purged)
	}

	// a purged key starts over as a miss
	a := mustNew(t, users, Attrs{"id": "a"})
	if n := count(t, cc, users, "a"); n != 1 || a.get("id") != "a" {
		t.Fatalf("re-created entry count=%d", n)
	}
}

func TestResetClearsEverything(t *testing.T) {
	h := &recHooks{}
	cc := newTestCache(t, Options{Hooks: h})
	users := wrapUsers(t, cc, "user")

	old := mustNew(t, users, Attrs{"id": 1, "name": "old"})
	mustNew(t, users, Attrs{"id": 2})

	cc.Reset()
	s := cc.Inspect()
	if len(s.Entries) != 0 || len(s.Counts) != 0 {
		t.Fatalf("Reset left state: %d entries, %d counts", len(s.Entries), len(s.Counts))
	}
	if h.reset != 2 {
		t.Fatalf("Reset hook=%d want 2", h.reset)
	}

	// handles from before the reset no longer count
	old.Release()
	if _, ok := cc.Count(Key{NS: users.Namespace(), ID: "1"}); ok {
		t.Fatalf("stale release created a counter")
	}

	fresh := mustNew(t, users, Attrs{"id": 1})
	if fresh == old {
		t.Fatalf("construct after reset returned the pre-reset instance")
	}
	if fresh.get("name") != nil {
		t.Fatalf("fresh entity inherited old state")
	}
	if n := count(t, cc, users, 1); n != 1 {
		t.Fatalf("count=%d want 1", n)
	}

	// namespaces survive a reset
	if _, err := Wrap(cc, "user", "id", newUser); err == nil {
		t.Fatalf("namespace registration lost on reset")
	}
}

func TestInspectReturnsCopies(t *testing.T) {
	cc := newTestCache(t, Options{})
	users := wrapUsers(t, cc, "user")
	mustNew(t, users, Attrs{"id": 1})

	s := cc.Inspect()
	for k := range s.Entries {
		delete(s.Entries, k)
		s.Counts[k] = 100
	}
	if cc.Len() != 1 || count(t, cc, users, 1) != 1 {
		t.Fatalf("mutating a snapshot changed the cache")
	}
}

func TestBackgroundPurge(t *testing.T) {
	cc := New(Options{PurgeInterval: 5 * time.Millisecond})
	users := wrapUsers(t, cc, "user")

	mustNew(t, users, Attrs{"id": 1}).Release()
	held := mustNew(t, users, Attrs{"id": 2})

	deadline := time.Now().Add(2 * time.Second)
	for cc.Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("background purge did not run; Len=%d", cc.Len())
		}
		time.Sleep(time.Millisecond)
	}
	if err := cc.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := cc.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	held.Release()
}

func TestKeyString(t *testing.T) {
	cc := newTestCache(t, Options{})
	users := wrapUsers(t, cc, "user")
	k, ok := users.Key("a:b")
	if !ok {
		t.Fatal("no key")
	}
	if got := k.String(); got != "1:a:b" {
		t.Fatalf("String()=%q", got)
	}
	if k.NS.Name() != "user" || k.NS.IsZero() {
		t.Fatalf("namespace %+v", k.NS)
	}
	if !(Namespace{}).IsZero() {
		t.Fatal("zero namespace not zero")
	}
}

func TestUnboundHandle(t *testing.T) {
	var h Handle
	h.Release()
	if _, ok := h.Key(); ok {
		t.Fatal("zero Handle reports a key")
	}
}

func TestReleaseAfterPurgeIgnored(t *testing.T) {
	h := &recHooks{}
	cc := newTestCache(t, Options{Hooks: h})
	users := wrapUsers(t, cc, "user")
	ctx := context.Background()

	old := mustNew(t, users, Attrs{"id": 1})
	old.Release()
	if cc.Purge(ctx) != 1 {
		t.Fatal("expected one purged entry")
	}

	old.Release()
	k, _ := users.Key(1)
	if n, ok := cc.Count(k); ok {
		t.Fatalf("release of a purged entry left counter %d", n)
	}
	if len(h.overReleased) != 0 {
		t.Fatalf("OverReleased fired for a purged entry: %v", h.overReleased)
	}

	held := mustNew(t, users, Attrs{"id": 1})
	if n := count(t, cc, users, 1); n != 1 {
		t.Fatalf("fresh acquire count=%d want 1", n)
	}
	if cc.Purge(ctx) != 0 {
		t.Fatal("held entry was purged")
	}
	held.Release()
}
