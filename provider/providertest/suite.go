// Package providertest holds the behavior every archive Provider must show.
// Backends call TestProvider from their own tests.
package providertest

import (
	"bytes"
	"context"
	"testing"
	"time"

	pr "github.com/unkn0wn-root/idmap/provider"
)

// TestProvider runs the contract suite against p. p must be empty.
func TestProvider(t *testing.T, p pr.Provider) {
	t.Run("MissOnEmpty", func(t *testing.T) { testMiss(t, p) })
	t.Run("RoundTripTransparent", func(t *testing.T) { testRoundTrip(t, p) })
	t.Run("Overwrite", func(t *testing.T) { testOverwrite(t, p) })
	t.Run("DeleteMissingIsNoError", func(t *testing.T) { testDelMissing(t, p) })
}

func testMiss(t *testing.T, p pr.Provider) {
	b, ok, err := p.Get(context.Background(), "idmap:4:none:1")
	if err != nil || ok || b != nil {
		t.Fatalf("Get on empty: b=%v ok=%v err=%v, want miss", b, ok, err)
	}
}

func testRoundTrip(t *testing.T, p pr.Provider) {
	ctx := context.Background()
	k := "idmap:4:user:rt"
	in := []byte{'I', 'D', 'M', 'P', 0, 1, 2, 0xff}
	ok, err := p.Set(ctx, k, in, int64(len(in)), time.Minute)
	if err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	got, ok, err := p.Get(ctx, k)
	if err != nil || !ok {
		t.Fatalf("Get after Set: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, in) {
		t.Fatalf("provider not transparent: got %x want %x", got, in)
	}
	if err := p.Del(ctx, k); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := p.Get(ctx, k); ok {
		t.Fatalf("Get after Del should miss")
	}
}

func testOverwrite(t *testing.T, p pr.Provider) {
	ctx := context.Background()
	k := "idmap:4:user:ow"
	for _, v := range []string{"first", "second"} {
		if ok, err := p.Set(ctx, k, []byte(v), int64(len(v)), time.Minute); err != nil || !ok {
			t.Fatalf("Set(%q): ok=%v err=%v", v, ok, err)
		}
	}
	got, ok, err := p.Get(ctx, k)
	if err != nil || !ok || string(got) != "second" {
		t.Fatalf("Get after overwrite: got=%q ok=%v err=%v", got, ok, err)
	}
	_ = p.Del(ctx, k)
}

func testDelMissing(t *testing.T, p pr.Provider) {
	if err := p.Del(context.Background(), "idmap:4:user:never"); err != nil {
		t.Fatalf("Del of missing key: %v", err)
	}
}
