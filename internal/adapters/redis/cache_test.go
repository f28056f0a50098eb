package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "campus_coffee/internal/adapters/redis"
	"campus_coffee/internal/domain"
)

func TestCache_SetGetDel(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	var out []domain.Review
	ok, err := c.Get(ctx, "k", &out)
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	in := []domain.Review{{ID: 3, PosID: 1, AuthorID: 2, Text: "hi", ApprovalCount: 1}}
	if err := c.Set(ctx, "k", in, 30); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL("k"); ttl != 30*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	ok, err = c.Get(ctx, "k", &out)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(out) != 1 || out[0].Text != "hi" || out[0].ApprovalCount != 1 {
		t.Fatalf("unexpected value: %+v", out)
	}

	if err := c.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if mr.Exists("k") {
		t.Fatalf("key still present after Del")
	}
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	if err := mr.Set("k", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var out []domain.Review
	ok, err := c.Get(context.Background(), "k", &out)
	if ok || err == nil {
		t.Fatalf("expected decode error miss, got ok=%v err=%v", ok, err)
	}
}
